package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const serviceName = "fks-analytics"

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles liveness checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": serviceName,
		"version": "1.0.0",
	})
}

// handleReady reports readiness: storage answering and at least one data
// adapter registered.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"storage": "ok", "adapters": "ok"}
	ready := true

	if err := s.deps.Store.HealthCheck(ctx); err != nil {
		checks["storage"] = err.Error()
		ready = false
	}
	if len(s.deps.Router.AdapterNames()) == 0 {
		checks["adapters"] = "no adapters registered"
		ready = false
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{"ready": ready, "checks": checks})
}

// handleRoot describes the service
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     serviceName,
		"description": "portfolio analytics and trading signal service",
		"endpoints": []string{
			"/health", "/ready", "/api/system/stats",
			"/api/assets/prices", "/api/assets/enabled", "/api/history/{symbol}",
			"/api/portfolio/value", "/api/correlation/btc", "/api/correlation/matrix",
			"/api/diversification/score", "/api/optimization/weights",
			"/api/risk/cvar", "/api/risk/report", "/api/factors/analysis",
			"/api/signals/generate", "/api/signals/summary", "/api/signals/categories",
			"/api/guidance/recommendations", "/api/guidance/workflow",
			"/api/guidance/performance", "/api/guidance/history", "/api/guidance/log",
			"/api/allocation/calculate", "/api/allocation/targets",
			"/api/allocation/check-rebalancing", "/api/allocation/drift",
			"/api/allocation/multi-account/summary",
		},
	})
}

func (s *Server) registerSystemRoutes(r chi.Router) {
	r.Get("/system/stats", s.handleSystemStats)
}

// handleSystemStats reports process and host statistics.
// The short CPU sampling interval keeps the endpoint responsive.
func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	stats := map[string]interface{}{
		"cpu_percent": cpuPercent[0],
		"goroutines":  runtime.NumGoroutine(),
		"cache":       s.deps.Cache.Stats(),
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		stats["memory_percent"] = memStat.UsedPercent
		stats["memory_used_mb"] = float64(memStat.Used) / 1024 / 1024
	}
	if diskStat, err := disk.Usage(s.deps.Cfg.DataDir); err == nil {
		stats["disk_percent"] = diskStat.UsedPercent
	}
	if !s.deps.Collector.LastSweep().IsZero() {
		stats["last_collection"] = s.deps.Collector.LastSweep().UTC().Format(time.RFC3339)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if count, err := s.deps.Store.Count(ctx); err == nil {
		stats["stored_bars"] = count
	}

	s.writeJSON(w, http.StatusOK, stats)
}
