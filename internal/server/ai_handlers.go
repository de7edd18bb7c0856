package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/ai"
	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/router"
	"github.com/aristath/fks-analytics/internal/signals"
)

func (s *Server) registerAIRoutes(r chi.Router) {
	r.Route("/ai", func(r chi.Router) {
		r.Get("/analyze/{symbol}", s.handleAIAnalyze)
		r.Get("/compare", s.handleAICompare)
		r.Get("/health", s.handleAIHealth)
	})
}

// handleAIAnalyze sends one symbol's indicator snapshot to the analysis
// service. The service degrading to its fallback is still a 200; callers
// see that in the summary.
func (s *Server) handleAIAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -signalWindowDays)
	series, err := s.deps.Router.FetchDaily(r.Context(), symbol, start, end, router.DefaultOptions())
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no history for "+symbol)
		return
	}

	ind := s.deps.Engine.Snapshot(series)
	if ind == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "not enough history for "+symbol)
		return
	}

	analysis := s.deps.AI.AnalyzeSymbol(r.Context(), symbol, ind.Map())
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":         symbol,
		"confidence":     analysis.Confidence,
		"decision":       analysis.FinalDecision,
		"summary":        analysis.Summary,
		"bull_consensus": analysis.BullConsensus,
		"bear_consensus": analysis.BearConsensus,
	})
}

// signalComparison pairs a rule-based signal with the service's verdict.
type signalComparison struct {
	Signal   domain.TradingSignal `json:"signal"`
	Analysis ai.Analysis          `json:"analysis"`
	Agrees   bool                 `json:"agrees"`
}

// handleAICompare generates fresh signals for one category and puts each
// through a bull/bear debate, reporting where the service agrees with the
// rule engine.
func (s *Server) handleAICompare(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = string(signals.CategorySwing)
	}
	cfg, err := signals.CategoryByName(category)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbols := s.parseSymbols(r)
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no symbols to evaluate")
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -signalWindowDays)
	series := s.deps.Router.FetchAll(r.Context(), symbols, start, end, router.DefaultOptions())
	if len(series) == 0 {
		s.writeError(w, http.StatusServiceUnavailable, "no history available for requested symbols")
		return
	}

	sigs := s.deps.Generator.Generate(series, cfg, s.buildBiasReport(r))

	comparisons := make([]signalComparison, 0, len(sigs))
	agreements := 0
	for _, sig := range sigs {
		analysis := s.deps.AI.DebateSignal(r.Context(), sig)
		agrees := decisionMatchesSide(analysis.FinalDecision, sig.Side)
		if agrees {
			agreements++
		}
		comparisons = append(comparisons, signalComparison{
			Signal:   sig,
			Analysis: analysis,
			Agrees:   agrees,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"category":    category,
		"signals":     len(comparisons),
		"agreements":  agreements,
		"comparisons": comparisons,
	})
}

func decisionMatchesSide(decision string, side domain.Side) bool {
	switch strings.ToUpper(decision) {
	case "BUY":
		return side == domain.SideBuy
	case "SELL":
		return side == domain.SideSell
	}
	return false
}

func (s *Server) handleAIHealth(w http.ResponseWriter, r *http.Request) {
	serviceURL := ""
	if s.deps.Cfg != nil {
		serviceURL = s.deps.Cfg.AIBaseURL
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ai_service_healthy": s.deps.AI.HealthCheck(r.Context()),
		"service_url":        serviceURL,
	})
}
