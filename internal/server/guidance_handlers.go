package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/guidance"
	"github.com/aristath/fks-analytics/internal/router"
	"github.com/aristath/fks-analytics/internal/signals"
)

const defaultPerformanceDays = 30

func (s *Server) registerGuidanceRoutes(r chi.Router) {
	r.Route("/guidance", func(r chi.Router) {
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/workflow", s.handleWorkflow)
		r.Get("/performance", s.handleGuidancePerformance)
		r.Get("/history", s.handleGuidanceHistory)
		r.Post("/log", s.handleGuidanceLog)
	})
}

// buildBiasReport derives a bias report from the decision history and
// current book. Missing inputs degrade to an empty report rather than
// blocking a request.
func (s *Server) buildBiasReport(r *http.Request) domain.BiasReport {
	history, err := s.deps.DecisionLog.History()
	if err != nil {
		s.log.Warn().Err(err).Msg("Decision history unavailable for bias analysis")
	}

	positions := make(map[string]float64)
	if holdings, err := s.loadHoldings(); err == nil {
		value := s.deps.Converter.PortfolioInBTC(r.Context(), holdings)
		total := value.Values["_total"]
		if total > 0 {
			for symbol, v := range value.Values {
				if symbol == "_total" {
					continue
				}
				positions[symbol] = v / total
			}
		}
	}

	return s.deps.Bias.Analyze(history, positions, nil)
}

// handleRecommendations generates fresh signals and runs each through the
// decision support review.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no symbols to evaluate")
		return
	}

	cfg, err := signals.CategoryByName(r.URL.Query().Get("category"))
	if err != nil {
		cfg, _ = signals.CategoryByName(string(signals.CategorySwing))
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -signalWindowDays)
	series := s.deps.Router.FetchAll(r.Context(), symbols, start, end, router.DefaultOptions())
	if len(series) == 0 {
		s.writeError(w, http.StatusServiceUnavailable, "no history available for requested symbols")
		return
	}

	biasReport := s.buildBiasReport(r)
	sigs := s.deps.Generator.Generate(series, cfg, biasReport)
	recommendations := s.deps.Advisor.ReviewAll(sigs, biasReport)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"category":        cfg.Name,
		"bias_report":     biasReport,
		"recommendations": recommendations,
	})
}

// handleWorkflow returns the execution checklist for the strongest current
// recommendation.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no symbols to evaluate")
		return
	}

	cfg, err := signals.CategoryByName(r.URL.Query().Get("category"))
	if err != nil {
		cfg, _ = signals.CategoryByName(string(signals.CategorySwing))
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -signalWindowDays)
	series := s.deps.Router.FetchAll(r.Context(), symbols, start, end, router.DefaultOptions())

	biasReport := s.buildBiasReport(r)
	sigs := s.deps.Generator.Generate(series, cfg, biasReport)
	recommendations := s.deps.Advisor.ReviewAll(sigs, biasReport)
	if len(recommendations) == 0 {
		s.writeError(w, http.StatusNotFound, "no actionable recommendation")
		return
	}

	top := recommendations[0]
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendation": top,
		"workflow":       guidance.BuildWorkflow(top),
	})
}

func (s *Server) handleGuidancePerformance(w http.ResponseWriter, r *http.Request) {
	days := defaultPerformanceDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	performance, err := s.deps.DecisionLog.Performance(days)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, performance)
}

func (s *Server) handleGuidanceHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.DecisionLog.History()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(history),
		"history": history,
	})
}

// guidanceLogRequest either appends a new decision or resolves an open one
type guidanceLogRequest struct {
	domain.DecisionRecord
	ResolveOutcome domain.Outcome `json:"resolve_outcome,omitempty"`
}

func (s *Server) handleGuidanceLog(w http.ResponseWriter, r *http.Request) {
	var req guidanceLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	if req.ResolveOutcome != "" {
		if req.ResolveOutcome != domain.OutcomeWin && req.ResolveOutcome != domain.OutcomeLoss {
			s.writeError(w, http.StatusBadRequest, "resolve_outcome must be win or loss")
			return
		}
		err := s.deps.DecisionLog.UpdateOutcome(req.Symbol, req.SignalTimestamp, req.ResolveOutcome, req.PnLBTC)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":  req.Symbol,
			"outcome": req.ResolveOutcome,
		})
		return
	}

	rec, err := s.deps.DecisionLog.Append(req.DecisionRecord)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}
