package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/router"
	"github.com/aristath/fks-analytics/internal/signals"
)

// signalWindowDays gives the indicator engine enough history for its
// longest moving average plus weekends and holidays.
const signalWindowDays = 120

func (s *Server) registerSignalRoutes(r chi.Router) {
	r.Route("/signals", func(r chi.Router) {
		r.Get("/generate", s.handleSignalsGenerate)
		r.Get("/from-files", s.handleSignalsFromFiles)
		r.Get("/summary", s.handleSignalsSummary)
		r.Get("/categories", s.handleSignalCategories)
	})
}

func (s *Server) handleSignalsGenerate(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no symbols to evaluate")
		return
	}

	categories := signals.Categories()
	if name := r.URL.Query().Get("category"); name != "" {
		cfg, err := signals.CategoryByName(name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		categories = []signals.CategoryConfig{cfg}
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -signalWindowDays)
	series := s.deps.Router.FetchAll(r.Context(), symbols, start, end, router.DefaultOptions())
	if len(series) == 0 {
		s.writeError(w, http.StatusServiceUnavailable, "no history available for requested symbols")
		return
	}

	biasReport := s.buildBiasReport(r)

	byCategory := make(map[signals.Category][]domain.TradingSignal, len(categories))
	for _, cfg := range categories {
		sigs := s.deps.Generator.Generate(series, cfg, biasReport)
		byCategory[cfg.Name] = sigs
		if err := s.deps.SignalStore.Save(cfg.Name, end, sigs); err != nil {
			s.log.Error().Err(err).Str("category", string(cfg.Name)).Msg("Failed to persist signals")
		}
	}

	summary := signals.BuildSummary(end, byCategory)
	if err := s.deps.SignalStore.SaveSummary(end, summary); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist signal summary")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    end.Format("2006-01-02"),
		"signals": byCategory,
		"summary": summary,
	})
}

// defaultSizingBalance sizes stored signals when no balance is given
const defaultSizingBalance = 10000.0

// handleSignalsFromFiles serves previously persisted signals, sized
// against an account balance and paired with next-session entry plans.
func (s *Server) handleSignalsFromFiles(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		date = t
	}

	balance := defaultSizingBalance
	if v := r.URL.Query().Get("balance"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "balance must be a positive number")
			return
		}
		balance = parsed
	}

	categories := signals.Categories()
	if name := r.URL.Query().Get("category"); name != "" {
		cfg, err := signals.CategoryByName(name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		categories = []signals.CategoryConfig{cfg}
	}

	byCategory := make(map[string][]signals.SizedSignal, len(categories))
	total := 0
	for _, cfg := range categories {
		sized, err := s.deps.SignalStore.LoadSized(cfg.Name, date, balance, s.classFor)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		byCategory[string(cfg.Name)] = sized
		total += len(sized)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":          date.Format("2006-01-02"),
		"balance":       balance,
		"total_signals": total,
		"signals":       byCategory,
	})
}

func (s *Server) handleSignalsSummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		date = t
	}

	summary, err := s.deps.SignalStore.LoadSummary(date)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		s.writeError(w, http.StatusNotFound, "no summary for "+date.Format("2006-01-02"))
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSignalCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": signals.Categories(),
	})
}
