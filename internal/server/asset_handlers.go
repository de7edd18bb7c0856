package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/router"
)

// historyDefaultDays is the window served when no range is given
const historyDefaultDays = 365

func (s *Server) registerAssetRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/prices", s.handleAssetPrices)
		r.Get("/enabled", s.handleAssetsEnabled)
		r.Post("/{symbol}/enable", s.handleAssetEnable)
		r.Post("/{symbol}/disable", s.handleAssetDisable)
	})
	r.Get("/history/{symbol}", s.handleHistory)
}

// parseSymbols splits a comma separated symbols parameter, falling back to
// the enabled universe when absent.
func (s *Server) parseSymbols(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("symbols"))
	if raw == "" {
		enabled := s.deps.Assets.Enabled()
		symbols := make([]string, len(enabled))
		for i, a := range enabled {
			symbols[i] = a.Symbol
		}
		return symbols
	}

	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}

func (s *Server) handleAssetPrices(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no symbols requested")
		return
	}

	prices := make(map[string]float64, len(symbols))
	var errs []string
	for _, symbol := range symbols {
		quote, err := s.deps.Router.FetchQuote(r.Context(), symbol)
		if err != nil {
			errs = append(errs, symbol)
			continue
		}
		prices[symbol] = quote.Price
	}

	response := map[string]interface{}{"prices": prices}
	if len(errs) > 0 {
		response["failed"] = errs
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleAssetsEnabled(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets": s.deps.Assets.Enabled(),
	})
}

func (s *Server) handleAssetEnable(w http.ResponseWriter, r *http.Request) {
	s.setAssetEnabled(w, r, true)
}

func (s *Server) handleAssetDisable(w http.ResponseWriter, r *http.Request) {
	s.setAssetEnabled(w, r, false)
}

func (s *Server) setAssetEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := s.deps.Assets.SetEnabled(symbol, enabled); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"symbol": symbol, "enabled": enabled})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -historyDefaultDays)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid start date, want YYYY-MM-DD")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
			return
		}
		end = t
	}
	if end.Before(start) {
		s.writeError(w, http.StatusBadRequest, "end before start")
		return
	}

	series, err := s.deps.Router.FetchDaily(r.Context(), symbol, start, end, router.DefaultOptions())
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}
