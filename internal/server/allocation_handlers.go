package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/allocation"
	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/domain"
)

func (s *Server) registerAllocationRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Post("/calculate", s.handleAllocationCalculate)
		r.Get("/targets", s.handleAllocationTargets)
		r.Get("/check-rebalancing", s.handleCheckRebalancing)
		r.Get("/drift", s.handleAllocationDrift)
		r.Post("/multi-account/summary", s.handleMultiAccountSummary)
	})
}

type allocationRequest struct {
	Positions []allocation.Position `json:"positions"`
}

// requestPositions takes positions from the body when given, otherwise
// values the portfolio file at live quotes.
func (s *Server) requestPositions(w http.ResponseWriter, r *http.Request) ([]allocation.Position, bool) {
	if r.Body != nil && r.ContentLength != 0 {
		var req allocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return nil, false
		}
		if len(req.Positions) > 0 {
			for i := range req.Positions {
				req.Positions[i].Symbol = strings.ToUpper(req.Positions[i].Symbol)
			}
			return req.Positions, true
		}
	}

	positions, err := s.holdingsPositions(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return positions, true
}

// holdingsPositions values each held symbol at its current quote
func (s *Server) holdingsPositions(r *http.Request) ([]allocation.Position, error) {
	holdings, err := s.loadHoldings()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	positions := make([]allocation.Position, 0, len(symbols))
	for _, symbol := range symbols {
		quote, err := s.deps.Router.FetchQuote(r.Context(), symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping unquotable holding")
			continue
		}
		positions = append(positions, allocation.Position{
			Symbol: symbol,
			Class:  s.classFor(symbol),
			Value:  holdings[symbol] * quote.Price,
		})
	}
	return positions, nil
}

func (s *Server) classFor(symbol string) domain.AssetClass {
	if asset, ok := s.deps.Assets.Get(symbol); ok {
		return asset.Class
	}
	if assets.IsCryptoSymbol(symbol) {
		return domain.ClassCrypto
	}
	return domain.ClassStock
}

func (s *Server) handleAllocationCalculate(w http.ResponseWriter, r *http.Request) {
	positions, ok := s.requestPositions(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Allocation.Calculate(positions))
}

func (s *Server) handleAllocationTargets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"class_targets": s.deps.Allocation.Targets(),
		"overrides":     allocation.DefaultOverrides(),
	})
}

func (s *Server) handleCheckRebalancing(w http.ResponseWriter, r *http.Request) {
	positions, err := s.holdingsPositions(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	actions := s.deps.Allocation.CheckRebalancing(positions)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rebalancing_needed": len(actions) > 0,
		"actions":            actions,
	})
}

func (s *Server) handleAllocationDrift(w http.ResponseWriter, r *http.Request) {
	positions, err := s.holdingsPositions(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"drift_pct": s.deps.Allocation.Drift(positions),
	})
}

type multiAccountRequest struct {
	Accounts []allocation.Account `json:"accounts"`
}

func (s *Server) handleMultiAccountSummary(w http.ResponseWriter, r *http.Request) {
	var req multiAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Accounts) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one account required")
		return
	}

	summary, err := s.deps.MultiAccount.Summarize(req.Accounts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}
