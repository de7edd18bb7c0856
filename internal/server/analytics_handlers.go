package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fks-analytics/internal/analytics"
	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/router"
)

// analysisWindowDays is the lookback used by the correlation, risk and
// factor endpoints.
const analysisWindowDays = 365

func (s *Server) registerAnalyticsRoutes(r chi.Router) {
	r.Get("/portfolio/value", s.handlePortfolioValue)
	r.Get("/correlation/btc", s.handleBTCCorrelations)
	r.Get("/correlation/matrix", s.handleCorrelationMatrix)
	r.Get("/diversification/score", s.handleDiversificationScore)
	r.Get("/optimization/weights", s.handleOptimizationWeights)
	r.Get("/risk/cvar", s.handleRiskCVaR)
	r.Get("/risk/report", s.handleRiskReport)
	r.Get("/factors/analysis", s.handleFactorAnalysis)
}

// fetchAnalysisSeries loads daily history for symbols over the analysis window
func (s *Server) fetchAnalysisSeries(r *http.Request, symbols []string) map[string]domain.Series {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -analysisWindowDays)
	return s.deps.Router.FetchAll(r.Context(), symbols, start, end, router.DefaultOptions())
}

func (s *Server) handlePortfolioValue(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.loadHoldings()
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	value := s.deps.Converter.PortfolioInBTC(r.Context(), holdings)
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) handleBTCCorrelations(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if !contains(symbols, "BTC") {
		symbols = append(symbols, "BTC")
	}

	series := s.fetchAnalysisSeries(r, symbols)
	btc, ok := series["BTC"]
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "no BTC history available")
		return
	}

	correlations := analytics.BTCCorrelations(series, btc)
	for symbol, v := range correlations {
		if math.IsNaN(v) {
			delete(correlations, symbol)
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_days":  analysisWindowDays,
		"correlations": correlations,
	})
}

func (s *Server) handleCorrelationMatrix(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	series := s.fetchAnalysisSeries(r, symbols)
	if len(series) < 2 {
		s.writeError(w, http.StatusServiceUnavailable, "need history for at least two symbols")
		return
	}

	matrix := analytics.Matrix(series)
	sanitizeMatrix(&matrix)
	s.writeJSON(w, http.StatusOK, matrix)
}

func (s *Server) handleDiversificationScore(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	series := s.fetchAnalysisSeries(r, symbols)
	if len(series) < 2 {
		s.writeError(w, http.StatusServiceUnavailable, "need history for at least two symbols")
		return
	}

	matrix := analytics.Matrix(series)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": matrix.Symbols,
		"score":   analytics.DiversificationScore(matrix),
	})
}

func (s *Server) handleOptimizationWeights(w http.ResponseWriter, r *http.Request) {
	symbols := s.parseSymbols(r)
	if !contains(symbols, "BTC") {
		symbols = append(symbols, "BTC")
	}
	series := s.fetchAnalysisSeries(r, symbols)

	returns := make(map[string][]float64, len(series))
	minLen := -1
	for symbol, ser := range series {
		rets := ser.Returns()
		if len(rets) < 2 {
			continue
		}
		returns[symbol] = rets
		if minLen < 0 || len(rets) < minLen {
			minLen = len(rets)
		}
	}
	// The optimizer wants equal length vectors, so keep the most recent
	// shared stretch of each series.
	for symbol, rets := range returns {
		returns[symbol] = rets[len(rets)-minLen:]
	}

	cfg := analytics.DefaultMeanVarianceConfig()
	if v := r.URL.Query().Get("method"); v != "" {
		method := analytics.Method(v)
		known := false
		for _, m := range analytics.Methods() {
			if m == method {
				known = true
				break
			}
		}
		if !known {
			s.writeError(w, http.StatusBadRequest,
				"unknown method, want max_sharpe, min_volatility, efficient_risk or efficient_return")
			return
		}
		cfg.Method = method
	}
	if v := r.URL.Query().Get("target_volatility"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "target_volatility must be a positive number")
			return
		}
		cfg.TargetVolatility = parsed
	}
	if v := r.URL.Query().Get("target_return"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "target_return must be a number")
			return
		}
		cfg.TargetReturn = parsed
	}

	optimizer := analytics.NewMeanVarianceOptimizer(cfg)
	result, err := optimizer.Optimize(returns)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRiskCVaR(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol parameter required")
		return
	}

	alpha := analytics.DefaultAlpha
	if v := r.URL.Query().Get("alpha"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed >= 1 {
			s.writeError(w, http.StatusBadRequest, "alpha must be in (0, 1)")
			return
		}
		alpha = parsed
	}

	returns, ok := s.symbolReturns(r, symbol)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no history for "+symbol)
		return
	}

	method := r.URL.Query().Get("method")
	var (
		risk analytics.TailRisk
		err  error
	)
	switch method {
	case "", "historical":
		method = "historical"
		risk, err = analytics.HistoricalCVaR(returns, alpha)
	case "parametric":
		risk, err = analytics.ParametricCVaR(returns, alpha)
	case "monte_carlo":
		risk, err = analytics.MonteCarloCVaR(returns, alpha)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown method, want historical, parametric or monte_carlo")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"alpha":  alpha,
		"method": method,
		"var":    risk.VaR,
		"cvar":   risk.CVaR,
	})
}

func (s *Server) handleRiskReport(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol parameter required")
		return
	}

	returns, ok := s.symbolReturns(r, symbol)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no history for "+symbol)
		return
	}

	report, err := analytics.BuildRiskReport(symbol, returns, analytics.DefaultAlpha, 0.02)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleFactorAnalysis regresses a symbol's returns on factor proxies.
// SPY stands in for the market factor when none are given.
func (s *Server) handleFactorAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol parameter required")
		return
	}

	factorSymbols := []string{"SPY"}
	if v := strings.TrimSpace(r.URL.Query().Get("factors")); v != "" {
		factorSymbols = nil
		for _, part := range strings.Split(v, ",") {
			if p := strings.ToUpper(strings.TrimSpace(part)); p != "" && p != symbol {
				factorSymbols = append(factorSymbols, p)
			}
		}
	}
	if len(factorSymbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "no usable factor symbols")
		return
	}

	series := s.fetchAnalysisSeries(r, append([]string{symbol}, factorSymbols...))
	asset, ok := series[symbol]
	if !ok {
		s.writeError(w, http.StatusNotFound, "no history for "+symbol)
		return
	}

	assetReturns := asset.Returns()
	minLen := len(assetReturns)
	factorReturns := make(map[string][]float64, len(factorSymbols))
	for _, f := range factorSymbols {
		ser, ok := series[f]
		if !ok {
			s.writeError(w, http.StatusNotFound, "no history for factor "+f)
			return
		}
		rets := ser.Returns()
		factorReturns[f] = rets
		if len(rets) < minLen {
			minLen = len(rets)
		}
	}
	assetReturns = assetReturns[len(assetReturns)-minLen:]
	for f, rets := range factorReturns {
		factorReturns[f] = rets[len(rets)-minLen:]
	}

	model, err := analytics.FitFactorModel(symbol, assetReturns, factorReturns)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"model": model,
		"risk":  model.DecomposeRisk(),
	})
}

// symbolReturns fetches the analysis window for symbol and returns its
// daily returns.
func (s *Server) symbolReturns(r *http.Request, symbol string) ([]float64, bool) {
	series := s.fetchAnalysisSeries(r, []string{symbol})
	ser, ok := series[symbol]
	if !ok {
		return nil, false
	}
	returns := ser.Returns()
	return returns, len(returns) > 0
}

// sanitizeMatrix zeroes undefined correlations so the matrix encodes as JSON
func sanitizeMatrix(m *analytics.CorrelationMatrix) {
	for i := range m.Values {
		for j := range m.Values[i] {
			if math.IsNaN(m.Values[i][j]) {
				m.Values[i][j] = 0
			}
		}
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
