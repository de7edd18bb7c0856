package analytics

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultAlpha is the tail probability for VaR/CVaR (95% confidence)
	DefaultAlpha = 0.05
	// monteCarloDraws is the simulation count for Monte Carlo CVaR
	monteCarloDraws = 10000
	// monteCarloSeed keeps simulations reproducible
	monteCarloSeed = 42
)

// TailRisk is a VaR/CVaR pair. Losses are negative.
type TailRisk struct {
	VaR  float64 `json:"var"`
	CVaR float64 `json:"cvar"`
}

// HistoricalCVaR computes VaR as the alpha-quantile of returns and CVaR
// as the mean of the tail at or below it. When the tail is empty, CVaR
// falls back to VaR.
func HistoricalCVaR(returns []float64, alpha float64) (TailRisk, error) {
	if len(returns) == 0 {
		return TailRisk{}, fmt.Errorf("no returns provided")
	}
	if alpha <= 0 || alpha >= 1 {
		return TailRisk{}, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	varValue := stat.Quantile(alpha, stat.Empirical, sorted, nil)

	sum, count := 0.0, 0
	for _, r := range sorted {
		if r <= varValue {
			sum += r
			count++
		}
	}
	cvar := varValue
	if count > 0 {
		cvar = sum / float64(count)
	}
	return TailRisk{VaR: varValue, CVaR: cvar}, nil
}

// ParametricCVaR assumes normal returns. VaR = mu + z_alpha*sigma and
// CVaR = mu - sigma*phi(z_alpha)/alpha, with z_alpha the alpha-quantile
// of the standard normal.
func ParametricCVaR(returns []float64, alpha float64) (TailRisk, error) {
	if len(returns) < 2 {
		return TailRisk{}, fmt.Errorf("need at least 2 returns, got %d", len(returns))
	}
	if alpha <= 0 || alpha >= 1 {
		return TailRisk{}, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}

	mu := stat.Mean(returns, nil)
	sigma := stat.StdDev(returns, nil)

	std := distuv.Normal{Mu: 0, Sigma: 1}
	z := std.Quantile(alpha)

	return TailRisk{
		VaR:  mu + z*sigma,
		CVaR: mu - sigma*std.Prob(z)/alpha,
	}, nil
}

// MonteCarloCVaR simulates normal returns matching the sample mean and
// standard deviation, then computes historical CVaR over the draws.
// The generator is seeded for reproducibility.
func MonteCarloCVaR(returns []float64, alpha float64) (TailRisk, error) {
	if len(returns) < 2 {
		return TailRisk{}, fmt.Errorf("need at least 2 returns, got %d", len(returns))
	}
	if alpha <= 0 || alpha >= 1 {
		return TailRisk{}, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}

	dist := distuv.Normal{
		Mu:    stat.Mean(returns, nil),
		Sigma: stat.StdDev(returns, nil),
		Src:   rand.NewPCG(monteCarloSeed, monteCarloSeed),
	}

	draws := make([]float64, monteCarloDraws)
	for i := range draws {
		draws[i] = dist.Rand()
	}
	return HistoricalCVaR(draws, alpha)
}

// MaxDrawdown computes the worst peak-to-trough decline of the cumulative
// return path. The result is <= 0.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := cumulative/peak - 1
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst
}

// SharpeRatio annualizes daily returns and computes the excess return per
// unit of volatility. Zero when volatility is zero.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sigma := stat.StdDev(returns, nil)
	if sigma == 0 {
		return 0
	}
	annualReturn := stat.Mean(returns, nil) * tradingDays
	annualVol := sigma * math.Sqrt(tradingDays)
	return (annualReturn - riskFreeRate) / annualVol
}

// AnnualizedVolatility scales daily return volatility to a yearly horizon.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
}

// RiskReport bundles the standard per-asset risk measures.
type RiskReport struct {
	Symbol      string   `json:"symbol"`
	Historical  TailRisk `json:"historical"`
	Parametric  TailRisk `json:"parametric"`
	MonteCarlo  TailRisk `json:"monte_carlo"`
	MaxDrawdown float64  `json:"max_drawdown"`
	Sharpe      float64  `json:"sharpe"`
	Volatility  float64  `json:"volatility"`
}

// BuildRiskReport computes every measure for one return series.
func BuildRiskReport(symbol string, returns []float64, alpha, riskFreeRate float64) (*RiskReport, error) {
	historical, err := HistoricalCVaR(returns, alpha)
	if err != nil {
		return nil, err
	}
	parametric, err := ParametricCVaR(returns, alpha)
	if err != nil {
		return nil, err
	}
	monteCarlo, err := MonteCarloCVaR(returns, alpha)
	if err != nil {
		return nil, err
	}
	return &RiskReport{
		Symbol:      symbol,
		Historical:  historical,
		Parametric:  parametric,
		MonteCarlo:  monteCarlo,
		MaxDrawdown: MaxDrawdown(returns),
		Sharpe:      SharpeRatio(returns, riskFreeRate),
		Volatility:  AnnualizedVolatility(returns),
	}, nil
}
