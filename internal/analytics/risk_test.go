package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoricalCVaR(t *testing.T) {
	returns := []float64{-0.08, -0.03, -0.01, 0.0, 0.005, 0.01, 0.012, 0.02, 0.025, 0.03,
		-0.02, 0.008, 0.015, -0.005, 0.018, 0.022, -0.012, 0.007, 0.011, 0.009}

	risk, err := HistoricalCVaR(returns, DefaultAlpha)
	require.NoError(t, err)

	assert.InDelta(t, -0.08, risk.VaR, 1e-9, "5% quantile of 20 observations is the minimum")
	assert.LessOrEqual(t, risk.CVaR, risk.VaR, "expected shortfall is at least as severe as VaR")
}

func TestHistoricalCVaR_Errors(t *testing.T) {
	_, err := HistoricalCVaR(nil, DefaultAlpha)
	assert.Error(t, err)

	_, err = HistoricalCVaR([]float64{0.01}, 1.5)
	assert.Error(t, err)
}

func TestParametricCVaR_StandardNormalScaling(t *testing.T) {
	// Symmetric returns, mean zero
	var returns []float64
	for i := 0; i < 50; i++ {
		v := 0.01 * math.Sin(float64(i)*0.9)
		returns = append(returns, v, -v)
	}

	risk, err := ParametricCVaR(returns, DefaultAlpha)
	require.NoError(t, err)

	sigma := 0.0
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	for _, r := range returns {
		sigma += (r - mean) * (r - mean)
	}
	sigma = math.Sqrt(sigma / float64(len(returns)-1))

	assert.InDelta(t, -1.6449*sigma, risk.VaR, 1e-4*sigma+1e-6)
	assert.InDelta(t, -2.0627*sigma, risk.CVaR, 1e-3*sigma+1e-6)
	assert.Less(t, risk.CVaR, risk.VaR)
}

func TestMonteCarloCVaR_Reproducible(t *testing.T) {
	returns := syntheticReturns(100, 0.001, 0.02, 0.5)

	first, err := MonteCarloCVaR(returns, DefaultAlpha)
	require.NoError(t, err)
	second, err := MonteCarloCVaR(returns, DefaultAlpha)
	require.NoError(t, err)

	assert.Equal(t, first, second, "seeded simulation must be deterministic")
	assert.Less(t, first.CVaR, 0.0)
	assert.LessOrEqual(t, first.CVaR, first.VaR)
}

func TestMaxDrawdown(t *testing.T) {
	// 1.0 -> 1.1 -> 0.55 -> 0.66: trough is half the peak
	assert.InDelta(t, -0.5, MaxDrawdown([]float64{0.1, -0.5, 0.2}), 1e-9)

	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.01, 0.02, 0.03}), "monotone gains have no drawdown")
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02), "zero volatility")
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, 0.02), "too few observations")

	up := syntheticReturns(100, 0.002, 0.01, 0)
	assert.Greater(t, SharpeRatio(up, 0.02), 0.0)
}

func TestBuildRiskReport(t *testing.T) {
	returns := syntheticReturns(100, 0.001, 0.02, 1.3)

	report, err := BuildRiskReport("BTC", returns, DefaultAlpha, 0.02)
	require.NoError(t, err)

	assert.Equal(t, "BTC", report.Symbol)
	assert.Less(t, report.Historical.CVaR, 0.0)
	assert.Less(t, report.Parametric.CVaR, 0.0)
	assert.Less(t, report.MonteCarlo.CVaR, 0.0)
	assert.LessOrEqual(t, report.MaxDrawdown, 0.0)
	assert.Greater(t, report.Volatility, 0.0)
}
