package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticReturns builds a deterministic daily return vector with the
// given drift and oscillation amplitude.
func syntheticReturns(n int, drift, amplitude, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = drift + amplitude*math.Sin(float64(i)*0.7+phase)
	}
	return out
}

func testReturns() map[string][]float64 {
	const n = 120
	return map[string][]float64{
		"BTC": syntheticReturns(n, 0.002, 0.03, 0),
		"ETH": syntheticReturns(n, 0.0015, 0.035, 1.1),
		"SPY": syntheticReturns(n, 0.0005, 0.008, 2.3),
		"GLD": syntheticReturns(n, 0.0003, 0.006, 3.7),
	}
}

func TestOptimize_RespectsBounds(t *testing.T) {
	opt := NewMeanVarianceOptimizer(DefaultMeanVarianceConfig())

	result, err := opt.Optimize(testReturns())
	require.NoError(t, err)

	sum := 0.0
	for symbol, w := range result.Weights {
		sum += w
		if symbol == "BTC" {
			assert.GreaterOrEqual(t, w, 0.50-sumTolerance)
			assert.LessOrEqual(t, w, 0.60+sumTolerance)
		} else {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 0.20+sumTolerance)
		}
	}
	assert.InDelta(t, 1.0, sum, sumTolerance)
	assert.Greater(t, result.Volatility, 0.0)
}

func TestOptimize_DropsDustWeights(t *testing.T) {
	opt := NewMeanVarianceOptimizer(DefaultMeanVarianceConfig())

	result, err := opt.Optimize(testReturns())
	require.NoError(t, err)

	for symbol, w := range result.Weights {
		if w != 0 {
			assert.GreaterOrEqual(t, w, weightEpsilon, "weight for %s should be zero or meaningful", symbol)
		}
	}
}

func TestOptimize_Errors(t *testing.T) {
	opt := NewMeanVarianceOptimizer(DefaultMeanVarianceConfig())

	_, err := opt.Optimize(map[string][]float64{"BTC": {0.01, 0.02}})
	assert.Error(t, err, "single asset")

	_, err = opt.Optimize(map[string][]float64{
		"ETH": {0.01, 0.02},
		"SPY": {0.01, 0.02},
	})
	assert.Error(t, err, "BTC missing")

	_, err = opt.Optimize(map[string][]float64{
		"BTC": {0.01, 0.02, 0.03},
		"ETH": {0.01, 0.02},
	})
	assert.Error(t, err, "mismatched lengths")
}

func TestOptimize_RecordsMethod(t *testing.T) {
	opt := NewMeanVarianceOptimizer(DefaultMeanVarianceConfig())

	result, err := opt.Optimize(testReturns())
	require.NoError(t, err)
	assert.Equal(t, MethodMaxSharpe, result.Method)
}

func TestOptimize_MinVolatility(t *testing.T) {
	returns := testReturns()

	maxSharpe, err := NewMeanVarianceOptimizer(DefaultMeanVarianceConfig()).Optimize(returns)
	require.NoError(t, err)

	cfg := DefaultMeanVarianceConfig()
	cfg.Method = MethodMinVolatility
	minVol, err := NewMeanVarianceOptimizer(cfg).Optimize(returns)
	require.NoError(t, err)

	assert.Equal(t, MethodMinVolatility, minVol.Method)
	assert.LessOrEqual(t, minVol.Volatility, maxSharpe.Volatility+0.01,
		"the minimum volatility portfolio cannot be riskier than the max Sharpe one")
}

func TestOptimize_EfficientRiskHoldsVolatilityTarget(t *testing.T) {
	cfg := DefaultMeanVarianceConfig()
	cfg.Method = MethodEfficientRisk
	cfg.TargetVolatility = 0.40

	result, err := NewMeanVarianceOptimizer(cfg).Optimize(testReturns())
	require.NoError(t, err)

	assert.Equal(t, MethodEfficientRisk, result.Method)
	assert.LessOrEqual(t, result.Volatility, cfg.TargetVolatility+0.02,
		"volatility should stay near or under the target")
}

func TestOptimize_EfficientReturnHitsReturnTarget(t *testing.T) {
	cfg := DefaultMeanVarianceConfig()
	cfg.Method = MethodEfficientReturn
	cfg.TargetReturn = 0.15

	result, err := NewMeanVarianceOptimizer(cfg).Optimize(testReturns())
	require.NoError(t, err)

	assert.Equal(t, MethodEfficientReturn, result.Method)
	assert.GreaterOrEqual(t, result.ExpectedReturn, cfg.TargetReturn-0.02,
		"expected return should reach or closely approach the target")
}

func TestOptimize_UnknownMethod(t *testing.T) {
	cfg := DefaultMeanVarianceConfig()
	cfg.Method = Method("gradient_descent")

	_, err := NewMeanVarianceOptimizer(cfg).Optimize(testReturns())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown optimization method")
}

func TestOptimize_SharpeConsistent(t *testing.T) {
	cfg := DefaultMeanVarianceConfig()
	opt := NewMeanVarianceOptimizer(cfg)

	result, err := opt.Optimize(testReturns())
	require.NoError(t, err)

	if result.Volatility > 0 {
		expected := (result.ExpectedReturn - cfg.RiskFreeRate) / result.Volatility
		assert.InDelta(t, expected, result.Sharpe, 1e-9)
	}
}
