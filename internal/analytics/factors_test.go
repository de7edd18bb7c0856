package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitFactorModel_RecoversLoadings(t *testing.T) {
	const n = 100
	market := syntheticReturns(n, 0.0005, 0.01, 0)
	size := syntheticReturns(n, 0.0001, 0.006, 2.1)

	// y = alpha + 1.5*market - 0.4*size + small deterministic noise
	asset := make([]float64, n)
	for i := 0; i < n; i++ {
		noise := 0.0002 * math.Sin(float64(i)*3.3)
		asset[i] = 0.0003 + 1.5*market[i] - 0.4*size[i] + noise
	}

	model, err := FitFactorModel("AAPL", asset, map[string][]float64{
		"market": market,
		"size":   size,
	})
	require.NoError(t, err)

	assert.Equal(t, n, model.Observations)
	assert.InDelta(t, 1.5, model.Exposures["market"].Beta, 0.05)
	assert.InDelta(t, -0.4, model.Exposures["size"].Beta, 0.05)
	assert.InDelta(t, 0.0003*252, model.Alpha, 0.05)

	assert.Greater(t, model.R2, 0.95, "low noise regression should fit tightly")
	assert.LessOrEqual(t, model.AdjR2, model.R2)
	assert.Less(t, model.Exposures["market"].PValue, 0.01)
	assert.Greater(t, math.Abs(model.Exposures["market"].TStat), 2.0)
	assert.Greater(t, model.BIC, model.AIC, "BIC penalizes parameters harder at this sample size")
}

func TestFitFactorModel_Errors(t *testing.T) {
	short := syntheticReturns(10, 0.001, 0.01, 0)
	_, err := FitFactorModel("X", short, map[string][]float64{"m": short})
	assert.Error(t, err, "below the observation floor")

	long := syntheticReturns(50, 0.001, 0.01, 0)
	_, err = FitFactorModel("X", long, nil)
	assert.Error(t, err, "no factors")

	_, err = FitFactorModel("X", long, map[string][]float64{"m": short})
	assert.Error(t, err, "length mismatch")
}

func TestDecomposeRisk(t *testing.T) {
	const n = 90
	market := syntheticReturns(n, 0.0005, 0.012, 0.4)

	asset := make([]float64, n)
	for i := 0; i < n; i++ {
		asset[i] = 1.2*market[i] + 0.003*math.Sin(float64(i)*2.9)
	}

	model, err := FitFactorModel("SPY", asset, map[string][]float64{"market": market})
	require.NoError(t, err)

	d := model.DecomposeRisk()
	assert.Greater(t, d.FactorVariance, 0.0)
	assert.Greater(t, d.IdioVariance, 0.0)
	assert.InDelta(t, d.TotalVariance, d.FactorVariance+d.IdioVariance, 1e-12)
	assert.Greater(t, d.FactorShare, 0.5, "the market factor should dominate")
	assert.LessOrEqual(t, d.FactorShare, 1.0)
}
