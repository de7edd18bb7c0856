package signals

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fks-analytics/internal/domain"
)

func trendingSeries(symbol string, start float64, dailyChange float64, n int) domain.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{Date: base.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
		price *= 1 + dailyChange
	}
	return domain.NewSeries(symbol, bars)
}

func flatSeries(symbol string, price float64, n int) domain.Series {
	return trendingSeries(symbol, price, 0, n)
}

func swingConfig(t *testing.T) CategoryConfig {
	t.Helper()
	cfg, err := CategoryByName("swing")
	require.NoError(t, err)
	return cfg
}

func TestSnapshot_RequiresMinimumHistory(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	assert.Nil(t, e.Snapshot(trendingSeries("BTC", 100, 0.01, 10)))
}

func TestSnapshot_FlatSeries(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	ind := e.Snapshot(flatSeries("USDT", 100, 30))
	require.NotNil(t, ind)

	assert.Equal(t, 100.0, ind.SMA20)
	assert.Equal(t, 0.0, ind.MACD)
	assert.Equal(t, 0.5, ind.PricePosition, "degenerate range centers the price position")
	assert.Equal(t, 0.0, ind.Volatility)
	assert.Equal(t, trendNeutral, ind.Trend)
}

func TestEvaluate_OversoldProducesBuy(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	sig := e.Evaluate(trendingSeries("BTC", 100, -0.01, 30), swingConfig(t))
	require.NotNil(t, sig)

	assert.Equal(t, domain.SideBuy, sig.Side)
	assert.Equal(t, "swing", sig.Category)
	assert.GreaterOrEqual(t, sig.RiskReward, minRiskReward)
	assert.Equal(t, domain.StrengthVeryStrong, sig.Strength,
		"extreme RSI, nonzero MACD, a trend and R/R of 2 all confirm")
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)
	assert.Equal(t, maxPositionSize, sig.PositionSizePct, "size is capped at 2%")
	assert.NotEmpty(t, sig.ID)
	assert.True(t, sig.ExpiresAt.After(sig.CreatedAt))
}

func TestEvaluate_OverboughtProducesSell(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	sig := e.Evaluate(trendingSeries("ETH", 100, 0.01, 30), swingConfig(t))
	require.NotNil(t, sig)
	assert.Equal(t, domain.SideSell, sig.Side)

	// A sell's targets sit below entry, stops above
	assert.Less(t, sig.TakeProfitPrice(), sig.EntryPrice)
	assert.Greater(t, sig.StopLossPrice(), sig.EntryPrice)
}

func TestEvaluate_FlatSeriesHolds(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	assert.Nil(t, e.Evaluate(flatSeries("USDT", 1, 30), swingConfig(t)),
		"no RSI extreme, no MACD, no trend: nothing to trade")
}

func TestScaleToBand(t *testing.T) {
	band := Band{Min: 2, Max: 10}

	assert.Equal(t, 6.0, scaleToBand(band, 0), "no volatility estimate uses the midpoint")
	assert.InDelta(t, 2.0+8.0*0.25, scaleToBand(band, 0.15), 1e-9, "half of reference volatility")
	assert.Equal(t, 10.0, scaleToBand(band, 10), "extreme volatility saturates at the band top")
}

func TestEvaluate_ExpiryTracksCategory(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	series := trendingSeries("BTC", 100, -0.01, 30)

	for _, cfg := range Categories() {
		sig := e.Evaluate(series, cfg)
		require.NotNil(t, sig, "category %s", cfg.Name)
		assert.Equal(t, cfg.MaxHold, sig.ExpiresAt.Sub(sig.CreatedAt), "category %s", cfg.Name)
	}
}
