package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/fks-analytics/internal/domain"
)

func TestCalculateLotSize_Crypto(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      100,
		StopLossPct:     2,
		PositionSizePct: 0.02,
	}

	lots := CalculateLotSize(domain.ClassCrypto, 10000, sig)

	assert.InDelta(t, 200.0, lots.RiskAmount, 1e-9)
	assert.InDelta(t, 100.0, lots.Units, 1e-9, "200 risked over a 2 point stop distance")
	assert.Zero(t, lots.Lots)
	assert.Empty(t, lots.LotType)
}

func TestCalculateLotSize_ForexMini(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      1.10,
		StopLossPct:     1,
		PositionSizePct: 0.02,
	}

	lots := CalculateLotSize(domain.ClassForex, 10000, sig)

	diff := 1.10 * 0.01
	units := 200.0 / diff // ~18182, between one mini and one standard lot
	assert.InDelta(t, units, lots.Units, 1e-6)
	assert.Equal(t, LotMini, lots.LotType)
	assert.InDelta(t, units/10000, lots.Lots, 1e-9)
}

func TestCalculateLotSize_ForexStandard(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      1.10,
		StopLossPct:     1,
		PositionSizePct: 0.02,
	}

	lots := CalculateLotSize(domain.ClassForex, 1000000, sig)

	diff := 1.10 * 0.01
	units := 20000.0 / diff
	assert.GreaterOrEqual(t, units, 100000.0)
	assert.Equal(t, LotStandard, lots.LotType)
	assert.InDelta(t, units/100000, lots.Lots, 1e-9)
}

func TestCalculateLotSize_ForexMicro(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      1.10,
		StopLossPct:     1,
		PositionSizePct: 0.02,
	}

	lots := CalculateLotSize(domain.ClassForex, 100, sig)

	diff := 1.10 * 0.01
	units := 2.0 / diff // ~182 units, below a mini lot
	assert.Equal(t, LotMicro, lots.LotType)
	assert.InDelta(t, units/1000, lots.Lots, 1e-9)
}

func TestCalculateLotSize_FuturesHasNoLotDenomination(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      4500,
		StopLossPct:     2,
		PositionSizePct: 0.02,
	}

	lots := CalculateLotSize(domain.ClassFuture, 50000, sig)

	assert.InDelta(t, 1000.0, lots.RiskAmount, 1e-9)
	assert.InDelta(t, 1000.0/90.0, lots.Units, 1e-9)
	assert.Zero(t, lots.Lots)
	assert.Empty(t, lots.LotType)
}

func TestCalculateLotSize_StopOnEntryFallsBackToOnePercent(t *testing.T) {
	sig := domain.TradingSignal{
		Side:            domain.SideBuy,
		EntryPrice:      50,
		StopLossPct:     0,
		PositionSizePct: 0.01,
	}

	lots := CalculateLotSize(domain.ClassCrypto, 1000, sig)

	assert.InDelta(t, 10.0, lots.RiskAmount, 1e-9)
	assert.InDelta(t, 10.0/0.5, lots.Units, 1e-9, "assumed stop distance is 1% of entry")
}

func TestCalculateLotSize_ZeroEntry(t *testing.T) {
	lots := CalculateLotSize(domain.ClassCrypto, 1000, domain.TradingSignal{})
	assert.Zero(t, lots.Units)
}
