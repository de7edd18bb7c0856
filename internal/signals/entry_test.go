package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fks-analytics/internal/domain"
)

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestNextTradingDay_CryptoIsNextUTCMidnight(t *testing.T) {
	now := time.Date(2025, 3, 14, 17, 42, 0, 0, time.UTC)

	next := NextTradingDay(domain.ClassCrypto, now)

	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), next)
}

func TestNextTradingDay_WeekdayMorningOpensSameDay(t *testing.T) {
	loc := nyLoc(t)
	// Tuesday 08:00 New York, before the open
	now := time.Date(2025, 3, 11, 8, 0, 0, 0, loc)

	next := NextTradingDay(domain.ClassStock, now)

	want := time.Date(2025, 3, 11, 9, 30, 0, 0, loc).UTC()
	assert.Equal(t, want, next)
}

func TestNextTradingDay_AfterCloseRollsToNextDay(t *testing.T) {
	loc := nyLoc(t)
	// Tuesday 17:00 New York, past the 16:00 close
	now := time.Date(2025, 3, 11, 17, 0, 0, 0, loc)

	next := NextTradingDay(domain.ClassStock, now)

	want := time.Date(2025, 3, 12, 9, 30, 0, 0, loc).UTC()
	assert.Equal(t, want, next)
}

func TestNextTradingDay_FridayEveningSkipsToMonday(t *testing.T) {
	loc := nyLoc(t)
	// Friday 18:00 New York
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, loc)

	next := NextTradingDay(domain.ClassStock, now)

	want := time.Date(2025, 3, 17, 9, 30, 0, 0, loc).UTC()
	assert.Equal(t, want, next)
	assert.Equal(t, time.Monday, next.In(loc).Weekday())
}

func TestNextTradingDay_SaturdaySkipsToMonday(t *testing.T) {
	loc := nyLoc(t)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, loc)

	next := NextTradingDay(domain.ClassETF, now)

	want := time.Date(2025, 3, 17, 9, 30, 0, 0, loc).UTC()
	assert.Equal(t, want, next)
}

func TestBuildEntryPlan_Crypto(t *testing.T) {
	now := time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC)
	sig := domain.TradingSignal{Symbol: "BTC", EntryPrice: 50000}

	plan := BuildEntryPlan(domain.ClassCrypto, sig, now)

	assert.Equal(t, EntryMarket, plan.Strategy)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), plan.NextTradingDay)
	assert.Equal(t, "7h0m0s", plan.TimeUntilOpen)
}

func TestBuildEntryPlan_StockUsesLimitOrder(t *testing.T) {
	loc := nyLoc(t)
	now := time.Date(2025, 3, 11, 17, 0, 0, 0, loc)
	sig := domain.TradingSignal{Symbol: "SPY", EntryPrice: 512.25}

	plan := BuildEntryPlan(domain.ClassETF, sig, now)

	assert.Equal(t, EntryLimit, plan.Strategy)
	assert.Contains(t, plan.Note, "512.25")
	assert.Equal(t, time.Date(2025, 3, 12, 9, 30, 0, 0, loc).UTC(), plan.NextTradingDay)
	assert.NotEmpty(t, plan.TimeUntilOpen)
}
