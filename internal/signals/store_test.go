package signals

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fks-analytics/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func sampleSignal(symbol string, confidence float64) domain.TradingSignal {
	now := time.Now().UTC()
	return domain.TradingSignal{
		ID:              symbol + "-1",
		Symbol:          symbol,
		Side:            domain.SideBuy,
		Category:        "swing",
		EntryPrice:      100,
		TakeProfitPct:   6,
		StopLossPct:     3,
		RiskReward:      2,
		PositionSizePct: 0.02,
		Strength:        domain.StrengthStrong,
		Confidence:      confidence,
		CreatedAt:       now,
		ExpiresAt:       now.Add(24 * time.Hour),
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	in := []domain.TradingSignal{sampleSignal("BTC", 0.8), sampleSignal("ETH", 0.6)}
	require.NoError(t, s.Save(CategorySwing, day, in))

	out, err := s.Load(CategorySwing, day)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "BTC", out[0].Symbol)

	// File name carries category and compact date
	_, err = os.Stat(filepath.Join(s.Dir(), "signals_swing_20240615.json"))
	assert.NoError(t, err)
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)

	out, err := s.Load(CategoryScalp, time.Now())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStore_Days(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(CategorySwing, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), nil))
	require.NoError(t, s.Save(CategoryScalp, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), nil))
	require.NoError(t, s.Save(CategorySwing, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), nil))

	days, err := s.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-14", "2024-06-15"}, days)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(CategorySwing, time.Now().UTC(), nil))
	require.NoError(t, s.Save(CategorySwing, time.Now().UTC().AddDate(0, 0, -45), nil))
	require.NoError(t, s.SaveSummary(time.Now().UTC().AddDate(0, 0, -45), Summary{}))

	removed, err := s.Prune(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	days, err := s.Days()
	require.NoError(t, err)
	assert.Len(t, days, 1, "recent files survive the sweep")
}

func TestBuildSummary(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	summary := BuildSummary(day, map[Category][]domain.TradingSignal{
		CategorySwing: {sampleSignal("BTC", 0.8), sampleSignal("ETH", 0.6)},
		CategoryScalp: {sampleSignal("SOL", 0.7)},
	})

	assert.Equal(t, "2024-06-15", summary.Date)
	assert.Equal(t, 3, summary.TotalSignals)
	assert.Equal(t, 2, summary.ByCategory["swing"])
	assert.Equal(t, 1, summary.ByCategory["scalp"])
	assert.Equal(t, 3, summary.BySide["buy"])
	assert.InDelta(t, 0.7, summary.AvgConfidence, 1e-9)
}

func TestStore_SummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	in := BuildSummary(day, nil)
	require.NoError(t, s.SaveSummary(day, in))

	out, err := s.LoadSummary(day)
	require.NoError(t, err)
	assert.Equal(t, in.Date, out.Date)
}

func TestStore_LoadSummaryMissingIsNil(t *testing.T) {
	s := newTestStore(t)

	out, err := s.LoadSummary(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err, "a date with no summary file is not an error")
	assert.Nil(t, out)
}

func TestStore_LoadSized(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(CategorySwing, day, []domain.TradingSignal{sampleSignal("BTC", 0.8)}))

	sized, err := s.LoadSized(CategorySwing, day, 10000, func(string) domain.AssetClass {
		return domain.ClassCrypto
	})
	require.NoError(t, err)
	require.Len(t, sized, 1)

	// 2% of 10000 risked across a 3% stop distance from entry 100
	assert.InDelta(t, 200.0, sized[0].Lots.RiskAmount, 1e-9)
	assert.InDelta(t, 200.0/3.0, sized[0].Lots.Units, 1e-9)

	// Crypto enters at market on the next UTC day
	assert.Equal(t, EntryMarket, sized[0].Entry.Strategy)
	assert.False(t, sized[0].Entry.NextTradingDay.IsZero())
}
