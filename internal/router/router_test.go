package router

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fks-analytics/internal/adapters"
	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/cache"
	"github.com/aristath/fks-analytics/internal/database"
	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/storage"
)

// fakeAdapter serves canned bars and counts calls
type fakeAdapter struct {
	name   string
	bars   []domain.Bar
	quote  *domain.Quote
	err    error
	calls  int64
	quotes int64
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func (f *fakeAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	atomic.AddInt64(&f.quotes, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTestRouter(t *testing.T, adapterList ...adapters.Adapter) (*Router, *storage.Store) {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "market.db"),
		Name: "market",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := storage.New(db, zerolog.Nop())
	require.NoError(t, err)

	assetReg, err := assets.New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)

	registry := adapters.NewRegistry()
	for _, a := range adapterList {
		registry.Register(a)
	}

	return New(registry, cache.New(time.Minute), store, assetReg, zerolog.Nop()), store
}

func TestRouter_PrefersFirstAdapter(t *testing.T) {
	binance := &fakeAdapter{name: "binance", bars: []domain.Bar{{Date: day(2), Close: 100}}}
	gecko := &fakeAdapter{name: "coingecko", bars: []domain.Bar{{Date: day(2), Close: 99}}}
	r, _ := newTestRouter(t, binance, gecko)

	series, err := r.FetchDaily(context.Background(), "BTC", day(1), day(5), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, series.Bars, 1)
	assert.Equal(t, 100.0, series.Bars[0].Close)
	assert.EqualValues(t, 1, binance.calls)
	assert.EqualValues(t, 0, gecko.calls)
}

func TestRouter_FallsBackOnFailure(t *testing.T) {
	binance := &fakeAdapter{name: "binance", err: adapters.ErrUnavailable}
	gecko := &fakeAdapter{name: "coingecko", bars: []domain.Bar{{Date: day(2), Close: 99}}}
	r, _ := newTestRouter(t, binance, gecko)

	series, err := r.FetchDaily(context.Background(), "BTC", day(1), day(5), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 99.0, series.Bars[0].Close)
	assert.EqualValues(t, 1, binance.calls)
	assert.EqualValues(t, 1, gecko.calls)
}

func TestRouter_AllFail(t *testing.T) {
	binance := &fakeAdapter{name: "binance", err: adapters.ErrUnavailable}
	r, _ := newTestRouter(t, binance)

	_, err := r.FetchDaily(context.Background(), "BTC", day(1), day(5), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRouter_CacheHitSkipsAdapter(t *testing.T) {
	binance := &fakeAdapter{name: "binance", bars: []domain.Bar{{Date: day(2), Close: 100}}}
	r, _ := newTestRouter(t, binance)

	opts := Options{UseCache: true, UseStorage: false}
	_, err := r.FetchDaily(context.Background(), "BTC", day(1), day(5), opts)
	require.NoError(t, err)
	_, err = r.FetchDaily(context.Background(), "BTC", day(1), day(5), opts)
	require.NoError(t, err)

	assert.EqualValues(t, 1, binance.calls, "second fetch should hit the cache")
}

func TestRouter_WriteThroughToStorage(t *testing.T) {
	bars := []domain.Bar{
		{Date: day(1), Close: 1}, {Date: day(2), Close: 2}, {Date: day(3), Close: 3},
		{Date: day(4), Close: 4}, {Date: day(5), Close: 5},
	}
	binance := &fakeAdapter{name: "binance", bars: bars}
	r, store := newTestRouter(t, binance)

	_, err := r.FetchDaily(context.Background(), "BTC", day(1), day(5), DefaultOptions())
	require.NoError(t, err)

	stored, err := store.LoadBars(context.Background(), "BTC", day(1), day(5), nil)
	require.NoError(t, err)
	assert.Len(t, stored, 5)

	// Full coverage now; a fresh fetch with cold cache must come from storage
	r2 := New(func() *adapters.Registry {
		reg := adapters.NewRegistry()
		reg.Register(&fakeAdapter{name: "binance", err: fmt.Errorf("should not be called: %w", adapters.ErrUnavailable)})
		return reg
	}(), cache.New(time.Minute), store, mustAssets(t), zerolog.Nop())

	series, err := r2.FetchDaily(context.Background(), "BTC", day(1), day(5), DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, series.Bars, 5)
}

func mustAssets(t *testing.T) *assets.Registry {
	t.Helper()
	reg, err := assets.New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)
	return reg
}

func TestRouter_FetchQuoteFallback(t *testing.T) {
	binance := &fakeAdapter{name: "binance", err: adapters.ErrUnavailable}
	gecko := &fakeAdapter{name: "coingecko", quote: &domain.Quote{Symbol: "BTC", Price: 42000, Currency: "USD"}}
	r, _ := newTestRouter(t, binance, gecko)

	quote, err := r.FetchQuote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 42000.0, quote.Price)
}

func TestRouter_FetchQuoteCachedWithinTTL(t *testing.T) {
	binance := &fakeAdapter{name: "binance", quote: &domain.Quote{Symbol: "BTC", Price: 42000, Currency: "USD"}}
	r, _ := newTestRouter(t, binance)

	for i := 0; i < 5; i++ {
		quote, err := r.FetchQuote(context.Background(), "BTC")
		require.NoError(t, err)
		assert.Equal(t, 42000.0, quote.Price)
	}

	assert.EqualValues(t, 1, binance.quotes, "repeat fetches inside the TTL should not reach the adapter")
}

func TestRouter_FetchQuoteFailureNotCached(t *testing.T) {
	binance := &fakeAdapter{name: "binance", err: adapters.ErrUnavailable}
	r, _ := newTestRouter(t, binance)

	_, err := r.FetchQuote(context.Background(), "BTC")
	require.Error(t, err)

	// Adapter recovers; the next fetch must reach it
	binance.err = nil
	binance.quote = &domain.Quote{Symbol: "BTC", Price: 41000, Currency: "USD"}

	quote, err := r.FetchQuote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 41000.0, quote.Price)
}

func TestRouter_FetchAllOmitsFailures(t *testing.T) {
	binance := &fakeAdapter{name: "binance", bars: []domain.Bar{{Date: day(2), Close: 100}}}
	yahoo := &fakeAdapter{name: "yahoofinance", err: adapters.ErrUnavailable}
	r, _ := newTestRouter(t, binance, yahoo)

	out := r.FetchAll(context.Background(), []string{"BTC", "SPY"}, day(1), day(5),
		Options{UseCache: false, UseStorage: false})

	require.Contains(t, out, "BTC")
	assert.NotContains(t, out, "SPY")
}
