// Package router selects data sources for market data requests, preferring
// local storage, then cache, then live providers in per-symbol order.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/fks-analytics/internal/adapters"
	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/cache"
	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/storage"
)

// ErrNoData means every source was tried and none could serve the request
var ErrNoData = errors.New("no source could serve request")

// storageCoverageThreshold is the fraction of expected trading days that
// must be present before storage answers a history request on its own.
const storageCoverageThreshold = 0.80

// batchConcurrency bounds parallel per-symbol fetches in FetchAll
const batchConcurrency = 8

// quoteTTL is how long a live quote stays fresh. Quotes drive valuation
// endpoints that hit the same symbols repeatedly within one request.
const quoteTTL = 30 * time.Second

// Options control which tiers a fetch consults.
type Options struct {
	UseCache   bool
	UseStorage bool
}

// DefaultOptions consults every tier
func DefaultOptions() Options {
	return Options{UseCache: true, UseStorage: true}
}

// Router fans requests out across storage, cache and provider adapters.
type Router struct {
	registry *adapters.Registry
	cache    *cache.Cache
	store    *storage.Store
	assets   *assets.Registry
	log      zerolog.Logger

	quoteMu sync.Mutex
	quotes  map[string]cachedQuote
}

type cachedQuote struct {
	quote   domain.Quote
	fetched time.Time
}

// New creates a router
func New(registry *adapters.Registry, c *cache.Cache, store *storage.Store, assetReg *assets.Registry, log zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		cache:    c,
		store:    store,
		assets:   assetReg,
		log:      log.With().Str("component", "router").Logger(),
		quotes:   make(map[string]cachedQuote),
	}
}

// FetchDaily returns the daily series for symbol over [start, end].
// Storage answers when it covers enough of the window; otherwise the cache,
// then each preferred adapter in turn. Live results are written through to
// cache and storage.
func (r *Router) FetchDaily(ctx context.Context, symbol string, start, end time.Time, opts Options) (domain.Series, error) {
	preferred := r.assets.AdaptersFor(symbol)

	if opts.UseStorage && r.store != nil {
		coverage, err := r.store.Coverage(ctx, symbol, start, end)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("Coverage check failed")
		} else if coverage >= storageCoverageThreshold {
			bars, err := r.store.LoadBars(ctx, symbol, start, end, preferred)
			if err == nil && len(bars) > 0 {
				r.log.Debug().Str("symbol", symbol).Float64("coverage", coverage).Msg("Served from storage")
				return domain.NewSeries(symbol, bars), nil
			}
		}
	}

	var lastErr error
	for _, name := range preferred {
		adapter, ok := r.registry.Get(name)
		if !ok {
			continue
		}

		key := cache.Key(name, symbol, start, end)
		if opts.UseCache {
			if bars, hit := r.cache.Get(key); hit {
				r.log.Debug().Str("symbol", symbol).Str("adapter", name).Msg("Served from cache")
				return domain.NewSeries(symbol, bars), nil
			}
		}

		bars, err := adapter.FetchDaily(ctx, symbol, start, end)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.Series{}, err
			}
			continue
		}
		if len(bars) == 0 {
			lastErr = adapters.ErrNoData
			continue
		}

		if opts.UseCache {
			r.cache.Set(key, bars)
		}
		if opts.UseStorage && r.store != nil {
			if err := r.store.SaveBars(ctx, symbol, name, bars); err != nil {
				r.log.Warn().Err(err).Str("symbol", symbol).Str("adapter", name).Msg("Write-through to storage failed")
			}
		}
		return domain.NewSeries(symbol, bars), nil
	}

	if lastErr != nil {
		return domain.Series{}, fmt.Errorf("%w: %s: %v", ErrNoData, symbol, lastErr)
	}
	return domain.Series{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
}

// AdapterNames lists the registered provider adapters in order.
func (r *Router) AdapterNames() []string {
	return r.registry.Names()
}

// FetchQuote returns the current price for symbol from the first adapter
// able to serve it. Fresh quotes are held for a short TTL so batch
// valuations do not hammer the providers.
func (r *Router) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	r.quoteMu.Lock()
	if entry, ok := r.quotes[symbol]; ok && time.Since(entry.fetched) < quoteTTL {
		r.quoteMu.Unlock()
		q := entry.quote
		return &q, nil
	}
	r.quoteMu.Unlock()

	var lastErr error
	for _, name := range r.assets.AdaptersFor(symbol) {
		adapter, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		quote, err := adapter.FetchQuote(ctx, symbol)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}
		r.quoteMu.Lock()
		r.quotes[symbol] = cachedQuote{quote: *quote, fetched: time.Now()}
		r.quoteMu.Unlock()
		return quote, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoData, symbol, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
}

// FetchAll fetches daily series for several symbols in parallel. Symbols
// that fail are omitted from the result rather than failing the batch.
func (r *Router) FetchAll(ctx context.Context, symbols []string, start, end time.Time, opts Options) map[string]domain.Series {
	var mu sync.Mutex
	out := make(map[string]domain.Series, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			series, err := r.FetchDaily(gctx, symbol, start, end, opts)
			if err != nil {
				r.log.Warn().Err(err).Str("symbol", symbol).Msg("Batch fetch failed for symbol")
				return nil
			}
			mu.Lock()
			out[symbol] = series
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
