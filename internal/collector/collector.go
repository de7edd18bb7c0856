// Package collector backfills daily bars for the asset universe on a schedule.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/router"
)

const (
	// sweepConcurrency bounds parallel per-asset fetches
	sweepConcurrency = 4
	// failureBackoff delays the next attempt for an asset after an error
	failureBackoff = 60 * time.Second
	// stopPoll is the shutdown check granularity inside the run loop
	stopPoll = time.Second
	// joinTimeout bounds how long Stop waits for the loop to exit
	joinTimeout = 5 * time.Second
)

// Fetcher is the slice of the router the collector needs
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time, opts router.Options) (domain.Series, error)
}

// LastDater reports the newest stored date per symbol
type LastDater interface {
	LastDate(ctx context.Context, symbol string) (time.Time, error)
}

// Collector periodically walks enabled assets and pulls fresh daily bars
// into storage, bypassing the cache so storage stays authoritative.
type Collector struct {
	fetcher  Fetcher
	store    LastDater
	assets   *assets.Registry
	interval time.Duration
	window   time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	lastSweep time.Time
	failUntil map[string]time.Time
}

// New creates a collector. interval is the sweep period, window how far
// back the first collection for a symbol reaches.
func New(fetcher Fetcher, store LastDater, assetReg *assets.Registry, interval, window time.Duration, log zerolog.Logger) *Collector {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if window <= 0 {
		window = 365 * 24 * time.Hour
	}
	return &Collector{
		fetcher:   fetcher,
		store:     store,
		assets:    assetReg,
		interval:  interval,
		window:    window,
		log:       log.With().Str("component", "collector").Logger(),
		failUntil: make(map[string]time.Time),
	}
}

// Start launches the collection loop. Calling Start on a running collector
// is a no-op.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx)
	c.log.Info().Dur("interval", c.interval).Msg("Collector started")
}

// Stop signals the loop to exit and waits up to the join timeout.
func (c *Collector) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
		c.log.Info().Msg("Collector stopped")
	case <-time.After(joinTimeout):
		c.log.Warn().Msg("Collector did not stop in time")
	}
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)

	// First sweep immediately, then on the interval
	c.Sweep(ctx)

	next := time.Now().Add(c.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(stopPoll):
		}
		if time.Now().Before(next) {
			continue
		}
		c.Sweep(ctx)
		next = time.Now().Add(c.interval)
	}
}

// Sweep collects bars for every enabled asset once. Exported so scheduler
// jobs and tests can trigger a pass directly.
func (c *Collector) Sweep(ctx context.Context) {
	enabled := c.assets.Enabled()
	c.log.Info().Int("assets", len(enabled)).Msg("Collection sweep starting")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, asset := range enabled {
		asset := asset
		g.Go(func() error {
			c.collectOne(gctx, asset)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	c.lastSweep = time.Now()
	c.mu.Unlock()
}

func (c *Collector) collectOne(ctx context.Context, asset domain.Asset) {
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	until, backing := c.failUntil[asset.Symbol]
	c.mu.Unlock()
	if backing && time.Now().Before(until) {
		c.log.Debug().Str("symbol", asset.Symbol).Msg("Skipping, in failure backoff")
		return
	}

	now := time.Now().UTC()
	start := now.Add(-c.window)
	if last, err := c.store.LastDate(ctx, asset.Symbol); err == nil && !last.IsZero() {
		start = last
	}

	// Cache bypassed so fresh bars always land in storage
	_, err := c.fetcher.FetchDaily(ctx, asset.Symbol, start, now, router.Options{
		UseCache:   false,
		UseStorage: true,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Collection failed")
		c.mu.Lock()
		c.failUntil[asset.Symbol] = time.Now().Add(failureBackoff)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	delete(c.failUntil, asset.Symbol)
	c.mu.Unlock()

	if err := c.assets.SetLastCollected(asset.Symbol, now); err != nil {
		c.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Failed to record collection watermark")
	}
	c.log.Debug().Str("symbol", asset.Symbol).Msg("Collected")
}

// LastSweep reports when the previous sweep finished
func (c *Collector) LastSweep() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSweep
}
