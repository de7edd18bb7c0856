package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// sweepTimeout bounds a single collection sweep
const sweepTimeout = 30 * time.Minute

// signalRetention is how long persisted signal files are kept
const signalRetention = 30 * 24 * time.Hour

// Sweeper is the slice of the collector the collection job needs
type Sweeper interface {
	Sweep(ctx context.Context)
}

// CollectionJob pulls fresh daily bars for every enabled asset.
type CollectionJob struct {
	sweeper Sweeper
	log     zerolog.Logger
}

// NewCollectionJob creates a collection job
func NewCollectionJob(sweeper Sweeper, log zerolog.Logger) *CollectionJob {
	return &CollectionJob{
		sweeper: sweeper,
		log:     log.With().Str("job", "collection").Logger(),
	}
}

func (j *CollectionJob) Name() string { return "collection" }

func (j *CollectionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	j.sweeper.Sweep(ctx)
	return nil
}

// CacheSweeper is the slice of the market data cache the eviction job needs
type CacheSweeper interface {
	Sweep() int
}

// CacheSweepJob evicts expired market data cache entries.
type CacheSweepJob struct {
	cache CacheSweeper
	log   zerolog.Logger
}

// NewCacheSweepJob creates a cache eviction job
func NewCacheSweepJob(cache CacheSweeper, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		cache: cache,
		log:   log.With().Str("job", "cache_sweep").Logger(),
	}
}

func (j *CacheSweepJob) Name() string { return "cache_sweep" }

func (j *CacheSweepJob) Run() error {
	if evicted := j.cache.Sweep(); evicted > 0 {
		j.log.Info().Int("evicted", evicted).Msg("Evicted expired cache entries")
	}
	return nil
}

// Pruner is the slice of the signal store the retention job needs
type Pruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// SignalRetentionJob deletes signal files older than the retention window.
type SignalRetentionJob struct {
	store Pruner
	log   zerolog.Logger
}

// NewSignalRetentionJob creates a retention job
func NewSignalRetentionJob(store Pruner, log zerolog.Logger) *SignalRetentionJob {
	return &SignalRetentionJob{
		store: store,
		log:   log.With().Str("job", "signal_retention").Logger(),
	}
}

func (j *SignalRetentionJob) Name() string { return "signal_retention" }

func (j *SignalRetentionJob) Run() error {
	removed, err := j.store.Prune(signalRetention)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("Pruned old signal files")
	}
	return nil
}
