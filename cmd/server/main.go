package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/adapters"
	"github.com/aristath/fks-analytics/internal/ai"
	"github.com/aristath/fks-analytics/internal/allocation"
	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/bias"
	"github.com/aristath/fks-analytics/internal/cache"
	"github.com/aristath/fks-analytics/internal/collector"
	"github.com/aristath/fks-analytics/internal/config"
	"github.com/aristath/fks-analytics/internal/converter"
	"github.com/aristath/fks-analytics/internal/database"
	"github.com/aristath/fks-analytics/internal/guidance"
	"github.com/aristath/fks-analytics/internal/router"
	"github.com/aristath/fks-analytics/internal/scheduler"
	"github.com/aristath/fks-analytics/internal/server"
	"github.com/aristath/fks-analytics/internal/signals"
	"github.com/aristath/fks-analytics/internal/storage"
	"github.com/aristath/fks-analytics/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting fks-analytics")

	// market.db holds daily OHLCV bars collected from the providers
	marketDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "market.db"),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize market database")
	}
	defer marketDB.Close()

	store, err := storage.New(marketDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize bar storage")
	}

	assetRegistry, err := assets.New(filepath.Join(cfg.DataDir, "assets.json"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize asset registry")
	}

	adapterRegistry := adapters.NewRegistry()
	adapterRegistry.Register(adapters.NewBinanceAdapter(log))
	adapterRegistry.Register(adapters.NewCoinGeckoAdapter(cfg.CoinGeckoAPIKey, log))
	adapterRegistry.Register(adapters.NewCoinMarketCapAdapter(cfg.CoinMarketCapAPIKey, log))
	adapterRegistry.Register(adapters.NewYahooAdapter(log))
	adapterRegistry.Register(adapters.NewAlphaVantageAdapter(cfg.AlphaVantageAPIKey, log))
	adapterRegistry.Register(adapters.NewPolygonAdapter(cfg.PolygonAPIKey, log))

	marketCache := cache.New(cfg.CacheTTL)
	dataRouter := router.New(adapterRegistry, marketCache, store, assetRegistry, log)

	coll := collector.New(dataRouter, store, assetRegistry, cfg.CollectInterval, cfg.CollectWindow, log)
	coll.Start()
	defer coll.Stop()

	engine := signals.NewEngine(log)
	signalStore, err := signals.NewStore(cfg.SignalsDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signal store")
	}

	decisionLog, err := guidance.NewDecisionLog(filepath.Join(cfg.DataDir, "logs"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize decision log")
	}

	sched := scheduler.New(log)
	registerJobs(sched, coll, marketCache, signalStore, log)
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:          log,
		Cfg:          cfg,
		Router:       dataRouter,
		Assets:       assetRegistry,
		Cache:        marketCache,
		Store:        store,
		Converter:    converter.New(dataRouter, log),
		Engine:       engine,
		Generator:    signals.NewGenerator(engine, log),
		SignalStore:  signalStore,
		Bias:         bias.NewDetector(log),
		Advisor:      guidance.NewAdvisor(log),
		DecisionLog:  decisionLog,
		Allocation:   allocation.NewTracker(log),
		MultiAccount: allocation.NewMultiAccountTracker(log),
		AI:           ai.NewClient(cfg.AIBaseURL, log),
		Collector:    coll,
		Port:         cfg.Port,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs wires the recurring maintenance jobs. Registration failures
// are logged rather than fatal since the HTTP surface works without them.
func registerJobs(sched *scheduler.Scheduler, coll *collector.Collector, marketCache *cache.Cache, signalStore *signals.Store, log zerolog.Logger) {
	// Collection sweep every 6 hours
	if err := sched.AddJob("0 0 */6 * * *", scheduler.NewCollectionJob(coll, log)); err != nil {
		log.Error().Err(err).Msg("Failed to register collection job")
	}
	// Cache eviction every 10 minutes
	if err := sched.AddJob("0 */10 * * * *", scheduler.NewCacheSweepJob(marketCache, log)); err != nil {
		log.Error().Err(err).Msg("Failed to register cache sweep job")
	}
	// Signal file retention daily at 03:00
	if err := sched.AddJob("0 0 3 * * *", scheduler.NewSignalRetentionJob(signalStore, log)); err != nil {
		log.Error().Err(err).Msg("Failed to register signal retention job")
	}
}
