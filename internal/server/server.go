// Package server exposes the analytics platform over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/ai"
	"github.com/aristath/fks-analytics/internal/allocation"
	"github.com/aristath/fks-analytics/internal/assets"
	"github.com/aristath/fks-analytics/internal/bias"
	"github.com/aristath/fks-analytics/internal/cache"
	"github.com/aristath/fks-analytics/internal/collector"
	"github.com/aristath/fks-analytics/internal/config"
	"github.com/aristath/fks-analytics/internal/converter"
	"github.com/aristath/fks-analytics/internal/guidance"
	"github.com/aristath/fks-analytics/internal/router"
	"github.com/aristath/fks-analytics/internal/signals"
	"github.com/aristath/fks-analytics/internal/storage"
)

// Config wires every component the server serves.
type Config struct {
	Log          zerolog.Logger
	Cfg          *config.Config
	Router       *router.Router
	Assets       *assets.Registry
	Cache        *cache.Cache
	Store        *storage.Store
	Converter    *converter.Converter
	Engine       *signals.Engine
	Generator    *signals.Generator
	SignalStore  *signals.Store
	Bias         *bias.Detector
	Advisor      *guidance.Advisor
	DecisionLog  *guidance.DecisionLog
	Allocation   *allocation.Tracker
	MultiAccount *allocation.MultiAccountTracker
	AI           *ai.Client
	Collector    *collector.Collector
	Port         int
}

// Server is the HTTP front of the platform.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	deps   Config
}

// New creates the server and registers every route.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		deps:   cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Get("/", s.handleRoot)

	s.router.Route("/api", func(r chi.Router) {
		s.registerSystemRoutes(r)
		s.registerAssetRoutes(r)
		s.registerAnalyticsRoutes(r)
		s.registerSignalRoutes(r)
		s.registerGuidanceRoutes(r)
		s.registerAllocationRoutes(r)
		s.registerAIRoutes(r)
	})
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
