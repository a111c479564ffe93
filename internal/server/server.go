// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, the GitHub
// client, the service, handlers, middleware and routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on every request
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  repository.Store (SQLite or Postgres) ─┐
//	  github.Client ─────────────────────────┴→ GraduateService → GraduateHandler
//
// This is the "composition root": all dependencies are wired in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/graduate-showcase/internal/config"
	"github.com/sakif/graduate-showcase/internal/github"
	"github.com/sakif/graduate-showcase/internal/handler"
	"github.com/sakif/graduate-showcase/internal/middleware"
	"github.com/sakif/graduate-showcase/internal/repository"
	"github.com/sakif/graduate-showcase/internal/repository/postgres"
	sqliteRepo "github.com/sakif/graduate-showcase/internal/repository/sqlite"
	"github.com/sakif/graduate-showcase/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store's connection pool. Close (called by Start during
// graceful shutdown) releases it.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	registry *prometheus.Registry
}

// New creates a new Server from cfg.
//
// WIRING:
//  1. Open the store: PostgreSQL when DB_URL is a postgres URL, SQLite otherwise
//  2. Create the GitHub client with the API token and timeout
//  3. Create the service with both
//  4. Create the handler with the service and wire routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}

	s.setupRoutes()

	return s, nil
}

// openStore picks the store implementation from the database URL.
func openStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.UsePostgres() {
		logger.Info("using postgres store")
		db, err := postgres.New(context.Background(), cfg.Database.URL, postgres.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	logger.Info("using sqlite store", slog.String("path", cfg.Database.Path))
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET         /                  → liveness text
// GET, POST   /submit_graduate   → store a graduate (JSON)
// GET, POST   /allGraduates      → every graduate with GitHub data (JSON)
// GET         /graduates/lookup  → id for ?name= (JSON)
// GET         /metrics           → Prometheus exposition
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns the id everything after it logs
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: turns panics into 500s (inside Logger/Metrics, so they see the 500)
// 6. CORS: answers preflight requests from the browser frontend
func (s *Server) setupRoutes() {
	metrics := middleware.NewMetrics(s.registry)
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	if s.config.GitHub.Token == "" {
		s.logger.Warn("GITHUB_API_TOKEN not set; GitHub will reject enrichment requests")
	}
	ghClient := github.NewClient(s.config.GitHub.Endpoint, s.config.GitHub.Token,
		github.WithTimeout(s.config.GitHub.Timeout),
	)

	// The handler never touches the database or GitHub directly; the service
	// never touches HTTP.
	graduateService := service.NewGraduateService(s.store, ghClient, s.logger)
	graduateHandler := handler.NewGraduateHandler(graduateService, s.logger)

	s.router.Get("/", graduateHandler.HandleHome)
	s.router.Get("/submit_graduate", graduateHandler.HandleSubmit)
	s.router.Post("/submit_graduate", graduateHandler.HandleSubmit)
	s.router.Get("/allGraduates", graduateHandler.HandleList)
	s.router.Post("/allGraduates", graduateHandler.HandleList)
	s.router.Get("/graduates/lookup", graduateHandler.HandleLookup)

	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store (flushes SQLite's WAL / closes the pgx pool)
func (s *Server) Start() error {
	defer s.Close()

	// A listing makes one GitHub call per graduate, each bounded by the
	// GitHub timeout, so the write timeout is generous.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("github_endpoint", s.config.GitHub.Endpoint),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
