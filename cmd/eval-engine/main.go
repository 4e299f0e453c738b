package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchqa/eval-engine/internal/api"
	"github.com/searchqa/eval-engine/internal/catalog"
	"github.com/searchqa/eval-engine/internal/config"
	"github.com/searchqa/eval-engine/internal/evaluation"
	"github.com/searchqa/eval-engine/internal/health"
	"github.com/searchqa/eval-engine/internal/history"
	"github.com/searchqa/eval-engine/internal/models"
	"github.com/searchqa/eval-engine/internal/oracle"
	"github.com/searchqa/eval-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting eval-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize the state store backend
	store, err := newStore(initCtx, cfg)
	if err != nil {
		slog.Error("failed to initialize state store", "error", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("state store connected", "backend", cfg.Storage.Backend)

	// Load the catalog seed
	seed, err := loadSeed(cfg)
	if err != nil {
		slog.Error("failed to load catalog seed", "error", err)
		os.Exit(1)
	}

	catalogStore := catalog.NewStore(store, seed)
	session := catalog.NewSession(catalogStore)

	// Oracle client with its metrics registry
	metrics := oracle.NewMetrics()
	oracleClient := oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, metrics)

	// Evaluation pipeline
	aggregator := history.NewAggregator(store)
	orchestrator := evaluation.NewOrchestrator(oracleClient, aggregator)

	// Health poller over the oracle and the state store
	registry := health.NewRegistry()
	registry.Register(oracleClient)
	registry.Register(health.NewProbe("storage", store.Ping))

	poller := health.NewPoller(registry, cfg.Health.Interval, metrics.Registry)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start health poller
	poller.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, catalogStore, session, orchestrator, aggregator, poller, store, metrics.Registry)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("eval-engine stopped")
}

// newStore selects and connects the configured state store backend
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		return storage.NewRedisStore(cfg.Storage.Redis.Address, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
	case config.BackendPostgres:
		return storage.NewPostgresStore(ctx, storage.PostgresConfig{
			DSN:          cfg.Storage.Postgres.DSN,
			MaxOpenConns: int32(cfg.Storage.Postgres.MaxOpenConns),
			MaxIdleConns: int32(cfg.Storage.Postgres.MaxIdleConns),
		})
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// loadSeed returns the catalog seed, from file when configured, otherwise
// the embedded canonical sample set
func loadSeed(cfg *config.Config) ([]models.Item, error) {
	if cfg.Catalog.SeedFile != "" {
		return catalog.LoadSeedFile(cfg.Catalog.SeedFile)
	}
	return catalog.DefaultSeed()
}
