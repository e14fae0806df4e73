package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Atlas/internal/api"
	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/config"
	"github.com/MikeSquared-Agency/Atlas/internal/dataset"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/sample"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store: Postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = db
		logger.Info("connected to database")
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	// Beacon (optional)
	var events beacon.Client
	if cfg.Beacon.URL != "" {
		bc, err := beacon.NewNATSClient(ctx, cfg.Beacon.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to beacon, running without events", "error", err)
		} else {
			events = bc
			defer bc.Close()
			logger.Info("connected to beacon")
		}
	}

	// Weighting engine
	src := dataset.NewSource(st)
	eng := engine.New(src, src, src, logger)

	loadSample := func(ctx context.Context) error {
		return sample.Seed(ctx, st, eng, logger)
	}
	if cfg.Sample.SeedOnStartup {
		if err := loadSample(ctx); err != nil {
			logger.Warn("failed to seed sample data", "error", err)
		}
	}

	metrics := api.NewMetrics()

	// API server
	router := api.NewRouter(st, eng, events, metrics, loadSample, cfg.Engine.PCACumVarThreshold, cfg.Server.AuthToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsRouter := api.NewMetricsRouter()
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsRouter,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
