package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/assetxfer/service/algorand"
	"github.com/brojonat/assetxfer/service/config"
	"github.com/brojonat/assetxfer/service/custody"
	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/metrics"
	natspkg "github.com/brojonat/assetxfer/service/nats"
	"github.com/brojonat/assetxfer/service/temporal"
	"github.com/brojonat/assetxfer/service/transfer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry
	logger.Info("Prometheus metrics collector initialized")

	// Start metrics HTTP server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Initialize algod client
	algodAPI, err := algorand.NewAlgodAPI(cfg.AlgodAddress(), cfg.AlgodToken, cfg.AlgodTokenHeader)
	if err != nil {
		logger.Error("failed to create algod client", "error", err)
		os.Exit(1)
	}
	algodClient := algorand.NewClient(algodAPI, cfg.AlgodNetwork, metricsCollector, logger)
	logger.Info("initialized algod client", "address", cfg.AlgodAddress(), "network", cfg.AlgodNetwork)

	// Initialize custody client
	custodyClient := custody.NewClient(cfg.OreURL, cfg.OreAppID, cfg.OreAPIKey, cfg.OreServiceKey, metricsCollector, logger)
	logger.Info("initialized custody client", "url", cfg.OreURL)

	// Initialize NATS publisher (optional)
	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	} else {
		logger.Info("NATS_URL not set, confirmation events will not be published")
	}

	poller := ledger.NewPoller(algodClient, cfg.AlgodNetwork, metricsCollector, logger)
	service := transfer.NewService(
		custodyClient,
		algodClient,
		poller,
		publisher,
		cfg.AlgodNetwork,
		cfg.ConfirmationTimeoutRounds,
		logger,
	)

	// Initialize Temporal worker
	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Service:           service,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"algod_network", cfg.AlgodNetwork,
		"confirmation_timeout_rounds", cfg.ConfirmationTimeoutRounds,
		"task_queue", cfg.TemporalTaskQueue,
	)

	// Start worker in background
	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- worker.Start()
	}()

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
