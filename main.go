package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atfcf/internal/atfcf"
	"atfcf/internal/cache"
	"atfcf/internal/company"
	"atfcf/internal/config"
	"atfcf/internal/coordinator"
	"atfcf/internal/fetcher"
	"atfcf/internal/ratelimit"
	"atfcf/internal/scheduler"
	"atfcf/internal/server"
)

const shutdownTimeout = 10 * time.Second

// app bundles the wired components.
type app struct {
	server *server.Server
	warmer *scheduler.Warmer
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	roster, err := company.LoadRoster(cfg.RosterFile)
	if err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}

	a, err := build(cfg, roster, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.warmer != nil {
		if err := a.warmer.Start(); err != nil {
			log.Fatalf("Failed to start cache warmer: %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received interrupt signal, shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.warmer != nil {
		a.warmer.Stop()
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// build wires the upstream client, cache, fetch policy, enricher and HTTP server.
func build(cfg *config.Config, roster []company.Company, logger *slog.Logger) (*app, error) {
	limiter := ratelimit.New(cfg.UpstreamRateLimit, cfg.UpstreamBurst)
	client := atfcf.NewClient(cfg.UpstreamBaseURL, limiter)

	metricCache := cache.New(cfg.CacheTTL)
	metrics := fetcher.NewMetricFetcher(client, metricCache, fetcher.Policy{
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
		Backoff:        cfg.RetryBackoff,
		Logger:         logger,
	})

	coord := coordinator.New(metrics,
		coordinator.WithBatchSize(cfg.BatchSize),
		coordinator.WithBatchDelay(cfg.BatchDelay),
		coordinator.WithLogger(logger),
	)

	srv, err := server.New(cfg.Addr(), server.Deps{
		Enricher: coord,
		Cache:    metrics,
		Roster:   roster,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{server: srv}

	if cfg.WarmSchedule != "" {
		a.warmer, err = scheduler.New(cfg.WarmSchedule, coord, roster, logger)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("ATFCF service configured",
		"upstream", cfg.UpstreamBaseURL,
		"companies", len(roster),
		"cache_ttl", metricCache.TTL(),
		"upstream_rate_limit", float64(limiter.Limit()),
		"batch_size", cfg.BatchSize)

	return a, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
