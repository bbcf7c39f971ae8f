// Package scheduler periodically enriches the roster so page loads hit a warm cache.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"atfcf/internal/company"
)

// runTimeout bounds a single warm-up run.
const runTimeout = 10 * time.Minute

// Enricher augments companies with their ATFCF figure.
type Enricher interface {
	Enrich(ctx context.Context, companies []company.Company) []company.Record
}

// Warmer runs a full roster enrichment on a cron schedule.
type Warmer struct {
	schedule string
	enricher Enricher
	roster   []company.Company
	cron     *cron.Cron
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a warmer for a standard five-field cron schedule.
func New(schedule string, enricher Enricher, roster []company.Company, logger *slog.Logger) (*Warmer, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid warm schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Warmer{
		schedule: schedule,
		enricher: enricher,
		roster:   roster,
		cron:     cron.New(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start registers the job and starts the scheduler.
func (w *Warmer) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.run(w.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cache warm-up: %w", err)
	}

	w.cron.Start()
	w.logger.Info("cache warmer started", "schedule", w.schedule, "companies", len(w.roster))
	return nil
}

// Stop cancels any run in progress and waits for it to return.
func (w *Warmer) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
	w.logger.Info("cache warmer stopped")
}

// run enriches the whole roster once. Overlapping ticks are skipped.
func (w *Warmer) run(parent context.Context) {
	if !w.mu.TryLock() {
		w.logger.Warn("cache warm-up still running, skipping tick")
		return
	}
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()

	start := time.Now()
	w.logger.Info("starting cache warm-up")

	records := w.enricher.Enrich(ctx, w.roster)

	w.logger.Info("cache warm-up completed",
		"companies", len(records),
		"with_data", company.CountWithData(records),
		"duration", time.Since(start))
}
