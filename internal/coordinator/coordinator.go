package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/iter"

	"atfcf/internal/company"
)

const (
	// DefaultBatchSize bounds the number of simultaneous upstream fetches
	DefaultBatchSize = 20
	// DefaultBatchDelay is the pause between two consecutive batches
	DefaultBatchDelay = 300 * time.Millisecond
)

// MetricSource resolves a ticker's metric. Implementations never fail;
// a missing metric is reported as nil.
type MetricSource interface {
	Fetch(ctx context.Context, ticker string) *float64
}

// Coordinator enriches company lists with their metric in fixed-size batches.
// Fetches within a batch run concurrently; batches run one after another.
type Coordinator struct {
	source     MetricSource
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBatchSize sets the number of companies fetched concurrently.
func WithBatchSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches.
func WithBatchDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.batchDelay = d
		}
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a new Coordinator reading metrics from source
func New(source MetricSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:     source,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enrich returns one record per company, in input order. A company whose metric
// cannot be fetched gets a nil ATFCF; it never affects the other companies.
//
// Batch k+1 starts only after every fetch of batch k has returned. Cancelling ctx
// skips the remaining inter-batch delays; the companies not yet fetched come back
// without data.
func (c *Coordinator) Enrich(ctx context.Context, companies []company.Company) []company.Record {
	records := make([]company.Record, 0, len(companies))
	batches := Batches(companies, c.batchSize)

	c.logger.Info("fetching ATFCF data", "companies", len(companies), "batches", len(batches))

	for i, batch := range batches {
		c.logger.Info("processing batch",
			"batch", i+1,
			"of", len(batches),
			"size", len(batch))

		records = append(records, c.fetchBatch(ctx, batch)...)

		if i < len(batches)-1 {
			c.pause(ctx)
		}
	}

	withData := company.CountWithData(records)
	c.logger.Info("ATFCF enrichment complete",
		"with_data", withData,
		"without_data", len(records)-withData)

	return records
}

// fetchBatch fetches every company of batch concurrently and waits for all of them.
// Results are placed by input index, not by completion order.
func (c *Coordinator) fetchBatch(ctx context.Context, batch []company.Company) []company.Record {
	mapper := iter.Mapper[company.Company, company.Record]{MaxGoroutines: len(batch)}
	return mapper.Map(batch, func(co *company.Company) company.Record {
		return company.NewRecord(*co, c.source.Fetch(ctx, co.Ticker))
	})
}

func (c *Coordinator) pause(ctx context.Context) {
	if c.batchDelay <= 0 {
		return
	}
	t := time.NewTimer(c.batchDelay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Batches splits items into consecutive slices of at most size elements,
// preserving order. The returned slices share items' backing array.
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end:end])
	}
	return batches
}
