package fetcher

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"atfcf/internal/cache"
)

// MetricFetcher resolves a ticker's metric through the cache, falling back to the
// upstream under a retry Policy. Its contract is total: every call yields a value
// or nil, and failures are logged rather than returned.
type MetricFetcher struct {
	upstream Fetcher
	cache    *cache.Cache
	policy   Policy
	logger   *slog.Logger
	group    singleflight.Group
}

// NewMetricFetcher creates a MetricFetcher. The cache is owned by the caller and
// may be shared with other components (for example an admin reset endpoint).
func NewMetricFetcher(upstream Fetcher, c *cache.Cache, policy Policy) *MetricFetcher {
	policy = policy.normalized()
	return &MetricFetcher{
		upstream: upstream,
		cache:    c,
		policy:   policy,
		logger:   policy.Logger,
	}
}

// Fetch returns the metric for ticker, or nil when the upstream has no data or
// could not be reached. Only successful fetches are written to the cache.
//
// Concurrent callers for the same ticker share one policy run. The run is
// detached from any single caller's cancellation and bounded by the policy's
// per-attempt timeouts; a caller whose ctx ends stops waiting and gets nil.
func (m *MetricFetcher) Fetch(ctx context.Context, ticker string) *float64 {
	if strings.TrimSpace(ticker) == "" {
		return nil
	}

	if v, ok := m.cache.Lookup(ticker); ok {
		m.logger.Debug("cache hit", "ticker", ticker)
		return v
	}

	if ctx.Err() != nil {
		return nil
	}

	// Flights are keyed by cache generation so a fetch started before a
	// clear is never joined by callers arriving after it.
	gen := m.cache.Generation()
	key := strconv.FormatUint(gen, 10) + ":" + ticker
	runCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan(key, func() (any, error) {
		return m.resolve(runCtx, ticker, gen), nil
	})

	select {
	case res := <-ch:
		return copyValue(res.Val.(*float64))
	case <-ctx.Done():
		m.logger.Debug("caller gave up waiting", "ticker", ticker, "error", ctx.Err())
		return nil
	}
}

// resolve runs the policy for ticker and caches a successful result,
// unless the cache was cleared while the run was in flight.
func (m *MetricFetcher) resolve(ctx context.Context, ticker string, gen uint64) *float64 {
	if v, ok := m.cache.Lookup(ticker); ok {
		return v
	}

	res := m.policy.Run(ctx, ticker, m.upstream)
	if !res.OK() {
		m.logger.Warn("no metric after retries",
			"ticker", ticker,
			"attempts", res.Attempts,
			"error_type", TypeOf(res.Err),
			"error", res.Err.Error())
		return nil
	}

	if !m.cache.PutIf(gen, ticker, res.Value) {
		m.logger.Debug("cache cleared during fetch, result not stored", "ticker", ticker)
	}
	if res.Value != nil {
		m.logger.Debug("fetched metric", "ticker", ticker, "value", *res.Value, "attempts", res.Attempts)
	} else {
		m.logger.Debug("upstream has no data", "ticker", ticker, "attempts", res.Attempts)
	}
	return res.Value
}

// ClearCache wipes every cached metric.
func (m *MetricFetcher) ClearCache() {
	n := m.cache.Len()
	m.cache.Clear()
	m.logger.Info("metric cache cleared", "entries", n)
}

// copyValue gives each caller its own value; a flight's result is shared.
func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
