package fetcher

import "context"

// Fetcher is implemented by upstream clients that retrieve a ticker's metric.
// Each call is a single attempt: no caching and no retries.
type Fetcher interface {
	// Fetch returns the metric for ticker. A nil value with a nil error means
	// the upstream answered successfully but has no data for the ticker.
	Fetch(ctx context.Context, ticker string) (*float64, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ticker string) (*float64, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, ticker string) (*float64, error) {
	return f(ctx, ticker)
}
