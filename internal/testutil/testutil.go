package testutil

import (
	"context"
	"sync"
)

// MockFetcher is a mock upstream fetcher for testing.
// It records every call per ticker.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, ticker string) (*float64, error)

	mu    sync.Mutex
	calls map[string]int
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, ticker string) (*float64, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[ticker]++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker)
	}
	return nil, nil
}

// Calls returns how many times ticker was fetched.
func (m *MockFetcher) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

// TotalCalls returns the number of fetches across all tickers.
func (m *MockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// NewMockFetcher creates a mock fetcher answering from a fixed table.
// Tickers missing from values fail with err, or report no data when err is nil.
func NewMockFetcher(values map[string]float64, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) (*float64, error) {
			if v, ok := values[ticker]; ok {
				return Float(v), nil
			}
			return nil, err
		},
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
