package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter throttles requests to a single upstream API.
// A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate means unlimited.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *Limiter {
	return New(0, 1)
}

// Wait blocks until the limiter permits a request.
// It returns an error if the context is done before the request can proceed.
// When the next token would only arrive after ctx's deadline, Wait fails at
// once with an error wrapping context.DeadlineExceeded.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}
	return nil
}

// Limit returns the configured rate in requests per second.
func (l *Limiter) Limit() rate.Limit {
	if l == nil {
		return rate.Inf
	}
	return l.limiter.Limit()
}
