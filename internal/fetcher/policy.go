package fetcher

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxAttempts is the number of upstream requests made for one ticker
	DefaultMaxAttempts = 2
	// DefaultAttemptTimeout bounds a single upstream request
	DefaultAttemptTimeout = 5 * time.Second
	// DefaultBackoff is the pause between a failed attempt and the next one
	DefaultBackoff = 500 * time.Millisecond
)

// Policy bounds the attempts made to fetch a single ticker.
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
	Logger         *slog.Logger
}

// DefaultPolicy returns two attempts of five seconds with a 500ms pause between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    DefaultMaxAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		Backoff:        DefaultBackoff,
	}
}

type state int

const (
	stateIdle state = iota
	stateAttempting
	stateBackoff
	stateSuccess
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAttempting:
		return "attempting"
	case stateBackoff:
		return "backoff"
	case stateSuccess:
		return "success"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Run fetches ticker from f, retrying failed attempts until one succeeds or the
// attempt budget is spent. It never returns an error directly; a failed run
// carries the last attempt's error in Result.Err.
//
// Each attempt gets its own deadline derived from ctx, so a timeout cancels only
// that attempt. Cancelling ctx ends the run without further attempts.
func (p Policy) Run(ctx context.Context, ticker string, f Fetcher) Result {
	p = p.normalized()

	res := Result{Ticker: ticker}
	st := stateIdle

	for {
		switch st {
		case stateIdle:
			st = stateAttempting

		case stateAttempting:
			res.Attempts++
			value, err := p.attempt(ctx, ticker, f)
			if err == nil {
				res.Value = value
				res.Err = nil
				st = stateSuccess
				continue
			}

			res.Err = err
			p.Logger.Debug("fetch attempt failed",
				"ticker", ticker,
				"attempt", res.Attempts,
				"error_type", TypeOf(err),
				"error", err.Error())

			if res.Attempts >= p.MaxAttempts || TypeOf(err) == ErrorTypeCanceled {
				st = stateExhausted
			} else {
				st = stateBackoff
			}

		case stateBackoff:
			if err := sleep(ctx, p.Backoff); err != nil {
				res.Err = NewCanceledError(err)
				st = stateExhausted
				continue
			}
			st = stateAttempting

		case stateSuccess, stateExhausted:
			return res
		}
	}
}

func (p Policy) attempt(ctx context.Context, ticker string, f Fetcher) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCanceledError(err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()

	value, err := f.Fetch(attemptCtx, ticker)
	if err != nil {
		// The parent context takes precedence: a caller that went away is not a timeout.
		if ctx.Err() != nil {
			return nil, NewCanceledError(err)
		}
		return nil, ClassifyRequestError(attemptCtx, err)
	}
	return value, nil
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}
	if p.Backoff < 0 {
		p.Backoff = def.Backoff
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
