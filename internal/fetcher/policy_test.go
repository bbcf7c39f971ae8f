package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atfcf/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    2,
		AttemptTimeout: 50 * time.Millisecond,
		Backoff:        20 * time.Millisecond,
		Logger:         quietLogger(),
	}
}

// hang blocks until the attempt's context is done.
func hang(ctx context.Context, ticker string) (*float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.AttemptTimeout)
	assert.Equal(t, 500*time.Millisecond, p.Backoff)
}

func TestPolicy_Normalized(t *testing.T) {
	p := Policy{}.normalized()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultAttemptTimeout, p.AttemptTimeout)
	assert.Equal(t, time.Duration(0), p.Backoff)
	assert.NotNil(t, p.Logger)
}

func TestPolicyRun_FirstAttemptSucceeds(t *testing.T) {
	f := testutil.NewMockFetcher(map[string]float64{"MMM": 12345.6}, nil)

	res := fastPolicy().Run(context.Background(), "MMM", f)

	require.True(t, res.OK())
	require.NotNil(t, res.Value)
	assert.Equal(t, 12345.6, *res.Value)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "MMM", res.Ticker)
	assert.Equal(t, 1, f.Calls("MMM"))
}

func TestPolicyRun_NoDataIsSuccess(t *testing.T) {
	f := testutil.NewMockFetcher(nil, nil)

	res := fastPolicy().Run(context.Background(), "BRK.B", f)

	assert.True(t, res.OK())
	assert.Nil(t, res.Value)
	assert.Equal(t, 1, res.Attempts)
}

func TestPolicyRun_RetriesAfterBackoff(t *testing.T) {
	var attempts []time.Time
	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) (*float64, error) {
			attempts = append(attempts, time.Now())
			if len(attempts) == 1 {
				return nil, NewServerError(502)
			}
			return testutil.Float(42), nil
		},
	}
	p := fastPolicy()

	res := p.Run(context.Background(), "AOS", f)

	require.True(t, res.OK())
	assert.Equal(t, 42.0, *res.Value)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, attempts, 2)
	assert.GreaterOrEqual(t, attempts[1].Sub(attempts[0]), p.Backoff)
}

func TestPolicyRun_Exhausted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"server error", NewServerError(500), ErrorTypeServer},
		{"application error", NewValidationError("Could not calculate ATFCF for ticker"), ErrorTypeValidation},
		{"client error", NewClientError(404, "not found"), ErrorTypeClient},
		{"network error", errors.New("connection refused"), ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewMockFetcher(nil, tt.err)

			res := fastPolicy().Run(context.Background(), "XYZ", f)

			assert.False(t, res.OK())
			assert.Nil(t, res.Value)
			assert.Equal(t, 2, res.Attempts)
			assert.Equal(t, tt.wantType, TypeOf(res.Err))
			assert.Equal(t, 2, f.Calls("XYZ"))
		})
	}
}

func TestPolicyRun_TimeoutPerAttempt(t *testing.T) {
	f := &testutil.MockFetcher{FetchFunc: hang}
	p := fastPolicy()

	start := time.Now()
	res := p.Run(context.Background(), "XYZ", f)
	elapsed := time.Since(start)

	assert.False(t, res.OK())
	assert.Equal(t, ErrorTypeTimeout, TypeOf(res.Err))
	assert.Equal(t, 2, res.Attempts)
	assert.GreaterOrEqual(t, elapsed, 2*p.AttemptTimeout+p.Backoff)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPolicyRun_SingleAttempt(t *testing.T) {
	f := testutil.NewMockFetcher(nil, NewServerError(500))
	p := fastPolicy()
	p.MaxAttempts = 1

	res := p.Run(context.Background(), "XYZ", f)

	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
}

func TestPolicyRun_ParentCanceled(t *testing.T) {
	f := testutil.NewMockFetcher(map[string]float64{"MMM": 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := fastPolicy().Run(ctx, "MMM", f)

	assert.False(t, res.OK())
	assert.Equal(t, ErrorTypeCanceled, TypeOf(res.Err))
	assert.Equal(t, 0, f.Calls("MMM"))
}

func TestPolicyRun_CanceledDuringAttempt(t *testing.T) {
	f := &testutil.MockFetcher{FetchFunc: hang}
	p := fastPolicy()
	p.AttemptTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := p.Run(ctx, "XYZ", f)

	assert.False(t, res.OK())
	assert.Equal(t, ErrorTypeCanceled, TypeOf(res.Err))
	assert.Equal(t, 1, res.Attempts, "no retry once the caller is gone")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPolicyRun_CanceledDuringBackoff(t *testing.T) {
	f := testutil.NewMockFetcher(nil, NewServerError(500))
	p := fastPolicy()
	p.Backoff = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := p.Run(ctx, "XYZ", f)

	assert.False(t, res.OK())
	assert.Equal(t, ErrorTypeCanceled, TypeOf(res.Err))
	assert.Equal(t, 1, f.Calls("XYZ"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "attempting", stateAttempting.String())
	assert.Equal(t, "backoff", stateBackoff.String())
	assert.Equal(t, "success", stateSuccess.String())
	assert.Equal(t, "exhausted", stateExhausted.String())
}
