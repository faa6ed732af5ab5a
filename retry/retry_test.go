package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderlens/tenderlens/apperr"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Retryable:     apperr.IsRetryable,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesConflictsUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return apperr.NewConflictError("o1", int64(calls))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return apperr.NewConflictError("o1", 1)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperr.IsConflict(err))
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return apperr.NewValidationError("bad snapshot")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoDefaultsRetryablePredicate(t *testing.T) {
	cfg := fastConfig()
	cfg.Retryable = nil

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return apperr.NewStorageError("connection reset", errors.New("reset"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastConfig(), func() error {
		calls++
		cancel()
		return apperr.NewConflictError("o1", 1)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCalculateDelay(t *testing.T) {
	cfg := Config{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(cfg, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(cfg, 1))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(cfg, 2))
	// capped beyond the fourth attempt
	assert.Equal(t, time.Second, calculateDelay(cfg, 5))
}

func TestCalculateDelayJitterStaysBounded(t *testing.T) {
	cfg := Config{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	for i := 0; i < 50; i++ {
		delay := calculateDelay(cfg, 0)
		assert.GreaterOrEqual(t, delay, 100*time.Millisecond)
		assert.Less(t, delay, 110*time.Millisecond)
	}
}

func TestCalculateDelayJitterHandlesTinyDelays(t *testing.T) {
	cfg := Config{
		InitialDelay:  5 * time.Nanosecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	// the jitter window rounds to zero and must not panic
	assert.Equal(t, 5*time.Nanosecond, calculateDelay(cfg, 0))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.MaxDelay)
	assert.InDelta(t, 2.0, cfg.BackoffFactor, 1e-10)
	assert.True(t, cfg.JitterEnabled)
	require.NotNil(t, cfg.Retryable)
	assert.True(t, cfg.Retryable(apperr.NewConflictError("o1", 1)))
	assert.False(t, cfg.Retryable(apperr.NewValidationError("nope")))
}
