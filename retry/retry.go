// Package retry provides bounded retry with exponential backoff for
// transient engine errors, primarily score writes that lose a version
// race.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tenderlens/tenderlens/apperr"
)

// Config holds retry behavior. Retryable decides which errors are worth
// another attempt; when nil, apperr.IsRetryable applies.
type Config struct {
	MaxAttempts   int              `json:"max_attempts"`
	InitialDelay  time.Duration    `json:"initial_delay"`
	MaxDelay      time.Duration    `json:"max_delay"`
	BackoffFactor float64          `json:"backoff_factor"`
	JitterEnabled bool             `json:"jitter_enabled"`
	Retryable     func(error) bool `json:"-"`
}

// DefaultConfig returns the tuning used for score recomputation: three
// attempts with short delays, since version conflicts resolve quickly.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		Retryable:     apperr.IsRetryable,
	}
}

// Func is a unit of work that can be retried.
type Func func() error

// Do executes fn up to cfg.MaxAttempts times, backing off between
// attempts. It returns nil on the first success, the last error once
// attempts are exhausted or a non-retryable error occurs, and the context
// error if ctx is done while waiting.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = apperr.IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.Retryable(err) {
			break
		}
		// no delay after the final attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateDelay(cfg, attempt)):
		}
	}
	return lastErr
}

// calculateDelay computes the backoff before attempt+1: exponential in
// the attempt number, capped, with up to 10% jitter.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.JitterEnabled {
		if window := int64(delay / 10); window > 0 {
			delay += time.Duration(rand.Int63n(window))
		}
	}
	return delay
}
