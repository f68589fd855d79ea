package breaker

import (
	"context"
	"math"
	"time"
)

// RetryConfig bounds exponential-backoff retries for transient model-call
// failures, layered underneath the breaker so a flapping endpoint still
// trips the breaker's consecutive-failure count rather than retrying
// forever.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig returns the retry policy internal/model falls back to
// when a model endpoint supplies none.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// StopRetrying wraps an error to signal Retry that the failure is
// terminal (e.g. a 4xx response) and further attempts would not help.
type StopRetrying struct{ Err error }

func (s *StopRetrying) Error() string { return s.Err.Error() }
func (s *StopRetrying) Unwrap() error { return s.Err }

// Retry runs fn up to cfg.MaxAttempts times with exponential backoff,
// returning the last error if every attempt fails. It stops immediately,
// without counting down the remaining attempts, if fn returns a
// *StopRetrying or ctx is cancelled between attempts.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if stop, ok := err.(*StopRetrying); ok {
			return stop.Err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if attempt > 1 {
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
		if cfg.JitterEnabled {
			delay += time.Duration(float64(delay) * 0.1 * math.Sin(float64(attempt)))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
