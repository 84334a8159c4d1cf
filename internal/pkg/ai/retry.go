package ai

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for upstream calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first try.
	MaxRetries int

	// InitialBackoff is the wait time before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait time between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64

	// Jitter adds randomness to avoid thundering herd (0.0-1.0).
	Jitter float64

	// RetryIf determines if an error should be retried.
	RetryIf func(err error) bool
}

// DefaultRetryConfig returns the retry policy for upstream AI calls: a small
// number of attempts with exponential backoff, retrying transient failures
// only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     20 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        IsRetryable,
	}
}

// RetryWithBackoff executes fn with exponential backoff until it succeeds,
// exhausts the retry budget, the error is non-retryable, or the context ends.
func RetryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if config.RetryIf != nil && !config.RetryIf(err) {
			return zero, err
		}
		if attempt >= config.MaxRetries {
			break
		}

		backoff := time.Duration(float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt)))
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
		if config.Jitter > 0 {
			delta := float64(backoff) * config.Jitter
			backoff = time.Duration(float64(backoff) + (rand.Float64()*2*delta - delta))
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, lastErr
}
