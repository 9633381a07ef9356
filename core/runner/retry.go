package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// ErrRetryExhausted wraps the last provider error once every retry attempt
// has failed.
var ErrRetryExhausted = errors.New("runner: retries exhausted")

// RetryConfig holds the tuning parameters for transient-error retries. Zero
// values are replaced with the defaults documented below.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. A value of 2 means the capability is called at most 3 times.
	// Default: 2.
	MaxRetries int

	// InitialBackoff is the wait duration before the first retry attempt.
	// Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction * backoff] to
	// avoid synchronized retries. Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether an error should trigger a retry. The
	// default implementation matches transient provider signatures (rate
	// limiting, overload, temporary unavailability) by message content.
	RetryableFunc func(error) bool
}

// transientSignatures are the message fragments that identify a retryable
// provider error. Provider errors carry status information as text, so
// classification is a substring match.
var transientSignatures = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"overloaded",
	"overload",
	"unavailable",
	"resource exhausted",
	"429",
	"500",
	"502",
	"503",
	"529",
}

// IsTransient reports whether err matches a transient provider error
// signature. Anything else (auth failure, malformed request, content policy)
// is fatal and propagates without retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, signature := range transientSignatures {
		if strings.Contains(message, signature) {
			return true
		}
	}
	return false
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsTransient
	}
}

// computeBackoff returns the backoff duration for the given attempt
// (0-indexed): min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}
	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// withRetry calls operation until it succeeds, the error is non-retryable, or
// the attempt cap is reached. Context cancellation is respected between
// attempts.
func withRetry[T any](ctx context.Context, config RetryConfig, operation func(ctx context.Context) (T, error)) (T, error) {
	applyRetryDefaults(&config)

	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := computeBackoff(config, attempt-1)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !config.RetryableFunc(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
}
