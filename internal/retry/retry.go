// Package retry runs remote calls with exponential backoff and jitter.
package retry

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"cvstudio/internal/errors"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Policy configures Do. Retryable decides which errors are worth another
// attempt; a nil Retryable retries nothing.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Retryable  func(error) bool
	Logger     *errors.Logger
}

// Backoff returns the wait before retry attempt (1-based): base·2^(attempt-1)
// plus up to 10% jitter, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBaseDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * base
	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		if jitter, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			delay += time.Duration(jitter.Int64())
		}
	}
	return min(delay, max)
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// retries run out or ctx is done.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(context.Context) (T, error)) (T, error) {
	logger := p.Logger
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", p.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(Backoff(attempt, p.BaseDelay, p.MaxDelay)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if p.Retryable == nil || !p.Retryable(err) {
			logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			return zero, err
		}
	}

	logger.LogError(lastErr, "Operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", p.MaxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, p.MaxRetries, lastErr)
}

// IsNetworkError reports timeouts, refused connections and similar
// transport failures.
func IsNetworkError(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr)
}
