// Package breaker wraps gobreaker with the application's configuration and logging.
package breaker

import (
	"cvstudio/internal/config"
	"cvstudio/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker protects one remote operation. A nil Breaker is valid and
// executes calls directly, which is what a disabled breaker returns.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// Option adjusts the gobreaker settings before construction.
type Option func(*gobreaker.Settings)

// WithSuccessCheck decides which errors count against the breaker. Client
// errors such as validation failures should not trip it.
func WithSuccessCheck(isSuccessful func(err error) bool) Option {
	return func(s *gobreaker.Settings) {
		s.IsSuccessful = isSuccessful
	}
}

// New creates a breaker named name, or nil when cfg disables it.
func New[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger, opts ...Option) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker. When the breaker is open the call is
// rejected with a network AppError wrapping gobreaker's sentinel.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	result, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return result, errors.NewNetworkError(errors.ErrCodeCircuitOpen,
			"circuit breaker "+b.cb.Name()+" rejected the call", err)
	}
	return result, err
}

// Stats returns circuit breaker statistics
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
