package resilience

import (
	"context"
	"time"

	"github.com/donorkit/styleforge/internal/domain"
)

// RetryConfig controls Retry
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	MaxRetries int

	// InitialDelay is the wait before the first retry
	InitialDelay time.Duration

	// Multiplier grows the delay after each retry. Defaults to 1.5.
	Multiplier float64

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to domain.IsRetryable.
	ShouldRetry func(err error) bool

	// OnRetry is called before each wait
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the policy used for page extraction
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 1500 * time.Millisecond,
		Multiplier:   1.5,
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, or the retry
// budget is spent. The last error is returned on exhaustion. Waiting between
// attempts is interrupted by ctx cancellation.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1.5
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = domain.IsRetryable
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	var (
		zero    T
		lastErr error
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.ShouldRetry(err) || attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+2, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return zero, lastErr
}
