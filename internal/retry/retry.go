// Package retry runs collaborator calls with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts  int           // Total attempts including the first one
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Cap on any single delay
	Multiplier   float64       // Growth factor between delays

	// Retryable decides whether an error is worth another attempt. Nil retries every error.
	Retryable func(error) bool

	// Clock is used for backoff sleeps. Nil means the wall clock.
	Clock ratelimit.Clock
}

// DefaultRetryConfig returns a default retry configuration
// Pattern: 2s, 4s, max 10s over three attempts
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryResult contains information about the retry operation
type RetryResult struct {
	Attempts      int           `json:"attempts"`
	Success       bool          `json:"success"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastError     error         `json:"lastError,omitempty"`
}

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// WithExponentialBackoff executes a function with exponential backoff retry logic.
// It stops early on success, on a non-retryable error and on context cancellation.
func WithExponentialBackoff(ctx context.Context, config *RetryConfig, fn RetryFunc) *RetryResult {
	logger := logging.FromContext(ctx)
	clock := config.Clock
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	startTime := clock.Now()

	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	result := &RetryResult{}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = clock.Now().Sub(startTime)

			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": result.TotalDuration.String(),
				}).Info("Operation succeeded after retry")
			}
			return result
		}

		result.LastError = err

		if config.Retryable != nil && !config.Retryable(err) {
			break
		}

		if attempt == maxAttempts {
			logger.WithFields(map[string]interface{}{
				"attempts": attempt,
				"error":    err.Error(),
			}).Warn("Operation failed after max retry attempts")
			break
		}

		delay := CalculateDelay(config, attempt)

		logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": maxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, retrying with exponential backoff")

		if sleepErr := clock.Sleep(ctx, delay); sleepErr != nil {
			logger.WithError(sleepErr).Warn("Retry cancelled during backoff")
			result.LastError = err
			break
		}
	}

	result.TotalDuration = clock.Now().Sub(startTime)
	return result
}

// CalculateDelay calculates the delay before the attempt following attempt
func CalculateDelay(config *RetryConfig, attempt int) time.Duration {
	multiplier := config.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	// initialDelay * multiplier^(attempt-1)
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1))

	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

// Do runs fn with config and returns the last error when every attempt failed
func Do(ctx context.Context, config *RetryConfig, fn RetryFunc) error {
	result := WithExponentialBackoff(ctx, config, fn)
	if !result.Success {
		if result.Attempts > 1 {
			return fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
		}
		return result.LastError
	}
	return nil
}
