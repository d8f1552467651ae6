package services

import (
	"context"
	"log/slog"
	"time"
)

// retryWithBackoff runs op until it succeeds, shouldRetry rejects its error,
// or maxAttempts is reached. The delay doubles after every failed attempt.
func retryWithBackoff(ctx context.Context, logger *slog.Logger, maxAttempts int, baseDelay time.Duration, shouldRetry func(error) bool, op func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if attempt == maxAttempts || !shouldRetry(lastErr) {
			break
		}

		delay := baseDelay << (attempt - 1)
		logger.Debug("operation failed, will retry",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", lastErr,
		)

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
