package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
)

// Retry runs fn up to maxAttempts times with a fixed delay between
// attempts. It stops early when ctx is cancelled and returns the last
// error once exhausted.
func Retry(ctx context.Context, logger *logging.Logger, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Errorf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
