package weather

import (
	"context"
	"time"
)

// Backoff returns the delay before retry number attempt (1-based): step,
// 2*step, 3*step and so on.
func Backoff(attempt int, step time.Duration) time.Duration {
	if attempt < 1 || step <= 0 {
		return 0
	}
	return time.Duration(attempt) * step
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
