package rag

import (
	"context"
	"log/slog"
	"time"

	"lingocache/internal/metrics"
)

// WithRetries runs op and, when usable judges the outcome unusable, retries
// up to maxRetries more times with a fixed delay between attempts. op runs at
// most maxRetries+1 times in total, and never again after a usable outcome. It
// returns the last outcome and whether it was usable. The sleep honors ctx:
// cancellation ends the loop with the last outcome.
func WithRetries[T any](ctx context.Context, maxRetries int, delay time.Duration, op func(context.Context) T, usable func(T) bool) (T, bool) {
	var last T
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying operation",
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay))
			metrics.RetryAttempts.Inc()
			select {
			case <-ctx.Done():
				return last, false
			case <-time.After(delay):
			}
		}

		last = op(ctx)
		if usable(last) {
			return last, true
		}
	}

	metrics.RetryExhaustions.Inc()
	return last, false
}
