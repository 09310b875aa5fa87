package session

import (
	"context"
	"log/slog"
	"time"
)

const expiryWorkerInterval = 5 * time.Minute

// StartExpiryWorker runs a background goroutine that periodically removes
// sessions idle longer than ttl. A cleared session resets the sender to the
// implicit initial state; the sweep is a full clear, never a partial mutation.
// A ttl of 0 disables the worker.
func StartExpiryWorker(ctx context.Context, store Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(expiryWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session expiry worker started", "interval", expiryWorkerInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				deleted, err := store.DeleteIdle(ctx, ttl)
				if err != nil {
					slog.Error("Session expiry sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Session expiry sweep completed", "deleted", deleted)
				}
			case <-ctx.Done():
				slog.Info("Session expiry worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
