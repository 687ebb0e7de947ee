package core

// scheduler.go keeps the catalog current in the background.
//
// The loop fetches once at startup and then, when an interval is configured,
// again on every tick. Failed refreshes are logged and do not stop the loop;
// the next tick tries again.

import (
	"context"
	"log/slog"
	"time"
)

// RunRefreshLoop performs the startup fetch and then refreshes every
// interval until ctx is cancelled. With interval <= 0 it returns after the
// startup fetch.
func (s *Service) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	s.runRefreshJob(ContextWithTrigger(ctx, TriggerStartup))

	if interval <= 0 {
		slog.Debug("periodic refresh disabled")
		return
	}

	slog.Info("refresh scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefreshJob(ContextWithTrigger(ctx, TriggerSchedule))
		}
	}
}

// runRefreshJob performs one refresh. Errors are already logged by Refresh.
func (s *Service) runRefreshJob(ctx context.Context) {
	start := time.Now()
	snap, err := s.Refresh(ctx)
	if err != nil {
		slog.Debug("scheduled refresh failed", "fetch_id", snap.FetchID, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Debug("scheduled refresh done", "fetch_id", snap.FetchID, "records", snap.Count())
}
