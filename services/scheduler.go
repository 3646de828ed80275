// services/scheduler.go
package services

import (
	"context"
	"errors"
	"time"
)

// StartUpdateScheduler runs an incremental update every interval until ctx is cancelled.
// A run that fails is logged and retried at the next tick; a tick that finds a run in progress is skipped.
func (s *SyncService) StartUpdateScheduler(ctx context.Context, interval time.Duration, req IncrementalRequest) {
	if interval <= 0 {
		return
	}
	log := s.logger.With("component", "scheduler")
	log.Info("update scheduler started", "interval", interval, "region", req.Region)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("update scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduledUpdate(ctx, req)
		}
	}
}

func (s *SyncService) runScheduledUpdate(ctx context.Context, req IncrementalRequest) {
	start := time.Now()
	log := s.logger.With("component", "scheduler")

	report, err := s.RunIncremental(ctx, req)
	switch {
	case errors.Is(err, ErrRunInProgress):
		log.Info("scheduled update skipped, a run is in progress")
		return
	case err != nil:
		log.Error("scheduled update failed", "error", err)
		return
	}

	totals := report.Totals()
	log.Info("scheduled update completed",
		"run_id", report.RunID,
		"failed", report.Failed(),
		"inserted", totals.Inserted,
		"updated", totals.Updated,
		"duration_ms", time.Since(start).Milliseconds())
}
