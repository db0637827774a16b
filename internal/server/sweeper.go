package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeper runs the scan-session reconciliation on a fixed interval.
// Sessions are cleaned up inline when a question is finalized; the sweep
// only catches what a crash or network failure left behind.
func StartSweeper(ctx context.Context, logger *slog.Logger, engine *Engine, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed, err := engine.SweepScanSessions(ctx)
			if err != nil {
				logger.Warn("scan session sweep failed", "error", err)
				return
			}
			if removed > 0 {
				logger.Info("stale scan sessions removed", "count", removed)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduling sweep job: %w", err)
	}

	sched.Start()
	return sched, nil
}
