package valuation

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSnapshotInterval is how often the snapshot job sweeps all accounts
const DefaultSnapshotInterval = 24 * time.Hour

// Snapshotter takes today's snapshot for every account
type Snapshotter interface {
	SnapshotAll(ctx context.Context) (taken, failed int, err error)
}

// SnapshotJob runs the daily snapshot sweep on a fixed cadence.
// Re-running within a day only overwrites that day's rows.
type SnapshotJob struct {
	Snapshotter Snapshotter
	Interval    time.Duration
	RunOnStart  bool
	Logger      *slog.Logger
}

// NewSnapshotJob creates a new SnapshotJob instance
func NewSnapshotJob(s Snapshotter, interval time.Duration, runOnStart bool, logger *slog.Logger) *SnapshotJob {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotJob{Snapshotter: s, Interval: interval, RunOnStart: runOnStart, Logger: logger}
}

// Run blocks until ctx is done
func (j *SnapshotJob) Run(ctx context.Context) error {
	if j.RunOnStart {
		j.sweep(ctx)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SnapshotJob) sweep(ctx context.Context) {
	start := time.Now()
	taken, failed, err := j.Snapshotter.SnapshotAll(ctx)
	if err != nil {
		j.Logger.Error("snapshot sweep aborted", "error", err, "taken", taken, "failed", failed)
		return
	}
	j.Logger.Info("snapshot sweep done", "taken", taken, "failed", failed, "duration", time.Since(start))
}
