package cron

import (
	"context"
	"log/slog"
	"time"
)

// ReportPurger deletes stored reports older than a retention window.
type ReportPurger interface {
	PurgeReports(ctx context.Context, olderThan time.Duration) (int, error)
}

type RetentionJobs struct {
	purger    ReportPurger
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewRetentionJobs(purger ReportPurger, retention, interval time.Duration, logger *slog.Logger) *RetentionJobs {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionJobs{
		purger:    purger,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// RegisterJobs adds the purge job unless retention is disabled (zero).
func (j *RetentionJobs) RegisterJobs(scheduler *Scheduler) {
	if j.retention <= 0 {
		j.logger.Info("report retention disabled")
		return
	}
	scheduler.AddJob("purge_expired_reports", j.interval, j.PurgeExpiredReports)
}

func (j *RetentionJobs) PurgeExpiredReports(ctx context.Context) error {
	n, err := j.purger.PurgeReports(ctx, j.retention)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.Info("expired reports purged", slog.Int("count", n), slog.Duration("retention", j.retention))
	}
	return nil
}
