package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
)

const OverduePunchSweepJob = "overdue_punch_sweep"

type OverdueJobs struct {
	overdueService overdue.OverdueService
	interval       time.Duration
}

func NewOverdueJobs(overdueService overdue.OverdueService, interval time.Duration) *OverdueJobs {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &OverdueJobs{
		overdueService: overdueService,
		interval:       interval,
	}
}

func (j *OverdueJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(OverduePunchSweepJob, j.interval, j.SweepOverduePunches, WithRetry(3, 10*time.Second))
}

// SweepOverduePunches runs the reminder and auto-close sweep over every dealership.
func (j *OverdueJobs) SweepOverduePunches(ctx context.Context) error {
	slog.Info("Cron: Starting overdue punch sweep")

	result, err := j.overdueService.RunAllSweeps(ctx)
	if err != nil {
		return err
	}

	slog.Info("Cron: Overdue punch sweep finished",
		"dealerships", result.Dealerships,
		"detected", result.Detected,
		"reminded", result.Reminded,
		"auto_closed", result.AutoClosed,
		"failed", result.Failed,
	)
	return nil
}
