package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job represents a scheduled job
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error

	// Attempts is how many times a failing run is tried before it is given up until the
	// next tick. Zero means once.
	Attempts int
	// Backoff is multiplied by the attempt number to get the wait before the next attempt.
	Backoff time.Duration
}

// JobOption customizes a job at registration.
type JobOption func(*Job)

// WithRetry retries a failing run up to attempts times, waiting backoff, 2*backoff, ...
// between attempts.
func WithRetry(attempts int, backoff time.Duration) JobOption {
	return func(j *Job) {
		j.Attempts = attempts
		j.Backoff = backoff
	}
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new cron scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make([]Job, 0),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error, opts ...JobOption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
		Attempts: 1,
	}
	for _, opt := range opts {
		opt(&job)
	}
	if job.Attempts < 1 {
		job.Attempts = 1
	}

	s.jobs = append(s.jobs, job)
	slog.Info("Cron job registered", "name", name, "interval", interval, "attempts", job.Attempts)
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all scheduled jobs
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

// runJob runs a single job on its schedule
func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.executeJob(s.ctx, job)

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.executeJob(s.ctx, job)
		}
	}
}

// executeJob executes a job with its retry policy and logs results. It returns the error
// of the last attempt.
func (s *Scheduler) executeJob(ctx context.Context, job Job) error {
	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	var err error
	for attempt := 1; attempt <= job.Attempts; attempt++ {
		if err = job.Fn(ctx); err == nil {
			slog.Debug("Cron job completed", "name", job.Name, "attempt", attempt, "duration", time.Since(start))
			return nil
		}
		if attempt == job.Attempts {
			break
		}

		slog.Warn("Cron job attempt failed, retrying", "name", job.Name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			slog.Error("Cron job abandoned", "name", job.Name, "error", err)
			return err
		case <-time.After(time.Duration(attempt) * job.Backoff):
		}
	}

	slog.Error("Cron job failed", "name", job.Name, "attempts", job.Attempts, "error", err, "duration", time.Since(start))
	return err
}

// RunOnce runs all jobs once (useful for testing)
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		_ = s.executeJob(ctx, job)
	}
}
