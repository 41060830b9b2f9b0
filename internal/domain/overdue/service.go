package overdue

import (
	"context"
	"time"
)

type OverdueService interface {
	// FindOverduePunches is read-only detection. Entries with no qualifying action are omitted.
	FindOverduePunches(ctx context.Context, dealershipID string, now time.Time) ([]OverduePunch, error)

	// RunSweep takes exactly one action per detected entry at the dealership.
	RunSweep(ctx context.Context, dealershipID string) (SweepResult, error)

	// ListOverduePunches is FindOverduePunches for an actor who manages timecards at the dealership.
	ListOverduePunches(ctx context.Context, dealershipID, actorID string, now time.Time) ([]OverduePunch, error)

	// SweepDealership is RunSweep for an actor who manages timecards at the dealership.
	SweepDealership(ctx context.Context, dealershipID, actorID string) (SweepResult, error)

	// CloseEntry force-closes an overdue entry if it is still open and reports whether it did.
	CloseEntry(ctx context.Context, punch OverduePunch, now time.Time) (bool, error)

	// RunAllSweeps sweeps every dealership that has an auto-close candidate.
	RunAllSweeps(ctx context.Context) (SweepResult, error)
}

// Dispatcher hands reminder and auto-close notices to the messaging collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notice) error
}

// Locker grants a short exclusive lease on a key across processes.
type Locker interface {
	// Acquire returns ok=false when another holder owns the lease.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
