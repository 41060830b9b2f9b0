package timeentry

import (
	"context"
	"time"
)

// TimeEntryRepository reads and writes time entries. Soft-deleted entries are
// invisible to every method.
type TimeEntryRepository interface {
	// LockEmployee serializes punch-ins of one employee until the surrounding transaction ends.
	LockEmployee(ctx context.Context, employeeID string) error

	// GetOpenByEmployee returns the employee's open entry at any dealership, or nil.
	GetOpenByEmployee(ctx context.Context, employeeID string) (*TimeEntry, error)

	Create(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	GetByID(ctx context.Context, id string) (TimeEntry, error)

	// GetByIDForUpdate locks the entry row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (TimeEntry, error)

	// Close sets clock_out only when the entry is still open and reports whether it did.
	Close(ctx context.Context, id string, params CloseParams) (bool, error)

	UpdateBreakTotal(ctx context.Context, id string, minutes int) error
	UpdateApproval(ctx context.Context, id string, update ApprovalUpdate) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type BreakRepository interface {
	Create(ctx context.Context, b Break) (Break, error)
	GetByID(ctx context.Context, id string) (Break, error)
	GetByIDForUpdate(ctx context.Context, id string) (Break, error)

	// GetOpenByEntry returns the open break of an entry, or nil.
	GetOpenByEntry(ctx context.Context, timeEntryID string) (*Break, error)

	NextBreakNumber(ctx context.Context, timeEntryID string) (int, error)
	End(ctx context.Context, id string, end time.Time, durationMinutes int) error

	// CloseOpenByEntry ends any open break of the entry at the given time.
	CloseOpenByEntry(ctx context.Context, timeEntryID string, at time.Time) (int64, error)

	Delete(ctx context.Context, id string) error
	DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error)
	SumClosedDurations(ctx context.Context, timeEntryID string) (int, error)

	// LatestEnd returns the latest break_end among the entry's closed breaks, or nil.
	LatestEnd(ctx context.Context, timeEntryID string) (*time.Time, error)
}
