package overdue

import "context"

type ReminderRepository interface {
	// ListCandidates returns open, non-deleted entries at the dealership whose assignment
	// has auto-close enabled and a shift end time, with the number of reminder stages sent.
	ListCandidates(ctx context.Context, dealershipID string) ([]Candidate, error)

	// Claim records a stage for an entry. It reports false when the stage was already claimed.
	Claim(ctx context.Context, r Reminder) (bool, error)

	DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error)
}
