package overtime

import (
	"context"
	"time"
)

type WeeklyAggregateRepository interface {
	// LockWeek serializes recomputes of one key until the surrounding transaction ends.
	LockWeek(ctx context.Context, key WeekKey) error

	// ListWorkedEntries returns closed, non-disputed, non-deleted entries with clock_in in [from, to).
	ListWorkedEntries(ctx context.Context, employeeID, dealershipID string, from, to time.Time) ([]WorkedEntry, error)

	Upsert(ctx context.Context, agg WeeklyAggregate) (WeeklyAggregate, error)
	Get(ctx context.Context, key WeekKey) (WeeklyAggregate, error)

	// ListClosedEntryRefs returns every closed, non-deleted entry for backfill.
	ListClosedEntryRefs(ctx context.Context) ([]EntryRef, error)
}
