package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type weeklyAggregateRepository struct {
	db *database.DB
}

// LockWeek implements overtime.WeeklyAggregateRepository. The lock is held until the
// surrounding transaction ends.
func (r *weeklyAggregateRepository) LockWeek(ctx context.Context, key overtime.WeekKey) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "overtime:"+key.LockKey()); err != nil {
		return fmt.Errorf("failed to lock week %s: %w", key.LockKey(), err)
	}
	return nil
}

// ListWorkedEntries implements overtime.WeeklyAggregateRepository.
func (r *weeklyAggregateRepository) ListWorkedEntries(ctx context.Context, employeeID, dealershipID string, from, to time.Time) ([]overtime.WorkedEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, clock_in, clock_out, break_duration_minutes
		FROM time_entries
		WHERE employee_id = $1
		  AND dealership_id = $2
		  AND clock_in >= $3 AND clock_in < $4
		  AND clock_out IS NOT NULL
		  AND deleted_at IS NULL
		  AND status <> 'disputed'
		ORDER BY clock_in
	`

	rows, err := q.Query(ctx, query, employeeID, dealershipID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list worked entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (overtime.WorkedEntry, error) {
		var e overtime.WorkedEntry
		err := row.Scan(&e.ID, &e.ClockIn, &e.ClockOut, &e.BreakDurationMinutes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan worked entries: %w", err)
	}
	return entries, nil
}

// Upsert implements overtime.WeeklyAggregateRepository.
func (r *weeklyAggregateRepository) Upsert(ctx context.Context, agg overtime.WeeklyAggregate) (overtime.WeeklyAggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO weekly_aggregates (
			employee_id, dealership_id, week_start, total_hours, regular_hours,
			overtime_hours, entry_count, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_id, dealership_id, week_start) DO UPDATE SET
			total_hours = EXCLUDED.total_hours,
			regular_hours = EXCLUDED.regular_hours,
			overtime_hours = EXCLUDED.overtime_hours,
			entry_count = EXCLUDED.entry_count,
			computed_at = EXCLUDED.computed_at
	`

	_, err := q.Exec(ctx, query,
		agg.EmployeeID, agg.DealershipID, agg.WeekStart, agg.TotalHours, agg.RegularHours,
		agg.OvertimeHours, agg.EntryCount, agg.ComputedAt,
	)
	if err != nil {
		return overtime.WeeklyAggregate{}, fmt.Errorf("failed to upsert weekly aggregate: %w", err)
	}
	return agg, nil
}

// Get implements overtime.WeeklyAggregateRepository.
func (r *weeklyAggregateRepository) Get(ctx context.Context, key overtime.WeekKey) (overtime.WeeklyAggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, dealership_id, week_start, total_hours, regular_hours,
			overtime_hours, entry_count, computed_at
		FROM weekly_aggregates
		WHERE employee_id = $1 AND dealership_id = $2 AND week_start = $3
	`

	var agg overtime.WeeklyAggregate
	err := q.QueryRow(ctx, query, key.EmployeeID, key.DealershipID, key.WeekStart).Scan(
		&agg.EmployeeID, &agg.DealershipID, &agg.WeekStart, &agg.TotalHours, &agg.RegularHours,
		&agg.OvertimeHours, &agg.EntryCount, &agg.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.WeeklyAggregate{}, overtime.ErrAggregateNotFound
		}
		return overtime.WeeklyAggregate{}, fmt.Errorf("failed to get weekly aggregate: %w", err)
	}
	return agg, nil
}

// ListClosedEntryRefs implements overtime.WeeklyAggregateRepository.
func (r *weeklyAggregateRepository) ListClosedEntryRefs(ctx context.Context) ([]overtime.EntryRef, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT te.employee_id, te.dealership_id, te.clock_in, d.timezone
		FROM time_entries te
		JOIN dealerships d ON d.id = te.dealership_id
		WHERE te.clock_out IS NOT NULL AND te.deleted_at IS NULL
		ORDER BY te.clock_in
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed entries: %w", err)
	}

	refs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[overtime.EntryRef])
	if err != nil {
		return nil, fmt.Errorf("failed to scan closed entries: %w", err)
	}
	return refs, nil
}

func NewWeeklyAggregateRepository(db *database.DB) overtime.WeeklyAggregateRepository {
	return &weeklyAggregateRepository{db: db}
}
