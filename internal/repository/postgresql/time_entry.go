package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type timeEntryRepository struct {
	db *database.DB
}

const timeEntryColumns = `
	id, employee_id, dealership_id, assignment_id, clock_in, clock_out, status,
	break_duration_minutes, clock_in_latitude, clock_in_longitude,
	clock_out_latitude, clock_out_longitude, kiosk_id, auto_closed, needs_review,
	approval_status, approved_by, approved_at, rejection_reason,
	created_at, updated_at, deleted_at
`

func scanTimeEntry(row pgx.Row) (timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.DealershipID, &e.AssignmentID, &e.ClockIn, &e.ClockOut, &e.Status,
		&e.BreakDurationMinutes, &e.ClockInLatitude, &e.ClockInLongitude,
		&e.ClockOutLatitude, &e.ClockOutLongitude, &e.KioskID, &e.AutoClosed, &e.NeedsReview,
		&e.ApprovalStatus, &e.ApprovedBy, &e.ApprovedAt, &e.RejectionReason,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	return e, err
}

// LockEmployee implements timeentry.TimeEntryRepository. The lock is held until the
// surrounding transaction ends.
func (r *timeEntryRepository) LockEmployee(ctx context.Context, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "punch:"+employeeID); err != nil {
		return fmt.Errorf("failed to lock employee %s: %w", employeeID, err)
	}
	return nil
}

// GetOpenByEmployee implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) GetOpenByEmployee(ctx context.Context, employeeID string) (*timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE employee_id = $1 AND clock_out IS NULL AND deleted_at IS NULL
		ORDER BY clock_in DESC
		LIMIT 1
	`

	e, err := scanTimeEntry(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open time entry: %w", err)
	}
	return &e, nil
}

// Create implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) Create(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO time_entries (
			id, employee_id, dealership_id, assignment_id, clock_in, status,
			clock_in_latitude, clock_in_longitude, kiosk_id, approval_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + timeEntryColumns

	created, err := scanTimeEntry(q.QueryRow(ctx, query,
		entry.ID, entry.EmployeeID, entry.DealershipID, entry.AssignmentID, entry.ClockIn, entry.Status,
		entry.ClockInLatitude, entry.ClockInLongitude, entry.KioskID, entry.ApprovalStatus,
	))
	if err != nil {
		return timeentry.TimeEntry{}, fmt.Errorf("failed to create time entry: %w", err)
	}
	return created, nil
}

// GetByID implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) GetByID(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) GetByIDForUpdate(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *timeEntryRepository) get(ctx context.Context, id string, lock string) (timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE id = $1 AND deleted_at IS NULL
	` + lock

	e, err := scanTimeEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrTimeEntryNotFound
		}
		return timeentry.TimeEntry{}, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// Close implements timeentry.TimeEntryRepository. It reports false when the entry was
// already closed or deleted by the time the update ran.
func (r *timeEntryRepository) Close(ctx context.Context, id string, params timeentry.CloseParams) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entries
		SET clock_out = $2,
			clock_out_latitude = $3,
			clock_out_longitude = $4,
			status = 'complete',
			approval_status = 'pending',
			auto_closed = auto_closed OR $5,
			needs_review = needs_review OR $5,
			updated_at = NOW()
		WHERE id = $1 AND clock_out IS NULL AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query, id, params.ClockOut, params.Latitude, params.Longitude, params.AutoClosed)
	if err != nil {
		return false, fmt.Errorf("failed to close time entry %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateBreakTotal implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) UpdateBreakTotal(ctx context.Context, id string, minutes int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entries
		SET break_duration_minutes = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query, id, minutes)
	if err != nil {
		return fmt.Errorf("failed to update break total of time entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrTimeEntryNotFound
	}
	return nil
}

// UpdateApproval implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) UpdateApproval(ctx context.Context, id string, update timeentry.ApprovalUpdate) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entries
		SET approval_status = $2,
			approved_by = $3,
			approved_at = $4,
			rejection_reason = $5,
			needs_review = CASE WHEN $2 = 'approved' THEN FALSE ELSE needs_review END,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query, id, string(update.Status), update.ActorID, update.At, update.RejectionReason)
	if err != nil {
		return fmt.Errorf("failed to update approval of time entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrTimeEntryNotFound
	}
	return nil
}

// SoftDelete implements timeentry.TimeEntryRepository.
func (r *timeEntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE time_entries SET deleted_at = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete time entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrTimeEntryNotFound
	}
	return nil
}

func NewTimeEntryRepository(db *database.DB) timeentry.TimeEntryRepository {
	return &timeEntryRepository{db: db}
}
