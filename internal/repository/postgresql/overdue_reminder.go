package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
)

type reminderRepository struct {
	db *database.DB
}

// ListCandidates implements overdue.ReminderRepository.
func (r *reminderRepository) ListCandidates(ctx context.Context, dealershipID string) ([]overdue.Candidate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			te.id, te.employee_id, te.dealership_id, a.id, te.clock_in,
			a.schedule_template, d.timezone, e.full_name, e.phone,
			(
				SELECT COUNT(*)
				FROM overdue_reminders orm
				WHERE orm.time_entry_id = te.id
				  AND orm.stage IN ('first_reminder', 'second_reminder')
			) AS reminder_count
		FROM time_entries te
		JOIN assignments a ON a.id = te.assignment_id
		JOIN dealerships d ON d.id = te.dealership_id
		JOIN employees e ON e.id = te.employee_id
		WHERE te.dealership_id = $1
		  AND te.clock_out IS NULL
		  AND te.deleted_at IS NULL
		  AND (a.schedule_template->>'auto_close_enabled')::boolean IS TRUE
		  AND COALESCE(a.schedule_template->>'shift_end_time', '') <> ''
		ORDER BY te.clock_in
	`

	rows, err := q.Query(ctx, query, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-close candidates: %w", err)
	}
	defer rows.Close()

	var candidates []overdue.Candidate
	for rows.Next() {
		var (
			c   overdue.Candidate
			raw []byte
		)
		if err := rows.Scan(
			&c.TimeEntryID, &c.EmployeeID, &c.DealershipID, &c.AssignmentID, &c.ClockIn,
			&raw, &c.DealershipTimezone, &c.EmployeeName, &c.EmployeePhone, &c.ReminderCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan auto-close candidate: %w", err)
		}

		tpl, warnings, err := schedule.DecodeScheduleTemplate(raw)
		if err != nil {
			slog.Warn("Skipping entry with unreadable schedule template", "time_entry_id", c.TimeEntryID, "error", err)
			continue
		}
		if len(warnings) > 0 {
			slog.Warn("Schedule template has unreadable values", "assignment_id", c.AssignmentID, "warnings", warnings)
		}
		c.Template = tpl
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auto-close candidates: %w", err)
	}

	return candidates, nil
}

// Claim implements overdue.ReminderRepository. It reports false when the stage was already
// recorded for the entry.
func (r *reminderRepository) Claim(ctx context.Context, rem overdue.Reminder) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO overdue_reminders (id, time_entry_id, stage, idempotency_key, minutes_overdue, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`

	tag, err := q.Exec(ctx, query, rem.ID, rem.TimeEntryID, string(rem.Stage), rem.IdempotencyKey, rem.MinutesOverdue, rem.SentAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder %s: %w", rem.IdempotencyKey, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteByEntry implements overdue.ReminderRepository.
func (r *reminderRepository) DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM overdue_reminders WHERE time_entry_id = $1`, timeEntryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders of time entry %s: %w", timeEntryID, err)
	}
	return tag.RowsAffected(), nil
}

func NewReminderRepository(db *database.DB) overdue.ReminderRepository {
	return &reminderRepository{db: db}
}
