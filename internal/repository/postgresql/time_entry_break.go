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

type breakRepository struct {
	db *database.DB
}

const breakColumns = `
	id, time_entry_id, break_number, break_type, break_start, break_end,
	duration_minutes, created_at, updated_at
`

func scanBreak(row pgx.Row) (timeentry.Break, error) {
	var b timeentry.Break
	err := row.Scan(
		&b.ID, &b.TimeEntryID, &b.BreakNumber, &b.BreakType, &b.BreakStart, &b.BreakEnd,
		&b.DurationMinutes, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// Create implements timeentry.BreakRepository.
func (r *breakRepository) Create(ctx context.Context, b timeentry.Break) (timeentry.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO time_entry_breaks (id, time_entry_id, break_number, break_type, break_start)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + breakColumns

	created, err := scanBreak(q.QueryRow(ctx, query, b.ID, b.TimeEntryID, b.BreakNumber, b.BreakType, b.BreakStart))
	if err != nil {
		return timeentry.Break{}, fmt.Errorf("failed to create break: %w", err)
	}
	return created, nil
}

// GetByID implements timeentry.BreakRepository.
func (r *breakRepository) GetByID(ctx context.Context, id string) (timeentry.Break, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate implements timeentry.BreakRepository.
func (r *breakRepository) GetByIDForUpdate(ctx context.Context, id string) (timeentry.Break, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *breakRepository) get(ctx context.Context, id string, lock string) (timeentry.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + breakColumns + ` FROM time_entry_breaks WHERE id = $1 ` + lock

	b, err := scanBreak(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.Break{}, timeentry.ErrBreakNotFound
		}
		return timeentry.Break{}, fmt.Errorf("failed to get break: %w", err)
	}
	return b, nil
}

// GetOpenByEntry implements timeentry.BreakRepository.
func (r *breakRepository) GetOpenByEntry(ctx context.Context, timeEntryID string) (*timeentry.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + breakColumns + `
		FROM time_entry_breaks
		WHERE time_entry_id = $1 AND break_end IS NULL
		ORDER BY break_number DESC
		LIMIT 1
	`

	b, err := scanBreak(q.QueryRow(ctx, query, timeEntryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open break: %w", err)
	}
	return &b, nil
}

// NextBreakNumber implements timeentry.BreakRepository.
func (r *breakRepository) NextBreakNumber(ctx context.Context, timeEntryID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var next int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(break_number), 0) + 1 FROM time_entry_breaks WHERE time_entry_id = $1`, timeEntryID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// End implements timeentry.BreakRepository.
func (r *breakRepository) End(ctx context.Context, id string, end time.Time, durationMinutes int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entry_breaks
		SET break_end = $2, duration_minutes = $3, updated_at = NOW()
		WHERE id = $1 AND break_end IS NULL
	`

	tag, err := q.Exec(ctx, query, id, end, durationMinutes)
	if err != nil {
		return fmt.Errorf("failed to end break %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrBreakAlreadyEnded
	}
	return nil
}

// CloseOpenByEntry implements timeentry.BreakRepository. Breaks that started after at are
// closed at their own start with zero duration.
func (r *breakRepository) CloseOpenByEntry(ctx context.Context, timeEntryID string, at time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entry_breaks
		SET break_end = GREATEST($2::timestamptz, break_start),
			duration_minutes = FLOOR(EXTRACT(EPOCH FROM (GREATEST($2::timestamptz, break_start) - break_start)) / 60)::int,
			updated_at = NOW()
		WHERE time_entry_id = $1 AND break_end IS NULL
	`

	tag, err := q.Exec(ctx, query, timeEntryID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to close open breaks of time entry %s: %w", timeEntryID, err)
	}
	return tag.RowsAffected(), nil
}

// Delete implements timeentry.BreakRepository.
func (r *breakRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM time_entry_breaks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete break %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrBreakNotFound
	}
	return nil
}

// DeleteByEntry implements timeentry.BreakRepository.
func (r *breakRepository) DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM time_entry_breaks WHERE time_entry_id = $1`, timeEntryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete breaks of time entry %s: %w", timeEntryID, err)
	}
	return tag.RowsAffected(), nil
}

// LatestEnd implements timeentry.BreakRepository.
func (r *breakRepository) LatestEnd(ctx context.Context, timeEntryID string) (*time.Time, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT MAX(break_end)
		FROM time_entry_breaks
		WHERE time_entry_id = $1 AND break_end IS NOT NULL
	`

	var latest *time.Time
	if err := q.QueryRow(ctx, query, timeEntryID).Scan(&latest); err != nil {
		return nil, err
	}
	return latest, nil
}

// SumClosedDurations implements timeentry.BreakRepository.
func (r *breakRepository) SumClosedDurations(ctx context.Context, timeEntryID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(duration_minutes), 0)::int
		FROM time_entry_breaks
		WHERE time_entry_id = $1 AND break_end IS NOT NULL
	`

	var total int
	if err := q.QueryRow(ctx, query, timeEntryID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func NewBreakRepository(db *database.DB) timeentry.BreakRepository {
	return &breakRepository{db: db}
}
