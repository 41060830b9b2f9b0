package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type dealershipRepository struct {
	db *database.DB
}

// GetByID implements schedule.DealershipRepository.
func (r *dealershipRepository) GetByID(ctx context.Context, id string) (schedule.Dealership, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM dealerships
		WHERE id = $1
	`

	var d schedule.Dealership
	err := q.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Timezone, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Dealership{}, schedule.ErrDealershipNotFound
		}
		return schedule.Dealership{}, fmt.Errorf("failed to get dealership: %w", err)
	}

	return d, nil
}

// ListWithOpenAutoCloseEntries implements schedule.DealershipRepository.
func (r *dealershipRepository) ListWithOpenAutoCloseEntries(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT te.dealership_id
		FROM time_entries te
		JOIN assignments a ON a.id = te.assignment_id
		WHERE te.clock_out IS NULL
		  AND te.deleted_at IS NULL
		  AND (a.schedule_template->>'auto_close_enabled')::boolean IS TRUE
		  AND COALESCE(a.schedule_template->>'shift_end_time', '') <> ''
		ORDER BY te.dealership_id
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealerships with open entries: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan dealership ids: %w", err)
	}

	return ids, nil
}

func NewDealershipRepository(db *database.DB) schedule.DealershipRepository {
	return &dealershipRepository{db: db}
}
