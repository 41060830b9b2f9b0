package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type assignmentRepository struct {
	db *database.DB
}

const assignmentColumns = `
	a.id, a.employee_id, a.dealership_id, a.status, a.schedule_template,
	a.created_at, a.updated_at, d.timezone
`

// GetByEmployeeAndDealership implements schedule.AssignmentRepository.
func (r *assignmentRepository) GetByEmployeeAndDealership(ctx context.Context, employeeID, dealershipID string) (schedule.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN dealerships d ON d.id = a.dealership_id
		WHERE a.employee_id = $1 AND a.dealership_id = $2
	`

	return scanAssignment(q.QueryRow(ctx, query, employeeID, dealershipID))
}

// GetByID implements schedule.AssignmentRepository.
func (r *assignmentRepository) GetByID(ctx context.Context, id string) (schedule.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN dealerships d ON d.id = a.dealership_id
		WHERE a.id = $1
	`

	return scanAssignment(q.QueryRow(ctx, query, id))
}

func scanAssignment(row pgx.Row) (schedule.Assignment, error) {
	var (
		a   schedule.Assignment
		raw []byte
	)
	err := row.Scan(
		&a.ID, &a.EmployeeID, &a.DealershipID, &a.Status, &raw,
		&a.CreatedAt, &a.UpdatedAt, &a.DealershipTimezone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Assignment{}, schedule.ErrAssignmentNotFound
		}
		return schedule.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}

	tpl, warnings, err := schedule.DecodeScheduleTemplate(raw)
	if err != nil {
		return schedule.Assignment{}, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	if len(warnings) > 0 {
		slog.Warn("Schedule template has unreadable values", "assignment_id", a.ID, "warnings", warnings)
	}
	a.Template = tpl

	return a, nil
}

func NewAssignmentRepository(db *database.DB) schedule.AssignmentRepository {
	return &assignmentRepository{db: db}
}
