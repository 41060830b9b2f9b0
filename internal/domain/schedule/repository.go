package schedule

import "context"

type AssignmentRepository interface {
	// GetByEmployeeAndDealership returns ErrAssignmentNotFound when no assignment binds the pair.
	GetByEmployeeAndDealership(ctx context.Context, employeeID, dealershipID string) (Assignment, error)
	GetByID(ctx context.Context, id string) (Assignment, error)
}

type DealershipRepository interface {
	GetByID(ctx context.Context, id string) (Dealership, error)

	// ListWithOpenAutoCloseEntries returns dealerships that currently have at least one open
	// time entry whose assignment has auto-close enabled.
	ListWithOpenAutoCloseEntries(ctx context.Context) ([]string, error)
}
