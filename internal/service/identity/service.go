package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
)

// AuthorizerImpl resolves privilege from the actor's role and, for dealership-scoped
// roles, an active assignment at the dealership in question.
type AuthorizerImpl struct {
	employee.EmployeeRepository
	schedule.AssignmentRepository
}

// IsPrivileged implements identity.Authorizer.
func (a *AuthorizerImpl) IsPrivileged(ctx context.Context, actorID, dealershipID string) (bool, error) {
	err := a.Authorize(ctx, actorID, dealershipID, identity.PermissionTimecardApprove)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, identity.ErrNotPrivileged) {
		return false, nil
	}
	return false, err
}

// Authorize implements identity.Authorizer.
func (a *AuthorizerImpl) Authorize(ctx context.Context, actorID, dealershipID string, permission identity.Permission) error {
	actor, err := a.EmployeeRepository.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			slog.Warn("Authorization denied", "actor_id", actorID, "permission", permission, "reason", "unknown actor")
			return fmt.Errorf("%w: %w", identity.ErrNotPrivileged, identity.ErrUnknownActor)
		}
		return fmt.Errorf("failed to get actor: %w", err)
	}

	if actor.Status != employee.StatusActive {
		slog.Warn("Authorization denied", "actor_id", actorID, "permission", permission, "reason", "actor not active")
		return identity.ErrNotPrivileged
	}

	if !identity.HasPermission(actor.Role, permission) {
		slog.Warn("Authorization denied", "actor_id", actorID, "role", actor.Role, "permission", permission)
		return identity.ErrNotPrivileged
	}

	if actor.Role.IsGlobal() || dealershipID == "" {
		return nil
	}

	assignment, err := a.AssignmentRepository.GetByEmployeeAndDealership(ctx, actorID, dealershipID)
	if err != nil {
		if errors.Is(err, schedule.ErrAssignmentNotFound) {
			slog.Warn("Authorization denied", "actor_id", actorID, "dealership_id", dealershipID, "reason", "no assignment")
			return identity.ErrNotPrivileged
		}
		return fmt.Errorf("failed to get actor assignment: %w", err)
	}
	if assignment.Status != schedule.AssignmentStatusActive {
		slog.Warn("Authorization denied", "actor_id", actorID, "dealership_id", dealershipID, "reason", "assignment not active")
		return identity.ErrNotPrivileged
	}

	return nil
}

func NewAuthorizer(employeeRepo employee.EmployeeRepository, assignmentRepo schedule.AssignmentRepository) identity.Authorizer {
	return &AuthorizerImpl{
		EmployeeRepository:   employeeRepo,
		AssignmentRepository: assignmentRepo,
	}
}
