package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type ApprovalServiceImpl struct {
	tx database.Transactor
	timeentry.TimeEntryRepository
	approval.AuditRepository
	authorizer identity.Authorizer
	now        func() time.Time
}

// SetApprovalStatus implements approval.ApprovalService.
func (s *ApprovalServiceImpl) SetApprovalStatus(ctx context.Context, req approval.SetApprovalStatusRequest) (approval.AuditResponse, error) {
	if err := req.Validate(); err != nil {
		return approval.AuditResponse{}, err
	}

	entry, err := s.TimeEntryRepository.GetByID(ctx, req.TimeEntryID)
	if err != nil {
		return approval.AuditResponse{}, err
	}
	if err := s.requirePrivileged(ctx, req.ActorID, entry.DealershipID); err != nil {
		return approval.AuditResponse{}, err
	}

	var (
		record   approval.AuditRecord
		recorded bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, req.TimeEntryID)
		if err != nil {
			return err
		}
		if entry.IsOpen() {
			return approval.ErrEntryStillOpen
		}
		if entry.ApprovalStatus != timeentry.ApprovalPending {
			return approval.ErrAlreadyProcessed
		}

		now := s.now().UTC()
		newStatus := timeentry.ApprovalStatus(req.Status)
		update := timeentry.ApprovalUpdate{Status: newStatus, ActorID: req.ActorID, At: now}
		if newStatus == timeentry.ApprovalRejected {
			update.RejectionReason = req.Reason
		}
		if err := s.TimeEntryRepository.UpdateApproval(ctx, entry.ID, update); err != nil {
			return fmt.Errorf("failed to update approval status: %w", err)
		}

		record = approval.AuditRecord{
			ID:             uuid.Must(uuid.NewV7()).String(),
			TimeEntryID:    entry.ID,
			PreviousStatus: entry.ApprovalStatus,
			NewStatus:      newStatus,
			ActorID:        req.ActorID,
			Reason:         req.Reason,
			CreatedAt:      now,
		}

		// The audit append runs in a savepoint so its failure keeps the status change.
		auditErr := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			created, err := s.AuditRepository.Create(ctx, record)
			if err != nil {
				return err
			}
			record = created
			return nil
		})
		if auditErr != nil {
			slog.Error("Failed to append approval audit record",
				"time_entry_id", entry.ID,
				"new_status", newStatus,
				"actor_id", req.ActorID,
				"error", auditErr,
			)
			return nil
		}
		recorded = true
		return nil
	})
	if err != nil {
		return approval.AuditResponse{}, err
	}

	slog.Info("Time entry approval status changed", "time_entry_id", record.TimeEntryID, "status", record.NewStatus, "actor_id", record.ActorID)
	return approval.NewAuditResponse(record, recorded), nil
}

// ListApprovalAudit implements approval.ApprovalService.
func (s *ApprovalServiceImpl) ListApprovalAudit(ctx context.Context, timeEntryID string, actorID string) ([]approval.AuditResponse, error) {
	entry, err := s.TimeEntryRepository.GetByID(ctx, timeEntryID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePrivileged(ctx, actorID, entry.DealershipID); err != nil {
		return nil, err
	}

	records, err := s.AuditRepository.ListByTimeEntry(ctx, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval audit: %w", err)
	}

	responses := make([]approval.AuditResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, approval.NewAuditResponse(r, true))
	}
	return responses, nil
}

func (s *ApprovalServiceImpl) requirePrivileged(ctx context.Context, actorID, dealershipID string) error {
	ok, err := s.authorizer.IsPrivileged(ctx, actorID, dealershipID)
	if err != nil {
		return fmt.Errorf("failed to check privilege: %w", err)
	}
	if !ok {
		return identity.ErrNotPrivileged
	}
	return nil
}

func NewApprovalService(
	tx database.Transactor,
	timeEntryRepo timeentry.TimeEntryRepository,
	auditRepo approval.AuditRepository,
	authorizer identity.Authorizer,
) approval.ApprovalService {
	return &ApprovalServiceImpl{
		tx:                  tx,
		TimeEntryRepository: timeEntryRepo,
		AuditRepository:     auditRepo,
		authorizer:          authorizer,
		now:                 time.Now,
	}
}
