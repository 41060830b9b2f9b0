package approval

import "context"

type ApprovalService interface {
	// SetApprovalStatus moves a closed, pending entry to approved or rejected and appends an
	// audit record. A failed audit append does not undo the status change.
	SetApprovalStatus(ctx context.Context, req SetApprovalStatusRequest) (AuditResponse, error)

	ListApprovalAudit(ctx context.Context, timeEntryID string, actorID string) ([]AuditResponse, error)
}
