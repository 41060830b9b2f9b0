package approval

import "context"

type AuditRepository interface {
	Create(ctx context.Context, record AuditRecord) (AuditRecord, error)
	ListByTimeEntry(ctx context.Context, timeEntryID string) ([]AuditRecord, error)
}
