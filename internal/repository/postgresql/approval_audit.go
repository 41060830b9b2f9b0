package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type auditRepository struct {
	db *database.DB
}

// Create implements approval.AuditRepository.
func (r *auditRepository) Create(ctx context.Context, record approval.AuditRecord) (approval.AuditRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO time_entry_approval_audits (
			id, time_entry_id, previous_status, new_status, actor_id, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.Exec(ctx, query,
		record.ID, record.TimeEntryID, string(record.PreviousStatus), string(record.NewStatus),
		record.ActorID, record.Reason, record.CreatedAt,
	)
	if err != nil {
		return approval.AuditRecord{}, fmt.Errorf("failed to create approval audit: %w", err)
	}
	return record, nil
}

// ListByTimeEntry implements approval.AuditRepository.
func (r *auditRepository) ListByTimeEntry(ctx context.Context, timeEntryID string) ([]approval.AuditRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, time_entry_id, previous_status, new_status, actor_id, reason, created_at
		FROM time_entry_approval_audits
		WHERE time_entry_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval audits: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[approval.AuditRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan approval audits: %w", err)
	}
	return records, nil
}

func NewAuditRepository(db *database.DB) approval.AuditRepository {
	return &auditRepository{db: db}
}
