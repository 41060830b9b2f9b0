package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
)

type auditRepository struct{ s *Store }

func (s *Store) AuditRepository() approval.AuditRepository { return auditRepository{s} }

func (r auditRepository) Create(ctx context.Context, record approval.AuditRecord) (approval.AuditRecord, error) {
	if err := r.s.fail("time_entry_approval_audits.create", record.TimeEntryID); err != nil {
		return approval.AuditRecord{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if record.ID == "" {
		record.ID = newID()
	}
	r.s.data.audits = append(r.s.data.audits, record)
	return record, nil
}

func (r auditRepository) ListByTimeEntry(ctx context.Context, timeEntryID string) ([]approval.AuditRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []approval.AuditRecord
	for _, a := range r.s.data.audits {
		if a.TimeEntryID == timeEntryID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
