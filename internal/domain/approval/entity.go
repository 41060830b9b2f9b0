package approval

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
)

// AuditRecord is one approval status change of a time entry.
type AuditRecord struct {
	ID             string
	TimeEntryID    string
	PreviousStatus timeentry.ApprovalStatus
	NewStatus      timeentry.ApprovalStatus
	ActorID        string
	Reason         *string
	CreatedAt      time.Time
}
