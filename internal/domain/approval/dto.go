package approval

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

type SetApprovalStatusRequest struct {
	TimeEntryID string  `json:"-"`
	ActorID     string  `json:"-"`
	Status      string  `json:"status"`
	Reason      *string `json:"reason,omitempty"`
}

func (r *SetApprovalStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TimeEntryID) {
		errs.Add("time_entry_id", "time_entry_id is required")
	}
	if validator.IsEmpty(r.ActorID) {
		errs.Add("actor_id", "actor_id is required")
	}
	if !validator.IsInSlice(r.Status, []string{string(timeentry.ApprovalApproved), string(timeentry.ApprovalRejected)}) {
		errs.Add("status", ErrInvalidTransition.Error())
	}
	if r.Status == string(timeentry.ApprovalRejected) && (r.Reason == nil || validator.IsEmpty(*r.Reason)) {
		errs.Add("reason", ErrReasonRequired.Error())
	}

	if r.Reason != nil {
		trimmed := strings.TrimSpace(*r.Reason)
		r.Reason = &trimmed
		if trimmed == "" {
			r.Reason = nil
		}
	}

	return errs.OrNil()
}

type AuditResponse struct {
	ID             string    `json:"id,omitempty"`
	TimeEntryID    string    `json:"time_entry_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActorID        string    `json:"actor_id"`
	Reason         *string   `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Recorded       bool      `json:"recorded"`
}

func NewAuditResponse(r AuditRecord, recorded bool) AuditResponse {
	return AuditResponse{
		ID:             r.ID,
		TimeEntryID:    r.TimeEntryID,
		PreviousStatus: string(r.PreviousStatus),
		NewStatus:      string(r.NewStatus),
		ActorID:        r.ActorID,
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt,
		Recorded:       recorded,
	}
}
