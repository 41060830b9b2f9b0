package timeentry

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
)

type RejectionCode string

const (
	RejectNoAssignment          RejectionCode = "NoAssignment"
	RejectInactive              RejectionCode = "Inactive"
	RejectSuspended             RejectionCode = "Suspended"
	RejectAssignmentUnavailable RejectionCode = "AssignmentUnavailable"
	RejectOpenElsewhere         RejectionCode = "OpenElsewhere"
	RejectTooEarly              RejectionCode = "TooEarly"
	RejectTooLate               RejectionCode = "TooLate"
)

// PunchDecision is the outcome of a punch-in check. A rejection is a normal result,
// never an error.
type PunchDecision struct {
	Allowed      bool          `json:"allowed"`
	Code         RejectionCode `json:"code,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	AssignmentID string        `json:"assignment_id,omitempty"`
}

func Allow(assignmentID string) PunchDecision {
	return PunchDecision{Allowed: true, AssignmentID: assignmentID}
}

func Reject(code RejectionCode, reason string) PunchDecision {
	return PunchDecision{Code: code, Reason: reason}
}

func RejectAssignmentStatus(status schedule.AssignmentStatus) PunchDecision {
	switch status {
	case schedule.AssignmentStatusInactive:
		return Reject(RejectInactive, "your assignment at this dealership is inactive")
	case schedule.AssignmentStatusSuspended:
		return Reject(RejectSuspended, "your assignment at this dealership is suspended")
	default:
		return Reject(RejectAssignmentUnavailable, fmt.Sprintf("your assignment at this dealership is not available (status %q)", status))
	}
}

func RejectOpenEntry(open TimeEntry, dealershipID string) PunchDecision {
	if open.DealershipID == dealershipID {
		return Reject(RejectOpenElsewhere, "you are already clocked in at this dealership")
	}
	return Reject(RejectOpenElsewhere, "you are still clocked in at another dealership, clock out there first")
}

func RejectTooEarlyAt(earliest time.Time) PunchDecision {
	return Reject(RejectTooEarly, fmt.Sprintf("too early to clock in, earliest allowed time is %s", earliest.Format("15:04")))
}

func RejectTooLateAt(latest time.Time) PunchDecision {
	return Reject(RejectTooLate, fmt.Sprintf("too late to clock in, latest allowed time was %s", latest.Format("15:04")))
}
