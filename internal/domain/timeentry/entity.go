package timeentry

import (
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusDisputed Status = "disputed"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// IsTerminal reports whether no further approval transition is allowed.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

type TimeEntry struct {
	ID                   string
	EmployeeID           string
	DealershipID         string
	AssignmentID         string
	ClockIn              time.Time
	ClockOut             *time.Time
	Status               Status
	BreakDurationMinutes int
	ClockInLatitude      *float64
	ClockInLongitude     *float64
	ClockOutLatitude     *float64
	ClockOutLongitude    *float64
	KioskID              *string
	AutoClosed           bool
	NeedsReview          bool
	ApprovalStatus       ApprovalStatus
	ApprovedBy           *string
	ApprovedAt           *time.Time
	RejectionReason      *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

func (e TimeEntry) IsOpen() bool {
	return e.ClockOut == nil
}

type BreakType string

const (
	BreakTypeLunch BreakType = "lunch"
	BreakTypeRest  BreakType = "rest"
)

// LunchMinimumMinutes is the documented minimum for the first break of a shift.
// It is reported, never enforced.
const LunchMinimumMinutes = 30

type Break struct {
	ID              string
	TimeEntryID     string
	BreakNumber     int
	BreakType       BreakType
	BreakStart      time.Time
	BreakEnd        *time.Time
	DurationMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b Break) IsOpen() bool {
	return b.BreakEnd == nil
}

// BreakMinutes returns the whole minutes between start and end, floored.
func BreakMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// CloseParams describes how an open entry is closed.
type CloseParams struct {
	ClockOut   time.Time
	Latitude   *float64
	Longitude  *float64
	AutoClosed bool
}

// ApprovalUpdate is the persisted side of an approval transition.
type ApprovalUpdate struct {
	Status          ApprovalStatus
	ActorID         string
	At              time.Time
	RejectionReason *string
}
