package timeentry

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

type PunchInRequest struct {
	EmployeeID   string     `json:"employee_id"`
	DealershipID string     `json:"dealership_id"`
	PunchTime    *time.Time `json:"punch_time,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	KioskID      *string    `json:"kiosk_id,omitempty"`
	ActorID      string     `json:"-"`
}

func (r *PunchInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.DealershipID) {
		errs.Add("dealership_id", "dealership_id is required")
	}
	validateCoordinates(&errs, r.Latitude, r.Longitude)

	return errs.OrNil()
}

type PunchOutRequest struct {
	EmployeeID string     `json:"employee_id"`
	PunchTime  *time.Time `json:"punch_time,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	ActorID    string     `json:"-"`
}

func (r *PunchOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	validateCoordinates(&errs, r.Latitude, r.Longitude)

	return errs.OrNil()
}

func validateCoordinates(errs *validator.ValidationErrors, lat, lng *float64) {
	if (lat == nil) != (lng == nil) {
		errs.Add("latitude", "latitude and longitude must be provided together")
		return
	}
	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs.Add("latitude", "latitude must be between -90 and 90")
	}
	if lng != nil && !validator.IsValidLongitude(*lng) {
		errs.Add("longitude", "longitude must be between -180 and 180")
	}
}

type PunchInResponse struct {
	Decision  PunchDecision      `json:"decision"`
	TimeEntry *TimeEntryResponse `json:"time_entry,omitempty"`
}

type TimeEntryResponse struct {
	ID                   string     `json:"id"`
	EmployeeID           string     `json:"employee_id"`
	DealershipID         string     `json:"dealership_id"`
	AssignmentID         string     `json:"assignment_id"`
	ClockIn              time.Time  `json:"clock_in"`
	ClockOut             *time.Time `json:"clock_out,omitempty"`
	Status               Status     `json:"status"`
	BreakDurationMinutes int        `json:"break_duration_minutes"`
	KioskID              *string    `json:"kiosk_id,omitempty"`
	AutoClosed           bool       `json:"auto_closed"`
	NeedsReview          bool       `json:"needs_review"`
	ApprovalStatus       string     `json:"approval_status"`
	ApprovedBy           *string    `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
	RejectionReason      *string    `json:"rejection_reason,omitempty"`
}

func NewTimeEntryResponse(e TimeEntry) TimeEntryResponse {
	return TimeEntryResponse{
		ID:                   e.ID,
		EmployeeID:           e.EmployeeID,
		DealershipID:         e.DealershipID,
		AssignmentID:         e.AssignmentID,
		ClockIn:              e.ClockIn,
		ClockOut:             e.ClockOut,
		Status:               e.Status,
		BreakDurationMinutes: e.BreakDurationMinutes,
		KioskID:              e.KioskID,
		AutoClosed:           e.AutoClosed,
		NeedsReview:          e.NeedsReview,
		ApprovalStatus:       string(e.ApprovalStatus),
		ApprovedBy:           e.ApprovedBy,
		ApprovedAt:           e.ApprovedAt,
		RejectionReason:      e.RejectionReason,
	}
}

// ========================================
// BREAK DTOs
// ========================================

type StartBreakRequest struct {
	TimeEntryID string     `json:"-"`
	BreakType   string     `json:"break_type"`
	At          *time.Time `json:"at,omitempty"`
	ActorID     string     `json:"-"`
}

func (r *StartBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TimeEntryID) {
		errs.Add("time_entry_id", "time_entry_id is required")
	}
	if r.BreakType != "" && !validator.IsInSlice(r.BreakType, []string{string(BreakTypeLunch), string(BreakTypeRest)}) {
		errs.Add("break_type", "break_type must be lunch or rest")
	}

	return errs.OrNil()
}

type EndBreakRequest struct {
	BreakID string     `json:"-"`
	At      *time.Time `json:"at,omitempty"`
	ActorID string     `json:"-"`
}

func (r *EndBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.BreakID) {
		errs.Add("break_id", "break_id is required")
	}

	return errs.OrNil()
}

type BreakResponse struct {
	ID              string     `json:"id"`
	TimeEntryID     string     `json:"time_entry_id"`
	BreakNumber     int        `json:"break_number"`
	BreakType       BreakType  `json:"break_type"`
	BreakStart      time.Time  `json:"break_start"`
	BreakEnd        *time.Time `json:"break_end,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

func NewBreakResponse(b Break) BreakResponse {
	return BreakResponse{
		ID:              b.ID,
		TimeEntryID:     b.TimeEntryID,
		BreakNumber:     b.BreakNumber,
		BreakType:       b.BreakType,
		BreakStart:      b.BreakStart,
		BreakEnd:        b.BreakEnd,
		DurationMinutes: b.DurationMinutes,
	}
}

type EndBreakResponse struct {
	Break                BreakResponse `json:"break"`
	DurationMinutes      int           `json:"duration_minutes"`
	BreakDurationTotal   int           `json:"break_duration_minutes"`
	RequiredMinutes      *int          `json:"required_minutes,omitempty"`
	BelowRequiredMinimum bool          `json:"below_required_minimum"`
}
