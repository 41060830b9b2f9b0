package overdue

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
)

type Action string

const (
	ActionNone           Action = "none"
	ActionFirstReminder  Action = "first_reminder"
	ActionSecondReminder Action = "second_reminder"
	ActionAutoClose      Action = "auto_close"
)

// Stage is the record kept for every action taken on an entry. Stages share the action names.
type Stage = Action

const (
	DefaultFirstReminderMinutes  = 30
	DefaultSecondReminderMinutes = 60
	DefaultAutoCloseMinutes      = 120
)

type Thresholds struct {
	FirstReminder  int `json:"first_reminder"`
	SecondReminder int `json:"second_reminder"`
	AutoClose      int `json:"auto_close"`
}

// ThresholdsFor returns the employee's thresholds, filling absent values with the defaults.
func ThresholdsFor(t schedule.ScheduleTemplate) Thresholds {
	th := Thresholds{
		FirstReminder:  DefaultFirstReminderMinutes,
		SecondReminder: DefaultSecondReminderMinutes,
		AutoClose:      DefaultAutoCloseMinutes,
	}
	if t.AutoCloseFirstReminder != nil {
		th.FirstReminder = *t.AutoCloseFirstReminder
	}
	if t.AutoCloseSecondReminder != nil {
		th.SecondReminder = *t.AutoCloseSecondReminder
	}
	if t.AutoCloseWindowMinutes != nil {
		th.AutoClose = *t.AutoCloseWindowMinutes
	}
	return th
}

// DetermineAction picks the single action for an entry. Auto-close wins over any
// reminder regardless of how many reminders already went out.
func DetermineAction(minutesOverdue, reminderCount int, th Thresholds) Action {
	switch {
	case minutesOverdue < 0:
		return ActionNone
	case minutesOverdue >= th.AutoClose:
		return ActionAutoClose
	case reminderCount == 1 && minutesOverdue >= th.SecondReminder:
		return ActionSecondReminder
	case reminderCount == 0 && minutesOverdue >= th.FirstReminder:
		return ActionFirstReminder
	default:
		return ActionNone
	}
}

// Candidate is an open entry whose assignment has auto-close enabled, as loaded from the store.
type Candidate struct {
	TimeEntryID        string
	EmployeeID         string
	DealershipID       string
	AssignmentID       string
	ClockIn            time.Time
	Template           schedule.ScheduleTemplate
	DealershipTimezone string
	ReminderCount      int
	EmployeeName       string
	EmployeePhone      *string
}

type OverduePunch struct {
	TimeEntryID    string     `json:"time_entry_id"`
	EmployeeID     string     `json:"employee_id"`
	DealershipID   string     `json:"dealership_id"`
	EmployeeName   string     `json:"employee_name"`
	EmployeePhone  *string    `json:"employee_phone,omitempty"`
	ClockIn        time.Time  `json:"clock_in"`
	ShiftEnd       time.Time  `json:"shift_end"`
	MinutesOverdue int        `json:"minutes_overdue"`
	ReminderCount  int        `json:"reminder_count"`
	Thresholds     Thresholds `json:"thresholds"`
	Action         Action     `json:"action"`
}

// CloseAt is the timestamp an auto-closed entry receives: the end of the close window.
func (p OverduePunch) CloseAt() time.Time {
	return p.ShiftEnd.Add(time.Duration(p.Thresholds.AutoClose) * time.Minute)
}

// IdempotencyKey identifies one action on one entry across retries and processes.
func IdempotencyKey(timeEntryID string, stage Stage) string {
	return timeEntryID + ":" + string(stage)
}

type Reminder struct {
	ID             string
	TimeEntryID    string
	Stage          Stage
	IdempotencyKey string
	MinutesOverdue int
	SentAt         time.Time
}

// Notice is handed to the messaging collaborator.
type Notice struct {
	IdempotencyKey string     `json:"idempotency_key"`
	Stage          Stage      `json:"stage"`
	TimeEntryID    string     `json:"time_entry_id"`
	EmployeeID     string     `json:"employee_id"`
	DealershipID   string     `json:"dealership_id"`
	EmployeeName   string     `json:"employee_name"`
	EmployeePhone  *string    `json:"employee_phone,omitempty"`
	ShiftEnd       time.Time  `json:"shift_end"`
	MinutesOverdue int        `json:"minutes_overdue"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

func NewNotice(p OverduePunch, stage Stage) Notice {
	return Notice{
		IdempotencyKey: IdempotencyKey(p.TimeEntryID, stage),
		Stage:          stage,
		TimeEntryID:    p.TimeEntryID,
		EmployeeID:     p.EmployeeID,
		DealershipID:   p.DealershipID,
		EmployeeName:   p.EmployeeName,
		EmployeePhone:  p.EmployeePhone,
		ShiftEnd:       p.ShiftEnd,
		MinutesOverdue: p.MinutesOverdue,
	}
}

type SweepResult struct {
	Dealerships int `json:"dealerships"`
	Detected    int `json:"detected"`
	Reminded    int `json:"reminded"`
	AutoClosed  int `json:"auto_closed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

func (r *SweepResult) Merge(o SweepResult) {
	r.Dealerships += o.Dealerships
	r.Detected += o.Detected
	r.Reminded += o.Reminded
	r.AutoClosed += o.AutoClosed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}
