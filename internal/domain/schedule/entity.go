package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusInactive  AssignmentStatus = "inactive"
	AssignmentStatusSuspended AssignmentStatus = "suspended"
)

// Assignment binds an employee to one dealership together with the schedule
// that dealership applies to the employee.
type Assignment struct {
	ID           string
	EmployeeID   string
	DealershipID string
	Status       AssignmentStatus
	Template     ScheduleTemplate
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// DTO
	DealershipTimezone string
}

// Location returns the dealership's time zone, falling back to UTC.
func (a Assignment) Location() *time.Location {
	return LoadLocation(a.DealershipTimezone)
}

type Dealership struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClockTime is a wall-clock time of day in minutes after midnight.
type ClockTime int

func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q: expected HH:MM or HH:MM:SS", s)
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On places the clock time on the calendar day of day, in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ScheduleTemplate is the per-assignment schedule configuration. Every optional field is
// a pointer: nil means "no restriction" for that dimension and is never replaced by a
// default while decoding.
type ScheduleTemplate struct {
	ShiftStartTime           *ClockTime `json:"shift_start_time,omitempty"`
	ShiftEndTime             *ClockTime `json:"shift_end_time,omitempty"`
	DaysOfWeek               []int      `json:"days_of_week,omitempty"`
	EarlyPunchAllowedMinutes *int       `json:"early_punch_allowed_minutes,omitempty"`
	LatePunchGraceMinutes    *int       `json:"late_punch_grace_minutes,omitempty"`
	RequiredBreakMinutes     *int       `json:"required_break_minutes,omitempty"`
	BreakIsPaid              bool       `json:"break_is_paid"`
	AutoCloseEnabled         bool       `json:"auto_close_enabled"`
	AutoCloseFirstReminder   *int       `json:"auto_close_first_reminder,omitempty"`
	AutoCloseSecondReminder  *int       `json:"auto_close_second_reminder,omitempty"`
	AutoCloseWindowMinutes   *int       `json:"auto_close_window_minutes,omitempty"`
}

type rawScheduleTemplate struct {
	ShiftStartTime           *string `json:"shift_start_time"`
	ShiftEndTime             *string `json:"shift_end_time"`
	DaysOfWeek               []int   `json:"days_of_week"`
	EarlyPunchAllowedMinutes *int    `json:"early_punch_allowed_minutes"`
	LatePunchGraceMinutes    *int    `json:"late_punch_grace_minutes"`
	RequiredBreakMinutes     *int    `json:"required_break_minutes"`
	BreakIsPaid              bool    `json:"break_is_paid"`
	AutoCloseEnabled         bool    `json:"auto_close_enabled"`
	AutoCloseFirstReminder   *int    `json:"auto_close_first_reminder"`
	AutoCloseSecondReminder  *int    `json:"auto_close_second_reminder"`
	AutoCloseWindowMinutes   *int    `json:"auto_close_window_minutes"`
}

// DecodeScheduleTemplate decodes the stored configuration blob. Values that cannot be
// interpreted (blank or malformed times, negative minute counts) are treated as absent
// and reported in the returned warnings. Only malformed JSON is an error.
func DecodeScheduleTemplate(data []byte) (ScheduleTemplate, []string, error) {
	if len(data) == 0 {
		return ScheduleTemplate{}, nil, nil
	}

	var raw rawScheduleTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return ScheduleTemplate{}, nil, fmt.Errorf("%w: %v", ErrInvalidScheduleTemplate, err)
	}

	var warnings []string
	clock := func(field string, v *string) *ClockTime {
		if v == nil || strings.TrimSpace(*v) == "" {
			return nil
		}
		c, err := ParseClockTime(*v)
		if err != nil {
			warnings = append(warnings, field+": "+err.Error())
			return nil
		}
		return &c
	}
	minutes := func(field string, v *int) *int {
		if v == nil {
			return nil
		}
		if *v < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: negative value %d ignored", field, *v))
			return nil
		}
		m := *v
		return &m
	}

	tpl := ScheduleTemplate{
		ShiftStartTime:           clock("shift_start_time", raw.ShiftStartTime),
		ShiftEndTime:             clock("shift_end_time", raw.ShiftEndTime),
		EarlyPunchAllowedMinutes: minutes("early_punch_allowed_minutes", raw.EarlyPunchAllowedMinutes),
		LatePunchGraceMinutes:    minutes("late_punch_grace_minutes", raw.LatePunchGraceMinutes),
		RequiredBreakMinutes:     minutes("required_break_minutes", raw.RequiredBreakMinutes),
		BreakIsPaid:              raw.BreakIsPaid,
		AutoCloseEnabled:         raw.AutoCloseEnabled,
		AutoCloseFirstReminder:   minutes("auto_close_first_reminder", raw.AutoCloseFirstReminder),
		AutoCloseSecondReminder:  minutes("auto_close_second_reminder", raw.AutoCloseSecondReminder),
		AutoCloseWindowMinutes:   minutes("auto_close_window_minutes", raw.AutoCloseWindowMinutes),
	}
	for _, d := range raw.DaysOfWeek {
		if d < 1 || d > 7 {
			warnings = append(warnings, fmt.Sprintf("days_of_week: %d is not a weekday (1-7)", d))
			continue
		}
		tpl.DaysOfWeek = append(tpl.DaysOfWeek, d)
	}

	return tpl, warnings, nil
}

// UnmarshalJSON implements json.Unmarshaler using the lenient DecodeScheduleTemplate rules.
func (t *ScheduleTemplate) UnmarshalJSON(data []byte) error {
	tpl, _, err := DecodeScheduleTemplate(data)
	if err != nil {
		return err
	}
	*t = tpl
	return nil
}

// ShiftEndAfter returns the scheduled end of the shift that the punch at clockIn belongs
// to. A punch inside a shift belongs to it. A punch between shifts belongs to whichever
// boundary is nearer: the end of the earlier shift or the start of the later one. A shift
// whose end is not after its start runs overnight and ends the next day.
func (t ScheduleTemplate) ShiftEndAfter(clockIn time.Time, loc *time.Location) (time.Time, bool) {
	if t.ShiftEndTime == nil {
		return time.Time{}, false
	}

	if t.ShiftStartTime == nil {
		end := t.ShiftEndTime.On(clockIn, loc)
		if end.Before(clockIn) {
			end = end.AddDate(0, 0, 1)
		}
		return end, true
	}

	var (
		best     time.Time
		bestDist time.Duration = -1
	)
	for _, offset := range []int{-1, 0, 1} {
		start := t.ShiftStartTime.On(clockIn.In(loc).AddDate(0, 0, offset), loc)
		end := t.ShiftEndTime.On(start, loc)
		if *t.ShiftEndTime <= *t.ShiftStartTime {
			end = end.AddDate(0, 0, 1)
		}

		var dist time.Duration
		switch {
		case clockIn.Before(start):
			dist = start.Sub(clockIn)
		case !clockIn.Before(end):
			dist = clockIn.Sub(end)
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = end, dist
		}
	}
	return best, true
}
