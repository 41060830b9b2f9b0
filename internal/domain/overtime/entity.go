package overtime

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWeeklyThresholdHours is the regular-hours ceiling of a work week.
var DefaultWeeklyThresholdHours = decimal.NewFromInt(40)

type WeeklyAggregate struct {
	EmployeeID    string
	DealershipID  string
	WeekStart     time.Time
	TotalHours    decimal.Decimal
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	EntryCount    int
	ComputedAt    time.Time
}

type WeeklyHours struct {
	TotalHours    decimal.Decimal `json:"total_hours"`
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

// WorkedEntry is the part of a closed time entry that counts toward hours.
type WorkedEntry struct {
	ID                   string
	ClockIn              time.Time
	ClockOut             time.Time
	BreakDurationMinutes int
}

// EntryRef locates the week a closed entry falls into.
type EntryRef struct {
	EmployeeID         string
	DealershipID       string
	ClockIn            time.Time
	DealershipTimezone string
}

type WeekKey struct {
	EmployeeID   string
	DealershipID string
	WeekStart    time.Time
}

// LockKey is the string the recompute lock is taken on.
func (k WeekKey) LockKey() string {
	return k.EmployeeID + ":" + k.DealershipID + ":" + k.WeekStart.Format("2006-01-02")
}

// WorkedDuration is clock_out - clock_in - breaks, never negative.
func WorkedDuration(e WorkedEntry) time.Duration {
	d := e.ClockOut.Sub(e.ClockIn) - time.Duration(e.BreakDurationMinutes)*time.Minute
	if d < 0 {
		return 0
	}
	return d
}

// SplitWeeklyHours converts the worked time of a week into hours rounded to two
// places and splits it at the threshold.
func SplitWeeklyHours(worked time.Duration, threshold decimal.Decimal) WeeklyHours {
	total := decimal.NewFromInt(int64(worked / time.Second)).Div(decimal.NewFromInt(3600)).Round(2)

	regular := decimal.Min(total, threshold)
	overtime := decimal.Max(decimal.Zero, total.Sub(threshold))

	return WeeklyHours{
		TotalHours:    total,
		RegularHours:  regular.Round(2),
		OvertimeHours: overtime.Round(2),
	}
}

// WeekStartFor returns local midnight of the first day of the week containing t.
func WeekStartFor(t time.Time, loc *time.Location, startDay time.Weekday) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) - int(startDay) + 7) % 7
	day := local.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// WeekBounds returns [start, start+7d) for a week-start date interpreted in loc.
func WeekBounds(weekStart time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}

// ParseWeekday accepts full English day names, case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, true
		}
	}
	return time.Monday, false
}
