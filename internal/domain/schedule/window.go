package schedule

import "time"

// PunchWindow is the effective punch-in policy of a schedule template.
type PunchWindow struct {
	Flexible     bool
	Start        ClockTime
	EarlyMinutes int
	LateMinutes  int
}

// ResolvePunchWindow turns a template into a punch window. If any of the shift start,
// early tolerance or late grace is missing the window is flexible: a partially
// configured schedule never blocks a punch.
func ResolvePunchWindow(t ScheduleTemplate) PunchWindow {
	if t.ShiftStartTime == nil || t.EarlyPunchAllowedMinutes == nil || t.LatePunchGraceMinutes == nil {
		return PunchWindow{Flexible: true}
	}
	return PunchWindow{
		Start:        *t.ShiftStartTime,
		EarlyMinutes: *t.EarlyPunchAllowedMinutes,
		LateMinutes:  *t.LatePunchGraceMinutes,
	}
}

type WindowVerdict int

const (
	WithinWindow WindowVerdict = iota
	BeforeWindow
	AfterWindow
)

type WindowCheck struct {
	Verdict  WindowVerdict
	Earliest time.Time
	Latest   time.Time
}

// Check evaluates a punch against the window. Both bounds are inclusive at minute
// precision. The window is anchored on the punch's local day and its neighbours so
// windows that straddle midnight behave; when the punch misses every window the
// nearest one decides between BeforeWindow and AfterWindow.
func (w PunchWindow) Check(punch time.Time, loc *time.Location) WindowCheck {
	if w.Flexible {
		return WindowCheck{Verdict: WithinWindow}
	}

	local := punch.In(loc).Truncate(time.Minute)
	early := time.Duration(w.EarlyMinutes) * time.Minute
	late := time.Duration(w.LateMinutes) * time.Minute

	var (
		nearest     WindowCheck
		nearestDist time.Duration = -1
	)
	for _, offset := range []int{0, -1, 1} {
		anchor := w.Start.On(local.AddDate(0, 0, offset), loc)
		earliest := anchor.Add(-early)
		latest := anchor.Add(late)

		if !local.Before(earliest) && !local.After(latest) {
			return WindowCheck{Verdict: WithinWindow, Earliest: earliest, Latest: latest}
		}

		dist := local.Sub(anchor)
		if dist < 0 {
			dist = -dist
		}
		if nearestDist < 0 || dist < nearestDist {
			nearestDist = dist
			verdict := AfterWindow
			if local.Before(earliest) {
				verdict = BeforeWindow
			}
			nearest = WindowCheck{Verdict: verdict, Earliest: earliest, Latest: latest}
		}
	}
	return nearest
}
