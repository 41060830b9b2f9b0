package overdue

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
)

func TestDetermineAction(t *testing.T) {
	th := Thresholds{FirstReminder: 30, SecondReminder: 60, AutoClose: 120}

	cases := []struct {
		name      string
		overdue   int
		reminders int
		want      Action
	}{
		{"not yet overdue", -5, 0, ActionNone},
		{"inside grace", 29, 0, ActionNone},
		{"first reminder", 30, 0, ActionFirstReminder},
		{"first already sent", 45, 1, ActionNone},
		{"second reminder", 60, 1, ActionSecondReminder},
		{"past second with nothing sent", 90, 0, ActionFirstReminder},
		{"both sent", 100, 2, ActionNone},
		{"auto close wins with no reminders", 121, 0, ActionAutoClose},
		{"auto close at boundary", 120, 2, ActionAutoClose},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DetermineAction(c.overdue, c.reminders, th))
		})
	}
}

func TestThresholdsFor(t *testing.T) {
	assert.Equal(t, Thresholds{30, 60, 120}, ThresholdsFor(schedule.ScheduleTemplate{}))

	first, window := 15, 90
	got := ThresholdsFor(schedule.ScheduleTemplate{AutoCloseFirstReminder: &first, AutoCloseWindowMinutes: &window})
	assert.Equal(t, Thresholds{15, 60, 90}, got)
}

func TestOverduePunch_CloseAt(t *testing.T) {
	end := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	p := OverduePunch{ShiftEnd: end, Thresholds: Thresholds{AutoClose: 120}}
	assert.Equal(t, end.Add(2*time.Hour), p.CloseAt())
	assert.Equal(t, "e1:first_reminder", IdempotencyKey("e1", ActionFirstReminder))
}
