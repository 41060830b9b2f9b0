package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScheduleTemplate_AbsentFieldsStayNil(t *testing.T) {
	tpl, warnings, err := DecodeScheduleTemplate([]byte(`{
		"shift_start_time": "08:00",
		"shift_end_time": "17:00:00",
		"days_of_week": [1, 2, 3, 4, 5],
		"late_punch_grace_minutes": 10,
		"auto_close_enabled": true
	}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.NotNil(t, tpl.ShiftStartTime)
	assert.Equal(t, "08:00", tpl.ShiftStartTime.String())
	require.NotNil(t, tpl.ShiftEndTime)
	assert.Equal(t, "17:00", tpl.ShiftEndTime.String())
	assert.Nil(t, tpl.EarlyPunchAllowedMinutes)
	assert.Nil(t, tpl.RequiredBreakMinutes)
	assert.Nil(t, tpl.AutoCloseFirstReminder)
	assert.Nil(t, tpl.AutoCloseSecondReminder)
	assert.Nil(t, tpl.AutoCloseWindowMinutes)
	require.NotNil(t, tpl.LatePunchGraceMinutes)
	assert.Equal(t, 10, *tpl.LatePunchGraceMinutes)
	assert.True(t, tpl.AutoCloseEnabled)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, tpl.DaysOfWeek)
}

func TestDecodeScheduleTemplate_ZeroIsNotAbsent(t *testing.T) {
	tpl, _, err := DecodeScheduleTemplate([]byte(`{"early_punch_allowed_minutes": 0, "late_punch_grace_minutes": null}`))
	require.NoError(t, err)
	require.NotNil(t, tpl.EarlyPunchAllowedMinutes)
	assert.Equal(t, 0, *tpl.EarlyPunchAllowedMinutes)
	assert.Nil(t, tpl.LatePunchGraceMinutes)
}

func TestDecodeScheduleTemplate_LenientOnBadValues(t *testing.T) {
	tpl, warnings, err := DecodeScheduleTemplate([]byte(`{
		"shift_start_time": "8am",
		"shift_end_time": "",
		"early_punch_allowed_minutes": -5,
		"days_of_week": [0, 3, 9]
	}`))
	require.NoError(t, err)
	assert.Nil(t, tpl.ShiftStartTime)
	assert.Nil(t, tpl.ShiftEndTime)
	assert.Nil(t, tpl.EarlyPunchAllowedMinutes)
	assert.Equal(t, []int{3}, tpl.DaysOfWeek)
	assert.Len(t, warnings, 4)
}

func TestDecodeScheduleTemplate_MalformedJSON(t *testing.T) {
	_, _, err := DecodeScheduleTemplate([]byte(`{"shift_start_time": `))
	assert.ErrorIs(t, err, ErrInvalidScheduleTemplate)
}

func TestScheduleTemplate_JSONRoundTripKeepsAbsence(t *testing.T) {
	var tpl ScheduleTemplate
	require.NoError(t, json.Unmarshal([]byte(`{"shift_start_time":"07:30","auto_close_enabled":true}`), &tpl))

	out, err := json.Marshal(tpl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"shift_start_time":"07:30","break_is_paid":false,"auto_close_enabled":true}`, string(out))
}

func TestScheduleTemplate_ShiftEndAfter(t *testing.T) {
	start, _ := ParseClockTime("22:00")
	end, _ := ParseClockTime("06:00")
	tpl := ScheduleTemplate{ShiftStartTime: &start, ShiftEndTime: &end}

	clockIn := time.Date(2026, 3, 2, 21, 55, 0, 0, time.UTC)
	got, ok := tpl.ShiftEndAfter(clockIn, time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC), got)

	// Early punch the evening before a shift that starts just after midnight.
	start, _ = ParseClockTime("00:10")
	end, _ = ParseClockTime("08:00")
	tpl = ScheduleTemplate{ShiftStartTime: &start, ShiftEndTime: &end}
	got, ok = tpl.ShiftEndAfter(time.Date(2026, 3, 2, 23, 55, 0, 0, time.UTC), time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), got)

	// End only: the next occurrence after the punch.
	tpl = ScheduleTemplate{ShiftEndTime: &end}
	got, ok = tpl.ShiftEndAfter(time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), got)

	_, ok = ScheduleTemplate{}.ShiftEndAfter(clockIn, time.UTC)
	assert.False(t, ok)
}

func TestScheduleTemplate_ShiftEndAfter_EveningPunchOnDayShift(t *testing.T) {
	start, _ := ParseClockTime("08:00")
	end, _ := ParseClockTime("17:00")
	tpl := ScheduleTemplate{ShiftStartTime: &start, ShiftEndTime: &end}

	cases := []struct {
		name    string
		clockIn time.Time
		want    time.Time
	}{
		{"inside the shift", time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC), time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)},
		{"early morning", time.Date(2026, 3, 2, 7, 40, 0, 0, time.UTC), time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)},
		{"evening after the shift ended", time.Date(2026, 3, 2, 20, 30, 0, 0, time.UTC), time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)},
		{"small hours before the next shift", time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := tpl.ShiftEndAfter(c.clockIn, time.UTC)
			require.True(t, ok)
			assert.Equal(t, c.want, got)
		})
	}
}
