package punch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/memory"
	breaksvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/breaks"
	identitysvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	overtimesvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/overtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func clock(s string) *schedule.ClockTime {
	c, err := schedule.ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func minutes(v int) *int { return &v }

func windowed() schedule.ScheduleTemplate {
	return schedule.ScheduleTemplate{
		ShiftStartTime:           clock("08:00"),
		ShiftEndTime:             clock("17:00"),
		EarlyPunchAllowedMinutes: minutes(15),
		LatePunchGraceMinutes:    minutes(15),
	}
}

type fixture struct {
	store    *memory.Store
	svc      timeentry.PunchService
	breaks   timeentry.BreakService
	north    schedule.Dealership
	south    schedule.Dealership
	worker   employee.Employee
	manager  employee.Employee
	assigned schedule.Assignment
}

func newFixture(t *testing.T, tpl schedule.ScheduleTemplate) fixture {
	t.Helper()
	store := memory.NewStore()
	north := store.AddDealership(schedule.Dealership{Name: "North Chevrolet", Timezone: "UTC"})
	south := store.AddDealership(schedule.Dealership{Name: "South Chevrolet", Timezone: "UTC"})
	worker := store.AddEmployee(employee.Employee{FullName: "Wes Worker"})
	manager := store.AddEmployee(employee.Employee{FullName: "Mia Manager", Role: employee.RoleManager})
	assigned := store.AddAssignment(schedule.Assignment{EmployeeID: worker.ID, DealershipID: north.ID, Template: tpl})
	store.AddAssignment(schedule.Assignment{EmployeeID: worker.ID, DealershipID: south.ID})
	store.AddAssignment(schedule.Assignment{EmployeeID: manager.ID, DealershipID: north.ID})

	authz := identitysvc.NewAuthorizer(store.EmployeeRepository(), store.AssignmentRepository())
	ot := overtimesvc.NewOvertimeService(store, store.WeeklyAggregateRepository(), store.DealershipRepository(), authz,
		overtimesvc.Config{WeeklyThresholdHours: decimal.NewFromInt(40), WeekStartDay: time.Monday})
	brk := breaksvc.NewBreakService(store, store.TimeEntryRepository(), store.BreakRepository(), store.AssignmentRepository(), authz, ot)
	svc := NewPunchService(store, store.TimeEntryRepository(), store.BreakRepository(), store.AssignmentRepository(),
		store.ReminderRepository(), brk, ot, authz)

	return fixture{store: store, svc: svc, breaks: brk, north: north, south: south, worker: worker, manager: manager, assigned: assigned}
}

func TestValidatePunchIn_Window(t *testing.T) {
	f := newFixture(t, windowed())
	ctx := context.Background()

	cases := []struct {
		at      time.Time
		allowed bool
		code    timeentry.RejectionCode
		inMsg   string
	}{
		{at(7, 44), false, timeentry.RejectTooEarly, "07:45"},
		{at(7, 45), true, "", ""},
		{at(8, 15), true, "", ""},
		{at(8, 16), false, timeentry.RejectTooLate, "08:15"},
	}
	for _, c := range cases {
		got, err := f.svc.ValidatePunchIn(ctx, f.worker.ID, f.north.ID, c.at)
		require.NoError(t, err)
		assert.Equal(t, c.allowed, got.Allowed, c.at.Format("15:04"))
		assert.Equal(t, c.code, got.Code, c.at.Format("15:04"))
		assert.Contains(t, got.Reason, c.inMsg)
		if c.allowed {
			assert.Equal(t, f.assigned.ID, got.AssignmentID)
		}
	}
	assert.Zero(t, f.store.OpenEntryCount(f.worker.ID))
}

func TestValidatePunchIn_FlexibleWhenEarlyToleranceAbsent(t *testing.T) {
	tpl := windowed()
	tpl.EarlyPunchAllowedMinutes = nil
	f := newFixture(t, tpl)

	for _, punch := range []time.Time{at(0, 5), at(7, 0), at(8, 16), at(23, 59)} {
		got, err := f.svc.ValidatePunchIn(context.Background(), f.worker.ID, f.north.ID, punch)
		require.NoError(t, err)
		assert.True(t, got.Allowed, punch.Format("15:04"))
	}
}

func TestValidatePunchIn_AssignmentChecks(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	stranger := f.store.AddDealership(schedule.Dealership{Name: "Elsewhere Kia"})
	got, err := f.svc.ValidatePunchIn(ctx, f.worker.ID, stranger.ID, at(8, 0))
	require.NoError(t, err)
	assert.Equal(t, timeentry.RejectNoAssignment, got.Code)

	for status, code := range map[schedule.AssignmentStatus]timeentry.RejectionCode{
		schedule.AssignmentStatusInactive:  timeentry.RejectInactive,
		schedule.AssignmentStatusSuspended: timeentry.RejectSuspended,
		"on_leave":                         timeentry.RejectAssignmentUnavailable,
	} {
		a := f.assigned
		a.Status = status
		f.store.AddAssignment(a)

		got, err := f.svc.ValidatePunchIn(ctx, f.worker.ID, f.north.ID, at(8, 0))
		require.NoError(t, err)
		assert.False(t, got.Allowed)
		assert.Equal(t, code, got.Code)
		assert.NotEmpty(t, got.Reason)
	}
}

func TestPunchIn_RejectsSecondOpenEntry(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	first, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID})
	require.NoError(t, err)
	require.True(t, first.Decision.Allowed)
	require.NotNil(t, first.TimeEntry)
	assert.Equal(t, timeentry.StatusActive, first.TimeEntry.Status)
	assert.Equal(t, "pending", first.TimeEntry.ApprovalStatus)

	elsewhere, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.south.ID})
	require.NoError(t, err)
	assert.False(t, elsewhere.Decision.Allowed)
	assert.Equal(t, timeentry.RejectOpenElsewhere, elsewhere.Decision.Code)
	assert.Contains(t, elsewhere.Decision.Reason, "another dealership")
	assert.Nil(t, elsewhere.TimeEntry)

	again, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID})
	require.NoError(t, err)
	assert.Equal(t, timeentry.RejectOpenElsewhere, again.Decision.Code)
	assert.Contains(t, again.Decision.Reason, "this dealership")

	assert.Equal(t, 1, f.store.OpenEntryCount(f.worker.ID))
}

func TestPunchIn_ConcurrentPunchesCreateOneEntry(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		codes   []timeentry.RejectionCode
	)
	for i := 0; i < attempts; i++ {
		dealership := f.north.ID
		if i%2 == 1 {
			dealership = f.south.ID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: dealership})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if resp.Decision.Allowed {
				allowed++
			} else {
				codes = append(codes, resp.Decision.Code)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed)
	assert.Len(t, codes, attempts-1)
	for _, c := range codes {
		assert.Equal(t, timeentry.RejectOpenElsewhere, c)
	}
	assert.Equal(t, 1, f.store.OpenEntryCount(f.worker.ID))
}

func TestPunchOut_ClosesBreakAndRecalculatesOvertime(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	in := at(8, 0)
	resp, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, PunchTime: &in, ActorID: f.manager.ID})
	require.NoError(t, err)
	require.True(t, resp.Decision.Allowed)

	lunchAt := at(16, 30)
	_, err = f.breaks.StartBreak(ctx, timeentry.StartBreakRequest{TimeEntryID: resp.TimeEntry.ID, At: &lunchAt, ActorID: f.worker.ID})
	require.NoError(t, err)

	out := at(17, 0)
	closed, err := f.svc.PunchOut(ctx, timeentry.PunchOutRequest{EmployeeID: f.worker.ID, PunchTime: &out, ActorID: f.manager.ID})
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	assert.Equal(t, out, *closed.ClockOut)
	assert.Equal(t, timeentry.StatusComplete, closed.Status)
	assert.Equal(t, "pending", closed.ApprovalStatus)
	assert.Equal(t, 30, closed.BreakDurationMinutes)
	assert.False(t, closed.AutoClosed)

	breaks := f.store.BreaksOf(resp.TimeEntry.ID)
	require.Len(t, breaks, 1)
	assert.False(t, breaks[0].IsOpen())

	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.Equal(t, "8.50", aggs[0].TotalHours.StringFixed(2))

	_, err = f.svc.PunchOut(ctx, timeentry.PunchOutRequest{EmployeeID: f.worker.ID, PunchTime: &out, ActorID: f.manager.ID})
	assert.ErrorIs(t, err, timeentry.ErrNoOpenTimeEntry)
}

func TestPunchOut_BeforeClockIn(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	in := at(8, 0)
	_, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, PunchTime: &in, ActorID: f.manager.ID})
	require.NoError(t, err)

	early := at(7, 0)
	_, err = f.svc.PunchOut(ctx, timeentry.PunchOutRequest{EmployeeID: f.worker.ID, PunchTime: &early, ActorID: f.manager.ID})
	assert.ErrorIs(t, err, timeentry.ErrClockOutBeforeIn)
	assert.Equal(t, 1, f.store.OpenEntryCount(f.worker.ID))
}

func TestPunchIn_RequestedTimeNeedsTimecardManage(t *testing.T) {
	f := newFixture(t, windowed())
	ctx := context.Background()
	f.svc.(*PunchServiceImpl).now = func() time.Time { return at(10, 30) }

	in := at(8, 0)
	resp, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, PunchTime: &in, ActorID: f.worker.ID})
	require.NoError(t, err)
	assert.False(t, resp.Decision.Allowed)
	assert.Equal(t, timeentry.RejectTooLate, resp.Decision.Code)
	assert.Nil(t, resp.TimeEntry)
	assert.Zero(t, f.store.OpenEntryCount(f.worker.ID))

	resp, err = f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, PunchTime: &in, ActorID: f.manager.ID})
	require.NoError(t, err)
	require.True(t, resp.Decision.Allowed)
	assert.Equal(t, in, resp.TimeEntry.ClockIn)
}

func TestPunchOut_IgnoresRequestedTimeFromEmployee(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()
	svc := f.svc.(*PunchServiceImpl)
	svc.now = func() time.Time { return at(8, 0) }

	_, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, ActorID: f.worker.ID})
	require.NoError(t, err)

	svc.now = func() time.Time { return at(12, 0) }
	late := at(18, 0)
	closed, err := f.svc.PunchOut(ctx, timeentry.PunchOutRequest{EmployeeID: f.worker.ID, PunchTime: &late, ActorID: f.worker.ID})
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	assert.Equal(t, at(12, 0), *closed.ClockOut)
}

func TestDeleteTimeEntry(t *testing.T) {
	f := newFixture(t, schedule.ScheduleTemplate{})
	ctx := context.Background()

	in, out := at(8, 0), at(12, 0)
	resp, err := f.svc.PunchIn(ctx, timeentry.PunchInRequest{EmployeeID: f.worker.ID, DealershipID: f.north.ID, PunchTime: &in, ActorID: f.manager.ID})
	require.NoError(t, err)
	entryID := resp.TimeEntry.ID

	b := at(10, 0)
	started, err := f.breaks.StartBreak(ctx, timeentry.StartBreakRequest{TimeEntryID: entryID, At: &b, ActorID: f.worker.ID})
	require.NoError(t, err)
	bEnd := at(10, 15)
	_, err = f.breaks.EndBreak(ctx, timeentry.EndBreakRequest{BreakID: started.ID, At: &bEnd, ActorID: f.worker.ID})
	require.NoError(t, err)
	_, err = f.svc.PunchOut(ctx, timeentry.PunchOutRequest{EmployeeID: f.worker.ID, PunchTime: &out, ActorID: f.manager.ID})
	require.NoError(t, err)

	_, err = f.store.ReminderRepository().Claim(ctx, overdue.Reminder{
		TimeEntryID:    entryID,
		Stage:          overdue.ActionFirstReminder,
		IdempotencyKey: overdue.IdempotencyKey(entryID, overdue.ActionFirstReminder),
	})
	require.NoError(t, err)
	require.Equal(t, "3.75", f.store.Aggregates()[0].TotalHours.StringFixed(2))

	err = f.svc.DeleteTimeEntry(ctx, entryID, f.worker.ID)
	assert.ErrorIs(t, err, identity.ErrNotPrivileged)

	require.NoError(t, f.svc.DeleteTimeEntry(ctx, entryID, f.manager.ID))

	deleted, ok := f.store.TimeEntry(entryID)
	require.True(t, ok)
	assert.NotNil(t, deleted.DeletedAt)
	assert.Empty(t, f.store.BreaksOf(entryID))
	assert.Empty(t, f.store.RemindersOf(entryID))

	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.True(t, aggs[0].TotalHours.IsZero())
	assert.Zero(t, aggs[0].EntryCount)

	err = f.svc.DeleteTimeEntry(ctx, entryID, f.manager.ID)
	assert.ErrorIs(t, err, timeentry.ErrTimeEntryNotFound)
}
