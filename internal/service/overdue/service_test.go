package overdue

import (
	"context"
	"errors"
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

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []overdue.Notice
	err     error
	// lostAck records the notice and still fails, like a broker whose ack never arrives.
	lostAck bool
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n overdue.Notice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil && !d.lostAck {
		return d.err
	}
	d.notices = append(d.notices, n)
	return d.err
}

func (d *recordingDispatcher) sent() []overdue.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]overdue.Notice(nil), d.notices...)
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

type fixture struct {
	store      *memory.Store
	svc        *OverdueServiceImpl
	dispatcher *recordingDispatcher
	dealership schedule.Dealership
	tpl        schedule.ScheduleTemplate
}

func autoCloseTemplate() schedule.ScheduleTemplate {
	start, _ := schedule.ParseClockTime("08:00")
	end, _ := schedule.ParseClockTime("17:00")
	return schedule.ScheduleTemplate{ShiftStartTime: &start, ShiftEndTime: &end, AutoCloseEnabled: true}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	d := store.AddDealership(schedule.Dealership{Name: "Valley Toyota", Timezone: "UTC"})
	authz := identitysvc.NewAuthorizer(store.EmployeeRepository(), store.AssignmentRepository())
	ot := overtimesvc.NewOvertimeService(store, store.WeeklyAggregateRepository(), store.DealershipRepository(), authz,
		overtimesvc.Config{WeeklyThresholdHours: decimal.NewFromInt(40), WeekStartDay: time.Monday})
	brk := breaksvc.NewBreakService(store, store.TimeEntryRepository(), store.BreakRepository(), store.AssignmentRepository(), authz, ot)
	dispatcher := &recordingDispatcher{}

	svc := NewOverdueService(store, store.ReminderRepository(), store.TimeEntryRepository(), store.DealershipRepository(),
		brk, ot, authz, dispatcher, nil, Config{Concurrency: 2}).(*OverdueServiceImpl)

	return &fixture{store: store, svc: svc, dispatcher: dispatcher, dealership: d, tpl: autoCloseTemplate()}
}

func (f *fixture) setNow(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

// openEntry clocks a new employee in at 08:00 under tpl.
func (f *fixture) openEntry(name string, tpl schedule.ScheduleTemplate) timeentry.TimeEntry {
	emp := f.store.AddEmployee(employee.Employee{FullName: name})
	a := f.store.AddAssignment(schedule.Assignment{EmployeeID: emp.ID, DealershipID: f.dealership.ID, Template: tpl})
	return f.store.AddTimeEntry(timeentry.TimeEntry{
		EmployeeID:   emp.ID,
		DealershipID: f.dealership.ID,
		AssignmentID: a.ID,
		ClockIn:      at(8, 0),
	})
}

func TestFindOverduePunches_Detection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tracked := f.openEntry("Tracked", f.tpl)

	disabled := f.tpl
	disabled.AutoCloseEnabled = false
	f.openEntry("Opted Out", disabled)

	noEnd := f.tpl
	noEnd.ShiftEndTime = nil
	f.openEntry("No End", noEnd)

	got, err := f.svc.FindOverduePunches(ctx, f.dealership.ID, at(17, 29))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.FindOverduePunches(ctx, f.dealership.ID, at(17, 30))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tracked.ID, got[0].TimeEntryID)
	assert.Equal(t, overdue.ActionFirstReminder, got[0].Action)
	assert.Equal(t, 30, got[0].MinutesOverdue)
	assert.Equal(t, at(17, 0), got[0].ShiftEnd)
	assert.Equal(t, overdue.Thresholds{FirstReminder: 30, SecondReminder: 60, AutoClose: 120}, got[0].Thresholds)
	assert.Equal(t, "Tracked", got[0].EmployeeName)
}

func TestFindOverduePunches_AutoCloseTakesPriority(t *testing.T) {
	f := newFixture(t)
	f.openEntry("Forgetful", f.tpl)

	got, err := f.svc.FindOverduePunches(context.Background(), f.dealership.ID, at(19, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 121, got[0].MinutesOverdue)
	assert.Equal(t, 0, got[0].ReminderCount)
	assert.Equal(t, overdue.ActionAutoClose, got[0].Action)
}

func TestRunSweep_EscalatesThroughStages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.openEntry("Escalated", f.tpl)

	lunchAt := at(18, 50)
	_, err := f.svc.breakService.StartBreak(ctx, timeentry.StartBreakRequest{TimeEntryID: entry.ID, At: &lunchAt, ActorID: entry.EmployeeID})
	require.NoError(t, err)

	steps := []struct {
		now      time.Time
		reminded int
		closed   int
	}{
		{at(17, 10), 0, 0},
		{at(17, 30), 1, 0},
		{at(17, 45), 0, 0},
		{at(18, 0), 1, 0},
		{at(18, 30), 0, 0},
		{at(19, 5), 0, 1},
		{at(19, 20), 0, 0},
	}
	for _, step := range steps {
		f.setNow(step.now)
		result, err := f.svc.RunSweep(ctx, f.dealership.ID)
		require.NoError(t, err)
		assert.Equal(t, step.reminded, result.Reminded, step.now.Format("15:04"))
		assert.Equal(t, step.closed, result.AutoClosed, step.now.Format("15:04"))
		assert.Zero(t, result.Failed)
	}

	notices := f.dispatcher.sent()
	require.Len(t, notices, 3)
	assert.Equal(t, overdue.ActionFirstReminder, notices[0].Stage)
	assert.Equal(t, overdue.ActionSecondReminder, notices[1].Stage)
	assert.Equal(t, overdue.ActionAutoClose, notices[2].Stage)
	assert.Equal(t, entry.ID+":first_reminder", notices[0].IdempotencyKey)
	require.NotNil(t, notices[2].ClosedAt)
	assert.Equal(t, at(19, 0), *notices[2].ClosedAt)

	closed, ok := f.store.TimeEntry(entry.ID)
	require.True(t, ok)
	require.NotNil(t, closed.ClockOut)
	assert.Equal(t, at(19, 0), *closed.ClockOut)
	assert.True(t, closed.AutoClosed)
	assert.True(t, closed.NeedsReview)
	assert.Equal(t, timeentry.StatusComplete, closed.Status)
	assert.Equal(t, timeentry.ApprovalPending, closed.ApprovalStatus)
	assert.Equal(t, 10, closed.BreakDurationMinutes)

	assert.Len(t, f.store.RemindersOf(entry.ID), 3)
	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.Equal(t, "10.83", aggs[0].TotalHours.StringFixed(2))
}

func TestRunSweep_ConcurrentSweepsSendOnce(t *testing.T) {
	f := newFixture(t)
	f.openEntry("Racer", f.tpl)
	f.setNow(at(17, 40))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.dispatcher.sent(), 1)
}

func TestRunSweep_ItemFailureDoesNotStopSweep(t *testing.T) {
	f := newFixture(t)
	broken := f.openEntry("Broken", f.tpl)
	healthy := f.openEntry("Healthy", f.tpl)
	f.store.FailOn = func(op, id string) error {
		if op == "overdue_reminders.claim" && id == broken.ID {
			return errors.New("connection reset")
		}
		return nil
	}
	f.setNow(at(17, 30))

	result, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Detected)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Reminded)

	notices := f.dispatcher.sent()
	require.Len(t, notices, 1)
	assert.Equal(t, healthy.ID, notices[0].TimeEntryID)
}

func TestRunSweep_DispatchFailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	entry := f.openEntry("Unreachable", f.tpl)
	f.setNow(at(17, 30))

	f.dispatcher.err = errors.New("broker down")
	result, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, f.store.RemindersOf(entry.ID))

	f.dispatcher.err = nil
	result, err = f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)
	assert.Len(t, f.store.RemindersOf(entry.ID), 1)
}

func TestRunSweep_RedeliveryKeepsIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	entry := f.openEntry("Flaky Ack", f.tpl)
	f.setNow(at(17, 30))

	f.dispatcher.err = errors.New("ack timeout")
	f.dispatcher.lostAck = true
	result, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, f.store.RemindersOf(entry.ID))

	f.dispatcher.err = nil
	f.dispatcher.lostAck = false
	result, err = f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)

	notices := f.dispatcher.sent()
	require.Len(t, notices, 2)
	assert.Equal(t, overdue.IdempotencyKey(entry.ID, overdue.ActionFirstReminder), notices[0].IdempotencyKey)
	assert.Equal(t, notices[0].IdempotencyKey, notices[1].IdempotencyKey)
	assert.Len(t, f.store.RemindersOf(entry.ID), 1)
}

func TestOverdue_ActorFacingCallsNeedTimecardManage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.openEntry("Left On", f.tpl)
	manager := f.store.AddEmployee(employee.Employee{FullName: "Mia Manager", Role: employee.RoleManager})
	f.store.AddAssignment(schedule.Assignment{EmployeeID: manager.ID, DealershipID: f.dealership.ID})
	outsider := f.store.AddEmployee(employee.Employee{FullName: "Otto Outsider", Role: employee.RoleManager})
	f.setNow(at(17, 30))

	_, err := f.svc.ListOverduePunches(ctx, f.dealership.ID, entry.EmployeeID, at(17, 30))
	assert.ErrorIs(t, err, identity.ErrNotPrivileged)
	_, err = f.svc.ListOverduePunches(ctx, f.dealership.ID, outsider.ID, at(17, 30))
	assert.ErrorIs(t, err, identity.ErrNotPrivileged)
	_, err = f.svc.SweepDealership(ctx, f.dealership.ID, outsider.ID)
	assert.ErrorIs(t, err, identity.ErrNotPrivileged)
	assert.Empty(t, f.dispatcher.sent())

	punches, err := f.svc.ListOverduePunches(ctx, f.dealership.ID, manager.ID, at(17, 30))
	require.NoError(t, err)
	require.Len(t, punches, 1)
	assert.Equal(t, entry.ID, punches[0].TimeEntryID)

	result, err := f.svc.SweepDealership(ctx, f.dealership.ID, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)
}

func TestCloseEntry_SkipsEntryClosedMeanwhile(t *testing.T) {
	f := newFixture(t)
	entry := f.openEntry("Just Left", f.tpl)

	punches, err := f.svc.FindOverduePunches(context.Background(), f.dealership.ID, at(19, 30))
	require.NoError(t, err)
	require.Len(t, punches, 1)

	out := at(19, 25)
	entry.ClockOut = &out
	entry.Status = timeentry.StatusComplete
	f.store.AddTimeEntry(entry)

	closed, err := f.svc.CloseEntry(context.Background(), punches[0], at(19, 30))
	require.NoError(t, err)
	assert.False(t, closed)

	got, _ := f.store.TimeEntry(entry.ID)
	assert.Equal(t, out, *got.ClockOut)
	assert.False(t, got.AutoClosed)
	assert.Empty(t, f.dispatcher.sent())
}

func TestCloseEntry_NoticeFailureKeepsClose(t *testing.T) {
	f := newFixture(t)
	entry := f.openEntry("Quiet", f.tpl)
	f.dispatcher.err = errors.New("broker down")
	f.setNow(at(20, 0))

	result, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AutoClosed)

	got, _ := f.store.TimeEntry(entry.ID)
	assert.True(t, got.AutoClosed)
}

func TestRunSweep_LeaseHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	f.openEntry("Waiting", f.tpl)
	f.svc.locker = heldLocker{}
	f.setNow(at(17, 30))

	_, err := f.svc.RunSweep(context.Background(), f.dealership.ID)
	assert.ErrorIs(t, err, overdue.ErrSweepInProgress)
	assert.Empty(t, f.dispatcher.sent())
}

func TestRunAllSweeps(t *testing.T) {
	f := newFixture(t)
	f.openEntry("First Store", f.tpl)

	other := f.store.AddDealership(schedule.Dealership{Name: "Hilltop Honda", Timezone: "UTC"})
	emp := f.store.AddEmployee(employee.Employee{FullName: "Second Store"})
	a := f.store.AddAssignment(schedule.Assignment{EmployeeID: emp.ID, DealershipID: other.ID, Template: f.tpl})
	f.store.AddTimeEntry(timeentry.TimeEntry{EmployeeID: emp.ID, DealershipID: other.ID, AssignmentID: a.ID, ClockIn: at(8, 0)})

	f.setNow(at(19, 30))
	result, err := f.svc.RunAllSweeps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Dealerships)
	assert.Equal(t, 2, result.AutoClosed)

	result, err = f.svc.RunAllSweeps(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Dealerships)
}
