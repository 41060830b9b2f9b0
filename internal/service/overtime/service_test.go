package overtime

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/memory"
	identitysvc "github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *memory.Store
	svc        overtime.OvertimeService
	dealership schedule.Dealership
	worker     employee.Employee
	manager    employee.Employee
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	d := store.AddDealership(schedule.Dealership{Name: "Downtown Motors", Timezone: "UTC"})
	worker := store.AddEmployee(employee.Employee{FullName: "Wes Worker"})
	manager := store.AddEmployee(employee.Employee{FullName: "Mia Manager", Role: employee.RoleManager})
	store.AddAssignment(schedule.Assignment{EmployeeID: manager.ID, DealershipID: d.ID})

	svc := NewOvertimeService(
		store,
		store.WeeklyAggregateRepository(),
		store.DealershipRepository(),
		identitysvc.NewAuthorizer(store.EmployeeRepository(), store.AssignmentRepository()),
		Config{WeeklyThresholdHours: decimal.NewFromInt(40), WeekStartDay: time.Monday},
	)
	return fixture{store: store, svc: svc, dealership: d, worker: worker, manager: manager}
}

func (f fixture) shift(day time.Time, hours int, breakMinutes int) timeentry.TimeEntry {
	in := day.Add(8 * time.Hour)
	out := in.Add(time.Duration(hours) * time.Hour)
	return f.store.AddTimeEntry(timeentry.TimeEntry{
		EmployeeID:           f.worker.ID,
		DealershipID:         f.dealership.ID,
		ClockIn:              in,
		ClockOut:             &out,
		BreakDurationMinutes: breakMinutes,
	})
}

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestRecalculateWeeklyOvertime_SplitsAtForty(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.shift(monday.AddDate(0, 0, i), 9, 0)
	}

	got, err := f.svc.RecalculateWeeklyOvertime(context.Background(), f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, "45.00", got.TotalHours.StringFixed(2))
	assert.Equal(t, "40.00", got.RegularHours.StringFixed(2))
	assert.Equal(t, "5.00", got.OvertimeHours.StringFixed(2))
}

func TestRecalculateWeeklyOvertime_MidweekDateNamesTheSameWeek(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.shift(monday.AddDate(0, 0, i), 9, 0)
	}
	ctx := context.Background()

	fromMonday, err := f.svc.RecalculateWeeklyOvertime(ctx, f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)
	fromWednesday, err := f.svc.RecalculateWeeklyOvertime(ctx, f.worker.ID, monday.AddDate(0, 0, 2), f.dealership.ID)
	require.NoError(t, err)

	assert.Equal(t, "45.00", fromWednesday.TotalHours.StringFixed(2))
	assert.True(t, fromMonday.OvertimeHours.Equal(fromWednesday.OvertimeHours))

	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.Equal(t, monday, aggs[0].WeekStart)
	assert.Equal(t, "45.00", aggs[0].TotalHours.StringFixed(2))
	assert.Equal(t, 5, aggs[0].EntryCount)
}

func TestRecalculateWeeklyOvertime_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.shift(monday, 8, 30)
	f.shift(monday.AddDate(0, 0, 1), 8, 45)

	ctx := context.Background()
	first, err := f.svc.RecalculateWeeklyOvertime(ctx, f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)
	storedFirst := f.store.Aggregates()

	second, err := f.svc.RecalculateWeeklyOvertime(ctx, f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)
	storedSecond := f.store.Aggregates()

	assert.True(t, first.TotalHours.Equal(second.TotalHours))
	assert.Equal(t, "14.75", second.TotalHours.StringFixed(2))
	require.Len(t, storedFirst, 1)
	require.Len(t, storedSecond, 1)
	assert.True(t, storedFirst[0].TotalHours.Equal(storedSecond[0].TotalHours))
	assert.True(t, storedFirst[0].OvertimeHours.Equal(storedSecond[0].OvertimeHours))
	assert.Equal(t, storedFirst[0].EntryCount, storedSecond[0].EntryCount)
	assert.Equal(t, monday, storedSecond[0].WeekStart)
}

func TestRecalculateWeeklyOvertime_OnlyCountsClosedEntriesOfTheWeek(t *testing.T) {
	f := newFixture(t)
	f.shift(monday, 8, 0)

	disputed := f.shift(monday.AddDate(0, 0, 1), 8, 0)
	disputed.Status = timeentry.StatusDisputed
	f.store.AddTimeEntry(disputed)

	deletedAt := monday
	deleted := f.shift(monday.AddDate(0, 0, 2), 8, 0)
	deleted.DeletedAt = &deletedAt
	f.store.AddTimeEntry(deleted)

	f.store.AddTimeEntry(timeentry.TimeEntry{EmployeeID: f.worker.ID, DealershipID: f.dealership.ID, ClockIn: monday.AddDate(0, 0, 3).Add(8 * time.Hour)})
	f.shift(monday.AddDate(0, 0, 7), 8, 0)
	f.shift(monday.AddDate(0, 0, -1), 8, 0)

	got, err := f.svc.RecalculateWeeklyOvertime(context.Background(), f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)
	assert.Equal(t, "8.00", got.TotalHours.StringFixed(2))
	assert.True(t, got.OvertimeHours.IsZero())
}

func TestRecalculateForEntry_UsesDealershipWeek(t *testing.T) {
	f := newFixture(t)
	chicago := f.store.AddDealership(schedule.Dealership{Name: "Lakeside Auto", Timezone: "America/Chicago"})

	// Sunday 22:00 in Chicago, already Monday in UTC.
	in := time.Date(2026, 3, 9, 4, 0, 0, 0, time.UTC)
	out := in.Add(2 * time.Hour)
	f.store.AddTimeEntry(timeentry.TimeEntry{EmployeeID: f.worker.ID, DealershipID: chicago.ID, ClockIn: in, ClockOut: &out})

	got, err := f.svc.RecalculateForEntry(context.Background(), f.worker.ID, chicago.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "2.00", got.TotalHours.StringFixed(2))

	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.Equal(t, "2026-03-02", aggs[0].WeekStart.Format("2006-01-02"))
}

func TestBackfill_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddEmployee(employee.Employee{FullName: "Olive Other"})

	f.shift(monday, 8, 0)
	f.shift(monday.AddDate(0, 0, 1), 8, 0)
	f.shift(monday.AddDate(0, 0, 7), 8, 0)
	in := monday.Add(9 * time.Hour)
	out := in.Add(4 * time.Hour)
	f.store.AddTimeEntry(timeentry.TimeEntry{EmployeeID: other.ID, DealershipID: f.dealership.ID, ClockIn: in, ClockOut: &out})

	failingKey := overtime.WeekKey{EmployeeID: f.worker.ID, DealershipID: f.dealership.ID, WeekStart: monday.AddDate(0, 0, 7)}.LockKey()
	f.store.FailOn = func(op, id string) error {
		if op == "weekly_aggregates.upsert" && id == failingKey {
			return errors.New("disk full")
		}
		return nil
	}

	result, err := f.svc.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, overtime.BackfillResult{Processed: 2, Failed: 1}, result)
	assert.Len(t, f.store.Aggregates(), 2)
}

func TestBackfill_ConvergesWithIncrementalRecompute(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 6; i++ {
		f.shift(monday.AddDate(0, 0, i), 8, 15)
	}
	ctx := context.Background()

	incremental, err := f.svc.RecalculateWeeklyOvertime(ctx, f.worker.ID, monday, f.dealership.ID)
	require.NoError(t, err)

	_, err = f.svc.Backfill(ctx)
	require.NoError(t, err)

	aggs := f.store.Aggregates()
	require.Len(t, aggs, 1)
	assert.True(t, incremental.TotalHours.Equal(aggs[0].TotalHours))
	assert.Equal(t, "46.50", aggs[0].TotalHours.StringFixed(2))
	assert.Equal(t, "6.50", aggs[0].OvertimeHours.StringFixed(2))
}

func TestRecalculate_ChecksActorAndInput(t *testing.T) {
	f := newFixture(t)
	f.shift(monday, 8, 0)
	ctx := context.Background()

	req := overtime.RecalculateRequest{EmployeeID: f.worker.ID, DealershipID: f.dealership.ID, WeekStart: "2026-03-02"}

	_, err := f.svc.Recalculate(ctx, req, f.worker.ID)
	assert.ErrorIs(t, err, identity.ErrNotPrivileged)

	resp, err := f.svc.Recalculate(ctx, req, f.manager.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", resp.WeekStart)
	assert.Equal(t, 1, resp.EntryCount)

	req.WeekStart = "2026-03-04"
	resp, err = f.svc.Recalculate(ctx, req, f.manager.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", resp.WeekStart)
	assert.Len(t, f.store.Aggregates(), 1)

	bad := req
	bad.WeekStart = "03/02/2026"
	_, err = f.svc.Recalculate(ctx, bad, f.manager.ID)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "week_start")
}
