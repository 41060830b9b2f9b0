package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
)

type weeklyAggregateRepository struct{ s *Store }

func (s *Store) WeeklyAggregateRepository() overtime.WeeklyAggregateRepository {
	return weeklyAggregateRepository{s}
}

func (r weeklyAggregateRepository) LockWeek(ctx context.Context, key overtime.WeekKey) error {
	return r.s.fail("weekly_aggregates.lock", key.LockKey())
}

func (r weeklyAggregateRepository) ListWorkedEntries(ctx context.Context, employeeID, dealershipID string, from, to time.Time) ([]overtime.WorkedEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []overtime.WorkedEntry
	for _, e := range r.s.data.entries {
		if e.EmployeeID != employeeID || e.DealershipID != dealershipID {
			continue
		}
		if e.ClockOut == nil || e.DeletedAt != nil || e.Status == timeentry.StatusDisputed {
			continue
		}
		if e.ClockIn.Before(from) || !e.ClockIn.Before(to) {
			continue
		}
		out = append(out, overtime.WorkedEntry{
			ID:                   e.ID,
			ClockIn:              e.ClockIn,
			ClockOut:             *e.ClockOut,
			BreakDurationMinutes: e.BreakDurationMinutes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

func (r weeklyAggregateRepository) Upsert(ctx context.Context, agg overtime.WeeklyAggregate) (overtime.WeeklyAggregate, error) {
	key := overtime.WeekKey{EmployeeID: agg.EmployeeID, DealershipID: agg.DealershipID, WeekStart: agg.WeekStart}
	if err := r.s.fail("weekly_aggregates.upsert", key.LockKey()); err != nil {
		return overtime.WeeklyAggregate{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.aggregates[key.LockKey()] = agg
	return agg, nil
}

func (r weeklyAggregateRepository) Get(ctx context.Context, key overtime.WeekKey) (overtime.WeeklyAggregate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	agg, ok := r.s.data.aggregates[key.LockKey()]
	if !ok {
		return overtime.WeeklyAggregate{}, overtime.ErrAggregateNotFound
	}
	return agg, nil
}

func (r weeklyAggregateRepository) ListClosedEntryRefs(ctx context.Context) ([]overtime.EntryRef, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []overtime.EntryRef
	for _, e := range r.s.data.entries {
		if e.ClockOut == nil || e.DeletedAt != nil {
			continue
		}
		ref := overtime.EntryRef{EmployeeID: e.EmployeeID, DealershipID: e.DealershipID, ClockIn: e.ClockIn}
		if d, ok := r.s.data.dealerships[e.DealershipID]; ok {
			ref.DealershipTimezone = d.Timezone
		}
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}
