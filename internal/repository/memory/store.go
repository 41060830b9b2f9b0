// Package memory is an in-process implementation of the repository interfaces. Services
// are tested against it; transactions are serialized and roll back to a snapshot on error.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type txKey struct{}

type state struct {
	dealerships map[string]schedule.Dealership
	employees   map[string]employee.Employee
	assignments map[string]schedule.Assignment
	entries     map[string]timeentry.TimeEntry
	breaks      map[string]timeentry.Break
	reminders   map[string]overdue.Reminder
	aggregates  map[string]overtime.WeeklyAggregate
	audits      []approval.AuditRecord
}

func (s state) clone() state {
	return state{
		dealerships: cloneMap(s.dealerships),
		employees:   cloneMap(s.employees),
		assignments: cloneMap(s.assignments),
		entries:     cloneMap(s.entries),
		breaks:      cloneMap(s.breaks),
		reminders:   cloneMap(s.reminders),
		aggregates:  cloneMap(s.aggregates),
		audits:      append([]approval.AuditRecord(nil), s.audits...),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds every table in maps.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state

	// FailOn, when set, is consulted before each write. A non-nil error aborts the write.
	// op is "<table>.<operation>" and id the primary subject of the write.
	FailOn func(op, id string) error
}

func NewStore() *Store {
	return &Store{data: state{
		dealerships: map[string]schedule.Dealership{},
		employees:   map[string]employee.Employee{},
		assignments: map[string]schedule.Assignment{},
		entries:     map[string]timeentry.TimeEntry{},
		breaks:      map[string]timeentry.Break{},
		reminders:   map[string]overdue.Reminder{},
		aggregates:  map[string]overtime.WeeklyAggregate{},
	}}
}

func (s *Store) fail(op, id string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op, id)
}

// WithinTransaction implements database.Transactor. Top level transactions run one at a
// time; nested calls behave like savepoints.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

var _ database.Transactor = (*Store)(nil)

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ========================================
// SEEDING
// ========================================

func (s *Store) AddDealership(d schedule.Dealership) schedule.Dealership {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = newID()
	}
	s.data.dealerships[d.ID] = d
	return d
}

func (s *Store) AddEmployee(e employee.Employee) employee.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Role == "" {
		e.Role = employee.RoleEmployee
	}
	if e.Status == "" {
		e.Status = employee.StatusActive
	}
	s.data.employees[e.ID] = e
	return e
}

func (s *Store) AddAssignment(a schedule.Assignment) schedule.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Status == "" {
		a.Status = schedule.AssignmentStatusActive
	}
	s.data.assignments[a.ID] = a
	return a
}

// AddTimeEntry stores an entry as is, bypassing punch validation.
func (s *Store) AddTimeEntry(e timeentry.TimeEntry) timeentry.TimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Status == "" {
		e.Status = timeentry.StatusActive
		if e.ClockOut != nil {
			e.Status = timeentry.StatusComplete
		}
	}
	if e.ApprovalStatus == "" {
		e.ApprovalStatus = timeentry.ApprovalPending
	}
	s.data.entries[e.ID] = e
	return e
}

// ========================================
// INSPECTION
// ========================================

func (s *Store) TimeEntry(id string) (timeentry.TimeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data.entries[id]
	return e, ok
}

func (s *Store) OpenEntryCount(employeeID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.data.entries {
		if e.EmployeeID == employeeID && e.ClockOut == nil && e.DeletedAt == nil {
			n++
		}
	}
	return n
}

func (s *Store) BreaksOf(timeEntryID string) []timeentry.Break {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []timeentry.Break
	for _, b := range s.data.breaks {
		if b.TimeEntryID == timeEntryID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BreakNumber < out[j].BreakNumber })
	return out
}

func (s *Store) RemindersOf(timeEntryID string) []overdue.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []overdue.Reminder
	for _, r := range s.data.reminders {
		if r.TimeEntryID == timeEntryID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

func (s *Store) Aggregates() []overtime.WeeklyAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]overtime.WeeklyAggregate, 0, len(s.data.aggregates))
	for _, a := range s.data.aggregates {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return weekKey(out[i].EmployeeID, out[i].DealershipID, out[i].WeekStart) < weekKey(out[j].EmployeeID, out[j].DealershipID, out[j].WeekStart)
	})
	return out
}

func (s *Store) Audits() []approval.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]approval.AuditRecord(nil), s.data.audits...)
}

func weekKey(employeeID, dealershipID string, weekStart time.Time) string {
	return overtime.WeekKey{EmployeeID: employeeID, DealershipID: dealershipID, WeekStart: weekStart}.LockKey()
}
