package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
)

type assignmentRepository struct{ s *Store }

func (s *Store) AssignmentRepository() schedule.AssignmentRepository { return assignmentRepository{s} }

func (r assignmentRepository) GetByEmployeeAndDealership(ctx context.Context, employeeID, dealershipID string) (schedule.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.data.assignments {
		if a.EmployeeID == employeeID && a.DealershipID == dealershipID {
			return r.s.withTimezone(a), nil
		}
	}
	return schedule.Assignment{}, schedule.ErrAssignmentNotFound
}

func (r assignmentRepository) GetByID(ctx context.Context, id string) (schedule.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.data.assignments[id]
	if !ok {
		return schedule.Assignment{}, schedule.ErrAssignmentNotFound
	}
	return r.s.withTimezone(a), nil
}

func (s *Store) withTimezone(a schedule.Assignment) schedule.Assignment {
	if d, ok := s.data.dealerships[a.DealershipID]; ok {
		a.DealershipTimezone = d.Timezone
	}
	return a
}

type dealershipRepository struct{ s *Store }

func (s *Store) DealershipRepository() schedule.DealershipRepository { return dealershipRepository{s} }

func (r dealershipRepository) GetByID(ctx context.Context, id string) (schedule.Dealership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.data.dealerships[id]
	if !ok {
		return schedule.Dealership{}, schedule.ErrDealershipNotFound
	}
	return d, nil
}

func (r dealershipRepository) ListWithOpenAutoCloseEntries(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, e := range r.s.data.entries {
		if e.ClockOut != nil || e.DeletedAt != nil || seen[e.DealershipID] {
			continue
		}
		a, ok := r.s.data.assignments[e.AssignmentID]
		if !ok || !a.Template.AutoCloseEnabled || a.Template.ShiftEndTime == nil {
			continue
		}
		seen[e.DealershipID] = true
		ids = append(ids, e.DealershipID)
	}
	sort.Strings(ids)
	return ids, nil
}

type employeeRepository struct{ s *Store }

func (s *Store) EmployeeRepository() employee.EmployeeRepository { return employeeRepository{s} }

func (r employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.data.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}
