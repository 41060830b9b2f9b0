package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
)

type reminderRepository struct{ s *Store }

func (s *Store) ReminderRepository() overdue.ReminderRepository { return reminderRepository{s} }

func (r reminderRepository) ListCandidates(ctx context.Context, dealershipID string) ([]overdue.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []overdue.Candidate
	for _, e := range r.s.data.entries {
		if e.DealershipID != dealershipID || e.ClockOut != nil || e.DeletedAt != nil {
			continue
		}
		a, ok := r.s.data.assignments[e.AssignmentID]
		if !ok || !a.Template.AutoCloseEnabled || a.Template.ShiftEndTime == nil {
			continue
		}
		c := overdue.Candidate{
			TimeEntryID:   e.ID,
			EmployeeID:    e.EmployeeID,
			DealershipID:  e.DealershipID,
			AssignmentID:  a.ID,
			ClockIn:       e.ClockIn,
			Template:      a.Template,
			ReminderCount: r.reminderCount(e.ID),
		}
		if d, ok := r.s.data.dealerships[e.DealershipID]; ok {
			c.DealershipTimezone = d.Timezone
		}
		if emp, ok := r.s.data.employees[e.EmployeeID]; ok {
			c.EmployeeName = emp.FullName
			c.EmployeePhone = emp.Phone
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

func (r reminderRepository) reminderCount(timeEntryID string) int {
	n := 0
	for _, rem := range r.s.data.reminders {
		if rem.TimeEntryID == timeEntryID && (rem.Stage == overdue.ActionFirstReminder || rem.Stage == overdue.ActionSecondReminder) {
			n++
		}
	}
	return n
}

func (r reminderRepository) Claim(ctx context.Context, rem overdue.Reminder) (bool, error) {
	if err := r.s.fail("overdue_reminders.claim", rem.TimeEntryID); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.data.reminders[rem.IdempotencyKey]; exists {
		return false, nil
	}
	if rem.ID == "" {
		rem.ID = newID()
	}
	r.s.data.reminders[rem.IdempotencyKey] = rem
	return true, nil
}

func (r reminderRepository) DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error) {
	if err := r.s.fail("overdue_reminders.delete_by_entry", timeEntryID); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key, rem := range r.s.data.reminders {
		if rem.TimeEntryID == timeEntryID {
			delete(r.s.data.reminders, key)
			n++
		}
	}
	return n, nil
}
