package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
)

type timeEntryRepository struct{ s *Store }

func (s *Store) TimeEntryRepository() timeentry.TimeEntryRepository { return timeEntryRepository{s} }

// LockEmployee relies on transactions already being serialized.
func (r timeEntryRepository) LockEmployee(ctx context.Context, employeeID string) error {
	return r.s.fail("time_entries.lock", employeeID)
}

func (r timeEntryRepository) GetOpenByEmployee(ctx context.Context, employeeID string) (*timeentry.TimeEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.data.entries {
		if e.EmployeeID == employeeID && e.ClockOut == nil && e.DeletedAt == nil {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (r timeEntryRepository) Create(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	if err := r.s.fail("time_entries.create", entry.EmployeeID); err != nil {
		return timeentry.TimeEntry{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = newID()
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	r.s.data.entries[entry.ID] = entry
	return entry, nil
}

func (r timeEntryRepository) GetByID(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.data.entries[id]
	if !ok || e.DeletedAt != nil {
		return timeentry.TimeEntry{}, timeentry.ErrTimeEntryNotFound
	}
	return e, nil
}

func (r timeEntryRepository) GetByIDForUpdate(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.GetByID(ctx, id)
}

func (r timeEntryRepository) Close(ctx context.Context, id string, params timeentry.CloseParams) (bool, error) {
	if err := r.s.fail("time_entries.close", id); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.entries[id]
	if !ok || e.DeletedAt != nil || e.ClockOut != nil {
		return false, nil
	}
	out := params.ClockOut
	e.ClockOut = &out
	e.ClockOutLatitude = params.Latitude
	e.ClockOutLongitude = params.Longitude
	e.Status = timeentry.StatusComplete
	e.ApprovalStatus = timeentry.ApprovalPending
	if params.AutoClosed {
		e.AutoClosed = true
		e.NeedsReview = true
	}
	e.UpdatedAt = time.Now().UTC()
	r.s.data.entries[id] = e
	return true, nil
}

func (r timeEntryRepository) UpdateBreakTotal(ctx context.Context, id string, minutes int) error {
	if err := r.s.fail("time_entries.update_break_total", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.entries[id]
	if !ok || e.DeletedAt != nil {
		return timeentry.ErrTimeEntryNotFound
	}
	e.BreakDurationMinutes = minutes
	e.UpdatedAt = time.Now().UTC()
	r.s.data.entries[id] = e
	return nil
}

func (r timeEntryRepository) UpdateApproval(ctx context.Context, id string, update timeentry.ApprovalUpdate) error {
	if err := r.s.fail("time_entries.update_approval", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.entries[id]
	if !ok || e.DeletedAt != nil {
		return timeentry.ErrTimeEntryNotFound
	}
	actor, at := update.ActorID, update.At
	e.ApprovalStatus = update.Status
	e.ApprovedBy = &actor
	e.ApprovedAt = &at
	e.RejectionReason = update.RejectionReason
	if update.Status == timeentry.ApprovalApproved {
		e.NeedsReview = false
	}
	e.UpdatedAt = time.Now().UTC()
	r.s.data.entries[id] = e
	return nil
}

func (r timeEntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := r.s.fail("time_entries.soft_delete", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.entries[id]
	if !ok || e.DeletedAt != nil {
		return timeentry.ErrTimeEntryNotFound
	}
	e.DeletedAt = &at
	r.s.data.entries[id] = e
	return nil
}

type breakRepository struct{ s *Store }

func (s *Store) BreakRepository() timeentry.BreakRepository { return breakRepository{s} }

func (r breakRepository) Create(ctx context.Context, b timeentry.Break) (timeentry.Break, error) {
	if err := r.s.fail("time_entry_breaks.create", b.TimeEntryID); err != nil {
		return timeentry.Break{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == "" {
		b.ID = newID()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.data.breaks[b.ID] = b
	return b, nil
}

func (r breakRepository) GetByID(ctx context.Context, id string) (timeentry.Break, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.data.breaks[id]
	if !ok {
		return timeentry.Break{}, timeentry.ErrBreakNotFound
	}
	return b, nil
}

func (r breakRepository) GetByIDForUpdate(ctx context.Context, id string) (timeentry.Break, error) {
	return r.GetByID(ctx, id)
}

func (r breakRepository) GetOpenByEntry(ctx context.Context, timeEntryID string) (*timeentry.Break, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.data.breaks {
		if b.TimeEntryID == timeEntryID && b.BreakEnd == nil {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (r breakRepository) NextBreakNumber(ctx context.Context, timeEntryID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	last := 0
	for _, b := range r.s.data.breaks {
		if b.TimeEntryID == timeEntryID && b.BreakNumber > last {
			last = b.BreakNumber
		}
	}
	return last + 1, nil
}

func (r breakRepository) End(ctx context.Context, id string, end time.Time, durationMinutes int) error {
	if err := r.s.fail("time_entry_breaks.end", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.breaks[id]
	if !ok {
		return timeentry.ErrBreakNotFound
	}
	if b.BreakEnd != nil {
		return timeentry.ErrBreakAlreadyEnded
	}
	d := durationMinutes
	b.BreakEnd = &end
	b.DurationMinutes = &d
	b.UpdatedAt = time.Now().UTC()
	r.s.data.breaks[id] = b
	return nil
}

func (r breakRepository) CloseOpenByEntry(ctx context.Context, timeEntryID string, at time.Time) (int64, error) {
	if err := r.s.fail("time_entry_breaks.close_open", timeEntryID); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.data.breaks {
		if b.TimeEntryID != timeEntryID || b.BreakEnd != nil {
			continue
		}
		end := at
		if end.Before(b.BreakStart) {
			end = b.BreakStart
		}
		d := timeentry.BreakMinutes(b.BreakStart, end)
		b.BreakEnd = &end
		b.DurationMinutes = &d
		r.s.data.breaks[id] = b
		n++
	}
	return n, nil
}

func (r breakRepository) Delete(ctx context.Context, id string) error {
	if err := r.s.fail("time_entry_breaks.delete", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.breaks[id]; !ok {
		return timeentry.ErrBreakNotFound
	}
	delete(r.s.data.breaks, id)
	return nil
}

func (r breakRepository) DeleteByEntry(ctx context.Context, timeEntryID string) (int64, error) {
	if err := r.s.fail("time_entry_breaks.delete_by_entry", timeEntryID); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.data.breaks {
		if b.TimeEntryID == timeEntryID {
			delete(r.s.data.breaks, id)
			n++
		}
	}
	return n, nil
}

func (r breakRepository) LatestEnd(ctx context.Context, timeEntryID string) (*time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *time.Time
	for _, b := range r.s.data.breaks {
		if b.TimeEntryID != timeEntryID || b.BreakEnd == nil {
			continue
		}
		if latest == nil || b.BreakEnd.After(*latest) {
			end := *b.BreakEnd
			latest = &end
		}
	}
	return latest, nil
}

func (r breakRepository) SumClosedDurations(ctx context.Context, timeEntryID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := 0
	for _, b := range r.s.data.breaks {
		if b.TimeEntryID == timeEntryID && b.BreakEnd != nil && b.DurationMinutes != nil {
			total += *b.DurationMinutes
		}
	}
	return total, nil
}
