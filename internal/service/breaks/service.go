package breaks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type BreakServiceImpl struct {
	tx database.Transactor
	timeentry.TimeEntryRepository
	timeentry.BreakRepository
	schedule.AssignmentRepository
	authorizer      identity.Authorizer
	overtimeService overtime.OvertimeService
	now             func() time.Time
}

// StartBreak implements timeentry.BreakService.
func (s *BreakServiceImpl) StartBreak(ctx context.Context, req timeentry.StartBreakRequest) (timeentry.BreakResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.BreakResponse{}, err
	}
	at := s.now().UTC()
	if req.At != nil {
		at = req.At.UTC()
	}

	var created timeentry.Break
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, req.TimeEntryID)
		if err != nil {
			return err
		}
		if err := s.authorizeEntry(ctx, req.ActorID, entry); err != nil {
			return err
		}
		if !entry.IsOpen() {
			return timeentry.ErrTimeEntryNotOpen
		}
		if at.Before(entry.ClockIn) {
			return timeentry.ErrBreakBeforeClockIn
		}

		open, err := s.BreakRepository.GetOpenByEntry(ctx, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to check open break: %w", err)
		}
		if open != nil {
			return timeentry.ErrBreakAlreadyOpen
		}

		latest, err := s.BreakRepository.LatestEnd(ctx, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to get latest break end: %w", err)
		}
		if latest != nil && at.Before(*latest) {
			return timeentry.ErrBreakOverlaps
		}

		number, err := s.BreakRepository.NextBreakNumber(ctx, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to get next break number: %w", err)
		}

		breakType := timeentry.BreakType(req.BreakType)
		if breakType == "" {
			breakType = timeentry.BreakTypeRest
		}
		if number == 1 {
			breakType = timeentry.BreakTypeLunch
		}

		created, err = s.BreakRepository.Create(ctx, timeentry.Break{
			ID:          uuid.Must(uuid.NewV7()).String(),
			TimeEntryID: entry.ID,
			BreakNumber: number,
			BreakType:   breakType,
			BreakStart:  at,
		})
		if err != nil {
			return fmt.Errorf("failed to create break: %w", err)
		}

		_, err = s.refreshBreakTotal(ctx, entry.ID)
		return err
	})
	if err != nil {
		return timeentry.BreakResponse{}, err
	}

	return timeentry.NewBreakResponse(created), nil
}

// EndBreak implements timeentry.BreakService.
func (s *BreakServiceImpl) EndBreak(ctx context.Context, req timeentry.EndBreakRequest) (timeentry.EndBreakResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EndBreakResponse{}, err
	}
	end := s.now().UTC()
	if req.At != nil {
		end = req.At.UTC()
	}

	var (
		ended timeentry.Break
		entry timeentry.TimeEntry
		total int
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.BreakRepository.GetByID(ctx, req.BreakID)
		if err != nil {
			return err
		}
		// Entry first, then break: the same order StartBreak locks in.
		entry, err = s.TimeEntryRepository.GetByIDForUpdate(ctx, b.TimeEntryID)
		if err != nil {
			return err
		}
		if err := s.authorizeEntry(ctx, req.ActorID, entry); err != nil {
			return err
		}
		b, err = s.BreakRepository.GetByIDForUpdate(ctx, req.BreakID)
		if err != nil {
			return err
		}
		if !b.IsOpen() {
			return timeentry.ErrBreakAlreadyEnded
		}
		if end.Before(b.BreakStart) {
			return timeentry.ErrBreakEndBeforeStart
		}

		minutes := timeentry.BreakMinutes(b.BreakStart, end)
		if err := s.BreakRepository.End(ctx, b.ID, end, minutes); err != nil {
			return fmt.Errorf("failed to end break: %w", err)
		}
		b.BreakEnd = &end
		b.DurationMinutes = &minutes
		ended = b

		total, err = s.refreshBreakTotal(ctx, entry.ID)
		return err
	})
	if err != nil {
		return timeentry.EndBreakResponse{}, err
	}

	resp := timeentry.EndBreakResponse{
		Break:              timeentry.NewBreakResponse(ended),
		DurationMinutes:    *ended.DurationMinutes,
		BreakDurationTotal: total,
	}
	s.checkMinimums(ctx, entry, ended, total, &resp)

	if !entry.IsOpen() {
		s.recalculateOvertime(ctx, entry)
	}

	return resp, nil
}

// authorizeEntry lets employees manage breaks on their own entries. Anyone else
// needs punch_others at the entry's dealership.
func (s *BreakServiceImpl) authorizeEntry(ctx context.Context, actorID string, entry timeentry.TimeEntry) error {
	if actorID != "" && actorID == entry.EmployeeID {
		return nil
	}
	return s.authorizer.Authorize(ctx, actorID, entry.DealershipID, identity.PermissionPunchOthers)
}

// checkMinimums reports short breaks. Minimums are informational and never reject.
func (s *BreakServiceImpl) checkMinimums(ctx context.Context, entry timeentry.TimeEntry, b timeentry.Break, total int, resp *timeentry.EndBreakResponse) {
	if b.BreakType == timeentry.BreakTypeLunch {
		lunch := timeentry.LunchMinimumMinutes
		resp.RequiredMinutes = &lunch
		if *b.DurationMinutes < lunch {
			resp.BelowRequiredMinimum = true
		}
	}

	assignment, err := s.AssignmentRepository.GetByID(ctx, entry.AssignmentID)
	if err != nil {
		if !errors.Is(err, schedule.ErrAssignmentNotFound) {
			slog.Warn("Failed to load assignment for break minimum", "time_entry_id", entry.ID, "error", err)
		}
		return
	}
	if required := assignment.Template.RequiredBreakMinutes; required != nil {
		resp.RequiredMinutes = required
		resp.BelowRequiredMinimum = resp.BelowRequiredMinimum || total < *required
	}
}

// DeleteBreak implements timeentry.BreakService.
func (s *BreakServiceImpl) DeleteBreak(ctx context.Context, breakID string, actorID string) error {
	b, err := s.BreakRepository.GetByID(ctx, breakID)
	if err != nil {
		return err
	}
	entry, err := s.TimeEntryRepository.GetByID(ctx, b.TimeEntryID)
	if err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, actorID, entry.DealershipID, identity.PermissionTimecardManage); err != nil {
		return err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, entry.ID)
		if err != nil {
			return err
		}
		entry = locked
		if err := s.BreakRepository.Delete(ctx, breakID); err != nil {
			return err
		}
		_, err = s.refreshBreakTotal(ctx, entry.ID)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("Break deleted", "break_id", breakID, "time_entry_id", entry.ID, "actor_id", actorID)

	if !entry.IsOpen() {
		s.recalculateOvertime(ctx, entry)
	}
	return nil
}

// CloseOpenBreaks implements timeentry.BreakService.
func (s *BreakServiceImpl) CloseOpenBreaks(ctx context.Context, timeEntryID string, at time.Time) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		closed, err := s.BreakRepository.CloseOpenByEntry(ctx, timeEntryID, at)
		if err != nil {
			return fmt.Errorf("failed to close open breaks: %w", err)
		}
		if closed == 0 {
			return nil
		}
		_, err = s.refreshBreakTotal(ctx, timeEntryID)
		return err
	})
}

// refreshBreakTotal rewrites break_duration_minutes as the sum of the entry's closed breaks.
// It touches nothing else and fails with ErrTimeEntryNotFound if the entry is gone.
func (s *BreakServiceImpl) refreshBreakTotal(ctx context.Context, timeEntryID string) (int, error) {
	if _, err := s.TimeEntryRepository.GetByID(ctx, timeEntryID); err != nil {
		return 0, err
	}
	total, err := s.BreakRepository.SumClosedDurations(ctx, timeEntryID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum break durations: %w", err)
	}
	if err := s.TimeEntryRepository.UpdateBreakTotal(ctx, timeEntryID, total); err != nil {
		return 0, fmt.Errorf("failed to update break total: %w", err)
	}
	return total, nil
}

func (s *BreakServiceImpl) recalculateOvertime(ctx context.Context, entry timeentry.TimeEntry) {
	if s.overtimeService == nil {
		return
	}
	if _, err := s.overtimeService.RecalculateForEntry(ctx, entry.EmployeeID, entry.DealershipID, entry.ClockIn); err != nil {
		slog.Error("Failed to recalculate weekly overtime after break change", "time_entry_id", entry.ID, "error", err)
	}
}

func NewBreakService(
	tx database.Transactor,
	timeEntryRepo timeentry.TimeEntryRepository,
	breakRepo timeentry.BreakRepository,
	assignmentRepo schedule.AssignmentRepository,
	authorizer identity.Authorizer,
	overtimeService overtime.OvertimeService,
) timeentry.BreakService {
	return &BreakServiceImpl{
		tx:                   tx,
		TimeEntryRepository:  timeEntryRepo,
		BreakRepository:      breakRepo,
		AssignmentRepository: assignmentRepo,
		authorizer:           authorizer,
		overtimeService:      overtimeService,
		now:                  time.Now,
	}
}
