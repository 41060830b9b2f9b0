package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type PunchServiceImpl struct {
	tx database.Transactor
	timeentry.TimeEntryRepository
	timeentry.BreakRepository
	schedule.AssignmentRepository
	overdue.ReminderRepository
	breakService    timeentry.BreakService
	overtimeService overtime.OvertimeService
	authorizer      identity.Authorizer
	now             func() time.Time
}

// ValidatePunchIn implements timeentry.PunchService.
func (s *PunchServiceImpl) ValidatePunchIn(ctx context.Context, employeeID, dealershipID string, punchTime time.Time) (timeentry.PunchDecision, error) {
	return s.decide(ctx, employeeID, dealershipID, punchTime)
}

// decide runs the punch-in checks in order. The first failing check is the answer.
func (s *PunchServiceImpl) decide(ctx context.Context, employeeID, dealershipID string, punchTime time.Time) (timeentry.PunchDecision, error) {
	assignment, err := s.AssignmentRepository.GetByEmployeeAndDealership(ctx, employeeID, dealershipID)
	if err != nil {
		if errors.Is(err, schedule.ErrAssignmentNotFound) {
			return timeentry.Reject(timeentry.RejectNoAssignment, "you are not assigned to this dealership"), nil
		}
		return timeentry.PunchDecision{}, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.Status != schedule.AssignmentStatusActive {
		return timeentry.RejectAssignmentStatus(assignment.Status), nil
	}

	open, err := s.TimeEntryRepository.GetOpenByEmployee(ctx, employeeID)
	if err != nil {
		return timeentry.PunchDecision{}, fmt.Errorf("failed to check open time entry: %w", err)
	}
	if open != nil {
		return timeentry.RejectOpenEntry(*open, dealershipID), nil
	}

	check := schedule.ResolvePunchWindow(assignment.Template).Check(punchTime, assignment.Location())
	switch check.Verdict {
	case schedule.BeforeWindow:
		return timeentry.RejectTooEarlyAt(check.Earliest), nil
	case schedule.AfterWindow:
		return timeentry.RejectTooLateAt(check.Latest), nil
	}

	return timeentry.Allow(assignment.ID), nil
}

// PunchIn implements timeentry.PunchService.
func (s *PunchServiceImpl) PunchIn(ctx context.Context, req timeentry.PunchInRequest) (timeentry.PunchInResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.PunchInResponse{}, err
	}
	punchTime, err := s.resolvePunchTime(ctx, req.ActorID, req.DealershipID, req.PunchTime)
	if err != nil {
		return timeentry.PunchInResponse{}, err
	}

	var resp timeentry.PunchInResponse
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Held until commit, so a concurrent punch-in sees this entry as open.
		if err := s.TimeEntryRepository.LockEmployee(ctx, req.EmployeeID); err != nil {
			return fmt.Errorf("failed to lock employee: %w", err)
		}

		decision, err := s.decide(ctx, req.EmployeeID, req.DealershipID, punchTime)
		if err != nil {
			return err
		}
		resp.Decision = decision
		if !decision.Allowed {
			return nil
		}

		created, err := s.TimeEntryRepository.Create(ctx, timeentry.TimeEntry{
			ID:               uuid.Must(uuid.NewV7()).String(),
			EmployeeID:       req.EmployeeID,
			DealershipID:     req.DealershipID,
			AssignmentID:     decision.AssignmentID,
			ClockIn:          punchTime,
			Status:           timeentry.StatusActive,
			ClockInLatitude:  req.Latitude,
			ClockInLongitude: req.Longitude,
			KioskID:          req.KioskID,
			ApprovalStatus:   timeentry.ApprovalPending,
		})
		if err != nil {
			return fmt.Errorf("failed to create time entry: %w", err)
		}
		entry := timeentry.NewTimeEntryResponse(created)
		resp.TimeEntry = &entry
		return nil
	})
	if err != nil {
		return timeentry.PunchInResponse{}, err
	}

	if resp.Decision.Allowed {
		slog.Info("Punch in recorded", "employee_id", req.EmployeeID, "dealership_id", req.DealershipID, "time_entry_id", resp.TimeEntry.ID)
	} else {
		slog.Info("Punch in rejected", "employee_id", req.EmployeeID, "dealership_id", req.DealershipID, "code", resp.Decision.Code)
	}
	return resp, nil
}

// PunchOut implements timeentry.PunchService.
func (s *PunchServiceImpl) PunchOut(ctx context.Context, req timeentry.PunchOutRequest) (timeentry.TimeEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.TimeEntryResponse{}, err
	}
	var closed timeentry.TimeEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.TimeEntryRepository.LockEmployee(ctx, req.EmployeeID); err != nil {
			return fmt.Errorf("failed to lock employee: %w", err)
		}

		open, err := s.TimeEntryRepository.GetOpenByEmployee(ctx, req.EmployeeID)
		if err != nil {
			return fmt.Errorf("failed to get open time entry: %w", err)
		}
		if open == nil {
			return timeentry.ErrNoOpenTimeEntry
		}

		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, open.ID)
		if err != nil {
			return err
		}
		punchTime, err := s.resolvePunchTime(ctx, req.ActorID, entry.DealershipID, req.PunchTime)
		if err != nil {
			return err
		}
		if punchTime.Before(entry.ClockIn) {
			return timeentry.ErrClockOutBeforeIn
		}

		if err := s.breakService.CloseOpenBreaks(ctx, entry.ID, punchTime); err != nil {
			return err
		}

		ok, err := s.TimeEntryRepository.Close(ctx, entry.ID, timeentry.CloseParams{
			ClockOut:  punchTime,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if err != nil {
			return fmt.Errorf("failed to close time entry: %w", err)
		}
		if !ok {
			return timeentry.ErrTimeEntryNotOpen
		}

		closed, err = s.TimeEntryRepository.GetByID(ctx, entry.ID)
		return err
	})
	if err != nil {
		return timeentry.TimeEntryResponse{}, err
	}

	slog.Info("Punch out recorded", "employee_id", req.EmployeeID, "time_entry_id", closed.ID)

	if _, err := s.overtimeService.RecalculateForEntry(ctx, closed.EmployeeID, closed.DealershipID, closed.ClockIn); err != nil {
		slog.Error("Failed to recalculate weekly overtime after punch out", "time_entry_id", closed.ID, "error", err)
	}

	return timeentry.NewTimeEntryResponse(closed), nil
}

// resolvePunchTime returns the server clock. A requested time is honored only for
// actors who may manage timecards at the dealership.
func (s *PunchServiceImpl) resolvePunchTime(ctx context.Context, actorID, dealershipID string, requested *time.Time) (time.Time, error) {
	now := s.now().UTC()
	if requested == nil {
		return now, nil
	}
	if actorID != "" {
		err := s.authorizer.Authorize(ctx, actorID, dealershipID, identity.PermissionTimecardManage)
		if err == nil {
			return requested.UTC(), nil
		}
		if !errors.Is(err, identity.ErrNotPrivileged) {
			return time.Time{}, fmt.Errorf("failed to authorize punch time: %w", err)
		}
	}
	slog.Warn("Ignored requested punch time, using server clock", "actor_id", actorID, "dealership_id", dealershipID, "requested", requested.UTC())
	return now, nil
}

// DeleteTimeEntry implements timeentry.PunchService.
func (s *PunchServiceImpl) DeleteTimeEntry(ctx context.Context, id string, actorID string) error {
	entry, err := s.TimeEntryRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, actorID, entry.DealershipID, identity.PermissionTimecardManage); err != nil {
		return err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := s.TimeEntryRepository.SoftDelete(ctx, id, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to delete time entry: %w", err)
		}
		breaks, err := s.BreakRepository.DeleteByEntry(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete breaks: %w", err)
		}
		reminders, err := s.ReminderRepository.DeleteByEntry(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete reminder records: %w", err)
		}

		if !entry.IsOpen() {
			_, err := s.overtimeService.RecalculateForEntry(ctx, entry.EmployeeID, entry.DealershipID, entry.ClockIn)
			switch {
			case errors.Is(err, schedule.ErrDealershipNotFound):
				slog.Warn("Skipped overtime recalculation for deleted entry, dealership is gone", "time_entry_id", id)
			case err != nil:
				return fmt.Errorf("failed to recalculate weekly overtime: %w", err)
			}
		}

		slog.Info("Time entry deleted", "time_entry_id", id, "actor_id", actorID, "breaks", breaks, "reminders", reminders)
		return nil
	})
	return err
}

func NewPunchService(
	tx database.Transactor,
	timeEntryRepo timeentry.TimeEntryRepository,
	breakRepo timeentry.BreakRepository,
	assignmentRepo schedule.AssignmentRepository,
	reminderRepo overdue.ReminderRepository,
	breakService timeentry.BreakService,
	overtimeService overtime.OvertimeService,
	authorizer identity.Authorizer,
) timeentry.PunchService {
	return &PunchServiceImpl{
		tx:                   tx,
		TimeEntryRepository:  timeEntryRepo,
		BreakRepository:      breakRepo,
		AssignmentRepository: assignmentRepo,
		ReminderRepository:   reminderRepo,
		breakService:         breakService,
		overtimeService:      overtimeService,
		authorizer:           authorizer,
		now:                  time.Now,
	}
}
