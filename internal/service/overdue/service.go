package overdue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Concurrency bounds how many dealerships RunAllSweeps processes at once.
	Concurrency int
	// LeaseTTL is how long a dealership sweep lease is held at most.
	LeaseTTL time.Duration
}

type OverdueServiceImpl struct {
	tx database.Transactor
	overdue.ReminderRepository
	timeentry.TimeEntryRepository
	schedule.DealershipRepository
	breakService    timeentry.BreakService
	overtimeService overtime.OvertimeService
	authorizer      identity.Authorizer
	dispatcher      overdue.Dispatcher
	locker          overdue.Locker
	cfg             Config
	now             func() time.Time
}

// FindOverduePunches implements overdue.OverdueService.
func (s *OverdueServiceImpl) FindOverduePunches(ctx context.Context, dealershipID string, now time.Time) ([]overdue.OverduePunch, error) {
	candidates, err := s.ReminderRepository.ListCandidates(ctx, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-close candidates: %w", err)
	}

	punches := make([]overdue.OverduePunch, 0, len(candidates))
	for _, c := range candidates {
		loc := schedule.LoadLocation(c.DealershipTimezone)
		shiftEnd, ok := c.Template.ShiftEndAfter(c.ClockIn, loc)
		if !ok {
			continue
		}

		minutesOverdue := int(math.Floor(now.Sub(shiftEnd).Minutes()))
		thresholds := overdue.ThresholdsFor(c.Template)
		action := overdue.DetermineAction(minutesOverdue, c.ReminderCount, thresholds)
		if action == overdue.ActionNone {
			continue
		}

		punches = append(punches, overdue.OverduePunch{
			TimeEntryID:    c.TimeEntryID,
			EmployeeID:     c.EmployeeID,
			DealershipID:   c.DealershipID,
			EmployeeName:   c.EmployeeName,
			EmployeePhone:  c.EmployeePhone,
			ClockIn:        c.ClockIn,
			ShiftEnd:       shiftEnd,
			MinutesOverdue: minutesOverdue,
			ReminderCount:  c.ReminderCount,
			Thresholds:     thresholds,
			Action:         action,
		})
	}
	return punches, nil
}

// ListOverduePunches implements overdue.OverdueService.
func (s *OverdueServiceImpl) ListOverduePunches(ctx context.Context, dealershipID, actorID string, now time.Time) ([]overdue.OverduePunch, error) {
	if err := s.authorizer.Authorize(ctx, actorID, dealershipID, identity.PermissionTimecardManage); err != nil {
		return nil, err
	}
	return s.FindOverduePunches(ctx, dealershipID, now)
}

// SweepDealership implements overdue.OverdueService.
func (s *OverdueServiceImpl) SweepDealership(ctx context.Context, dealershipID, actorID string) (overdue.SweepResult, error) {
	if err := s.authorizer.Authorize(ctx, actorID, dealershipID, identity.PermissionTimecardManage); err != nil {
		return overdue.SweepResult{}, err
	}
	slog.Info("Overdue sweep requested", "dealership_id", dealershipID, "actor_id", actorID)
	return s.RunSweep(ctx, dealershipID)
}

// RunSweep implements overdue.OverdueService.
func (s *OverdueServiceImpl) RunSweep(ctx context.Context, dealershipID string) (overdue.SweepResult, error) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, "overdue-sweep:"+dealershipID, s.cfg.LeaseTTL)
		switch {
		case err != nil:
			// Claims in the store still prevent double dispatch without the lease.
			slog.Warn("Sweep lease unavailable, continuing without it", "dealership_id", dealershipID, "error", err)
		case !ok:
			return overdue.SweepResult{}, overdue.ErrSweepInProgress
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("Failed to release sweep lease", "dealership_id", dealershipID, "error", err)
				}
			}()
		}
	}

	now := s.now().UTC()
	punches, err := s.FindOverduePunches(ctx, dealershipID, now)
	if err != nil {
		return overdue.SweepResult{}, err
	}

	result := overdue.SweepResult{Dealerships: 1, Detected: len(punches)}
	for _, p := range punches {
		var (
			acted bool
			err   error
		)
		switch p.Action {
		case overdue.ActionAutoClose:
			acted, err = s.CloseEntry(ctx, p, now)
		case overdue.ActionFirstReminder, overdue.ActionSecondReminder:
			acted, err = s.remind(ctx, p, now)
		}

		switch {
		case err != nil:
			result.Failed++
			slog.Error("Overdue sweep item failed",
				"dealership_id", dealershipID,
				"time_entry_id", p.TimeEntryID,
				"action", p.Action,
				"error", err,
			)
		case !acted:
			result.Skipped++
		case p.Action == overdue.ActionAutoClose:
			result.AutoClosed++
		default:
			result.Reminded++
		}
	}

	slog.Info("Overdue sweep finished",
		"dealership_id", dealershipID,
		"detected", result.Detected,
		"reminded", result.Reminded,
		"auto_closed", result.AutoClosed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// remind claims the stage and dispatches in one transaction. A stage someone else already
// claimed is skipped. A publish whose commit is lost is repeated by the next sweep with the
// same idempotency key, so delivery is at-least-once.
func (s *OverdueServiceImpl) remind(ctx context.Context, p overdue.OverduePunch, now time.Time) (bool, error) {
	var sent bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, p.TimeEntryID)
		if err != nil {
			return err
		}
		if !entry.IsOpen() {
			return nil
		}

		claimed, err := s.ReminderRepository.Claim(ctx, overdue.Reminder{
			ID:             uuid.Must(uuid.NewV7()).String(),
			TimeEntryID:    p.TimeEntryID,
			Stage:          p.Action,
			IdempotencyKey: overdue.IdempotencyKey(p.TimeEntryID, p.Action),
			MinutesOverdue: p.MinutesOverdue,
			SentAt:         now,
		})
		if err != nil {
			return fmt.Errorf("failed to claim reminder: %w", err)
		}
		if !claimed {
			return nil
		}

		if err := s.dispatcher.Dispatch(ctx, overdue.NewNotice(p, p.Action)); err != nil {
			return fmt.Errorf("failed to dispatch reminder: %w", err)
		}
		sent = true
		return nil
	})
	return sent, err
}

// CloseEntry implements overdue.OverdueService.
func (s *OverdueServiceImpl) CloseEntry(ctx context.Context, p overdue.OverduePunch, now time.Time) (bool, error) {
	closeAt := p.CloseAt()
	if closeAt.After(now) {
		closeAt = now
	}
	if closeAt.Before(p.ClockIn) {
		closeAt = p.ClockIn
	}

	var closed bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.TimeEntryRepository.GetByIDForUpdate(ctx, p.TimeEntryID)
		if err != nil {
			return err
		}
		if !entry.IsOpen() {
			return nil
		}

		if err := s.breakService.CloseOpenBreaks(ctx, entry.ID, closeAt); err != nil {
			return err
		}

		ok, err := s.TimeEntryRepository.Close(ctx, entry.ID, timeentry.CloseParams{ClockOut: closeAt, AutoClosed: true})
		if err != nil {
			return fmt.Errorf("failed to auto-close time entry: %w", err)
		}
		if !ok {
			return nil
		}

		if _, err := s.ReminderRepository.Claim(ctx, overdue.Reminder{
			ID:             uuid.Must(uuid.NewV7()).String(),
			TimeEntryID:    entry.ID,
			Stage:          overdue.ActionAutoClose,
			IdempotencyKey: overdue.IdempotencyKey(entry.ID, overdue.ActionAutoClose),
			MinutesOverdue: p.MinutesOverdue,
			SentAt:         now,
		}); err != nil {
			return fmt.Errorf("failed to record auto-close: %w", err)
		}
		closed = true
		return nil
	})
	if err != nil || !closed {
		return false, err
	}

	slog.Info("Time entry auto-closed", "time_entry_id", p.TimeEntryID, "employee_id", p.EmployeeID, "clock_out", closeAt, "minutes_overdue", p.MinutesOverdue)

	notice := overdue.NewNotice(p, overdue.ActionAutoClose)
	notice.ClosedAt = &closeAt
	if err := s.dispatcher.Dispatch(ctx, notice); err != nil {
		slog.Error("Failed to dispatch auto-close notice", "time_entry_id", p.TimeEntryID, "error", err)
	}

	if _, err := s.overtimeService.RecalculateForEntry(ctx, p.EmployeeID, p.DealershipID, p.ClockIn); err != nil {
		slog.Error("Failed to recalculate weekly overtime after auto-close", "time_entry_id", p.TimeEntryID, "error", err)
	}

	return true, nil
}

// RunAllSweeps implements overdue.OverdueService.
func (s *OverdueServiceImpl) RunAllSweeps(ctx context.Context) (overdue.SweepResult, error) {
	dealerships, err := s.DealershipRepository.ListWithOpenAutoCloseEntries(ctx)
	if err != nil {
		return overdue.SweepResult{}, fmt.Errorf("failed to list dealerships to sweep: %w", err)
	}

	var (
		g     errgroup.Group
		mu    sync.Mutex
		total overdue.SweepResult
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, id := range dealerships {
		g.Go(func() error {
			result, err := s.RunSweep(ctx, id)
			if err != nil {
				if errors.Is(err, overdue.ErrSweepInProgress) {
					slog.Info("Overdue sweep skipped, lease held elsewhere", "dealership_id", id)
				} else {
					slog.Error("Overdue sweep failed", "dealership_id", id, "error", err)
					result.Failed++
				}
			}
			mu.Lock()
			total.Merge(result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return total, ctx.Err()
}

func NewOverdueService(
	tx database.Transactor,
	reminderRepo overdue.ReminderRepository,
	timeEntryRepo timeentry.TimeEntryRepository,
	dealershipRepo schedule.DealershipRepository,
	breakService timeentry.BreakService,
	overtimeService overtime.OvertimeService,
	authorizer identity.Authorizer,
	dispatcher overdue.Dispatcher,
	locker overdue.Locker,
	cfg Config,
) overdue.OverdueService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	return &OverdueServiceImpl{
		tx:                   tx,
		ReminderRepository:   reminderRepo,
		TimeEntryRepository:  timeEntryRepo,
		DealershipRepository: dealershipRepo,
		breakService:         breakService,
		overtimeService:      overtimeService,
		authorizer:           authorizer,
		dispatcher:           dispatcher,
		locker:               locker,
		cfg:                  cfg,
		now:                  time.Now,
	}
}
