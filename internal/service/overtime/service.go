package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type Config struct {
	WeeklyThresholdHours decimal.Decimal
	WeekStartDay         time.Weekday
}

type OvertimeServiceImpl struct {
	tx database.Transactor
	overtime.WeeklyAggregateRepository
	schedule.DealershipRepository
	authorizer identity.Authorizer
	cfg        Config
	now        func() time.Time
}

// RecalculateWeeklyOvertime implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) RecalculateWeeklyOvertime(ctx context.Context, employeeID string, weekStart time.Time, dealershipID string) (overtime.WeeklyHours, error) {
	loc, err := s.dealershipLocation(ctx, dealershipID)
	if err != nil {
		return overtime.WeeklyHours{}, err
	}
	agg, err := s.recalculate(ctx, employeeID, dealershipID, weekStart, loc)
	if err != nil {
		return overtime.WeeklyHours{}, err
	}
	return hoursOf(agg), nil
}

// RecalculateForEntry implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) RecalculateForEntry(ctx context.Context, employeeID, dealershipID string, clockIn time.Time) (overtime.WeeklyHours, error) {
	loc, err := s.dealershipLocation(ctx, dealershipID)
	if err != nil {
		return overtime.WeeklyHours{}, err
	}
	weekStart := overtime.WeekStartFor(clockIn, loc, s.cfg.WeekStartDay)
	agg, err := s.recalculate(ctx, employeeID, dealershipID, weekStart, loc)
	if err != nil {
		return overtime.WeeklyHours{}, err
	}
	return hoursOf(agg), nil
}

// Recalculate implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Recalculate(ctx context.Context, req overtime.RecalculateRequest, actorID string) (overtime.WeeklyHoursResponse, error) {
	if err := req.Validate(); err != nil {
		return overtime.WeeklyHoursResponse{}, err
	}
	if err := s.authorizer.Authorize(ctx, actorID, req.DealershipID, identity.PermissionOvertimeRecalculate); err != nil {
		return overtime.WeeklyHoursResponse{}, err
	}

	loc, err := s.dealershipLocation(ctx, req.DealershipID)
	if err != nil {
		return overtime.WeeklyHoursResponse{}, err
	}
	agg, err := s.recalculate(ctx, req.EmployeeID, req.DealershipID, req.WeekStartDate(), loc)
	if err != nil {
		return overtime.WeeklyHoursResponse{}, err
	}

	return overtime.WeeklyHoursResponse{
		EmployeeID:   agg.EmployeeID,
		DealershipID: agg.DealershipID,
		WeekStart:    agg.WeekStart.Format("2006-01-02"),
		WeeklyHours:  hoursOf(agg),
		EntryCount:   agg.EntryCount,
	}, nil
}

// Backfill implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Backfill(ctx context.Context) (overtime.BackfillResult, error) {
	refs, err := s.WeeklyAggregateRepository.ListClosedEntryRefs(ctx)
	if err != nil {
		return overtime.BackfillResult{}, fmt.Errorf("failed to list closed entries: %w", err)
	}

	type week struct {
		key overtime.WeekKey
		loc *time.Location
	}
	seen := make(map[string]bool)
	var weeks []week
	for _, ref := range refs {
		loc := schedule.LoadLocation(ref.DealershipTimezone)
		key := overtime.WeekKey{
			EmployeeID:   ref.EmployeeID,
			DealershipID: ref.DealershipID,
			WeekStart:    overtime.WeekStartFor(ref.ClockIn, loc, s.cfg.WeekStartDay),
		}
		if seen[key.LockKey()] {
			continue
		}
		seen[key.LockKey()] = true
		weeks = append(weeks, week{key: key, loc: loc})
	}

	slog.Info("Overtime backfill started", "weeks", len(weeks))

	var result overtime.BackfillResult
	for _, w := range weeks {
		if err := ctx.Err(); err != nil {
			slog.Warn("Overtime backfill interrupted", "processed", result.Processed, "failed", result.Failed)
			return result, err
		}
		if _, err := s.recalculate(ctx, w.key.EmployeeID, w.key.DealershipID, w.key.WeekStart, w.loc); err != nil {
			result.Failed++
			slog.Error("Overtime backfill week failed",
				"employee_id", w.key.EmployeeID,
				"dealership_id", w.key.DealershipID,
				"week_start", w.key.WeekStart.Format("2006-01-02"),
				"error", err,
			)
			continue
		}
		result.Processed++
	}

	slog.Info("Overtime backfill finished", "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

// recalculate accepts any day of the week and rolls it back to the configured week start,
// so one week always maps to one aggregate row.
func (s *OvertimeServiceImpl) recalculate(ctx context.Context, employeeID, dealershipID string, weekStart time.Time, loc *time.Location) (overtime.WeeklyAggregate, error) {
	midday := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 12, 0, 0, 0, loc)
	from, to := overtime.WeekBounds(overtime.WeekStartFor(midday, loc, s.cfg.WeekStartDay), loc)
	key := overtime.WeekKey{
		EmployeeID:   employeeID,
		DealershipID: dealershipID,
		WeekStart:    time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC),
	}

	var stored overtime.WeeklyAggregate
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.WeeklyAggregateRepository.LockWeek(ctx, key); err != nil {
			return fmt.Errorf("failed to lock week %s: %w", key.LockKey(), err)
		}

		entries, err := s.WeeklyAggregateRepository.ListWorkedEntries(ctx, employeeID, dealershipID, from, to)
		if err != nil {
			return fmt.Errorf("failed to list worked entries: %w", err)
		}

		var worked time.Duration
		for _, e := range entries {
			worked += overtime.WorkedDuration(e)
		}
		hours := overtime.SplitWeeklyHours(worked, s.cfg.WeeklyThresholdHours)

		stored, err = s.WeeklyAggregateRepository.Upsert(ctx, overtime.WeeklyAggregate{
			EmployeeID:    key.EmployeeID,
			DealershipID:  key.DealershipID,
			WeekStart:     key.WeekStart,
			TotalHours:    hours.TotalHours,
			RegularHours:  hours.RegularHours,
			OvertimeHours: hours.OvertimeHours,
			EntryCount:    len(entries),
			ComputedAt:    s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to upsert weekly aggregate: %w", err)
		}
		return nil
	})
	if err != nil {
		return overtime.WeeklyAggregate{}, err
	}
	return stored, nil
}

func (s *OvertimeServiceImpl) dealershipLocation(ctx context.Context, dealershipID string) (*time.Location, error) {
	d, err := s.DealershipRepository.GetByID(ctx, dealershipID)
	if err != nil {
		return nil, err
	}
	return schedule.LoadLocation(d.Timezone), nil
}

func hoursOf(agg overtime.WeeklyAggregate) overtime.WeeklyHours {
	return overtime.WeeklyHours{
		TotalHours:    agg.TotalHours,
		RegularHours:  agg.RegularHours,
		OvertimeHours: agg.OvertimeHours,
	}
}

func NewOvertimeService(
	tx database.Transactor,
	aggregateRepo overtime.WeeklyAggregateRepository,
	dealershipRepo schedule.DealershipRepository,
	authorizer identity.Authorizer,
	cfg Config,
) overtime.OvertimeService {
	if cfg.WeeklyThresholdHours.IsZero() {
		cfg.WeeklyThresholdHours = overtime.DefaultWeeklyThresholdHours
	}
	return &OvertimeServiceImpl{
		tx:                        tx,
		WeeklyAggregateRepository: aggregateRepo,
		DealershipRepository:      dealershipRepo,
		authorizer:                authorizer,
		cfg:                       cfg,
		now:                       time.Now,
	}
}
