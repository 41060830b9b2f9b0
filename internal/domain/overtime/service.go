package overtime

import (
	"context"
	"time"
)

type OvertimeService interface {
	// RecalculateWeeklyOvertime recomputes and stores one employee-week. Repeating the call
	// with the same inputs stores the same result.
	RecalculateWeeklyOvertime(ctx context.Context, employeeID string, weekStart time.Time, dealershipID string) (WeeklyHours, error)

	// RecalculateForEntry recomputes the week that contains clockIn in the dealership's zone.
	RecalculateForEntry(ctx context.Context, employeeID, dealershipID string, clockIn time.Time) (WeeklyHours, error)

	// Recalculate serves the administrative endpoint.
	Recalculate(ctx context.Context, req RecalculateRequest, actorID string) (WeeklyHoursResponse, error)

	// Backfill recomputes every employee-week that has a closed entry. A failing week is
	// logged and counted; the rest still run.
	Backfill(ctx context.Context) (BackfillResult, error)
}
