package timeentry

import (
	"context"
	"time"
)

// PunchService validates and records punches.
type PunchService interface {
	// ValidatePunchIn decides whether a punch-in would be allowed without recording anything.
	ValidatePunchIn(ctx context.Context, employeeID, dealershipID string, punchTime time.Time) (PunchDecision, error)

	// PunchIn re-runs the validation and creates the entry atomically when allowed.
	PunchIn(ctx context.Context, req PunchInRequest) (PunchInResponse, error)

	PunchOut(ctx context.Context, req PunchOutRequest) (TimeEntryResponse, error)

	// DeleteTimeEntry soft deletes an entry together with its breaks and reminder records.
	DeleteTimeEntry(ctx context.Context, id string, actorID string) error
}

type BreakService interface {
	StartBreak(ctx context.Context, req StartBreakRequest) (BreakResponse, error)
	EndBreak(ctx context.Context, req EndBreakRequest) (EndBreakResponse, error)
	DeleteBreak(ctx context.Context, breakID string, actorID string) error

	// CloseOpenBreaks ends any open break of the entry at the given time and refreshes
	// the entry's break total. Used when the entry itself is being closed.
	CloseOpenBreaks(ctx context.Context, timeEntryID string, at time.Time) error
}
