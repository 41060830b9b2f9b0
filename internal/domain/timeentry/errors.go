package timeentry

import "errors"

var (
	// Time entry errors
	ErrTimeEntryNotFound   = errors.New("time entry not found")
	ErrTimeEntryNotOpen    = errors.New("time entry is already closed")
	ErrNoOpenTimeEntry     = errors.New("no open time entry for this employee")
	ErrClockOutBeforeIn    = errors.New("clock out must not be before clock in")
	ErrEntryAlreadyDeleted = errors.New("time entry has already been deleted")

	// Break errors
	ErrBreakNotFound       = errors.New("break not found")
	ErrBreakAlreadyOpen    = errors.New("a break is already in progress for this time entry")
	ErrBreakAlreadyEnded   = errors.New("break has already ended")
	ErrBreakEndBeforeStart = errors.New("break end must not be before break start")
	ErrBreakBeforeClockIn  = errors.New("break cannot start before clock in")
	ErrBreakOverlaps       = errors.New("break cannot start before the previous break ended")
)
