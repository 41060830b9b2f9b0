package overdue

import "errors"

var (
	ErrSweepInProgress = errors.New("an overdue sweep is already running for this dealership")
)
