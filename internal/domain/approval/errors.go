package approval

import "errors"

var (
	ErrEntryStillOpen    = errors.New("time entry must be clocked out before approval")
	ErrAlreadyProcessed  = errors.New("time entry has already been approved or rejected")
	ErrInvalidTransition = errors.New("approval status can only change to approved or rejected")
	ErrReasonRequired    = errors.New("a reason is required to reject a time entry")
)
