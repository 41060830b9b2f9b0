package overtime

import "errors"

var (
	ErrInvalidWeekStart  = errors.New("week_start must be a date in YYYY-MM-DD format")
	ErrAggregateNotFound = errors.New("weekly aggregate not found")
)
