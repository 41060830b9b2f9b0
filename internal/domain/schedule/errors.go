package schedule

import "errors"

var (
	ErrAssignmentNotFound      = errors.New("assignment not found")
	ErrDealershipNotFound      = errors.New("dealership not found")
	ErrInvalidScheduleTemplate = errors.New("invalid schedule template")
)
