package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrWrongType):
		Unauthorized(w, err.Error())
	case errors.Is(err, identity.ErrNotPrivileged):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, timeentry.ErrTimeEntryNotFound):
		NotFound(w, "Time entry not found")
	case errors.Is(err, timeentry.ErrBreakNotFound):
		NotFound(w, "Break not found")
	case errors.Is(err, schedule.ErrAssignmentNotFound):
		NotFound(w, "Assignment not found")
	case errors.Is(err, schedule.ErrDealershipNotFound):
		NotFound(w, "Dealership not found")
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, overtime.ErrAggregateNotFound):
		NotFound(w, "Weekly aggregate not found")

	// State conflicts
	case errors.Is(err, timeentry.ErrTimeEntryNotOpen),
		errors.Is(err, timeentry.ErrNoOpenTimeEntry),
		errors.Is(err, timeentry.ErrEntryAlreadyDeleted),
		errors.Is(err, timeentry.ErrBreakAlreadyOpen),
		errors.Is(err, timeentry.ErrBreakAlreadyEnded),
		errors.Is(err, timeentry.ErrBreakOverlaps),
		errors.Is(err, approval.ErrEntryStillOpen),
		errors.Is(err, approval.ErrAlreadyProcessed),
		errors.Is(err, overdue.ErrSweepInProgress):
		Conflict(w, err.Error())

	// Rule violations
	case errors.Is(err, timeentry.ErrClockOutBeforeIn),
		errors.Is(err, timeentry.ErrBreakEndBeforeStart),
		errors.Is(err, timeentry.ErrBreakBeforeClockIn),
		errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, approval.ErrReasonRequired),
		errors.Is(err, overtime.ErrInvalidWeekStart):
		UnprocessableEntity(w, err.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
