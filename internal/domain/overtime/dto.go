package overtime

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

type RecalculateRequest struct {
	EmployeeID   string `json:"employee_id"`
	DealershipID string `json:"dealership_id"`
	WeekStart    string `json:"week_start"`

	weekStart time.Time
}

func (r *RecalculateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.DealershipID) {
		errs.Add("dealership_id", "dealership_id is required")
	}
	if d, ok := validator.IsValidDate(r.WeekStart); !ok {
		errs.Add("week_start", ErrInvalidWeekStart.Error())
	} else {
		r.weekStart = d
	}

	return errs.OrNil()
}

// WeekStartDate is the parsed week_start. Valid only after Validate succeeded.
func (r *RecalculateRequest) WeekStartDate() time.Time {
	return r.weekStart
}

type WeeklyHoursResponse struct {
	EmployeeID   string `json:"employee_id"`
	DealershipID string `json:"dealership_id"`
	WeekStart    string `json:"week_start"`
	WeeklyHours
	EntryCount int `json:"entry_count"`
}

type BackfillResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
