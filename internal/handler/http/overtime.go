package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overtime"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
)

type OvertimeHandler interface {
	Recalculate(w http.ResponseWriter, r *http.Request)
	Backfill(w http.ResponseWriter, r *http.Request)
}

type overtimeHandlerImpl struct {
	overtimeService overtime.OvertimeService
}

func NewOvertimeHandler(overtimeService overtime.OvertimeService) OvertimeHandler {
	return &overtimeHandlerImpl{
		overtimeService: overtimeService,
	}
}

// Recalculate implements OvertimeHandler.
func (h *overtimeHandlerImpl) Recalculate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req overtime.RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.overtimeService.Recalculate(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Weekly overtime recalculated", result)
}

// Backfill implements OvertimeHandler. Access is gated by the route's permission check.
func (h *overtimeHandlerImpl) Backfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.overtimeService.Backfill(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Overtime backfill finished", result)
}
