package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type OverdueHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Sweep(w http.ResponseWriter, r *http.Request)
}

type overdueHandlerImpl struct {
	overdueService overdue.OverdueService
}

func NewOverdueHandler(overdueService overdue.OverdueService) OverdueHandler {
	return &overdueHandlerImpl{
		overdueService: overdueService,
	}
}

// List implements OverdueHandler. An optional "at" query parameter (RFC 3339) evaluates
// the punches as of that instant instead of now.
func (h *overdueHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	dealershipID := chi.URLParam(r, "id")
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, ok := validator.IsValidDateTime(raw)
		if !ok {
			var errs validator.ValidationErrors
			errs.Add("at", "at must be an RFC 3339 timestamp")
			response.HandleError(w, errs)
			return
		}
		at = parsed
	}

	punches, err := h.overdueService.ListOverduePunches(r.Context(), dealershipID, actor, at)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, punches, &response.Meta{TotalItems: int64(len(punches))})
}

// Sweep implements OverdueHandler.
func (h *overdueHandlerImpl) Sweep(w http.ResponseWriter, r *http.Request) {
	dealershipID := chi.URLParam(r, "id")
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.overdueService.SweepDealership(r.Context(), dealershipID, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Overdue sweep finished", result)
}
