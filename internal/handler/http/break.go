package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type BreakHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	End(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type breakHandlerImpl struct {
	breakService timeentry.BreakService
}

func NewBreakHandler(breakService timeentry.BreakService) BreakHandler {
	return &breakHandlerImpl{
		breakService: breakService,
	}
}

// Start implements BreakHandler.
func (h *breakHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req timeentry.StartBreakRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TimeEntryID = chi.URLParam(r, "id")
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.ActorID = actor

	result, err := h.breakService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Break started", result)
}

// End implements BreakHandler.
func (h *breakHandlerImpl) End(w http.ResponseWriter, r *http.Request) {
	var req timeentry.EndBreakRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.BreakID = chi.URLParam(r, "id")
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.ActorID = actor

	result, err := h.breakService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Break ended"
	if result.BelowRequiredMinimum {
		message = "Break ended below the required minimum"
	}
	response.SuccessWithMessage(w, message, result)
}

// Delete implements BreakHandler.
func (h *breakHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.breakService.DeleteBreak(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break deleted successfully", nil)
}

// decodeOptional decodes a JSON body that may be empty.
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
