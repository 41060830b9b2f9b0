package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/approval"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type TimeEntryHandler interface {
	Delete(w http.ResponseWriter, r *http.Request)
	SetApproval(w http.ResponseWriter, r *http.Request)
	ListApprovalAudit(w http.ResponseWriter, r *http.Request)
}

type timeEntryHandlerImpl struct {
	punchService    timeentry.PunchService
	approvalService approval.ApprovalService
}

func NewTimeEntryHandler(punchService timeentry.PunchService, approvalService approval.ApprovalService) TimeEntryHandler {
	return &timeEntryHandlerImpl{
		punchService:    punchService,
		approvalService: approvalService,
	}
}

// Delete implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.punchService.DeleteTimeEntry(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time entry deleted successfully", nil)
}

// SetApproval implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) SetApproval(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req approval.SetApprovalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TimeEntryID = chi.URLParam(r, "id")
	req.ActorID = actor

	result, err := h.approvalService.SetApprovalStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time entry "+result.NewStatus, result)
}

// ListApprovalAudit implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) ListApprovalAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	records, err := h.approvalService.ListApprovalAudit(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, records, &response.Meta{TotalItems: int64(len(records))})
}
