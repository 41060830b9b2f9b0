package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
)

type PunchHandler interface {
	Validate(w http.ResponseWriter, r *http.Request)
	PunchIn(w http.ResponseWriter, r *http.Request)
	PunchOut(w http.ResponseWriter, r *http.Request)
}

type punchHandlerImpl struct {
	punchService timeentry.PunchService
}

func NewPunchHandler(punchService timeentry.PunchService) PunchHandler {
	return &punchHandlerImpl{
		punchService: punchService,
	}
}

// Validate implements PunchHandler.
func (h *punchHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	var req timeentry.PunchInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	employeeID, err := punchingEmployee(r, req.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.EmployeeID = employeeID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	punchTime := time.Now()
	if req.PunchTime != nil {
		punchTime = *req.PunchTime
	}

	decision, err := h.punchService.ValidatePunchIn(r.Context(), req.EmployeeID, req.DealershipID, punchTime)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, decision)
}

// PunchIn implements PunchHandler.
func (h *punchHandlerImpl) PunchIn(w http.ResponseWriter, r *http.Request) {
	var req timeentry.PunchInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	employeeID, err := punchingEmployee(r, req.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.EmployeeID = employeeID
	if req.ActorID, err = actorID(r); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.punchService.PunchIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if !result.Decision.Allowed {
		response.SuccessWithMessage(w, "Punch-in rejected", result)
		return
	}
	response.Created(w, "Clocked in successfully", result)
}

// PunchOut implements PunchHandler.
func (h *punchHandlerImpl) PunchOut(w http.ResponseWriter, r *http.Request) {
	var req timeentry.PunchOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	employeeID, err := punchingEmployee(r, req.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.EmployeeID = employeeID
	if req.ActorID, err = actorID(r); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.punchService.PunchOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out successfully", result)
}

// punchingEmployee resolves whose punch this is. Without an explicit employee the caller
// punches for themselves; punching for someone else needs the punch_others permission.
func punchingEmployee(r *http.Request, requested string) (string, error) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return "", jwt.ErrInvalidToken
	}
	if requested == "" || requested == claims.EmployeeID {
		return claims.EmployeeID, nil
	}
	if !identity.HasPermission(claims.Role, identity.PermissionPunchOthers) {
		return "", identity.ErrNotPrivileged
	}
	return requested, nil
}

func actorID(r *http.Request) (string, error) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return "", jwt.ErrInvalidToken
	}
	return claims.ActorID, nil
}
