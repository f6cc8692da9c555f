package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type shiftService interface {
	CreateShift(ctx context.Context, principal application.Principal, input application.ShiftInput) (application.Shift, error)
	GetShift(ctx context.Context, principal application.Principal, id string) (application.Shift, error)
	ListShifts(ctx context.Context, principal application.Principal, activeOnly bool) ([]application.Shift, error)
	UpdateShift(ctx context.Context, principal application.Principal, id string, input application.ShiftInput) (application.Shift, error)
	DeleteShift(ctx context.Context, principal application.Principal, id string) error
}

type ShiftHandler struct {
	service   shiftService
	responder responder
	logger    *slog.Logger
}

func NewShiftHandler(service shiftService, logger *slog.Logger) *ShiftHandler {
	base := defaultLogger(logger)
	return &ShiftHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ShiftHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ShiftHandler", operation, attrs...)
}

func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req shiftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID)
	shift, err := h.service.CreateShift(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "shift creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("shift_id", shift.ID).InfoContext(r.Context(), "shift created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, shiftResponse{Shift: toShiftDTO(shift)})
}

func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	shift, err := h.service.GetShift(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "shift_id", id).
			ErrorContext(r.Context(), "shift lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, shiftResponse{Shift: toShiftDTO(shift)})
}

func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	activeOnly, err := optionalBool(r.URL.Query().Get("activeOnly"))
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid activeOnly flag", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBoolFlag)
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.EmployeeID)
	shifts, err := h.service.ListShifts(r.Context(), principal, activeOnly != nil && *activeOnly)
	if err != nil {
		logger.ErrorContext(r.Context(), "shift list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]shiftDTO, 0, len(shifts))
	for _, shift := range shifts {
		out = append(out, toShiftDTO(shift))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "shifts listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listShiftsResponse{Shifts: out})
}

func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req shiftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "shift_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "shift_id", id)
	shift, err := h.service.UpdateShift(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "shift update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, shiftResponse{Shift: toShiftDTO(shift)})
}

func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "shift_id", id)

	if err := h.service.DeleteShift(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "shift delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type shiftRequest struct {
	Name         string  `json:"name"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	DepartmentID *string `json:"departmentId"`
	IsActive     *bool   `json:"isActive"`
}

func (r shiftRequest) toInput() application.ShiftInput {
	return application.ShiftInput{
		Name:         strings.TrimSpace(r.Name),
		StartTime:    strings.TrimSpace(r.StartTime),
		EndTime:      strings.TrimSpace(r.EndTime),
		DepartmentID: trimmedPtr(r.DepartmentID),
		IsActive:     r.IsActive,
	}
}

type shiftResponse struct {
	Shift shiftDTO `json:"shift"`
}

type listShiftsResponse struct {
	Shifts []shiftDTO `json:"shifts"`
}

type shiftDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	DepartmentID *string `json:"departmentId"`
	IsActive     bool    `json:"isActive"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toShiftDTO(shift application.Shift) shiftDTO {
	return shiftDTO{
		ID:           shift.ID,
		Name:         shift.Name,
		StartTime:    shift.StartTime,
		EndTime:      shift.EndTime,
		DepartmentID: shift.DepartmentID,
		IsActive:     shift.IsActive,
		CreatedAt:    formatTime(shift.CreatedAt),
		UpdatedAt:    formatTime(shift.UpdatedAt),
	}
}
