package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/hrm-service/internal/application"
)

type timekeepingService interface {
	CheckIn(ctx context.Context, principal application.Principal, params application.CheckInParams) (application.Timekeeping, error)
	CheckOut(ctx context.Context, principal application.Principal, params application.CheckOutParams) (application.Timekeeping, error)
	CheckInWithQR(ctx context.Context, principal application.Principal, token string) (application.Timekeeping, error)
	CheckOutWithQR(ctx context.Context, principal application.Principal, token string) (application.Timekeeping, error)
	ListTimekeeping(ctx context.Context, principal application.Principal, params application.TimekeepingListParams) ([]application.Timekeeping, error)
	GetTimekeeping(ctx context.Context, principal application.Principal, id string) (application.Timekeeping, error)
	UpdateNote(ctx context.Context, principal application.Principal, id, note string) (application.Timekeeping, error)
	DeleteTimekeeping(ctx context.Context, principal application.Principal, id string) error
}

type TimekeepingHandler struct {
	service   timekeepingService
	responder responder
	logger    *slog.Logger
}

func NewTimekeepingHandler(service timekeepingService, logger *slog.Logger) *TimekeepingHandler {
	base := defaultLogger(logger)
	return &TimekeepingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TimekeepingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TimekeepingHandler", operation, attrs...)
}

func (h *TimekeepingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CheckIn", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode check-in", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	h.record(w, r, http.StatusCreated, "CheckIn", func(ctx context.Context) (application.Timekeeping, error) {
		return h.service.CheckIn(ctx, principal, application.CheckInParams{
			EmployeeID: strings.TrimSpace(req.EmployeeID),
			ShiftID:    strings.TrimSpace(req.ShiftID),
			Note:       strings.TrimSpace(req.Note),
		})
	})
}

func (h *TimekeepingHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CheckOut", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode check-out", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	h.record(w, r, http.StatusOK, "CheckOut", func(ctx context.Context) (application.Timekeeping, error) {
		return h.service.CheckOut(ctx, principal, application.CheckOutParams{
			EmployeeID: strings.TrimSpace(req.EmployeeID),
			Note:       strings.TrimSpace(req.Note),
		})
	})
}

func (h *TimekeepingHandler) CheckInWithQR(w http.ResponseWriter, r *http.Request) {
	h.withQRToken(w, r, http.StatusCreated, "CheckInWithQR", func(ctx context.Context, principal application.Principal, token string) (application.Timekeeping, error) {
		return h.service.CheckInWithQR(ctx, principal, token)
	})
}

func (h *TimekeepingHandler) CheckOutWithQR(w http.ResponseWriter, r *http.Request) {
	h.withQRToken(w, r, http.StatusOK, "CheckOutWithQR", func(ctx context.Context, principal application.Principal, token string) (application.Timekeeping, error) {
		return h.service.CheckOutWithQR(ctx, principal, token)
	})
}

func (h *TimekeepingHandler) withQRToken(w http.ResponseWriter, r *http.Request, status int, operation string, apply func(context.Context, application.Principal, string) (application.Timekeeping, error)) {
	principal, _ := PrincipalFromContext(r.Context())
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		h.log(r.Context(), operation, "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing qr token")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingQRToken)
		return
	}

	h.record(w, r, status, operation, func(ctx context.Context) (application.Timekeeping, error) {
		return apply(ctx, principal, token)
	})
}

func (h *TimekeepingHandler) record(w http.ResponseWriter, r *http.Request, status int, operation string, apply func(context.Context) (application.Timekeeping, error)) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.EmployeeID)

	record, err := apply(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance operation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("timekeeping_id", record.ID, "is_late", record.IsLate, "is_early_leave", record.IsEarlyLeave).
		InfoContext(r.Context(), "attendance recorded")
	h.responder.writeJSON(r.Context(), w, status, timekeepingResponse{Timekeeping: toTimekeepingDTO(record)})
}

func (h *TimekeepingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.TimekeepingListParams{
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		From:       strings.TrimSpace(query.Get("from")),
		To:         strings.TrimSpace(query.Get("to")),
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.EmployeeID, "employee_id", params.EmployeeID)

	records, err := h.service.ListTimekeeping(r.Context(), principal, params)
	if err != nil {
		logger.ErrorContext(r.Context(), "timekeeping list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]timekeepingDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toTimekeepingDTO(record))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "timekeeping listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTimekeepingResponse{Timekeeping: out})
}

func (h *TimekeepingHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	record, err := h.service.GetTimekeeping(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "timekeeping_id", id).
			ErrorContext(r.Context(), "timekeeping lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, timekeepingResponse{Timekeeping: toTimekeepingDTO(record)})
}

func (h *TimekeepingHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateNote", "principal_id", principal.EmployeeID, "timekeeping_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode note", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateNote", "principal_id", principal.EmployeeID, "timekeeping_id", id)
	record, err := h.service.UpdateNote(r.Context(), principal, id, strings.TrimSpace(req.Note))
	if err != nil {
		logger.ErrorContext(r.Context(), "timekeeping note update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "timekeeping note updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, timekeepingResponse{Timekeeping: toTimekeepingDTO(record)})
}

func (h *TimekeepingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "timekeeping_id", id)

	if err := h.service.DeleteTimekeeping(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "timekeeping delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "timekeeping deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type attendanceRequest struct {
	EmployeeID string `json:"employeeId"`
	ShiftID    string `json:"shiftId"`
	Note       string `json:"note"`
}

type timekeepingResponse struct {
	Timekeeping timekeepingDTO `json:"timekeeping"`
}

type listTimekeepingResponse struct {
	Timekeeping []timekeepingDTO `json:"timekeeping"`
}

type timekeepingDTO struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employeeId"`
	ShiftID      string  `json:"shiftId"`
	WorkDate     string  `json:"workDate"`
	CheckIn      string  `json:"checkIn"`
	CheckOut     *string `json:"checkOut"`
	IsLate       bool    `json:"isLate"`
	IsEarlyLeave bool    `json:"isEarlyLeave"`
	Note         string  `json:"note,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toTimekeepingDTO(record application.Timekeeping) timekeepingDTO {
	return timekeepingDTO{
		ID:           record.ID,
		EmployeeID:   record.EmployeeID,
		ShiftID:      record.ShiftID,
		WorkDate:     record.WorkDate.Format(time.DateOnly),
		CheckIn:      record.CheckIn,
		CheckOut:     record.CheckOut,
		IsLate:       record.IsLate,
		IsEarlyLeave: record.IsEarlyLeave,
		Note:         record.Note,
		CreatedAt:    formatTime(record.CreatedAt),
		UpdatedAt:    formatTime(record.UpdatedAt),
	}
}
