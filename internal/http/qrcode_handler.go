package http

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type qrService interface {
	Generate(ctx context.Context, principal application.Principal, params application.GenerateQRParams) (application.QRCode, error)
}

type QRCodeHandler struct {
	service   qrService
	responder responder
	logger    *slog.Logger
}

func NewQRCodeHandler(service qrService, logger *slog.Logger) *QRCodeHandler {
	base := defaultLogger(logger)
	return &QRCodeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req generateQRRequest
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "QRCodeHandler", "Generate", "principal_id", principal.EmployeeID, "error_kind", "bad_request").
			ErrorContext(r.Context(), "failed to decode qr request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.GenerateQRParams{
		ShiftID: strings.TrimSpace(req.ShiftID),
		Type:    strings.ToUpper(strings.TrimSpace(req.Type)),
	}
	logger := handlerLogger(r.Context(), h.logger, "QRCodeHandler", "Generate", "principal_id", principal.EmployeeID, "shift_id", params.ShiftID, "type", params.Type)

	code, err := h.service.Generate(r.Context(), principal, params)
	if err != nil {
		logger.ErrorContext(r.Context(), "qr generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "qr code issued")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, qrCodeResponse{
		Token:        code.Token,
		Type:         code.Type,
		DepartmentID: code.DepartmentID,
		ShiftID:      code.ShiftID,
		ExpiresAt:    formatTime(code.ExpiresAt),
		Image:        "data:image/png;base64," + base64.StdEncoding.EncodeToString(code.PNG),
	})
}

type generateQRRequest struct {
	ShiftID string `json:"shiftId"`
	Type    string `json:"type"`
}

type qrCodeResponse struct {
	Token        string `json:"token"`
	Type         string `json:"type"`
	DepartmentID string `json:"departmentId"`
	ShiftID      string `json:"shiftId"`
	ExpiresAt    string `json:"expiresAt"`
	Image        string `json:"image"`
}
