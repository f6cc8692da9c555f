package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// QRRenderer renders content as a PNG image.
type QRRenderer func(content string) ([]byte, error)

// GenerateQRParams captures a QR token request.
type GenerateQRParams struct {
	ShiftID string
	Type    string
}

// QRCode is an issued attendance token with its rendered image.
type QRCode struct {
	Token        string
	Type         string
	DepartmentID string
	ShiftID      string
	ExpiresAt    time.Time
	PNG          []byte
}

// QRService issues attendance QR tokens for department kiosks.
type QRService struct {
	shifts ShiftRepository
	tokens *TokenManager
	render QRRenderer
	logger *slog.Logger
}

// NewQRService constructs a QR service. A nil renderer yields tokens without images.
func NewQRService(shifts ShiftRepository, tokens *TokenManager, render QRRenderer) *QRService {
	return NewQRServiceWithLogger(shifts, tokens, render, nil)
}

// NewQRServiceWithLogger constructs a QR service with a specified logger.
func NewQRServiceWithLogger(shifts ShiftRepository, tokens *TokenManager, render QRRenderer, logger *slog.Logger) *QRService {
	return &QRService{shifts: shifts, tokens: tokens, render: render, logger: defaultLogger(logger)}
}

// Generate issues a token bound to the manager's department, the shift and
// the operation type. Only managers may generate tokens.
func (s *QRService) Generate(ctx context.Context, principal Principal, params GenerateQRParams) (code QRCode, err error) {
	if s == nil || s.shifts == nil || s.tokens == nil {
		err = fmt.Errorf("QRService is not configured")
		return
	}

	operation := strings.ToUpper(strings.TrimSpace(params.Type))
	logger := serviceLogger(ctx, s.logger, "QRService", "Generate", "principal_id", principal.EmployeeID, "shift_id", params.ShiftID, "type", operation)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate qr token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("expires_at", code.ExpiresAt).InfoContext(ctx, "qr token generated")
	}()

	if !principal.IsManager() || principal.DepartmentID == "" {
		err = fmt.Errorf("%w: only managers generate attendance codes", ErrForbidden)
		return
	}

	vErr := &ValidationError{}
	if operation != AttendanceCheckIn && operation != AttendanceCheckOut {
		vErr.add("type", "type must be CHECKIN or CHECKOUT")
	}
	if strings.TrimSpace(params.ShiftID) == "" {
		vErr.add("shiftId", "shift is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var shift Shift
	shift, err = s.shifts.GetShift(ctx, strings.TrimSpace(params.ShiftID))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !shift.IsActive {
		err = fmt.Errorf("%w: shift is inactive", ErrInvalidState)
		return
	}
	if !canViewShift(principal, shift) {
		err = ErrForbidden
		return
	}

	code = QRCode{
		Type:         operation,
		DepartmentID: principal.DepartmentID,
		ShiftID:      shift.ID,
	}
	code.Token, code.ExpiresAt, err = s.tokens.IssueQRToken(principal.DepartmentID, shift.ID, operation)
	if err != nil {
		return
	}

	if s.render != nil {
		code.PNG, err = s.render(code.Token)
		if err != nil {
			err = fmt.Errorf("render qr image: %w", err)
			return
		}
	}
	return
}
