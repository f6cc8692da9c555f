package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/hrm-service/internal/application"
)

func TestHandleServiceErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{application.ErrUnauthorized, http.StatusUnauthorized, "AUTH_UNAUTHORIZED"},
		{application.ErrInvalidCredentials, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS"},
		{application.ErrInvalidToken, http.StatusUnauthorized, "AUTH_INVALID_TOKEN"},
		{fmt.Errorf("%w: qr", application.ErrTokenExpired), http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED"},
		{application.ErrForbidden, http.StatusForbidden, "AUTH_FORBIDDEN"},
		{application.ErrAccountDisabled, http.StatusForbidden, "AUTH_ACCOUNT_DISABLED"},
		{fmt.Errorf("%w: task", application.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("%w: already checked in", application.ErrConflict), http.StatusConflict, "CONFLICT"},
		{application.ErrInvalidTransition, http.StatusBadRequest, "INVALID_TRANSITION"},
		{application.ErrInvalidState, http.StatusBadRequest, "INVALID_STATE"},
		{application.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},
		{errors.New("disk full"), http.StatusInternalServerError, "INTERNAL"},
	}

	r := newResponder(discardLogger())
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		r.handleServiceError(context.Background(), rec, tc.err)

		if rec.Code != tc.wantStatus {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.wantStatus, rec.Code)
			continue
		}
		body := decodeError(t, rec)
		if body.ErrorCode != tc.wantCode || body.Message == "" {
			t.Errorf("%v: unexpected body %+v", tc.err, body)
		}
	}
}

func TestHandleServiceErrorValidation(t *testing.T) {
	t.Parallel()

	vErr := &application.ValidationError{FieldErrors: map[string]string{
		"email":        "email is invalid",
		"password":     "password must be at least 6 characters",
		"priority":     "priority must be between 1 and 5",
		"assigneeIds":  "unknown employees: e-9",
		"custom_field": "left as is",
	}}

	rec := httptest.NewRecorder()
	newResponder(discardLogger()).handleServiceError(context.Background(), rec, fmt.Errorf("wrapped: %w", vErr))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.ErrorCode != "VALIDATION_FAILED" {
		t.Fatalf("unexpected error code %q", body.ErrorCode)
	}
	want := map[string]string{
		"email":        "Email không đúng định dạng.",
		"password":     "Mật khẩu phải có ít nhất 6 ký tự.",
		"priority":     "Độ ưu tiên phải nằm trong khoảng 1 đến 5.",
		"assigneeIds":  "Có mã nhân viên không tồn tại: e-9",
		"custom_field": "left as is",
	}
	for field, msg := range want {
		if body.Errors[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, body.Errors[field])
		}
	}
}

func TestWriteJSONNoContent(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newResponder(nil).writeJSON(context.Background(), rec, http.StatusNoContent, map[string]string{"ignored": "yes"})
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", rec.Code, rec.Body.String())
	}
}
