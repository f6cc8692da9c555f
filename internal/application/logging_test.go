package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/hrm-service/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var captured []string
	handler := &recordingHandler{messages: &captured}
	ctxLogger := slog.New(handler)
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)
	serviceLogger(ctx, base, "TaskService", "ChangeStatus").Info("hello")

	if len(captured) != 1 || captured[0] != "hello" {
		t.Fatalf("expected context logger to receive the record, got %v", captured)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrForbidden, "forbidden"},
		{fmt.Errorf("wrap: %w", ErrInvalidTransition), "invalid_transition"},
		{ErrInvalidState, "invalid_state"},
		{ErrTokenExpired, "token_expired"},
		{ErrInvalidOTP, "invalid_otp"},
		{newValidationError("title", "required"), "validation"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type recordingHandler struct {
	messages *[]string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.messages = append(*h.messages, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
