package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/logging"
)

var (
	errBadRequestBody  = errors.New("Định dạng yêu cầu không hợp lệ.")
	errMissingToken    = errors.New("Vui lòng cung cấp mã xác thực.")
	errMissingQRToken  = errors.New("Vui lòng cung cấp mã QR.")
	errInvalidBoolean  = errors.New("Giá trị isSummary phải là true hoặc false.")
	errInvalidDueDate  = errors.New("Hạn chót phải theo định dạng RFC3339 hoặc YYYY-MM-DD.")
	errInvalidBoolFlag = errors.New("Giá trị activeOnly phải là true hoặc false.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: statusErrorCode(status), Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "Dữ liệu đầu vào không hợp lệ.",
			Errors:    localizeValidationErrors(vErr),
		})
		return
	}

	status, code, message := classifyServiceError(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// classifyServiceError maps application sentinels to a status, a stable
// error code and a localized message.
func classifyServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "Email hoặc mật khẩu không đúng."
	case errors.Is(err, application.ErrTokenExpired):
		return http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED", "Mã xác thực đã hết hạn."
	case errors.Is(err, application.ErrInvalidToken):
		return http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "Mã xác thực không hợp lệ."
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, "AUTH_UNAUTHORIZED", "Bạn cần đăng nhập để thực hiện thao tác này."
	case errors.Is(err, application.ErrAccountDisabled):
		return http.StatusForbidden, "AUTH_ACCOUNT_DISABLED", "Tài khoản đã bị vô hiệu hóa."
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "AUTH_FORBIDDEN", "Bạn không có quyền thực hiện thao tác này."
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Không tìm thấy tài nguyên được yêu cầu."
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS", "Dữ liệu đã tồn tại."
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Yêu cầu xung đột với trạng thái hiện tại của tài nguyên."
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusBadRequest, "INVALID_TRANSITION", "Không thể chuyển sang trạng thái được yêu cầu."
	case errors.Is(err, application.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE", "Tài nguyên đang ở trạng thái không cho phép thao tác này."
	case errors.Is(err, application.ErrInvalidOTP):
		return http.StatusBadRequest, "INVALID_OTP", "Mã OTP không đúng hoặc đã hết hạn."
	default:
		return http.StatusInternalServerError, "INTERNAL", "Đã xảy ra lỗi máy chủ."
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Yêu cầu không hợp lệ."
	case http.StatusUnauthorized:
		return "Bạn cần đăng nhập để thực hiện thao tác này."
	case http.StatusForbidden:
		return "Bạn không có quyền thực hiện thao tác này."
	case http.StatusNotFound:
		return "Không tìm thấy tài nguyên được yêu cầu."
	case http.StatusConflict:
		return "Yêu cầu xung đột với trạng thái hiện tại của tài nguyên."
	default:
		return "Đã xảy ra lỗi máy chủ."
	}
}

func statusErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_UNAUTHORIZED"
	case http.StatusForbidden:
		return "AUTH_FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var validationMessages = map[string]string{
	"email is required":                    "Email là bắt buộc.",
	"email is invalid":                     "Email không đúng định dạng.",
	"full name is required":                "Họ tên là bắt buộc.",
	"name is required":                     "Tên là bắt buộc.",
	"name must be at most 100 characters":  "Tên không được vượt quá 100 ký tự.",
	"title is required":                    "Tiêu đề là bắt buộc.",
	"title must be at most 200 characters": "Tiêu đề không được vượt quá 200 ký tự.",
	"content is required":                  "Nội dung là bắt buộc.",
	"role must be ADMIN, MANAGER or USER":  "Vai trò phải là ADMIN, MANAGER hoặc USER.",
	"department is required":               "Phòng ban là bắt buộc.",
	"department is required for this role": "Vai trò này bắt buộc phải thuộc một phòng ban.",
	"department does not exist":            "Phòng ban không tồn tại.",
	"department is inactive":               "Phòng ban đã ngừng hoạt động.",
	"manager is required":                  "Quản lý dự án là bắt buộc.",
	"project is required":                  "Dự án là bắt buộc.",
	"task is required":                     "Công việc là bắt buộc.",
	"shift is required":                    "Ca làm việc là bắt buộc.",
	"status is invalid":                    "Trạng thái không hợp lệ.",
	"start time must use HH:mm":            "Giờ bắt đầu phải theo định dạng HH:mm.",
	"end time must use HH:mm":              "Giờ kết thúc phải theo định dạng HH:mm.",
	"end time must be after start time":    "Giờ kết thúc phải sau giờ bắt đầu.",
	"from must use YYYY-MM-DD":             "Ngày bắt đầu phải theo định dạng YYYY-MM-DD.",
	"to must use YYYY-MM-DD":               "Ngày kết thúc phải theo định dạng YYYY-MM-DD.",
	"type must be CHECKIN or CHECKOUT":     "Loại mã phải là CHECKIN hoặc CHECKOUT.",
	"at least one assignee is required":    "Cần ít nhất một người thực hiện.",
	"at least one member is required":      "Cần ít nhất một thành viên.",
}

func translateValidationMessage(message string) string {
	if translated, ok := validationMessages[message]; ok {
		return translated
	}

	var n, lo, hi int
	switch {
	case strings.HasPrefix(message, "unknown employees:"):
		return "Có mã nhân viên không tồn tại: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown employees:"))
	case scan(message, "password must be at least %d characters", &n):
		return fmt.Sprintf("Mật khẩu phải có ít nhất %d ký tự.", n)
	case scan(message, "priority must be between %d and %d", &lo, &hi):
		return fmt.Sprintf("Độ ưu tiên phải nằm trong khoảng %d đến %d.", lo, hi)
	}
	return message
}

func scan(message, format string, args ...any) bool {
	count, err := fmt.Sscanf(message, format, args...)
	return err == nil && count == len(args)
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
