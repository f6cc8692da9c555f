package http

import (
	"net/http"
	"testing"

	"github.com/example/hrm-service/internal/application"
)

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	var got application.LoginParams
	auth := &stubAuthService{login: func(params application.LoginParams) (application.LoginResult, error) {
		got = params
		if params.Password != "secret1" {
			return application.LoginResult{}, application.ErrInvalidCredentials
		}
		return application.LoginResult{
			Token:     "jwt",
			ExpiresAt: fixedTime,
			Employee:  application.Employee{ID: "ann", Email: params.Email, Role: application.RoleUser, IsActive: true},
		}, nil
	}}
	router := newTestRouter(RouterConfig{Auth: NewAuthHandler(auth, discardLogger())})

	rec := do(t, router, http.MethodPost, "/auth/login", "", `{"email":"  Ann@Example.com ","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Email != "ann@example.com" {
		t.Fatalf("expected normalized email, got %q", got.Email)
	}
	var body loginResponse
	decodeBody(t, rec, &body)
	if body.AccessToken != "jwt" || body.TokenType != "Bearer" || body.Employee.ID != "ann" || body.ExpiresAt != "2024-03-04T01:30:00Z" {
		t.Fatalf("unexpected login body %+v", body)
	}

	rec = do(t, router, http.MethodPost, "/auth/login", "", `{"email":"ann@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
		t.Fatalf("unexpected error body %+v", body)
	}

	rec = do(t, router, http.MethodPost, "/auth/login", "", `{"email":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != errBadRequestBody.Error() {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestAuthHandlerAccountFlows(t *testing.T) {
	t.Parallel()

	var (
		registered application.RegisterParams
		changed    [2]string
		reset      [2]string
		forgotFor  string
	)
	auth := &stubAuthService{
		register: func(params application.RegisterParams) (application.Employee, error) {
			registered = params
			return application.Employee{ID: "new", FullName: params.FullName, Email: params.Email, Role: application.RoleUser, IsActive: true}, nil
		},
		changePassword: func(p application.Principal, current, next string) error {
			if p.EmployeeID != "ann" {
				return application.ErrUnauthorized
			}
			changed = [2]string{current, next}
			return nil
		},
		forgot: func(email string) error {
			forgotFor = email
			if email == "not-an-email" {
				return &application.ValidationError{FieldErrors: map[string]string{"email": "invalid"}}
			}
			return nil
		},
		reset: func(email, code string) error {
			reset = [2]string{email, code}
			if code != "123456" {
				return application.ErrInvalidOTP
			}
			return nil
		},
	}
	router := newTestRouter(RouterConfig{Auth: NewAuthHandler(auth, discardLogger())})

	rec := do(t, router, http.MethodPost, "/auth/register", "", `{"fullName":" Ann Tran ","email":"ann@example.com","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created employeeResponse
	decodeBody(t, rec, &created)
	if registered.FullName != "Ann Tran" || created.Employee.Role != "USER" {
		t.Fatalf("unexpected registration %+v / %+v", registered, created)
	}

	rec = do(t, router, http.MethodGet, "/auth/profile", "user", "")
	var profile employeeResponse
	decodeBody(t, rec, &profile)
	if rec.Code != http.StatusOK || profile.Employee.ID != "ann" {
		t.Fatalf("unexpected profile response %d %+v", rec.Code, profile)
	}

	rec = do(t, router, http.MethodPost, "/auth/change-password", "user", `{"currentPassword":"old-pass","newPassword":"new-pass"}`)
	if rec.Code != http.StatusOK || changed != [2]string{"old-pass", "new-pass"} {
		t.Fatalf("unexpected password change %d %v", rec.Code, changed)
	}

	if rec := do(t, router, http.MethodPost, "/auth/forgot-password", "", `{"email":"ghost@example.com"}`); rec.Code != http.StatusOK || forgotFor != "ghost@example.com" {
		t.Fatalf("expected 200 for any well-formed email, got %d for %q", rec.Code, forgotFor)
	}
	if rec := do(t, router, http.MethodPost, "/auth/forgot-password", "", `{"email":"not-an-email"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/auth/verify-otp", "", `{"email":"ann@example.com","otp":" 654321 "}`)
	if rec.Code != http.StatusBadRequest || reset != [2]string{"ann@example.com", "654321"} {
		t.Fatalf("expected 400 for wrong otp, got %d %v", rec.Code, reset)
	}
	if body := decodeError(t, rec); body.ErrorCode != "INVALID_OTP" {
		t.Fatalf("unexpected error body %+v", body)
	}

	if rec := do(t, router, http.MethodPost, "/auth/verify-otp", "", `{"email":"ann@example.com","otp":"123456"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid otp, got %d", rec.Code)
	}
}
