package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestRouterHealth(t *testing.T) {
	t.Parallel()

	healthy := newTestRouter(RouterConfig{Health: func(context.Context) error { return nil }})
	rec := do(t, healthy, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body healthResponse
	decodeBody(t, rec, &body)
	if body.Status != "ok" {
		t.Fatalf("unexpected health body %+v", body)
	}

	broken := newTestRouter(RouterConfig{Health: func(context.Context) error { return errors.New("database is closed") }})
	if rec := do(t, broken, http.MethodGet, "/health", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for failing storage, got %d", rec.Code)
	}
}

func TestRouterAuthentication(t *testing.T) {
	t.Parallel()

	tasks := &stubTaskService{}
	auth := &stubAuthService{forgot: func(string) error { return nil }}
	router := newTestRouter(RouterConfig{
		Auth:  NewAuthHandler(auth, discardLogger()),
		Tasks: NewTaskHandler(tasks, discardLogger()),
	})

	tests := []struct {
		name       string
		method     string
		target     string
		token      string
		body       string
		wantStatus int
	}{
		{name: "public route needs no token", method: http.MethodPost, target: "/auth/forgot-password", body: `{"email":"ann@example.com"}`, wantStatus: http.StatusOK},
		{name: "protected route without token", method: http.MethodGet, target: "/tasks", wantStatus: http.StatusUnauthorized},
		{name: "protected route with unknown token", method: http.MethodGet, target: "/tasks", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "profile is protected", method: http.MethodGet, target: "/auth/profile", wantStatus: http.StatusUnauthorized},
		{name: "protected route with token", method: http.MethodGet, target: "/tasks", token: "user", wantStatus: http.StatusOK},
		{name: "unknown path", method: http.MethodGet, target: "/payroll", token: "user", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPut, target: "/auth/login", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		rec := do(t, router, tc.method, tc.target, tc.token, tc.body)
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.wantStatus, rec.Code, rec.Body.String())
		}
	}

	if len(tasks.calls) != 1 || tasks.calls[0] != "ListTasks" {
		t.Fatalf("expected exactly one authorized task listing, got %v", tasks.calls)
	}
}

func TestRouterWithoutAuthenticatorRejectsProtectedRoutes(t *testing.T) {
	t.Parallel()

	tasks := &stubTaskService{}
	router := NewRouter(RouterConfig{Tasks: NewTaskHandler(tasks, discardLogger()), Logger: discardLogger()})

	if rec := do(t, router, http.MethodGet, "/tasks", "user", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an authenticator, got %d", rec.Code)
	}
	if len(tasks.calls) != 0 {
		t.Fatalf("expected no service calls, got %v", tasks.calls)
	}
}

func TestRouterMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter(RouterConfig{Middleware: []func(http.Handler) http.Handler{mark("outer"), nil, mark("inner")}})
	do(t, router, http.MethodGet, "/health", "", "")

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected middleware order %v", order)
	}
}
