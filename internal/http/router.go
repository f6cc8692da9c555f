package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Auth        *AuthHandler
	Departments *DepartmentHandler
	Employees   *EmployeeHandler
	Shifts      *ShiftHandler
	Projects    *ProjectHandler
	Tasks       *TaskHandler
	Comments    *CommentHandler
	Timekeeping *TimekeepingHandler
	QRCodes     *QRCodeHandler
	// Authenticator guards every route except login, registration, password
	// recovery and /health. A nil Authenticator rejects those routes.
	Authenticator func(http.Handler) http.Handler
	// Health reports storage readiness for GET /health.
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	resp := newResponder(cfg.Logger)
	root := mux.NewRouter()
	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "Không tìm thấy đường dẫn."})
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	root.HandleFunc("/health", healthHandler(cfg.Health, resp)).Methods(http.MethodGet)

	if cfg.Auth != nil {
		root.HandleFunc("/auth/login", cfg.Auth.Login).Methods(http.MethodPost)
		root.HandleFunc("/auth/register", cfg.Auth.Register).Methods(http.MethodPost)
		root.HandleFunc("/auth/forgot-password", cfg.Auth.ForgotPassword).Methods(http.MethodPost)
		root.HandleFunc("/auth/verify-otp", cfg.Auth.VerifyOTP).Methods(http.MethodPost)
	}

	authenticate := cfg.Authenticator
	if authenticate == nil {
		authenticate = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resp.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
			})
		}
	}
	api := root.NewRoute().Subrouter()
	api.Use(mux.MiddlewareFunc(authenticate))

	if cfg.Auth != nil {
		api.HandleFunc("/auth/profile", cfg.Auth.Profile).Methods(http.MethodGet)
		api.HandleFunc("/auth/change-password", cfg.Auth.ChangePassword).Methods(http.MethodPost)
	}

	if h := cfg.Departments; h != nil {
		api.HandleFunc("/departments", h.List).Methods(http.MethodGet)
		api.HandleFunc("/departments", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/departments/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/departments/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
		api.HandleFunc("/departments/{id}", h.Delete).Methods(http.MethodDelete)
	}

	if h := cfg.Employees; h != nil {
		api.HandleFunc("/employees", h.List).Methods(http.MethodGet)
		api.HandleFunc("/employees", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/employees/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/employees/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
		api.HandleFunc("/employees/{id}", h.Delete).Methods(http.MethodDelete)
	}

	if h := cfg.Shifts; h != nil {
		api.HandleFunc("/shifts", h.List).Methods(http.MethodGet)
		api.HandleFunc("/shifts", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/shifts/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/shifts/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
		api.HandleFunc("/shifts/{id}", h.Delete).Methods(http.MethodDelete)
	}

	if h := cfg.Projects; h != nil {
		api.HandleFunc("/projects", h.List).Methods(http.MethodGet)
		api.HandleFunc("/projects", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/projects/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/projects/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
		api.HandleFunc("/projects/{id}", h.Delete).Methods(http.MethodDelete)
		api.HandleFunc("/projects/{id}/members", h.AddMembers).Methods(http.MethodPost)
		api.HandleFunc("/projects/{id}/members/{memberId}", h.RemoveMember).Methods(http.MethodDelete)
	}

	if h := cfg.Tasks; h != nil {
		// fixed segments are registered before /tasks/{id}
		api.HandleFunc("/tasks", h.List).Methods(http.MethodGet)
		api.HandleFunc("/tasks", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/tasks/assigned-to-me", h.ListAssignedToMe).Methods(http.MethodGet)
		api.HandleFunc("/tasks/in-my-projects", h.ListInMyProjects).Methods(http.MethodGet)
		api.HandleFunc("/tasks/supervised-by-me", h.ListSupervisedByMe).Methods(http.MethodGet)
		api.HandleFunc("/tasks/overdue", h.ListOverdue).Methods(http.MethodGet)
		api.HandleFunc("/tasks/subtasks/{id}", h.SetSubTaskCompleted).Methods(http.MethodPatch)
		api.HandleFunc("/tasks/subtasks/{id}", h.DeleteSubTask).Methods(http.MethodDelete)
		api.HandleFunc("/tasks/subtasks/{id}/content", h.UpdateSubTaskContent).Methods(http.MethodPatch)
		api.HandleFunc("/tasks/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/tasks/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
		api.HandleFunc("/tasks/{id}", h.Delete).Methods(http.MethodDelete)
		api.HandleFunc("/tasks/{id}/status", h.ChangeStatus).Methods(http.MethodPatch)
		api.HandleFunc("/tasks/{id}/subtasks", h.AddSubTask).Methods(http.MethodPost)
	}

	if h := cfg.Comments; h != nil {
		api.HandleFunc("/comments", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/comments/task/{taskId}", h.ListByTask).Methods(http.MethodGet)
		api.HandleFunc("/comments/{id}/mark-as-summary", h.MarkAsSummary).Methods(http.MethodPatch)
		api.HandleFunc("/comments/{id}", h.Delete).Methods(http.MethodDelete)
	}

	if h := cfg.Timekeeping; h != nil {
		api.HandleFunc("/timekeeping", h.List).Methods(http.MethodGet)
		api.HandleFunc("/timekeeping/checkin", h.CheckIn).Methods(http.MethodPost)
		api.HandleFunc("/timekeeping/checkout", h.CheckOut).Methods(http.MethodPost)
		api.HandleFunc("/timekeeping/checkin/qr", h.CheckInWithQR).Methods(http.MethodPost)
		api.HandleFunc("/timekeeping/checkout/qr", h.CheckOutWithQR).Methods(http.MethodPost)
		api.HandleFunc("/timekeeping/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/timekeeping/{id}", h.Delete).Methods(http.MethodDelete)
		api.HandleFunc("/timekeeping/{id}/note", h.UpdateNote).Methods(http.MethodPatch)
	}

	if h := cfg.QRCodes; h != nil {
		api.HandleFunc("/qrcode/generate", h.Generate).Methods(http.MethodPost)
	}

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func healthHandler(check func(context.Context) error, resp responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				resp.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				resp.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
