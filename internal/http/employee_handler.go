package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type employeeService interface {
	CreateEmployee(ctx context.Context, principal application.Principal, input application.EmployeeInput) (application.Employee, error)
	GetEmployee(ctx context.Context, principal application.Principal, id string) (application.Employee, error)
	ListEmployees(ctx context.Context, principal application.Principal, departmentID string) ([]application.Employee, error)
	UpdateEmployee(ctx context.Context, principal application.Principal, id string, input application.EmployeeInput) (application.Employee, error)
	DeleteEmployee(ctx context.Context, principal application.Principal, id string) error
}

type EmployeeHandler struct {
	service   employeeService
	responder responder
	logger    *slog.Logger
}

func NewEmployeeHandler(service employeeService, logger *slog.Logger) *EmployeeHandler {
	base := defaultLogger(logger)
	return &EmployeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployeeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "EmployeeHandler", operation, attrs...)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode employee request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID)
	employee, err := h.service.CreateEmployee(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "employee creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("employee_id", employee.ID).InfoContext(r.Context(), "employee created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "employee_id", id)

	employee, err := h.service.GetEmployee(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "employee lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	departmentID := strings.TrimSpace(r.URL.Query().Get("departmentId"))
	logger := h.log(r.Context(), "List", "principal_id", principal.EmployeeID, "department_id", departmentID)

	employees, err := h.service.ListEmployees(r.Context(), principal, departmentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "employee list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(employees)).InfoContext(r.Context(), "employees listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployeesResponse{Employees: toEmployeeDTOs(employees)})
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "employee_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode employee update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "employee_id", id)
	employee, err := h.service.UpdateEmployee(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "employee update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employee updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "employee_id", id)

	if err := h.service.DeleteEmployee(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "employee delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employee deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type employeeRequest struct {
	FullName     string  `json:"fullName"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Position     string  `json:"position"`
	Password     string  `json:"password"`
	Role         *string `json:"role"`
	DepartmentID *string `json:"departmentId"`
	IsActive     *bool   `json:"isActive"`
}

func (r employeeRequest) toInput() application.EmployeeInput {
	input := application.EmployeeInput{
		FullName:     strings.TrimSpace(r.FullName),
		Email:        strings.TrimSpace(r.Email),
		Phone:        strings.TrimSpace(r.Phone),
		Position:     strings.TrimSpace(r.Position),
		Password:     r.Password,
		DepartmentID: trimmedPtr(r.DepartmentID),
		IsActive:     r.IsActive,
	}
	if r.Role != nil {
		role := application.Role(strings.ToUpper(strings.TrimSpace(*r.Role)))
		input.Role = &role
	}
	return input
}

type employeeResponse struct {
	Employee employeeDTO `json:"employee"`
}

type listEmployeesResponse struct {
	Employees []employeeDTO `json:"employees"`
}

type employeeDTO struct {
	ID           string  `json:"id"`
	FullName     string  `json:"fullName"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone,omitempty"`
	Position     string  `json:"position,omitempty"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId"`
	IsActive     bool    `json:"isActive"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toEmployeeDTO(employee application.Employee) employeeDTO {
	return employeeDTO{
		ID:           employee.ID,
		FullName:     employee.FullName,
		Email:        employee.Email,
		Phone:        employee.Phone,
		Position:     employee.Position,
		Role:         string(employee.Role),
		DepartmentID: employee.DepartmentID,
		IsActive:     employee.IsActive,
		CreatedAt:    formatTime(employee.CreatedAt),
		UpdatedAt:    formatTime(employee.UpdatedAt),
	}
}

func toEmployeeDTOs(employees []application.Employee) []employeeDTO {
	out := make([]employeeDTO, 0, len(employees))
	for _, employee := range employees {
		out = append(out, toEmployeeDTO(employee))
	}
	return out
}
