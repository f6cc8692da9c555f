package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type departmentService interface {
	CreateDepartment(ctx context.Context, principal application.Principal, input application.DepartmentInput) (application.Department, error)
	GetDepartment(ctx context.Context, principal application.Principal, id string) (application.Department, error)
	ListDepartments(ctx context.Context, principal application.Principal) ([]application.Department, error)
	UpdateDepartment(ctx context.Context, principal application.Principal, id string, input application.DepartmentInput) (application.Department, error)
	DeleteDepartment(ctx context.Context, principal application.Principal, id string) error
}

type DepartmentHandler struct {
	service   departmentService
	responder responder
	logger    *slog.Logger
}

func NewDepartmentHandler(service departmentService, logger *slog.Logger) *DepartmentHandler {
	base := defaultLogger(logger)
	return &DepartmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DepartmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DepartmentHandler", operation, attrs...)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode department request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID)
	department, err := h.service.CreateDepartment(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "department creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("department_id", department.ID).InfoContext(r.Context(), "department created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, departmentResponse{Department: toDepartmentDTO(department)})
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	department, err := h.service.GetDepartment(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "department_id", id).
			ErrorContext(r.Context(), "department lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, departmentResponse{Department: toDepartmentDTO(department)})
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.EmployeeID)

	departments, err := h.service.ListDepartments(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "department list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]departmentDTO, 0, len(departments))
	for _, department := range departments {
		out = append(out, toDepartmentDTO(department))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "departments listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDepartmentsResponse{Departments: out})
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "department_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode department update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "department_id", id)
	department, err := h.service.UpdateDepartment(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "department update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "department updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, departmentResponse{Department: toDepartmentDTO(department)})
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "department_id", id)

	if err := h.service.DeleteDepartment(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "department delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "department deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func (r departmentRequest) toInput() application.DepartmentInput {
	return application.DepartmentInput{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		IsActive:    r.IsActive,
	}
}

type departmentResponse struct {
	Department departmentDTO `json:"department"`
}

type listDepartmentsResponse struct {
	Departments []departmentDTO `json:"departments"`
}

type departmentDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toDepartmentDTO(department application.Department) departmentDTO {
	return departmentDTO{
		ID:          department.ID,
		Name:        department.Name,
		Description: department.Description,
		IsActive:    department.IsActive,
		CreatedAt:   formatTime(department.CreatedAt),
		UpdatedAt:   formatTime(department.UpdatedAt),
	}
}
