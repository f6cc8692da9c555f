package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type projectService interface {
	CreateProject(ctx context.Context, principal application.Principal, input application.ProjectInput) (application.Project, error)
	GetProject(ctx context.Context, principal application.Principal, id string) (application.Project, error)
	ListProjects(ctx context.Context, principal application.Principal) ([]application.Project, error)
	UpdateProject(ctx context.Context, principal application.Principal, id string, input application.ProjectInput) (application.Project, error)
	DeleteProject(ctx context.Context, principal application.Principal, id string) error
	AddMembers(ctx context.Context, principal application.Principal, projectID string, memberIDs []string) (application.Project, error)
	RemoveMember(ctx context.Context, principal application.Principal, projectID, memberID string) error
}

type ProjectHandler struct {
	service   projectService
	responder responder
	logger    *slog.Logger
}

func NewProjectHandler(service projectService, logger *slog.Logger) *ProjectHandler {
	base := defaultLogger(logger)
	return &ProjectHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProjectHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ProjectHandler", operation, attrs...)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode project request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID)
	project, err := h.service.CreateProject(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "project creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("project_id", project.ID).InfoContext(r.Context(), "project created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, projectResponse{Project: toProjectDTO(project)})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	project, err := h.service.GetProject(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "project_id", id).
			ErrorContext(r.Context(), "project lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, projectResponse{Project: toProjectDTO(project)})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.EmployeeID)

	projects, err := h.service.ListProjects(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "project list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]projectDTO, 0, len(projects))
	for _, project := range projects {
		out = append(out, toProjectDTO(project))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "projects listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProjectsResponse{Projects: out})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "project_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode project update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "project_id", id)
	project, err := h.service.UpdateProject(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "project update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "project updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, projectResponse{Project: toProjectDTO(project)})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "project_id", id)

	if err := h.service.DeleteProject(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "project delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "project deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProjectHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req addMembersRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AddMembers", "principal_id", principal.EmployeeID, "project_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddMembers", "principal_id", principal.EmployeeID, "project_id", id)
	project, err := h.service.AddMembers(r.Context(), principal, id, trimAll(req.MemberIDs))
	if err != nil {
		logger.ErrorContext(r.Context(), "adding project members failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_count", len(project.MemberIDs)).InfoContext(r.Context(), "project members added")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, projectResponse{Project: toProjectDTO(project)})
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	memberID := pathParam(r, "memberId")
	logger := h.log(r.Context(), "RemoveMember", "principal_id", principal.EmployeeID, "project_id", id, "member_id", memberID)

	if err := h.service.RemoveMember(r.Context(), principal, id, memberID); err != nil {
		logger.ErrorContext(r.Context(), "removing project member failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "project member removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type projectRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DepartmentID string   `json:"departmentId"`
	ManagerID    string   `json:"managerId"`
	MemberIDs    []string `json:"memberIds"`
	Status       string   `json:"status"`
}

func (r projectRequest) toInput() application.ProjectInput {
	return application.ProjectInput{
		Name:         strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Description),
		DepartmentID: strings.TrimSpace(r.DepartmentID),
		ManagerID:    strings.TrimSpace(r.ManagerID),
		MemberIDs:    trimAll(r.MemberIDs),
		Status:       strings.ToUpper(strings.TrimSpace(r.Status)),
	}
}

type addMembersRequest struct {
	MemberIDs []string `json:"memberIds"`
}

type projectResponse struct {
	Project projectDTO `json:"project"`
}

type listProjectsResponse struct {
	Projects []projectDTO `json:"projects"`
}

type projectDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	DepartmentID string   `json:"departmentId"`
	ManagerID    string   `json:"managerId"`
	MemberIDs    []string `json:"memberIds"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func toProjectDTO(project application.Project) projectDTO {
	members := project.MemberIDs
	if members == nil {
		members = []string{}
	}
	return projectDTO{
		ID:           project.ID,
		Name:         project.Name,
		Description:  project.Description,
		DepartmentID: project.DepartmentID,
		ManagerID:    project.ManagerID,
		MemberIDs:    members,
		Status:       project.Status,
		CreatedAt:    formatTime(project.CreatedAt),
		UpdatedAt:    formatTime(project.UpdatedAt),
	}
}
