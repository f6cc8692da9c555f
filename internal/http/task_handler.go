package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type taskService interface {
	CreateTask(ctx context.Context, principal application.Principal, input application.TaskInput) (application.Task, error)
	GetTask(ctx context.Context, principal application.Principal, id string) (application.Task, error)
	ListTasks(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)
	ListAssignedToMe(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)
	ListInMyProjects(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)
	ListSupervisedByMe(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)
	ListOverdue(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)
	UpdateTask(ctx context.Context, principal application.Principal, id string, input application.TaskInput) (application.Task, error)
	ChangeStatus(ctx context.Context, principal application.Principal, id string, params application.ChangeStatusParams) (application.Task, error)
	DeleteTask(ctx context.Context, principal application.Principal, id string) error
	AddSubTask(ctx context.Context, principal application.Principal, taskID, content string) (application.SubTask, error)
	SetSubTaskCompleted(ctx context.Context, principal application.Principal, subTaskID string, completed *bool) (application.SubTask, error)
	UpdateSubTaskContent(ctx context.Context, principal application.Principal, subTaskID, content string) (application.SubTask, error)
	DeleteSubTask(ctx context.Context, principal application.Principal, subTaskID string) error
}

type TaskHandler struct {
	service   taskService
	responder responder
	logger    *slog.Logger
}

func NewTaskHandler(service taskService, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TaskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TaskHandler", operation, attrs...)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode task request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid due date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDueDate)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID)
	task, err := h.service.CreateTask(r.Context(), principal, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "task creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("task_id", task.ID).InfoContext(r.Context(), "task created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, taskResponse{Task: toTaskDTO(task)})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	task, err := h.service.GetTask(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.EmployeeID, "task_id", id).
			ErrorContext(r.Context(), "task lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponse{Task: toTaskDTO(task)})
}

type taskLister func(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]application.Task, error)

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "List", h.service.ListTasks)
}

func (h *TaskHandler) ListAssignedToMe(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListAssignedToMe", h.service.ListAssignedToMe)
}

func (h *TaskHandler) ListInMyProjects(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListInMyProjects", h.service.ListInMyProjects)
}

func (h *TaskHandler) ListSupervisedByMe(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListSupervisedByMe", h.service.ListSupervisedByMe)
}

func (h *TaskHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListOverdue", h.service.ListOverdue)
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request, operation string, lister taskLister) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.TaskListParams{
		ProjectID: strings.TrimSpace(query.Get("projectId")),
		Status:    application.TaskStatus(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
	}
	logger := h.log(r.Context(), operation, "principal_id", principal.EmployeeID, "project_id", params.ProjectID, "status", params.Status)

	tasks, err := lister(r.Context(), principal, params)
	if err != nil {
		logger.ErrorContext(r.Context(), "task list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskDTO(task))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "tasks listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTasksResponse{Tasks: out})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "task_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode task update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "task_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid due date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDueDate)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.EmployeeID, "task_id", id)
	task, err := h.service.UpdateTask(r.Context(), principal, id, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "task update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponse{Task: toTaskDTO(task)})
}

func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "ChangeStatus", "principal_id", principal.EmployeeID, "task_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	status := application.TaskStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	logger := h.log(r.Context(), "ChangeStatus", "principal_id", principal.EmployeeID, "task_id", id, "status", status)
	task, err := h.service.ChangeStatus(r.Context(), principal, id, application.ChangeStatusParams{
		Status:  status,
		Comment: strings.TrimSpace(req.Comment),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "task status change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task status changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponse{Task: toTaskDTO(task)})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "task_id", id)

	if err := h.service.DeleteTask(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "task delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TaskHandler) AddSubTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	taskID := pathParam(r, "id")

	var req subTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AddSubTask", "principal_id", principal.EmployeeID, "task_id", taskID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode subtask", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddSubTask", "principal_id", principal.EmployeeID, "task_id", taskID)
	subTask, err := h.service.AddSubTask(r.Context(), principal, taskID, req.Content)
	if err != nil {
		logger.ErrorContext(r.Context(), "subtask creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("subtask_id", subTask.ID).InfoContext(r.Context(), "subtask created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, subTaskResponse{SubTask: toSubTaskDTO(subTask)})
}

func (h *TaskHandler) SetSubTaskCompleted(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req subTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SetSubTaskCompleted", "principal_id", principal.EmployeeID, "subtask_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode subtask toggle", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	h.writeSubTask(w, r, "SetSubTaskCompleted", id, func(ctx context.Context) (application.SubTask, error) {
		return h.service.SetSubTaskCompleted(ctx, principal, id, req.IsCompleted)
	})
}

func (h *TaskHandler) UpdateSubTaskContent(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	var req subTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateSubTaskContent", "principal_id", principal.EmployeeID, "subtask_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode subtask content", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	h.writeSubTask(w, r, "UpdateSubTaskContent", id, func(ctx context.Context) (application.SubTask, error) {
		return h.service.UpdateSubTaskContent(ctx, principal, id, req.Content)
	})
}

func (h *TaskHandler) writeSubTask(w http.ResponseWriter, r *http.Request, operation, id string, apply func(context.Context) (application.SubTask, error)) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.EmployeeID, "subtask_id", id)

	subTask, err := apply(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "subtask update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "subtask updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, subTaskResponse{SubTask: toSubTaskDTO(subTask)})
}

func (h *TaskHandler) DeleteSubTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "DeleteSubTask", "principal_id", principal.EmployeeID, "subtask_id", id)

	if err := h.service.DeleteSubTask(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "subtask delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "subtask deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type taskRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     int      `json:"priority"`
	ProjectID    string   `json:"projectId"`
	SupervisorID string   `json:"supervisorId"`
	AssigneeIDs  []string `json:"assigneeIds"`
	DueDate      *string  `json:"dueDate"`
}

func (r taskRequest) toInput() (application.TaskInput, error) {
	due, err := parseDueDate(r.DueDate)
	if err != nil {
		return application.TaskInput{}, err
	}
	return application.TaskInput{
		Title:        strings.TrimSpace(r.Title),
		Description:  strings.TrimSpace(r.Description),
		Priority:     r.Priority,
		ProjectID:    strings.TrimSpace(r.ProjectID),
		SupervisorID: strings.TrimSpace(r.SupervisorID),
		AssigneeIDs:  trimAll(r.AssigneeIDs),
		DueDate:      due,
	}, nil
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type subTaskRequest struct {
	Content     string `json:"content"`
	IsCompleted *bool  `json:"isCompleted"`
}

type taskResponse struct {
	Task taskDTO `json:"task"`
}

type listTasksResponse struct {
	Tasks []taskDTO `json:"tasks"`
}

type subTaskResponse struct {
	SubTask subTaskDTO `json:"subtask"`
}

type taskDTO struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Priority     int          `json:"priority"`
	ProjectID    string       `json:"projectId"`
	AssignerID   string       `json:"assignerId"`
	SupervisorID string       `json:"supervisorId"`
	AssigneeIDs  []string     `json:"assigneeIds"`
	Status       string       `json:"status"`
	DueDate      *string      `json:"dueDate"`
	StartedAt    *string      `json:"startedAt"`
	SubmittedAt  *string      `json:"submittedAt"`
	CompletedAt  *string      `json:"completedAt"`
	SubTasks     []subTaskDTO `json:"subtasks"`
	CreatedAt    string       `json:"createdAt"`
	UpdatedAt    string       `json:"updatedAt"`
}

type subTaskDTO struct {
	ID          string `json:"id"`
	TaskID      string `json:"taskId"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"isCompleted"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toTaskDTO(task application.Task) taskDTO {
	subTasks := make([]subTaskDTO, 0, len(task.SubTasks))
	for _, subTask := range task.SubTasks {
		subTasks = append(subTasks, toSubTaskDTO(subTask))
	}
	assignees := task.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}
	return taskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Priority:     task.Priority,
		ProjectID:    task.ProjectID,
		AssignerID:   task.AssignerID,
		SupervisorID: task.SupervisorID,
		AssigneeIDs:  assignees,
		Status:       string(task.Status),
		DueDate:      formatOptionalTime(task.DueDate),
		StartedAt:    formatOptionalTime(task.StartedAt),
		SubmittedAt:  formatOptionalTime(task.SubmittedAt),
		CompletedAt:  formatOptionalTime(task.CompletedAt),
		SubTasks:     subTasks,
		CreatedAt:    formatTime(task.CreatedAt),
		UpdatedAt:    formatTime(task.UpdatedAt),
	}
}

func toSubTaskDTO(subTask application.SubTask) subTaskDTO {
	return subTaskDTO{
		ID:          subTask.ID,
		TaskID:      subTask.TaskID,
		Content:     subTask.Content,
		IsCompleted: subTask.IsCompleted,
		CreatedAt:   formatTime(subTask.CreatedAt),
		UpdatedAt:   formatTime(subTask.UpdatedAt),
	}
}
