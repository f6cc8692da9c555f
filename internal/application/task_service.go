package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TaskListParams carries the optional filters of task listings.
type TaskListParams struct {
	ProjectID string
	Status    TaskStatus
}

// ChangeStatusParams carries a status transition request.
type ChangeStatusParams struct {
	Status  TaskStatus
	Comment string
}

// TaskService implements the task workflow and its scoped queries.
type TaskService struct {
	tasks       TaskRepository
	projects    ProjectRepository
	employees   EmployeeRepository
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTaskService constructs a task service.
func NewTaskService(tasks TaskRepository, projects ProjectRepository, employees EmployeeRepository, notifier Notifier, idGenerator func() string, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, projects, employees, notifier, idGenerator, now, nil)
}

// NewTaskServiceWithLogger constructs a task service with a specified logger.
func NewTaskServiceWithLogger(tasks TaskRepository, projects ProjectRepository, employees EmployeeRepository, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TaskService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:       tasks,
		projects:    projects,
		employees:   employees,
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

func (s *TaskService) configured() error {
	if s == nil || s.tasks == nil || s.projects == nil {
		return fmt.Errorf("task repositories not configured")
	}
	return nil
}

// CreateTask opens a task with the caller as assigner. The caller must be
// able to see the project; the supervisor defaults to the caller.
func (s *TaskService) CreateTask(ctx context.Context, principal Principal, input TaskInput) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateTask", "principal_id", principal.EmployeeID, "project_id", input.ProjectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("task_id", task.ID, "assignee_count", len(task.AssigneeIDs)).InfoContext(ctx, "task created")
	}()

	input = normalizeTaskInput(input)
	if input.SupervisorID == "" {
		input.SupervisorID = principal.EmployeeID
	}
	if input.Priority == 0 {
		input.Priority = DefaultTaskPriority
	}
	if vErr := validateTaskInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var project Project
	project, err = s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canManageProject(principal, project) {
		var member bool
		member, err = s.projects.IsProjectMember(ctx, project.ID, principal.EmployeeID)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		if !member {
			err = fmt.Errorf("%w: not a participant of the project", ErrForbidden)
			return
		}
	}

	var assignees []Employee
	assignees, err = s.resolveStaff(ctx, input.SupervisorID, input.AssigneeIDs)
	if err != nil {
		return
	}

	now := s.now()
	task = Task{
		ID:           s.idGenerator(),
		Title:        input.Title,
		Description:  input.Description,
		Priority:     input.Priority,
		ProjectID:    project.ID,
		AssignerID:   principal.EmployeeID,
		SupervisorID: input.SupervisorID,
		AssigneeIDs:  input.AssigneeIDs,
		Status:       TaskStatusPending,
		DueDate:      input.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	task, err = s.tasks.CreateTask(ctx, task)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	s.notifyAssigned(ctx, logger, task, assignees)
	return
}

// GetTask returns a task with its subtasks when the principal may view it.
func (s *TaskService) GetTask(ctx context.Context, principal Principal, id string) (Task, error) {
	if err := s.configured(); err != nil {
		return Task{}, err
	}
	task, _, err := s.loadVisible(ctx, principal, id)
	return task, err
}

// ListTasks returns every task for administrators, the tasks of own-department
// projects for managers, and the tasks assigned to a user.
func (s *TaskService) ListTasks(ctx context.Context, principal Principal, params TaskListParams) ([]Task, error) {
	filter, err := s.scopedFilter(principal, params)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// ListAssignedToMe returns the tasks where the principal is an assignee.
func (s *TaskService) ListAssignedToMe(ctx context.Context, principal Principal, params TaskListParams) ([]Task, error) {
	filter, err := listFilter(params)
	if err != nil {
		return nil, err
	}
	filter.AssigneeID = principal.EmployeeID
	return s.list(ctx, filter)
}

// ListInMyProjects returns the tasks of projects the principal manages or belongs to.
func (s *TaskService) ListInMyProjects(ctx context.Context, principal Principal, params TaskListParams) ([]Task, error) {
	filter, err := listFilter(params)
	if err != nil {
		return nil, err
	}
	filter.ProjectParticipantID = principal.EmployeeID
	return s.list(ctx, filter)
}

// ListSupervisedByMe returns the tasks the principal supervises.
func (s *TaskService) ListSupervisedByMe(ctx context.Context, principal Principal, params TaskListParams) ([]Task, error) {
	filter, err := listFilter(params)
	if err != nil {
		return nil, err
	}
	filter.SupervisorID = principal.EmployeeID
	return s.list(ctx, filter)
}

// ListOverdue returns unfinished tasks past their due date within the ListTasks scope.
func (s *TaskService) ListOverdue(ctx context.Context, principal Principal, params TaskListParams) ([]Task, error) {
	params.Status = ""
	filter, err := s.scopedFilter(principal, params)
	if err != nil {
		return nil, err
	}
	now := s.now()
	filter.DueBefore = &now
	filter.ExcludeStatuses = []TaskStatus{TaskStatusCompleted, TaskStatusRejected}
	return s.list(ctx, filter)
}

func (s *TaskService) scopedFilter(principal Principal, params TaskListParams) (TaskFilter, error) {
	filter, err := listFilter(params)
	if err != nil {
		return TaskFilter{}, err
	}
	switch {
	case principal.IsAdmin():
	case principal.IsManager() && principal.DepartmentID != "":
		filter.DepartmentID = principal.DepartmentID
	default:
		filter.AssigneeID = principal.EmployeeID
	}
	return filter, nil
}

func listFilter(params TaskListParams) (TaskFilter, error) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(string(params.Status))))
	if status != "" && !status.Valid() {
		return TaskFilter{}, newValidationError("status", "status is invalid")
	}
	return TaskFilter{ProjectID: strings.TrimSpace(params.ProjectID), Status: status}, nil
}

func (s *TaskService) list(ctx context.Context, filter TaskFilter) ([]Task, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// UpdateTask changes the details of an unfinished task. Only the assigner or
// an administrator may do so; newly added assignees are notified.
func (s *TaskService) UpdateTask(ctx context.Context, principal Principal, id string, input TaskInput) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateTask", "principal_id", principal.EmployeeID, "task_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task updated")
	}()

	var existing Task
	existing, err = s.tasks.GetTask(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canEditTaskDetails(principal, existing) {
		err = ErrForbidden
		return
	}
	if existing.Status.Terminal() {
		err = fmt.Errorf("%w: task is %s", ErrInvalidState, existing.Status)
		return
	}

	input = normalizeTaskInput(input)
	input.ProjectID = existing.ProjectID
	if input.Title == "" {
		input.Title = existing.Title
	}
	if input.Priority == 0 {
		input.Priority = existing.Priority
	}
	if input.SupervisorID == "" {
		input.SupervisorID = existing.SupervisorID
	}
	if input.AssigneeIDs == nil {
		input.AssigneeIDs = existing.AssigneeIDs
	}
	if input.DueDate == nil {
		input.DueDate = existing.DueDate
	}
	if vErr := validateTaskInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var assignees []Employee
	assignees, err = s.resolveStaff(ctx, input.SupervisorID, input.AssigneeIDs)
	if err != nil {
		return
	}

	updated := existing
	updated.Title = input.Title
	if input.Description != "" {
		updated.Description = input.Description
	}
	updated.Priority = input.Priority
	updated.SupervisorID = input.SupervisorID
	updated.AssigneeIDs = input.AssigneeIDs
	updated.DueDate = input.DueDate
	updated.UpdatedAt = s.now()

	task, err = s.tasks.UpdateTask(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var added []Employee
	for _, assignee := range assignees {
		if !existing.IsAssignee(assignee.ID) {
			added = append(added, assignee)
		}
	}
	s.notifyAssigned(ctx, logger, task, added)
	return
}

// ChangeStatus drives the task workflow. The status change and the optional
// summary comment are stored atomically; notifications follow the commit.
func (s *TaskService) ChangeStatus(ctx context.Context, principal Principal, id string, params ChangeStatusParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	target := TaskStatus(strings.ToUpper(strings.TrimSpace(string(params.Status))))
	logger := s.loggerWith(ctx, "ChangeStatus", "principal_id", principal.EmployeeID, "task_id", id, "target_status", target)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change task status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task status changed")
	}()

	if !target.Valid() {
		err = newValidationError("status", "status is invalid")
		return
	}

	var existing Task
	existing, err = s.tasks.GetTask(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = checkTransition(existing, principal.EmployeeID, target); err != nil {
		return
	}

	now := s.now()
	updated := applyTransition(existing, target, now)

	var summary *Comment
	if content := strings.TrimSpace(params.Comment); content != "" {
		summary = &Comment{
			ID:        s.idGenerator(),
			TaskID:    existing.ID,
			AuthorID:  principal.EmployeeID,
			Content:   content,
			IsSummary: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	task, err = s.tasks.UpdateTaskStatus(ctx, updated, existing.Status, summary)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	s.notifyTransition(ctx, logger, principal, task)
	return
}

// DeleteTask removes a task with its subtasks and comments. Only the assigner
// may delete, and never once the task is COMPLETED.
func (s *TaskService) DeleteTask(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteTask", "principal_id", principal.EmployeeID, "task_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task deleted")
	}()

	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if !canDeleteTask(principal, task) {
		return fmt.Errorf("%w: only the assigner may delete a task", ErrForbidden)
	}
	if task.Status == TaskStatusCompleted {
		return fmt.Errorf("%w: completed tasks cannot be deleted", ErrInvalidState)
	}
	return mapRepoError(s.tasks.DeleteTask(ctx, id))
}

// AddSubTask appends a checklist item to a task.
func (s *TaskService) AddSubTask(ctx context.Context, principal Principal, taskID, content string) (subTask SubTask, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddSubTask", "principal_id", principal.EmployeeID, "task_id", taskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add subtask", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("subtask_id", subTask.ID).InfoContext(ctx, "subtask added")
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		err = newValidationError("content", "content is required")
		return
	}

	var task Task
	task, err = s.tasks.GetTask(ctx, taskID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canWorkOnSubTasks(principal, task) {
		err = ErrForbidden
		return
	}

	now := s.now()
	subTask, err = s.tasks.CreateSubTask(ctx, SubTask{
		ID:        s.idGenerator(),
		TaskID:    task.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	err = mapRepoError(err)
	return
}

// SetSubTaskCompleted sets the completed flag, or flips it when completed is nil.
func (s *TaskService) SetSubTaskCompleted(ctx context.Context, principal Principal, subTaskID string, completed *bool) (SubTask, error) {
	return s.modifySubTask(ctx, principal, subTaskID, "SetSubTaskCompleted", func(subTask *SubTask) error {
		if completed == nil {
			subTask.IsCompleted = !subTask.IsCompleted
		} else {
			subTask.IsCompleted = *completed
		}
		return nil
	})
}

// UpdateSubTaskContent rewrites a checklist item.
func (s *TaskService) UpdateSubTaskContent(ctx context.Context, principal Principal, subTaskID, content string) (SubTask, error) {
	return s.modifySubTask(ctx, principal, subTaskID, "UpdateSubTaskContent", func(subTask *SubTask) error {
		content = strings.TrimSpace(content)
		if content == "" {
			return newValidationError("content", "content is required")
		}
		subTask.Content = content
		return nil
	})
}

// DeleteSubTask removes a checklist item.
func (s *TaskService) DeleteSubTask(ctx context.Context, principal Principal, subTaskID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteSubTask", "principal_id", principal.EmployeeID, "subtask_id", subTaskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete subtask", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "subtask deleted")
	}()

	if _, _, err = s.loadSubTask(ctx, principal, subTaskID); err != nil {
		return
	}
	return mapRepoError(s.tasks.DeleteSubTask(ctx, subTaskID))
}

func (s *TaskService) modifySubTask(ctx context.Context, principal Principal, subTaskID, operation string, mutate func(*SubTask) error) (subTask SubTask, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, operation, "principal_id", principal.EmployeeID, "subtask_id", subTaskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update subtask", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("completed", subTask.IsCompleted).InfoContext(ctx, "subtask updated")
	}()

	subTask, _, err = s.loadSubTask(ctx, principal, subTaskID)
	if err != nil {
		return
	}
	if err = mutate(&subTask); err != nil {
		return
	}
	subTask.UpdatedAt = s.now()

	subTask, err = s.tasks.UpdateSubTask(ctx, subTask)
	err = mapRepoError(err)
	return
}

func (s *TaskService) loadSubTask(ctx context.Context, principal Principal, subTaskID string) (SubTask, Task, error) {
	subTask, err := s.tasks.GetSubTask(ctx, subTaskID)
	if err != nil {
		return SubTask{}, Task{}, mapRepoError(err)
	}
	task, err := s.tasks.GetTask(ctx, subTask.TaskID)
	if err != nil {
		return SubTask{}, Task{}, mapRepoError(err)
	}
	if !canWorkOnSubTasks(principal, task) {
		return SubTask{}, Task{}, ErrForbidden
	}
	return subTask, task, nil
}

// loadVisible fetches a task and its project and checks read access.
func (s *TaskService) loadVisible(ctx context.Context, principal Principal, id string) (Task, Project, error) {
	return loadVisibleTask(ctx, s.tasks, s.projects, principal, id)
}

func loadVisibleTask(ctx context.Context, tasks TaskRepository, projects ProjectRepository, principal Principal, id string) (Task, Project, error) {
	task, err := tasks.GetTask(ctx, id)
	if err != nil {
		return Task{}, Project{}, mapRepoError(err)
	}
	project, err := projects.GetProject(ctx, task.ProjectID)
	if err != nil {
		return Task{}, Project{}, mapRepoError(err)
	}
	if !canViewTask(principal, task, project) {
		return Task{}, Project{}, ErrForbidden
	}
	return task, project, nil
}

// resolveStaff checks that the supervisor and assignees exist and returns the assignees.
func (s *TaskService) resolveStaff(ctx context.Context, supervisorID string, assigneeIDs []string) ([]Employee, error) {
	if _, err := lookupEmployees(ctx, s.employees, "supervisorId", []string{supervisorID}); err != nil {
		return nil, err
	}
	return lookupEmployees(ctx, s.employees, "assigneeIds", assigneeIDs)
}

func (s *TaskService) employee(ctx context.Context, id string) (Employee, bool) {
	if s.employees == nil || id == "" {
		return Employee{}, false
	}
	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, false
	}
	return employee, true
}

func (s *TaskService) assignees(ctx context.Context, task Task) []Employee {
	if s.employees == nil || len(task.AssigneeIDs) == 0 {
		return nil
	}
	employees, err := s.employees.ListEmployees(ctx, EmployeeFilter{IDs: task.AssigneeIDs})
	if err != nil {
		return nil
	}
	return employees
}

func (s *TaskService) notifyAssigned(ctx context.Context, logger *slog.Logger, task Task, assignees []Employee) {
	if len(assignees) == 0 {
		return
	}
	assigner, _ := s.employee(ctx, task.AssignerID)
	if nErr := s.notifier.TaskAssigned(ctx, task, assigner, assignees); nErr != nil {
		logger.WarnContext(ctx, "failed to queue assignment email", "error", nErr)
	}
}

func (s *TaskService) notifyTransition(ctx context.Context, logger *slog.Logger, principal Principal, task Task) {
	actor, _ := s.employee(ctx, principal.EmployeeID)

	var nErr error
	switch task.Status {
	case TaskStatusWaitingReview:
		supervisor, ok := s.employee(ctx, task.SupervisorID)
		if !ok {
			nErr = errors.New("supervisor not found")
			break
		}
		nErr = s.notifier.TaskSubmitted(ctx, task, actor, supervisor)
	case TaskStatusCompleted, TaskStatusRejected:
		nErr = s.notifier.TaskReviewed(ctx, task, actor, s.assignees(ctx, task))
	}
	if nErr != nil {
		logger.WarnContext(ctx, "failed to queue status email", "error", nErr)
	}
}

func normalizeTaskInput(input TaskInput) TaskInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.SupervisorID = strings.TrimSpace(input.SupervisorID)
	if input.AssigneeIDs != nil {
		input.AssigneeIDs = dedupeIDs(input.AssigneeIDs)
	}
	return input
}

func validateTaskInput(input TaskInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "title is required")
	} else if len(input.Title) > 200 {
		vErr.add("title", "title must be at most 200 characters")
	}
	if input.ProjectID == "" {
		vErr.add("projectId", "project is required")
	}
	if input.Priority < MinTaskPriority || input.Priority > MaxTaskPriority {
		vErr.add("priority", fmt.Sprintf("priority must be between %d and %d", MinTaskPriority, MaxTaskPriority))
	}
	if len(input.AssigneeIDs) == 0 {
		vErr.add("assigneeIds", "at least one assignee is required")
	}
	return vErr
}
