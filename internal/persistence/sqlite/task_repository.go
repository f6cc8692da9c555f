package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// TaskRepository implements application.TaskRepository using SQLite.
// Assignees and subtasks live in child tables that cascade with the task.
type TaskRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new SQLite task repository
func NewTaskRepository(pool *ConnectionPool) *TaskRepository {
	return &TaskRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const taskColumns = `t.id, t.title, t.description, t.priority, t.project_id, t.assigner_id, t.supervisor_id,
	t.status, t.due_date, t.started_at, t.submitted_at, t.completed_at, t.created_at, t.updated_at`

// CreateTask inserts a task with its assignees
func (r *TaskRepository) CreateTask(ctx context.Context, task application.Task) (application.Task, error) {
	if task.ID == "" {
		return application.Task{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, title, description, priority, project_id, assigner_id, supervisor_id,
				status, due_date, started_at, submitted_at, completed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			task.ID,
			task.Title,
			task.Description,
			task.Priority,
			task.ProjectID,
			task.AssignerID,
			task.SupervisorID,
			string(task.Status),
			formatOptionalTime(task.DueDate),
			formatOptionalTime(task.StartedAt),
			formatOptionalTime(task.SubmittedAt),
			formatOptionalTime(task.CompletedAt),
			formatTime(task.CreatedAt),
			formatTime(task.UpdatedAt),
		); err != nil {
			return err
		}
		return replaceAssignees(ctx, tx, task.ID, task.AssigneeIDs)
	})
	if err != nil {
		return application.Task{}, r.mapper.MapError(err)
	}
	return r.GetTask(ctx, task.ID)
}

// GetTask retrieves a task with its assignees and subtasks
func (r *TaskRepository) GetTask(ctx context.Context, id string) (application.Task, error) {
	if id == "" {
		return application.Task{}, persistence.ErrNotFound
	}
	task, err := scanTask(r.helper.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id))
	if err != nil {
		return application.Task{}, r.mapper.MapError(err)
	}

	tasks := []application.Task{task}
	if err := r.attachChildren(ctx, tasks); err != nil {
		return application.Task{}, err
	}
	return tasks[0], nil
}

// UpdateTask overwrites the task details and replaces the assignee set.
// Status fields are left to UpdateTaskStatus.
func (r *TaskRepository) UpdateTask(ctx context.Context, task application.Task) (application.Task, error) {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.helper.ExecAffecting(ctx, tx, `
			UPDATE tasks
			SET title = ?, description = ?, priority = ?, supervisor_id = ?, due_date = ?, updated_at = ?
			WHERE id = ?
		`,
			task.Title,
			task.Description,
			task.Priority,
			task.SupervisorID,
			formatOptionalTime(task.DueDate),
			formatTime(task.UpdatedAt),
			task.ID,
		); err != nil {
			return err
		}
		return replaceAssignees(ctx, tx, task.ID, task.AssigneeIDs)
	})
	if err != nil {
		return application.Task{}, r.mapper.MapError(err)
	}
	return r.GetTask(ctx, task.ID)
}

// UpdateTaskStatus moves the task out of status from. A concurrent change
// that already moved the task yields persistence.ErrStaleWrite.
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, task application.Task, from application.TaskStatus, summary *application.Comment) (application.Task, error) {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := r.helper.ExecAffecting(ctx, tx, `
			UPDATE tasks
			SET status = ?, started_at = ?, submitted_at = ?, completed_at = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`,
			string(task.Status),
			formatOptionalTime(task.StartedAt),
			formatOptionalTime(task.SubmittedAt),
			formatOptionalTime(task.CompletedAt),
			formatTime(task.UpdatedAt),
			task.ID,
			string(from),
		)
		if errors.Is(err, persistence.ErrNotFound) {
			var exists int
			if scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, task.ID).Scan(&exists); scanErr != nil {
				return scanErr
			}
			return persistence.ErrStaleWrite
		}
		if err != nil {
			return err
		}

		if summary == nil {
			return nil
		}
		return insertComment(ctx, tx, *summary)
	})
	if err != nil {
		return application.Task{}, r.mapper.MapError(err)
	}
	return r.GetTask(ctx, task.ID)
}

// DeleteTask removes a task; assignees, subtasks and comments cascade
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	return r.mapper.MapError(r.helper.ExecAffecting(ctx, nil, `DELETE FROM tasks WHERE id = ?`, id))
}

// ListTasks returns tasks matching every set filter field, newest first
func (r *TaskRepository) ListTasks(ctx context.Context, filter application.TaskFilter) ([]application.Task, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ProjectID != "" {
		conditions = append(conditions, "t.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, "p.department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.employee_id = ?)")
		args = append(args, filter.AssigneeID)
	}
	if filter.SupervisorID != "" {
		conditions = append(conditions, "t.supervisor_id = ?")
		args = append(args, filter.SupervisorID)
	}
	if filter.ProjectParticipantID != "" {
		conditions = append(conditions, `(p.manager_id = ? OR EXISTS (
			SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.employee_id = ?))`)
		args = append(args, filter.ProjectParticipantID, filter.ProjectParticipantID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "t.due_date IS NOT NULL AND t.due_date < ?")
		args = append(args, formatTime(*filter.DueBefore))
	}
	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, "t.status NOT IN ("+placeholders(len(filter.ExcludeStatuses))+")")
		for _, status := range filter.ExcludeStatuses {
			args = append(args, string(status))
		}
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN projects p ON p.id = t.project_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	tasks := []application.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if err := r.attachChildren(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateSubTask inserts a checklist item
func (r *TaskRepository) CreateSubTask(ctx context.Context, subTask application.SubTask) (application.SubTask, error) {
	if subTask.ID == "" {
		return application.SubTask{}, persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO subtasks (id, task_id, content, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		subTask.ID,
		subTask.TaskID,
		subTask.Content,
		subTask.IsCompleted,
		formatTime(subTask.CreatedAt),
		formatTime(subTask.UpdatedAt),
	)
	if err != nil {
		return application.SubTask{}, r.mapper.MapError(err)
	}
	return r.GetSubTask(ctx, subTask.ID)
}

// GetSubTask retrieves a checklist item by ID
func (r *TaskRepository) GetSubTask(ctx context.Context, id string) (application.SubTask, error) {
	if id == "" {
		return application.SubTask{}, persistence.ErrNotFound
	}
	subTask, err := scanSubTask(r.helper.QueryRow(ctx,
		`SELECT id, task_id, content, is_completed, created_at, updated_at FROM subtasks WHERE id = ?`, id))
	if err != nil {
		return application.SubTask{}, r.mapper.MapError(err)
	}
	return subTask, nil
}

// UpdateSubTask overwrites the content and completion flag
func (r *TaskRepository) UpdateSubTask(ctx context.Context, subTask application.SubTask) (application.SubTask, error) {
	err := r.helper.ExecAffecting(ctx, nil,
		`UPDATE subtasks SET content = ?, is_completed = ?, updated_at = ? WHERE id = ?`,
		subTask.Content, subTask.IsCompleted, formatTime(subTask.UpdatedAt), subTask.ID,
	)
	if err != nil {
		return application.SubTask{}, r.mapper.MapError(err)
	}
	return r.GetSubTask(ctx, subTask.ID)
}

// DeleteSubTask removes a checklist item
func (r *TaskRepository) DeleteSubTask(ctx context.Context, id string) error {
	return r.mapper.MapError(r.helper.ExecAffecting(ctx, nil, `DELETE FROM subtasks WHERE id = ?`, id))
}

// attachChildren loads assignees and subtasks for tasks in two queries.
func (r *TaskRepository) attachChildren(ctx context.Context, tasks []application.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
		index[task.ID] = i
		tasks[i].AssigneeIDs = []string{}
		tasks[i].SubTasks = []application.SubTask{}
	}

	rows, err := r.helper.Query(ctx,
		`SELECT task_id, employee_id FROM task_assignees
		 WHERE task_id IN (`+placeholders(len(ids))+`)
		 ORDER BY task_id, position ASC`,
		stringArgs(ids)...,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	for rows.Next() {
		var taskID, employeeID string
		if err := rows.Scan(&taskID, &employeeID); err != nil {
			rows.Close()
			return r.mapper.MapError(err)
		}
		i := index[taskID]
		tasks[i].AssigneeIDs = append(tasks[i].AssigneeIDs, employeeID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return r.mapper.MapError(err)
	}
	rows.Close()

	rows, err = r.helper.Query(ctx,
		`SELECT id, task_id, content, is_completed, created_at, updated_at FROM subtasks
		 WHERE task_id IN (`+placeholders(len(ids))+`)
		 ORDER BY created_at ASC, id ASC`,
		stringArgs(ids)...,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		subTask, err := scanSubTask(rows)
		if err != nil {
			return r.mapper.MapError(err)
		}
		i := index[subTask.TaskID]
		tasks[i].SubTasks = append(tasks[i].SubTasks, subTask)
	}
	return r.mapper.MapError(rows.Err())
}

func replaceAssignees(ctx context.Context, tx *sql.Tx, taskID string, assigneeIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for position, id := range assigneeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_assignees (task_id, employee_id, position) VALUES (?, ?, ?)`,
			taskID, id, position,
		); err != nil {
			return err
		}
	}
	return nil
}

func scanTask(row rowScanner) (application.Task, error) {
	var (
		task                                         application.Task
		status                                       string
		dueDate, startedAt, submittedAt, completedAt sql.NullString
		createdAt, updatedAt                         string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.ProjectID,
		&task.AssignerID,
		&task.SupervisorID,
		&status,
		&dueDate,
		&startedAt,
		&submittedAt,
		&completedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Task{}, persistence.ErrNotFound
		}
		return application.Task{}, err
	}

	task.Status = application.TaskStatus(status)

	var err error
	if task.DueDate, err = parseOptionalTime(dueDate); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if task.StartedAt, err = parseOptionalTime(startedAt); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if task.SubmittedAt, err = parseOptionalTime(submittedAt); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	if task.CompletedAt, err = parseOptionalTime(completedAt); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Task{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return task, nil
}

func scanSubTask(row rowScanner) (application.SubTask, error) {
	var (
		subTask              application.SubTask
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&subTask.ID,
		&subTask.TaskID,
		&subTask.Content,
		&subTask.IsCompleted,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.SubTask{}, persistence.ErrNotFound
		}
		return application.SubTask{}, err
	}

	var err error
	if subTask.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.SubTask{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if subTask.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.SubTask{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return subTask, nil
}
