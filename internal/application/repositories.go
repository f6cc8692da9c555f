package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/hrm-service/internal/persistence"
)

// DepartmentRepository captures the persistence operations needed by the department service.
type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, department Department) (Department, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	UpdateDepartment(ctx context.Context, department Department) (Department, error)
	ListDepartments(ctx context.Context, filter DepartmentFilter) ([]Department, error)
}

// DepartmentFilter narrows department listings.
type DepartmentFilter struct {
	IDs        []string
	ActiveOnly bool
}

// EmployeeRepository captures the persistence operations needed for employees.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee, passwordHash string) (Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetCredentialsByEmail(ctx context.Context, email string) (EmployeeCredentials, error)
	GetCredentials(ctx context.Context, id string) (EmployeeCredentials, error)
	UpdateEmployee(ctx context.Context, employee Employee) (Employee, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	DeleteEmployee(ctx context.Context, id string) error
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
}

// EmployeeFilter narrows employee listings. Empty fields do not filter.
type EmployeeFilter struct {
	DepartmentID string
	IDs          []string
}

// ShiftRepository captures the persistence operations needed by the shift service.
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift Shift) (Shift, error)
	GetShift(ctx context.Context, id string) (Shift, error)
	UpdateShift(ctx context.Context, shift Shift) (Shift, error)
	ListShifts(ctx context.Context, filter ShiftFilter) ([]Shift, error)
}

// ShiftFilter narrows shift listings. With DepartmentID set, IncludeGlobal
// also returns shifts without a department.
type ShiftFilter struct {
	DepartmentID  string
	IncludeGlobal bool
	GlobalOnly    bool
	ActiveOnly    bool
	Name          string
}

// ProjectRepository captures the persistence operations needed by the project service.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	UpdateProject(ctx context.Context, project Project) (Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	AddProjectMembers(ctx context.Context, projectID string, memberIDs []string) error
	RemoveProjectMember(ctx context.Context, projectID, memberID string) error
	IsProjectMember(ctx context.Context, projectID, employeeID string) (bool, error)
}

// ProjectFilter narrows project listings. ParticipantID matches the manager or a member.
type ProjectFilter struct {
	DepartmentID  string
	ParticipantID string
}

// TaskRepository captures the persistence operations needed by the task engine.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	// UpdateTaskStatus persists the status fields if the stored status still
	// equals from and, when summary is non-nil, inserts the summary comment in
	// the same transaction.
	UpdateTaskStatus(ctx context.Context, task Task, from TaskStatus, summary *Comment) (Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)

	CreateSubTask(ctx context.Context, subTask SubTask) (SubTask, error)
	GetSubTask(ctx context.Context, id string) (SubTask, error)
	UpdateSubTask(ctx context.Context, subTask SubTask) (SubTask, error)
	DeleteSubTask(ctx context.Context, id string) error
}

// TaskFilter narrows task listings. All set fields must match.
type TaskFilter struct {
	ProjectID string
	// DepartmentID matches tasks whose project belongs to the department.
	DepartmentID string
	AssigneeID   string
	SupervisorID string
	// ProjectParticipantID matches tasks of projects the employee manages or belongs to.
	ProjectParticipantID string
	Status               TaskStatus
	DueBefore            *time.Time
	ExcludeStatuses      []TaskStatus
}

// CommentRepository captures the persistence operations needed by the comment service.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment Comment) (Comment, error)
	GetComment(ctx context.Context, id string) (Comment, error)
	UpdateComment(ctx context.Context, comment Comment) (Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListCommentsByTask(ctx context.Context, taskID string) ([]Comment, error)
}

// TimekeepingRepository captures the persistence operations needed by the attendance engine.
type TimekeepingRepository interface {
	CreateTimekeeping(ctx context.Context, record Timekeeping) (Timekeeping, error)
	GetTimekeeping(ctx context.Context, id string) (Timekeeping, error)
	// FindForDay returns the record whose work date lies in [dayStart, dayEnd).
	FindForDay(ctx context.Context, employeeID string, dayStart, dayEnd time.Time) (Timekeeping, error)
	UpdateTimekeeping(ctx context.Context, record Timekeeping) (Timekeeping, error)
	DeleteTimekeeping(ctx context.Context, id string) error
	ListTimekeeping(ctx context.Context, filter TimekeepingFilter) ([]Timekeeping, error)
}

// TimekeepingFilter narrows attendance listings. From is inclusive, To exclusive.
type TimekeepingFilter struct {
	EmployeeID   string
	DepartmentID string
	From         *time.Time
	To           *time.Time
}

// OTPRepository captures the persistence operations needed for password reset codes.
type OTPRepository interface {
	CreateOTP(ctx context.Context, otp OTP) (OTP, error)
	DeleteUnusedOTPs(ctx context.Context, employeeID string) error
	FindActiveOTP(ctx context.Context, employeeID, code string, now time.Time) (OTP, error)
	MarkOTPUsed(ctx context.Context, id string, usedAt time.Time) error
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// mapRepoError translates persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKey), errors.Is(err, persistence.ErrStaleWrite):
		return ErrConflict
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"request": "value violates a storage constraint"}}
	}
	return err
}
