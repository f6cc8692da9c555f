package application

import "time"

// Role identifies the authorization tier of an employee.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Principal represents the authenticated employee invoking a service method.
type Principal struct {
	EmployeeID   string
	Role         Role
	DepartmentID string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsManager reports whether the principal holds the MANAGER role.
func (p Principal) IsManager() bool { return p.Role == RoleManager }

// Department is an organizational unit scoping manager visibility.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DepartmentInput captures caller provided department fields.
type DepartmentInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// Employee represents a staff member and login identity.
type Employee struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	Position     string
	Role         Role
	DepartmentID *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InDepartment reports whether the employee belongs to departmentID.
func (e Employee) InDepartment(departmentID string) bool {
	return departmentID != "" && e.DepartmentID != nil && *e.DepartmentID == departmentID
}

// EmployeeCredentials models the authentication attributes persisted for an employee.
type EmployeeCredentials struct {
	Employee     Employee
	PasswordHash string
}

// EmployeeInput captures caller provided employee fields. Nil pointers leave
// the stored value untouched on update.
type EmployeeInput struct {
	FullName     string
	Email        string
	Phone        string
	Position     string
	Password     string
	Role         *Role
	DepartmentID *string
	IsActive     *bool
}

// Shift is a named working window used by attendance.
type Shift struct {
	ID           string
	Name         string
	StartTime    string // HH:mm
	EndTime      string // HH:mm
	DepartmentID *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ShiftInput captures caller provided shift fields.
type ShiftInput struct {
	Name         string
	StartTime    string
	EndTime      string
	DepartmentID *string
	IsActive     *bool
}

// Project statuses.
const (
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusOnHold    = "ON_HOLD"
	ProjectStatusCancelled = "CANCELLED"
)

// Project is a departmental initiative with a manager and member roster.
type Project struct {
	ID           string
	Name         string
	Description  string
	DepartmentID string
	ManagerID    string
	MemberIDs    []string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether employeeID manages or belongs to the project.
func (p Project) HasParticipant(employeeID string) bool {
	if employeeID == "" {
		return false
	}
	if p.ManagerID == employeeID {
		return true
	}
	return containsID(p.MemberIDs, employeeID)
}

// ProjectInput captures caller provided project fields.
type ProjectInput struct {
	Name         string
	Description  string
	DepartmentID string
	ManagerID    string
	MemberIDs    []string
	Status       string
}

// TaskStatus is a position in the task workflow.
type TaskStatus string

const (
	TaskStatusPending       TaskStatus = "PENDING"
	TaskStatusInProgress    TaskStatus = "IN_PROGRESS"
	TaskStatusWaitingReview TaskStatus = "WAITING_REVIEW"
	TaskStatusCompleted     TaskStatus = "COMPLETED"
	TaskStatusRejected      TaskStatus = "REJECTED"
)

// Valid reports whether the status is part of the workflow.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusWaitingReview, TaskStatusCompleted, TaskStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusRejected
}

// Task priority bounds.
const (
	MinTaskPriority     = 1
	MaxTaskPriority     = 5
	DefaultTaskPriority = 3
)

// Task is a unit of work inside a project.
type Task struct {
	ID           string
	Title        string
	Description  string
	Priority     int
	ProjectID    string
	AssignerID   string
	SupervisorID string
	AssigneeIDs  []string
	Status       TaskStatus
	DueDate      *time.Time
	StartedAt    *time.Time
	SubmittedAt  *time.Time
	CompletedAt  *time.Time
	SubTasks     []SubTask
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssignee reports whether employeeID is in the assignee set.
func (t Task) IsAssignee(employeeID string) bool {
	return containsID(t.AssigneeIDs, employeeID)
}

// IsParticipant reports whether employeeID is an assignee, the supervisor or the assigner.
func (t Task) IsParticipant(employeeID string) bool {
	if employeeID == "" {
		return false
	}
	return t.AssignerID == employeeID || t.SupervisorID == employeeID || t.IsAssignee(employeeID)
}

// TaskInput captures caller provided task fields.
type TaskInput struct {
	Title        string
	Description  string
	Priority     int
	ProjectID    string
	SupervisorID string
	AssigneeIDs  []string
	DueDate      *time.Time
}

// SubTask is a checklist item owned by a task.
type SubTask struct {
	ID          string
	TaskID      string
	Content     string
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a note attached to a task.
type Comment struct {
	ID        string
	TaskID    string
	AuthorID  string
	Content   string
	IsSummary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attendance operation types bound into QR tokens.
const (
	AttendanceCheckIn  = "CHECKIN"
	AttendanceCheckOut = "CHECKOUT"
)

// Timekeeping records one employee's attendance for one calendar day.
type Timekeeping struct {
	ID           string
	EmployeeID   string
	ShiftID      string
	WorkDate     time.Time // local midnight of the attendance day
	CheckIn      string    // HH:mm
	CheckOut     *string   // HH:mm
	IsLate       bool
	IsEarlyLeave bool
	Note         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OTP is a one-time password reset code.
type OTP struct {
	ID         string
	EmployeeID string
	Email      string
	Code       string
	IsUsed     bool
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

func containsID(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
