package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/hrm-service/internal/persistence"
)

// memoryStore implements every repository interface in memory. It mirrors the
// constraints of the SQLite schema that the services rely on: unique emails
// and department names, one attendance record per employee and day, guarded
// status updates and cascading deletes.
type memoryStore struct {
	mu sync.Mutex

	departments map[string]Department
	employees   map[string]EmployeeCredentials
	shifts      map[string]Shift
	projects    map[string]Project
	tasks       map[string]Task
	subTasks    map[string]SubTask
	comments    map[string]Comment
	records     map[string]Timekeeping
	otps        map[string]OTP

	// beforeStatusUpdate runs inside UpdateTaskStatus before the guard is checked.
	beforeStatusUpdate func(tasks map[string]Task)
}

var (
	_ DepartmentRepository  = (*memoryStore)(nil)
	_ EmployeeRepository    = (*memoryStore)(nil)
	_ ShiftRepository       = (*memoryStore)(nil)
	_ ProjectRepository     = (*memoryStore)(nil)
	_ TaskRepository        = (*memoryStore)(nil)
	_ CommentRepository     = (*memoryStore)(nil)
	_ TimekeepingRepository = (*memoryStore)(nil)
	_ OTPRepository         = (*memoryStore)(nil)
)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		departments: map[string]Department{},
		employees:   map[string]EmployeeCredentials{},
		shifts:      map[string]Shift{},
		projects:    map[string]Project{},
		tasks:       map[string]Task{},
		subTasks:    map[string]SubTask{},
		comments:    map[string]Comment{},
		records:     map[string]Timekeeping{},
		otps:        map[string]OTP{},
	}
}

// Departments

func (m *memoryStore) CreateDepartment(ctx context.Context, department Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[department.ID]; ok {
		return Department{}, persistence.ErrDuplicate
	}
	for _, existing := range m.departments {
		if strings.EqualFold(existing.Name, department.Name) {
			return Department{}, persistence.ErrDuplicate
		}
	}
	m.departments[department.ID] = department
	return department, nil
}

func (m *memoryStore) GetDepartment(ctx context.Context, id string) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	department, ok := m.departments[id]
	if !ok {
		return Department{}, persistence.ErrNotFound
	}
	return department, nil
}

func (m *memoryStore) UpdateDepartment(ctx context.Context, department Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[department.ID]; !ok {
		return Department{}, persistence.ErrNotFound
	}
	for _, existing := range m.departments {
		if existing.ID != department.ID && strings.EqualFold(existing.Name, department.Name) {
			return Department{}, persistence.ErrDuplicate
		}
	}
	m.departments[department.ID] = department
	return department, nil
}

func (m *memoryStore) ListDepartments(ctx context.Context, filter DepartmentFilter) ([]Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Department{}
	for _, department := range m.departments {
		if filter.IDs != nil && !containsID(filter.IDs, department.ID) {
			continue
		}
		if filter.ActiveOnly && !department.IsActive {
			continue
		}
		out = append(out, department)
	}
	return out, nil
}

// Employees

func (m *memoryStore) CreateEmployee(ctx context.Context, employee Employee, passwordHash string) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	employee.Email = strings.ToLower(employee.Email)
	if _, ok := m.employees[employee.ID]; ok {
		return Employee{}, persistence.ErrDuplicate
	}
	for _, existing := range m.employees {
		if existing.Employee.Email == employee.Email {
			return Employee{}, persistence.ErrDuplicate
		}
	}
	m.employees[employee.ID] = EmployeeCredentials{Employee: employee, PasswordHash: passwordHash}
	return employee, nil
}

func (m *memoryStore) GetEmployee(ctx context.Context, id string) (Employee, error) {
	creds, err := m.GetCredentials(ctx, id)
	return creds.Employee, err
}

func (m *memoryStore) GetCredentials(ctx context.Context, id string) (EmployeeCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.employees[id]
	if !ok {
		return EmployeeCredentials{}, persistence.ErrNotFound
	}
	return creds, nil
}

func (m *memoryStore) GetCredentialsByEmail(ctx context.Context, email string) (EmployeeCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.employees {
		if creds.Employee.Email == strings.ToLower(email) {
			return creds, nil
		}
	}
	return EmployeeCredentials{}, persistence.ErrNotFound
}

func (m *memoryStore) UpdateEmployee(ctx context.Context, employee Employee) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.employees[employee.ID]
	if !ok {
		return Employee{}, persistence.ErrNotFound
	}
	employee.Email = strings.ToLower(employee.Email)
	for _, existing := range m.employees {
		if existing.Employee.ID != employee.ID && existing.Employee.Email == employee.Email {
			return Employee{}, persistence.ErrDuplicate
		}
	}
	creds.Employee = employee
	m.employees[employee.ID] = creds
	return employee, nil
}

func (m *memoryStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.employees[id]
	if !ok {
		return persistence.ErrNotFound
	}
	creds.PasswordHash = passwordHash
	creds.Employee.UpdatedAt = updatedAt
	m.employees[id] = creds
	return nil
}

func (m *memoryStore) DeleteEmployee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, project := range m.projects {
		if project.HasParticipant(id) {
			return persistence.ErrForeignKey
		}
	}
	for _, task := range m.tasks {
		if task.IsParticipant(id) {
			return persistence.ErrForeignKey
		}
	}
	for _, record := range m.records {
		if record.EmployeeID == id {
			return persistence.ErrForeignKey
		}
	}
	delete(m.employees, id)
	return nil
}

func (m *memoryStore) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Employee{}
	for _, creds := range m.employees {
		employee := creds.Employee
		if filter.DepartmentID != "" && !employee.InDepartment(filter.DepartmentID) {
			continue
		}
		if filter.IDs != nil && !containsID(filter.IDs, employee.ID) {
			continue
		}
		out = append(out, employee)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// Shifts

func (m *memoryStore) CreateShift(ctx context.Context, shift Shift) (Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[shift.ID]; ok {
		return Shift{}, persistence.ErrDuplicate
	}
	m.shifts[shift.ID] = shift
	return shift, nil
}

func (m *memoryStore) GetShift(ctx context.Context, id string) (Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shift, ok := m.shifts[id]
	if !ok {
		return Shift{}, persistence.ErrNotFound
	}
	return shift, nil
}

func (m *memoryStore) UpdateShift(ctx context.Context, shift Shift) (Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[shift.ID]; !ok {
		return Shift{}, persistence.ErrNotFound
	}
	m.shifts[shift.ID] = shift
	return shift, nil
}

func (m *memoryStore) ListShifts(ctx context.Context, filter ShiftFilter) ([]Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Shift{}
	for _, shift := range m.shifts {
		if filter.GlobalOnly && shift.DepartmentID != nil {
			continue
		}
		if filter.DepartmentID != "" {
			owned := shift.DepartmentID != nil && *shift.DepartmentID == filter.DepartmentID
			global := shift.DepartmentID == nil && filter.IncludeGlobal
			if !owned && !global {
				continue
			}
		}
		if filter.ActiveOnly && !shift.IsActive {
			continue
		}
		if filter.Name != "" && !strings.EqualFold(shift.Name, filter.Name) {
			continue
		}
		out = append(out, shift)
	}
	return out, nil
}

// Projects

func (m *memoryStore) CreateProject(ctx context.Context, project Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; ok {
		return Project{}, persistence.ErrDuplicate
	}
	project.MemberIDs = cloneIDs(project.MemberIDs)
	m.projects[project.ID] = project
	return project, nil
}

func (m *memoryStore) GetProject(ctx context.Context, id string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return Project{}, persistence.ErrNotFound
	}
	project.MemberIDs = cloneIDs(project.MemberIDs)
	return project, nil
}

func (m *memoryStore) UpdateProject(ctx context.Context, project Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return Project{}, persistence.ErrNotFound
	}
	project.MemberIDs = cloneIDs(project.MemberIDs)
	m.projects[project.ID] = project
	return project, nil
}

func (m *memoryStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.projects, id)
	for taskID, task := range m.tasks {
		if task.ProjectID == id {
			m.deleteTaskLocked(taskID)
		}
	}
	return nil
}

func (m *memoryStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Project{}
	for _, project := range m.projects {
		if filter.DepartmentID != "" && project.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.ParticipantID != "" && !project.HasParticipant(filter.ParticipantID) {
			continue
		}
		project.MemberIDs = cloneIDs(project.MemberIDs)
		out = append(out, project)
	}
	return out, nil
}

func (m *memoryStore) AddProjectMembers(ctx context.Context, projectID string, memberIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return persistence.ErrNotFound
	}
	members := cloneIDs(project.MemberIDs)
	for _, id := range memberIDs {
		if !containsID(members, id) {
			members = append(members, id)
		}
	}
	project.MemberIDs = members
	m.projects[projectID] = project
	return nil
}

func (m *memoryStore) RemoveProjectMember(ctx context.Context, projectID, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok || !containsID(project.MemberIDs, memberID) {
		return persistence.ErrNotFound
	}
	members := make([]string, 0, len(project.MemberIDs))
	for _, id := range project.MemberIDs {
		if id != memberID {
			members = append(members, id)
		}
	}
	project.MemberIDs = members
	m.projects[projectID] = project
	return nil
}

func (m *memoryStore) IsProjectMember(ctx context.Context, projectID, employeeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return false, nil
	}
	return project.HasParticipant(employeeID), nil
}

// Tasks

func (m *memoryStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return Task{}, persistence.ErrDuplicate
	}
	if _, ok := m.projects[task.ProjectID]; !ok {
		return Task{}, persistence.ErrForeignKey
	}
	task.AssigneeIDs = cloneIDs(task.AssigneeIDs)
	task.SubTasks = nil
	m.tasks[task.ID] = task
	return m.taskLocked(task.ID), nil
}

func (m *memoryStore) GetTask(ctx context.Context, id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return Task{}, persistence.ErrNotFound
	}
	return m.taskLocked(id), nil
}

func (m *memoryStore) UpdateTask(ctx context.Context, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[task.ID]
	if !ok {
		return Task{}, persistence.ErrNotFound
	}
	task.Status = stored.Status
	task.StartedAt, task.SubmittedAt, task.CompletedAt = stored.StartedAt, stored.SubmittedAt, stored.CompletedAt
	task.AssigneeIDs = cloneIDs(task.AssigneeIDs)
	task.SubTasks = nil
	m.tasks[task.ID] = task
	return m.taskLocked(task.ID), nil
}

func (m *memoryStore) UpdateTaskStatus(ctx context.Context, task Task, from TaskStatus, summary *Comment) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeStatusUpdate != nil {
		m.beforeStatusUpdate(m.tasks)
	}
	stored, ok := m.tasks[task.ID]
	if !ok {
		return Task{}, persistence.ErrNotFound
	}
	if stored.Status != from {
		return Task{}, persistence.ErrStaleWrite
	}
	stored.Status = task.Status
	stored.StartedAt, stored.SubmittedAt, stored.CompletedAt = task.StartedAt, task.SubmittedAt, task.CompletedAt
	stored.UpdatedAt = task.UpdatedAt
	m.tasks[task.ID] = stored
	if summary != nil {
		m.comments[summary.ID] = *summary
	}
	return m.taskLocked(task.ID), nil
}

func (m *memoryStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return persistence.ErrNotFound
	}
	m.deleteTaskLocked(id)
	return nil
}

func (m *memoryStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Task{}
	for id, task := range m.tasks {
		project := m.projects[task.ProjectID]
		switch {
		case filter.ProjectID != "" && task.ProjectID != filter.ProjectID:
			continue
		case filter.DepartmentID != "" && project.DepartmentID != filter.DepartmentID:
			continue
		case filter.AssigneeID != "" && !task.IsAssignee(filter.AssigneeID):
			continue
		case filter.SupervisorID != "" && task.SupervisorID != filter.SupervisorID:
			continue
		case filter.ProjectParticipantID != "" && !project.HasParticipant(filter.ProjectParticipantID):
			continue
		case filter.Status != "" && task.Status != filter.Status:
			continue
		case filter.DueBefore != nil && (task.DueDate == nil || !task.DueDate.Before(*filter.DueBefore)):
			continue
		case containsStatus(filter.ExcludeStatuses, task.Status):
			continue
		}
		out = append(out, m.taskLocked(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryStore) CreateSubTask(ctx context.Context, subTask SubTask) (SubTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[subTask.TaskID]; !ok {
		return SubTask{}, persistence.ErrForeignKey
	}
	m.subTasks[subTask.ID] = subTask
	return subTask, nil
}

func (m *memoryStore) GetSubTask(ctx context.Context, id string) (SubTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subTask, ok := m.subTasks[id]
	if !ok {
		return SubTask{}, persistence.ErrNotFound
	}
	return subTask, nil
}

func (m *memoryStore) UpdateSubTask(ctx context.Context, subTask SubTask) (SubTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subTasks[subTask.ID]; !ok {
		return SubTask{}, persistence.ErrNotFound
	}
	m.subTasks[subTask.ID] = subTask
	return subTask, nil
}

func (m *memoryStore) DeleteSubTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subTasks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.subTasks, id)
	return nil
}

func (m *memoryStore) taskLocked(id string) Task {
	task := m.tasks[id]
	task.AssigneeIDs = cloneIDs(task.AssigneeIDs)
	task.SubTasks = []SubTask{}
	for _, subTask := range m.subTasks {
		if subTask.TaskID == id {
			task.SubTasks = append(task.SubTasks, subTask)
		}
	}
	sort.Slice(task.SubTasks, func(i, j int) bool { return task.SubTasks[i].ID < task.SubTasks[j].ID })
	return task
}

func (m *memoryStore) deleteTaskLocked(id string) {
	delete(m.tasks, id)
	for subID, subTask := range m.subTasks {
		if subTask.TaskID == id {
			delete(m.subTasks, subID)
		}
	}
	for commentID, comment := range m.comments {
		if comment.TaskID == id {
			delete(m.comments, commentID)
		}
	}
}

// Comments

func (m *memoryStore) CreateComment(ctx context.Context, comment Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[comment.TaskID]; !ok {
		return Comment{}, persistence.ErrForeignKey
	}
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memoryStore) GetComment(ctx context.Context, id string) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return Comment{}, persistence.ErrNotFound
	}
	return comment, nil
}

func (m *memoryStore) UpdateComment(ctx context.Context, comment Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[comment.ID]; !ok {
		return Comment{}, persistence.ErrNotFound
	}
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memoryStore) DeleteComment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *memoryStore) ListCommentsByTask(ctx context.Context, taskID string) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Comment{}
	for _, comment := range m.comments {
		if comment.TaskID == taskID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Timekeeping

func (m *memoryStore) CreateTimekeeping(ctx context.Context, record Timekeeping) (Timekeeping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.EmployeeID == record.EmployeeID && existing.WorkDate.Equal(record.WorkDate) {
			return Timekeeping{}, persistence.ErrDuplicate
		}
	}
	m.records[record.ID] = record
	return record, nil
}

func (m *memoryStore) GetTimekeeping(ctx context.Context, id string) (Timekeeping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return Timekeeping{}, persistence.ErrNotFound
	}
	return record, nil
}

func (m *memoryStore) FindForDay(ctx context.Context, employeeID string, dayStart, dayEnd time.Time) (Timekeeping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.EmployeeID == employeeID && !record.WorkDate.Before(dayStart) && record.WorkDate.Before(dayEnd) {
			return record, nil
		}
	}
	return Timekeeping{}, persistence.ErrNotFound
}

func (m *memoryStore) UpdateTimekeeping(ctx context.Context, record Timekeeping) (Timekeeping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; !ok {
		return Timekeeping{}, persistence.ErrNotFound
	}
	m.records[record.ID] = record
	return record, nil
}

func (m *memoryStore) DeleteTimekeeping(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memoryStore) ListTimekeeping(ctx context.Context, filter TimekeepingFilter) ([]Timekeeping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Timekeeping{}
	for _, record := range m.records {
		switch {
		case filter.EmployeeID != "" && record.EmployeeID != filter.EmployeeID:
			continue
		case filter.DepartmentID != "" && !m.employees[record.EmployeeID].Employee.InDepartment(filter.DepartmentID):
			continue
		case filter.From != nil && record.WorkDate.Before(*filter.From):
			continue
		case filter.To != nil && !record.WorkDate.Before(*filter.To):
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].WorkDate.After(out[j].WorkDate)
	})
	return out, nil
}

// OTPs

func (m *memoryStore) CreateOTP(ctx context.Context, otp OTP) (OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.otps[otp.ID]; ok {
		return OTP{}, persistence.ErrDuplicate
	}
	m.otps[otp.ID] = otp
	return otp, nil
}

func (m *memoryStore) DeleteUnusedOTPs(ctx context.Context, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, otp := range m.otps {
		if otp.EmployeeID == employeeID && !otp.IsUsed {
			delete(m.otps, id)
		}
	}
	return nil
}

func (m *memoryStore) FindActiveOTP(ctx context.Context, employeeID, code string, now time.Time) (OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		found OTP
		ok    bool
	)
	for _, otp := range m.otps {
		if otp.EmployeeID != employeeID || otp.Code != code || otp.IsUsed || !otp.ExpiresAt.After(now) {
			continue
		}
		if !ok || otp.CreatedAt.After(found.CreatedAt) {
			found, ok = otp, true
		}
	}
	if !ok {
		return OTP{}, persistence.ErrNotFound
	}
	return found, nil
}

func (m *memoryStore) MarkOTPUsed(ctx context.Context, id string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[id]
	if !ok || otp.IsUsed {
		return persistence.ErrNotFound
	}
	otp.IsUsed = true
	otp.UsedAt = &usedAt
	m.otps[id] = otp
	return nil
}

func (m *memoryStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, otp := range m.otps {
		if !otp.ExpiresAt.After(now) {
			delete(m.otps, id)
			deleted++
		}
	}
	return deleted, nil
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func containsStatus(statuses []TaskStatus, status TaskStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// recordingNotifier captures outbound messages.
type recordingNotifier struct {
	mu sync.Mutex

	otpCodes    map[string]string
	resets      map[string]string
	welcomes    map[string]string
	assigned    [][]string
	submitted   []string
	reviewed    []TaskStatus
	projectAdds [][]string
	failWith    error
}

var _ Notifier = (*recordingNotifier)(nil)

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		otpCodes: map[string]string{},
		resets:   map[string]string{},
		welcomes: map[string]string{},
	}
}

func (n *recordingNotifier) OTPIssued(ctx context.Context, employee Employee, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otpCodes[employee.Email] = code
	return n.failWith
}

func (n *recordingNotifier) PasswordReset(ctx context.Context, employee Employee, newPassword string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[employee.Email] = newPassword
	return n.failWith
}

func (n *recordingNotifier) EmployeeWelcome(ctx context.Context, employee Employee, password string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes[employee.Email] = password
	return n.failWith
}

func (n *recordingNotifier) TaskAssigned(ctx context.Context, task Task, assigner Employee, assignees []Employee) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, employeeIDs(assignees))
	return n.failWith
}

func (n *recordingNotifier) TaskSubmitted(ctx context.Context, task Task, submitter, supervisor Employee) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, supervisor.ID)
	return n.failWith
}

func (n *recordingNotifier) TaskReviewed(ctx context.Context, task Task, reviewer Employee, assignees []Employee) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, task.Status)
	return n.failWith
}

func (n *recordingNotifier) ProjectMembersAdded(ctx context.Context, project Project, members []Employee) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.projectAdds = append(n.projectAdds, employeeIDs(members))
	return n.failWith
}

func employeeIDs(employees []Employee) []string {
	ids := make([]string, 0, len(employees))
	for _, employee := range employees {
		ids = append(ids, employee.ID)
	}
	sort.Strings(ids)
	return ids
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

// plainPasswords avoids argon2 cost in service tests.
var plainPasswords = PasswordFuncs{
	Hash: func(password string) (string, error) { return "plain:" + password, nil },
	Verify: func(hash, password string) error {
		if hash != "plain:"+password {
			return errors.New("password mismatch")
		}
		return nil
	},
}
