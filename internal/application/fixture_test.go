package application

import (
	"context"
	"testing"
	"time"
)

var ict = time.FixedZone("ICT", 7*60*60)

// monday0805 is the default clock reading: a Monday, five minutes after the day shift starts.
var monday0805 = time.Date(2024, 3, 4, 8, 5, 0, 0, ict)

type serviceEnv struct {
	store    *memoryStore
	notifier *recordingNotifier
	clock    *testClock
	tokens   *TokenManager

	departments *DepartmentService
	employees   *EmployeeService
	shifts      *ShiftService
	projects    *ProjectService
	tasks       *TaskService
	comments    *CommentService
	timekeeping *TimekeepingService
	qr          *QRService
	otps        *OTPService
	auth        *AuthService
}

// newServiceEnv wires every service over one seeded memoryStore:
//
//	departments: eng, ops, archive (inactive)
//	employees:   admin (ADMIN), mgr (MANAGER eng), ann and bob (USER eng),
//	             mops (MANAGER ops), oli (USER ops)
//	shifts:      day (global 08:00-17:00), eng-late (eng 13:00-22:00),
//	             ops-early (ops 06:00-14:00), retired (global, inactive)
//	projects:    proj-eng (eng, managed by mgr, members ann and bob),
//	             proj-ops (ops, managed by mops, member oli)
//
// Every employee's password is "secret-" followed by the id.
func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	env := &serviceEnv{
		store:    newMemoryStore(),
		notifier: newRecordingNotifier(),
		clock:    &testClock{now: monday0805},
	}
	env.tokens = NewTokenManager("access-secret", "qr-secret", time.Hour, time.Hour, env.clock.Now)

	ids := sequentialIDs("id")
	env.departments = NewDepartmentService(env.store, ids, env.clock.Now)
	env.employees = NewEmployeeService(env.store, env.store, plainPasswords, env.notifier, ids, env.clock.Now)
	env.shifts = NewShiftService(env.store, ids, env.clock.Now)
	env.projects = NewProjectService(env.store, env.store, env.store, env.notifier, ids, env.clock.Now)
	env.tasks = NewTaskService(env.store, env.store, env.store, env.notifier, ids, env.clock.Now)
	env.comments = NewCommentService(env.store, env.store, env.store, ids, env.clock.Now)
	env.timekeeping = NewTimekeepingService(env.store, env.store, env.store, env.tokens, ict, ids, env.clock.Now)
	env.qr = NewQRService(env.store, env.tokens, func(content string) ([]byte, error) {
		return []byte("png:" + content), nil
	})
	env.otps = NewOTPService(env.store, ids, env.clock.Now, 15*time.Minute)
	env.auth = NewAuthService(env.store, env.otps, env.tokens, plainPasswords, env.notifier, ids, env.clock.Now)

	env.seed(t)
	return env
}

func (env *serviceEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	created := monday0805.Add(-30 * 24 * time.Hour)

	for _, department := range []Department{
		{ID: "eng", Name: "Engineering", IsActive: true},
		{ID: "ops", Name: "Operations", IsActive: true},
		{ID: "archive", Name: "Archive"},
	} {
		department.CreatedAt, department.UpdatedAt = created, created
		if _, err := env.store.CreateDepartment(ctx, department); err != nil {
			t.Fatalf("seed department %s: %v", department.ID, err)
		}
	}

	for _, employee := range []Employee{
		{ID: "admin", FullName: "Alice Admin", Role: RoleAdmin},
		{ID: "mgr", FullName: "Mai Manager", Role: RoleManager, DepartmentID: strPtr("eng")},
		{ID: "ann", FullName: "Ann User", Role: RoleUser, DepartmentID: strPtr("eng")},
		{ID: "bob", FullName: "Bob User", Role: RoleUser, DepartmentID: strPtr("eng")},
		{ID: "mops", FullName: "Minh Ops", Role: RoleManager, DepartmentID: strPtr("ops")},
		{ID: "oli", FullName: "Oli Ops", Role: RoleUser, DepartmentID: strPtr("ops")},
	} {
		employee.Email = employee.ID + "@example.com"
		employee.IsActive = true
		employee.CreatedAt, employee.UpdatedAt = created, created
		if _, err := env.store.CreateEmployee(ctx, employee, "plain:secret-"+employee.ID); err != nil {
			t.Fatalf("seed employee %s: %v", employee.ID, err)
		}
	}

	for _, shift := range []Shift{
		{ID: "day", Name: "Day", StartTime: "08:00", EndTime: "17:00", IsActive: true},
		{ID: "eng-late", Name: "Late", StartTime: "13:00", EndTime: "22:00", DepartmentID: strPtr("eng"), IsActive: true},
		{ID: "ops-early", Name: "Early", StartTime: "06:00", EndTime: "14:00", DepartmentID: strPtr("ops"), IsActive: true},
		{ID: "retired", Name: "Retired", StartTime: "09:00", EndTime: "18:00"},
	} {
		shift.CreatedAt, shift.UpdatedAt = created, created
		if _, err := env.store.CreateShift(ctx, shift); err != nil {
			t.Fatalf("seed shift %s: %v", shift.ID, err)
		}
	}

	for _, project := range []Project{
		{ID: "proj-eng", Name: "Payroll revamp", DepartmentID: "eng", ManagerID: "mgr", MemberIDs: []string{"ann", "bob"}},
		{ID: "proj-ops", Name: "Warehouse audit", DepartmentID: "ops", ManagerID: "mops", MemberIDs: []string{"oli"}},
	} {
		project.Status = ProjectStatusActive
		project.CreatedAt, project.UpdatedAt = created, created
		if _, err := env.store.CreateProject(ctx, project); err != nil {
			t.Fatalf("seed project %s: %v", project.ID, err)
		}
	}
}

// principal resolves the current principal of a seeded employee.
func (env *serviceEnv) principal(t *testing.T, employeeID string) Principal {
	t.Helper()
	employee, err := env.store.GetEmployee(context.Background(), employeeID)
	if err != nil {
		t.Fatalf("unknown employee %s: %v", employeeID, err)
	}
	return principalFor(employee)
}

// createTask opens a task in proj-eng assigned by mgr, supervised by mgr and assigned to assignees.
func (env *serviceEnv) createTask(t *testing.T, title string, assignees ...string) Task {
	t.Helper()
	task, err := env.tasks.CreateTask(context.Background(), env.principal(t, "mgr"), TaskInput{
		Title:       title,
		ProjectID:   "proj-eng",
		AssigneeIDs: assignees,
	})
	if err != nil {
		t.Fatalf("CreateTask(%s) failed: %v", title, err)
	}
	return task
}

func strPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func rolePtr(role Role) *Role {
	return &role
}
