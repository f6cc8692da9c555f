package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/hrm-service/internal/application"
)

type office struct {
	harness  *SQLiteHarness
	clock    *Clock
	notifier *RecordingNotifier
	services *Services

	manager EmployeeFixture
	ann     EmployeeFixture
	shift   application.Shift
}

func newOffice(t *testing.T) *office {
	t.Helper()

	harness := NewSQLiteHarness(t, time.UTC)
	clock := NewClock(time.Time{})
	notifier := &RecordingNotifier{}
	factory := NewServiceFactory(WithClock(clock), WithNotifier(notifier))

	department := harness.SeedDepartment(t, NewDepartmentFixture(WithDepartmentID("dep-ops"), WithDepartmentName("Operations")))
	manager := NewEmployeeFixture(WithEmployeeID("mgr"), WithEmployeeRole(application.RoleManager), WithEmployeeDepartment(department.ID))
	ann := NewEmployeeFixture(WithEmployeeID("ann"), WithEmployeeName("Ann Tran"), WithEmployeeDepartment(department.ID))
	harness.SeedEmployee(t, manager)
	harness.SeedEmployee(t, ann)
	shift := harness.SeedShift(t, NewShiftFixture(WithShiftID("shift-day"), WithShiftDepartment(department.ID)))

	return &office{
		harness:  harness,
		clock:    clock,
		notifier: notifier,
		services: factory.Build(harness.Storage, harness.Location),
		manager:  manager,
		ann:      ann,
		shift:    shift,
	}
}

func (o *office) qrToken(t *testing.T, operation string) string {
	t.Helper()
	code, err := o.services.QR.Generate(context.Background(), o.manager.Principal(), application.GenerateQRParams{ShiftID: o.shift.ID, Type: operation})
	if err != nil {
		t.Fatalf("generate %s qr: %v", operation, err)
	}
	return code.Token
}

func TestServiceFactoryLoginIssuesValidToken(t *testing.T) {
	t.Parallel()

	o := newOffice(t)
	ctx := context.Background()

	result, err := o.services.Auth.Login(ctx, application.LoginParams{Email: o.ann.Email, Password: DefaultPassword})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !result.ExpiresAt.Equal(o.clock.Current().Add(AccessTokenTTL)) {
		t.Fatalf("expected expiry from factory clock, got %v", result.ExpiresAt)
	}

	principal, err := o.services.Auth.ValidateToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if principal != o.ann.Principal() {
		t.Fatalf("expected %+v, got %+v", o.ann.Principal(), principal)
	}

	if _, err := o.services.Auth.Login(ctx, application.LoginParams{Email: o.ann.Email, Password: "wrong-password"}); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestShiftListingScopeOverSQLite(t *testing.T) {
	t.Parallel()

	o := newOffice(t)
	ctx := context.Background()
	other := o.harness.SeedDepartment(t, NewDepartmentFixture(WithDepartmentID("dep-x")))
	o.harness.SeedShift(t, NewShiftFixture(WithShiftID("global-day")))
	o.harness.SeedShift(t, NewShiftFixture(WithShiftID("x-shift"), WithShiftDepartment(other.ID)))

	shifts, err := o.services.Shifts.ListShifts(ctx, o.manager.Principal(), false)
	if err != nil {
		t.Fatalf("ListShifts(manager) returned error: %v", err)
	}
	if len(shifts) != 1 || shifts[0].ID != o.shift.ID {
		t.Fatalf("expected manager to see only %s, got %+v", o.shift.ID, shifts)
	}
	for _, shift := range shifts {
		if shift.DepartmentID == nil || *shift.DepartmentID != "dep-ops" {
			t.Fatalf("shift %s is outside the manager's department", shift.ID)
		}
	}

	shifts, err = o.services.Shifts.ListShifts(ctx, o.ann.Principal(), false)
	if err != nil {
		t.Fatalf("ListShifts(user) returned error: %v", err)
	}
	seen := map[string]bool{}
	for _, shift := range shifts {
		seen[shift.ID] = true
	}
	if len(shifts) != 2 || !seen["global-day"] || !seen[o.shift.ID] {
		t.Fatalf("expected user to see own department and global shifts, got %+v", shifts)
	}
}

func TestQRAttendanceDayOverSQLite(t *testing.T) {
	t.Parallel()

	o := newOffice(t)
	ctx := context.Background()
	ann := o.ann.Principal()

	o.clock.SetWallClock(time.UTC, 8, 10)
	checkIn := o.qrToken(t, application.AttendanceCheckIn)

	if _, err := o.services.Timekeeping.CheckOutWithQR(ctx, ann, checkIn); !errors.Is(err, application.ErrInvalidToken) {
		t.Fatalf("expected a check-in token to be refused for check-out, got %v", err)
	}

	record, err := o.services.Timekeeping.CheckInWithQR(ctx, ann, checkIn)
	if err != nil {
		t.Fatalf("CheckInWithQR returned error: %v", err)
	}
	if record.CheckIn != "08:10" || !record.IsLate || record.ShiftID != o.shift.ID || record.ID != "tk-1" {
		t.Fatalf("unexpected check-in record %+v", record)
	}

	if _, err := o.services.Timekeeping.CheckInWithQR(ctx, ann, checkIn); !errors.Is(err, application.ErrConflict) {
		t.Fatalf("expected second check-in to conflict, got %v", err)
	}

	o.clock.SetWallClock(time.UTC, 16, 30)
	record, err = o.services.Timekeeping.CheckOutWithQR(ctx, ann, o.qrToken(t, application.AttendanceCheckOut))
	if err != nil {
		t.Fatalf("CheckOutWithQR returned error: %v", err)
	}
	if record.CheckOut == nil || *record.CheckOut != "16:30" || !record.IsEarlyLeave {
		t.Fatalf("unexpected check-out record %+v", record)
	}

	stored, err := o.services.Timekeeping.GetTimekeeping(ctx, o.manager.Principal(), record.ID)
	if err != nil {
		t.Fatalf("GetTimekeeping returned error: %v", err)
	}
	if !stored.WorkDate.Equal(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected work date %v", stored.WorkDate)
	}

	o.clock.NextDay()
	o.clock.SetWallClock(time.UTC, 7, 50)
	stale := o.qrToken(t, application.AttendanceCheckIn)
	o.clock.Advance(QRTokenTTL + time.Minute)
	if _, err := o.services.Timekeeping.CheckInWithQR(ctx, ann, stale); !errors.Is(err, application.ErrTokenExpired) {
		t.Fatalf("expected expired qr token, got %v", err)
	}
}

func TestTaskWorkflowOverSQLite(t *testing.T) {
	t.Parallel()

	o := newOffice(t)
	ctx := context.Background()
	manager, ann := o.manager.Principal(), o.ann.Principal()

	project := o.harness.SeedProject(t, NewProjectFixture("dep-ops", o.manager.ID, WithProjectID("proj-ops"), WithProjectMembers(o.ann.ID)))

	task, err := o.services.Tasks.CreateTask(ctx, manager, application.TaskInput{
		Title:       "Quarterly stock count",
		ProjectID:   project.ID,
		AssigneeIDs: []string{o.ann.ID},
	})
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if task.Status != application.TaskStatusPending || task.SupervisorID != o.manager.ID || task.Priority != application.DefaultTaskPriority {
		t.Fatalf("unexpected new task %+v", task)
	}

	change := func(p application.Principal, status application.TaskStatus, comment string) (application.Task, error) {
		return o.services.Tasks.ChangeStatus(ctx, p, task.ID, application.ChangeStatusParams{Status: status, Comment: comment})
	}

	if _, err := change(manager, application.TaskStatusInProgress, ""); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected only assignees to start work, got %v", err)
	}
	o.clock.Advance(time.Hour)
	if task, err = change(ann, application.TaskStatusInProgress, ""); err != nil || task.StartedAt == nil {
		t.Fatalf("start work: %+v %v", task, err)
	}
	if task, err = change(ann, application.TaskStatusWaitingReview, ""); err != nil || task.SubmittedAt == nil {
		t.Fatalf("submit for review: %+v %v", task, err)
	}
	if _, err := change(ann, application.TaskStatusCompleted, ""); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected assignee approval to be refused, got %v", err)
	}

	task, err = change(manager, application.TaskStatusCompleted, "Counts reconciled")
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(o.clock.Current()) {
		t.Fatalf("expected completion timestamp, got %+v", task)
	}

	if _, err := change(manager, application.TaskStatusPending, ""); !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected completed task to be terminal, got %v", err)
	}

	comments, err := o.services.Comments.ListByTask(ctx, ann, task.ID)
	if err != nil {
		t.Fatalf("ListByTask returned error: %v", err)
	}
	if len(comments) != 1 || !comments[0].IsSummary || comments[0].AuthorID != o.manager.ID {
		t.Fatalf("expected the review summary comment, got %+v", comments)
	}

	want := []string{"TaskAssigned:" + task.ID, "TaskSubmitted:" + task.ID, "TaskReviewed:" + task.ID}
	events := o.notifier.Events()
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestPasswordResetWithOTPOverSQLite(t *testing.T) {
	t.Parallel()

	o := newOffice(t)
	ctx := context.Background()

	if err := o.services.Auth.ForgotPassword(ctx, o.ann.Email); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	code := o.notifier.LastOTP(o.ann.Email)
	if len(code) != 6 {
		t.Fatalf("expected a six digit code, got %q", code)
	}

	if err := o.services.Auth.ResetPasswordWithOTP(ctx, o.ann.Email, "not-it"); !errors.Is(err, application.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
	if err := o.services.Auth.ResetPasswordWithOTP(ctx, o.ann.Email, code); err != nil {
		t.Fatalf("ResetPasswordWithOTP returned error: %v", err)
	}
	if err := o.services.Auth.ResetPasswordWithOTP(ctx, o.ann.Email, code); !errors.Is(err, application.ErrInvalidOTP) {
		t.Fatalf("expected a used code to be refused, got %v", err)
	}

	password := o.notifier.LastPassword(o.ann.Email)
	if _, err := o.services.Auth.Login(ctx, application.LoginParams{Email: o.ann.Email, Password: DefaultPassword}); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected the old password to stop working, got %v", err)
	}
	if _, err := o.services.Auth.Login(ctx, application.LoginParams{Email: o.ann.Email, Password: password}); err != nil {
		t.Fatalf("login with mailed password: %v", err)
	}
}
