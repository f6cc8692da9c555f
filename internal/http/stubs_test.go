package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/hrm-service/internal/application"
)

var (
	adminPrincipal   = application.Principal{EmployeeID: "admin", Role: application.RoleAdmin}
	managerPrincipal = application.Principal{EmployeeID: "mgr", Role: application.RoleManager, DepartmentID: "dep-ops"}
	userPrincipal    = application.Principal{EmployeeID: "ann", Role: application.RoleUser, DepartmentID: "dep-ops"}
	fixedTime        = time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC)
)

// tokenTable resolves "Bearer <name>" to a fixed principal.
type tokenTable map[string]application.Principal

func (t tokenTable) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	principal, ok := t[token]
	if !ok {
		return application.Principal{}, application.ErrInvalidToken
	}
	return principal, nil
}

var testTokens = tokenTable{"admin": adminPrincipal, "manager": managerPrincipal, "user": userPrincipal}

func newTestRouter(cfg RouterConfig) http.Handler {
	cfg.Authenticator = RequireAuth(testTokens, discardLogger())
	cfg.Logger = discardLogger()
	return NewRouter(cfg)
}

func do(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
}

type stubAuthService struct {
	login          func(application.LoginParams) (application.LoginResult, error)
	register       func(application.RegisterParams) (application.Employee, error)
	changePassword func(application.Principal, string, string) error
	forgot         func(string) error
	reset          func(string, string) error
}

func (s *stubAuthService) Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error) {
	return s.login(params)
}

func (s *stubAuthService) Register(ctx context.Context, params application.RegisterParams) (application.Employee, error) {
	return s.register(params)
}

func (s *stubAuthService) Profile(ctx context.Context, principal application.Principal) (application.Employee, error) {
	return application.Employee{ID: principal.EmployeeID, Role: principal.Role, IsActive: true}, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, principal application.Principal, current, next string) error {
	return s.changePassword(principal, current, next)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgot(email)
}

func (s *stubAuthService) ResetPasswordWithOTP(ctx context.Context, email, code string) error {
	return s.reset(email, code)
}

type stubTaskService struct {
	calls        []string
	lastParams   application.TaskListParams
	lastInput    application.TaskInput
	lastStatus   application.ChangeStatusParams
	lastComplete *bool
	err          error
}

func (s *stubTaskService) task(id string) application.Task {
	return application.Task{ID: id, Title: "Audit", Status: application.TaskStatusPending, AssigneeIDs: []string{"ann"}, CreatedAt: fixedTime, UpdatedAt: fixedTime}
}

func (s *stubTaskService) record(call string) { s.calls = append(s.calls, call) }

func (s *stubTaskService) CreateTask(ctx context.Context, p application.Principal, input application.TaskInput) (application.Task, error) {
	s.record("CreateTask")
	s.lastInput = input
	if s.err != nil {
		return application.Task{}, s.err
	}
	task := s.task("t-1")
	task.AssignerID = p.EmployeeID
	task.DueDate = input.DueDate
	return task, nil
}

func (s *stubTaskService) GetTask(ctx context.Context, p application.Principal, id string) (application.Task, error) {
	s.record("GetTask:" + id)
	return s.task(id), s.err
}

func (s *stubTaskService) list(name string, params application.TaskListParams) ([]application.Task, error) {
	s.record(name)
	s.lastParams = params
	return []application.Task{s.task("t-1"), s.task("t-2")}, s.err
}

func (s *stubTaskService) ListTasks(ctx context.Context, p application.Principal, params application.TaskListParams) ([]application.Task, error) {
	return s.list("ListTasks", params)
}

func (s *stubTaskService) ListAssignedToMe(ctx context.Context, p application.Principal, params application.TaskListParams) ([]application.Task, error) {
	return s.list("ListAssignedToMe", params)
}

func (s *stubTaskService) ListInMyProjects(ctx context.Context, p application.Principal, params application.TaskListParams) ([]application.Task, error) {
	return s.list("ListInMyProjects", params)
}

func (s *stubTaskService) ListSupervisedByMe(ctx context.Context, p application.Principal, params application.TaskListParams) ([]application.Task, error) {
	return s.list("ListSupervisedByMe", params)
}

func (s *stubTaskService) ListOverdue(ctx context.Context, p application.Principal, params application.TaskListParams) ([]application.Task, error) {
	return s.list("ListOverdue", params)
}

func (s *stubTaskService) UpdateTask(ctx context.Context, p application.Principal, id string, input application.TaskInput) (application.Task, error) {
	s.record("UpdateTask:" + id)
	s.lastInput = input
	return s.task(id), s.err
}

func (s *stubTaskService) ChangeStatus(ctx context.Context, p application.Principal, id string, params application.ChangeStatusParams) (application.Task, error) {
	s.record("ChangeStatus:" + id)
	s.lastStatus = params
	if s.err != nil {
		return application.Task{}, s.err
	}
	task := s.task(id)
	task.Status = params.Status
	return task, nil
}

func (s *stubTaskService) DeleteTask(ctx context.Context, p application.Principal, id string) error {
	s.record("DeleteTask:" + id)
	return s.err
}

func (s *stubTaskService) AddSubTask(ctx context.Context, p application.Principal, taskID, content string) (application.SubTask, error) {
	s.record("AddSubTask:" + taskID)
	return application.SubTask{ID: "s-1", TaskID: taskID, Content: content}, s.err
}

func (s *stubTaskService) SetSubTaskCompleted(ctx context.Context, p application.Principal, subTaskID string, completed *bool) (application.SubTask, error) {
	s.record("SetSubTaskCompleted:" + subTaskID)
	s.lastComplete = completed
	return application.SubTask{ID: subTaskID, IsCompleted: completed == nil || *completed}, s.err
}

func (s *stubTaskService) UpdateSubTaskContent(ctx context.Context, p application.Principal, subTaskID, content string) (application.SubTask, error) {
	s.record("UpdateSubTaskContent:" + subTaskID)
	return application.SubTask{ID: subTaskID, Content: content}, s.err
}

func (s *stubTaskService) DeleteSubTask(ctx context.Context, p application.Principal, subTaskID string) error {
	s.record("DeleteSubTask:" + subTaskID)
	return s.err
}

type stubCommentService struct {
	lastInput   application.CommentInput
	lastSummary *bool
	err         error
}

func (s *stubCommentService) CreateComment(ctx context.Context, p application.Principal, input application.CommentInput) (application.Comment, error) {
	s.lastInput = input
	return application.Comment{ID: "c-1", TaskID: input.TaskID, AuthorID: p.EmployeeID, Content: input.Content, IsSummary: input.IsSummary}, s.err
}

func (s *stubCommentService) ListByTask(ctx context.Context, p application.Principal, taskID string) ([]application.Comment, error) {
	return []application.Comment{{ID: "c-1", TaskID: taskID}}, s.err
}

func (s *stubCommentService) MarkAsSummary(ctx context.Context, p application.Principal, id string, isSummary bool) (application.Comment, error) {
	s.lastSummary = &isSummary
	return application.Comment{ID: id, IsSummary: isSummary}, s.err
}

func (s *stubCommentService) DeleteComment(ctx context.Context, p application.Principal, id string) error {
	return s.err
}

type stubTimekeepingService struct {
	calls     []string
	lastToken string
	lastIn    application.CheckInParams
	lastList  application.TimekeepingListParams
	err       error
}

func (s *stubTimekeepingService) record(call string) application.Timekeeping {
	s.calls = append(s.calls, call)
	return application.Timekeeping{
		ID:         "tk-1",
		EmployeeID: "ann",
		ShiftID:    "shift-1",
		WorkDate:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.FixedZone("ICT", 7*3600)),
		CheckIn:    "08:30",
		IsLate:     true,
	}
}

func (s *stubTimekeepingService) CheckIn(ctx context.Context, p application.Principal, params application.CheckInParams) (application.Timekeeping, error) {
	s.lastIn = params
	return s.record("CheckIn"), s.err
}

func (s *stubTimekeepingService) CheckOut(ctx context.Context, p application.Principal, params application.CheckOutParams) (application.Timekeeping, error) {
	return s.record("CheckOut"), s.err
}

func (s *stubTimekeepingService) CheckInWithQR(ctx context.Context, p application.Principal, token string) (application.Timekeeping, error) {
	s.lastToken = token
	return s.record("CheckInWithQR"), s.err
}

func (s *stubTimekeepingService) CheckOutWithQR(ctx context.Context, p application.Principal, token string) (application.Timekeeping, error) {
	s.lastToken = token
	return s.record("CheckOutWithQR"), s.err
}

func (s *stubTimekeepingService) ListTimekeeping(ctx context.Context, p application.Principal, params application.TimekeepingListParams) ([]application.Timekeeping, error) {
	s.lastList = params
	return []application.Timekeeping{s.record("ListTimekeeping")}, s.err
}

func (s *stubTimekeepingService) GetTimekeeping(ctx context.Context, p application.Principal, id string) (application.Timekeeping, error) {
	return s.record("GetTimekeeping:" + id), s.err
}

func (s *stubTimekeepingService) UpdateNote(ctx context.Context, p application.Principal, id, note string) (application.Timekeeping, error) {
	record := s.record("UpdateNote:" + id)
	record.Note = note
	return record, s.err
}

func (s *stubTimekeepingService) DeleteTimekeeping(ctx context.Context, p application.Principal, id string) error {
	s.record("DeleteTimekeeping:" + id)
	return s.err
}

type stubQRService struct {
	lastParams application.GenerateQRParams
	lastCaller application.Principal
	err        error
}

func (s *stubQRService) Generate(ctx context.Context, p application.Principal, params application.GenerateQRParams) (application.QRCode, error) {
	s.lastParams = params
	s.lastCaller = p
	if s.err != nil {
		return application.QRCode{}, s.err
	}
	return application.QRCode{
		Token:        "qr-token",
		Type:         params.Type,
		ShiftID:      params.ShiftID,
		DepartmentID: p.DepartmentID,
		ExpiresAt:    fixedTime.Add(15 * time.Minute),
		PNG:          []byte{0x89, 'P', 'N', 'G'},
	}, nil
}

type stubProjectService struct {
	lastMembers []string
	removed     string
	err         error
}

func (s *stubProjectService) project(id string) application.Project {
	return application.Project{ID: id, Name: "Guild", DepartmentID: "dep-ops", ManagerID: "mgr", Status: application.ProjectStatusActive}
}

func (s *stubProjectService) CreateProject(ctx context.Context, p application.Principal, input application.ProjectInput) (application.Project, error) {
	project := s.project("p-1")
	project.MemberIDs = input.MemberIDs
	return project, s.err
}

func (s *stubProjectService) GetProject(ctx context.Context, p application.Principal, id string) (application.Project, error) {
	return s.project(id), s.err
}

func (s *stubProjectService) ListProjects(ctx context.Context, p application.Principal) ([]application.Project, error) {
	return []application.Project{s.project("p-1")}, s.err
}

func (s *stubProjectService) UpdateProject(ctx context.Context, p application.Principal, id string, input application.ProjectInput) (application.Project, error) {
	return s.project(id), s.err
}

func (s *stubProjectService) DeleteProject(ctx context.Context, p application.Principal, id string) error {
	return s.err
}

func (s *stubProjectService) AddMembers(ctx context.Context, p application.Principal, projectID string, memberIDs []string) (application.Project, error) {
	s.lastMembers = memberIDs
	project := s.project(projectID)
	project.MemberIDs = memberIDs
	return project, s.err
}

func (s *stubProjectService) RemoveMember(ctx context.Context, p application.Principal, projectID, memberID string) error {
	s.removed = projectID + "/" + memberID
	return s.err
}

type stubEmployeeService struct {
	lastInput application.EmployeeInput
	lastDept  string
	err       error
}

func (s *stubEmployeeService) CreateEmployee(ctx context.Context, p application.Principal, input application.EmployeeInput) (application.Employee, error) {
	s.lastInput = input
	employee := application.Employee{ID: "e-1", FullName: input.FullName, Email: input.Email, IsActive: true, DepartmentID: input.DepartmentID}
	if input.Role != nil {
		employee.Role = *input.Role
	}
	return employee, s.err
}

func (s *stubEmployeeService) GetEmployee(ctx context.Context, p application.Principal, id string) (application.Employee, error) {
	return application.Employee{ID: id}, s.err
}

func (s *stubEmployeeService) ListEmployees(ctx context.Context, p application.Principal, departmentID string) ([]application.Employee, error) {
	s.lastDept = departmentID
	return nil, s.err
}

func (s *stubEmployeeService) UpdateEmployee(ctx context.Context, p application.Principal, id string, input application.EmployeeInput) (application.Employee, error) {
	s.lastInput = input
	return application.Employee{ID: id}, s.err
}

func (s *stubEmployeeService) DeleteEmployee(ctx context.Context, p application.Principal, id string) error {
	return s.err
}

type stubDepartmentService struct {
	lastInput application.DepartmentInput
	err       error
}

func (s *stubDepartmentService) CreateDepartment(ctx context.Context, p application.Principal, input application.DepartmentInput) (application.Department, error) {
	s.lastInput = input
	return application.Department{ID: "dep-1", Name: input.Name, IsActive: true}, s.err
}

func (s *stubDepartmentService) GetDepartment(ctx context.Context, p application.Principal, id string) (application.Department, error) {
	return application.Department{ID: id}, s.err
}

func (s *stubDepartmentService) ListDepartments(ctx context.Context, p application.Principal) ([]application.Department, error) {
	return []application.Department{{ID: "dep-1"}, {ID: "dep-2"}}, s.err
}

func (s *stubDepartmentService) UpdateDepartment(ctx context.Context, p application.Principal, id string, input application.DepartmentInput) (application.Department, error) {
	s.lastInput = input
	return application.Department{ID: id, Name: input.Name}, s.err
}

func (s *stubDepartmentService) DeleteDepartment(ctx context.Context, p application.Principal, id string) error {
	return s.err
}

type stubShiftService struct {
	lastActiveOnly bool
	lastInput      application.ShiftInput
	err            error
}

func (s *stubShiftService) CreateShift(ctx context.Context, p application.Principal, input application.ShiftInput) (application.Shift, error) {
	s.lastInput = input
	return application.Shift{ID: "shift-1", Name: input.Name, StartTime: input.StartTime, EndTime: input.EndTime, IsActive: true}, s.err
}

func (s *stubShiftService) GetShift(ctx context.Context, p application.Principal, id string) (application.Shift, error) {
	return application.Shift{ID: id}, s.err
}

func (s *stubShiftService) ListShifts(ctx context.Context, p application.Principal, activeOnly bool) ([]application.Shift, error) {
	s.lastActiveOnly = activeOnly
	return []application.Shift{{ID: "shift-1"}}, s.err
}

func (s *stubShiftService) UpdateShift(ctx context.Context, p application.Principal, id string, input application.ShiftInput) (application.Shift, error) {
	s.lastInput = input
	return application.Shift{ID: id}, s.err
}

func (s *stubShiftService) DeleteShift(ctx context.Context, p application.Principal, id string) error {
	return s.err
}
