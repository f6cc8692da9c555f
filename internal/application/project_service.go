package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// ProjectService orchestrates validation, authorization, and persistence for projects.
type ProjectService struct {
	projects    ProjectRepository
	employees   EmployeeRepository
	departments DepartmentRepository
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProjectService constructs a project service.
func NewProjectService(projects ProjectRepository, employees EmployeeRepository, departments DepartmentRepository, notifier Notifier, idGenerator func() string, now func() time.Time) *ProjectService {
	return NewProjectServiceWithLogger(projects, employees, departments, notifier, idGenerator, now, nil)
}

// NewProjectServiceWithLogger constructs a project service with a specified logger.
func NewProjectServiceWithLogger(projects ProjectRepository, employees EmployeeRepository, departments DepartmentRepository, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProjectService{
		projects:    projects,
		employees:   employees,
		departments: departments,
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ProjectService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProjectService", operation, attrs...)
}

// CreateProject persists a project. Managers create projects in their own
// department only; the project manager defaults to the caller.
func (s *ProjectService) CreateProject(ctx context.Context, principal Principal, input ProjectInput) (project Project, err error) {
	if s == nil || s.projects == nil {
		err = fmt.Errorf("project repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateProject", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create project", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("project_id", project.ID, "department_id", project.DepartmentID).InfoContext(ctx, "project created")
	}()

	input = normalizeProjectInput(input)
	switch {
	case principal.IsAdmin():
	case principal.IsManager() && principal.DepartmentID != "":
		if input.DepartmentID == "" {
			input.DepartmentID = principal.DepartmentID
		}
		if input.DepartmentID != principal.DepartmentID {
			err = fmt.Errorf("%w: managers create projects in their own department", ErrForbidden)
			return
		}
	default:
		err = ErrForbidden
		return
	}
	if input.ManagerID == "" {
		input.ManagerID = principal.EmployeeID
	}
	if input.Status == "" {
		input.Status = ProjectStatusActive
	}

	if vErr := validateProjectInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.requireDepartment(ctx, input.DepartmentID); err != nil {
		return
	}

	var members []Employee
	members, err = s.resolveParticipants(ctx, input.ManagerID, input.MemberIDs)
	if err != nil {
		return
	}

	now := s.now()
	project = Project{
		ID:           s.idGenerator(),
		Name:         input.Name,
		Description:  input.Description,
		DepartmentID: input.DepartmentID,
		ManagerID:    input.ManagerID,
		MemberIDs:    input.MemberIDs,
		Status:       input.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	project, err = s.projects.CreateProject(ctx, project)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	s.notifyMembers(ctx, logger, project, members)
	return
}

// GetProject returns a project visible to the principal.
func (s *ProjectService) GetProject(ctx context.Context, principal Principal, id string) (Project, error) {
	if s == nil || s.projects == nil {
		return Project{}, fmt.Errorf("project repository not configured")
	}

	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return Project{}, mapRepoError(err)
	}
	if !canViewProject(principal, project) {
		return Project{}, ErrForbidden
	}
	return project, nil
}

// ListProjects returns every project for administrators, the own-department
// projects for managers, and the projects a user manages or belongs to.
func (s *ProjectService) ListProjects(ctx context.Context, principal Principal) ([]Project, error) {
	if s == nil || s.projects == nil {
		return nil, fmt.Errorf("project repository not configured")
	}

	var filter ProjectFilter
	switch {
	case principal.IsAdmin():
	case principal.IsManager() && principal.DepartmentID != "":
		filter.DepartmentID = principal.DepartmentID
	default:
		filter.ParticipantID = principal.EmployeeID
	}

	projects, err := s.projects.ListProjects(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// UpdateProject replaces the project's attributes and member set.
func (s *ProjectService) UpdateProject(ctx context.Context, principal Principal, id string, input ProjectInput) (project Project, err error) {
	if s == nil || s.projects == nil {
		err = fmt.Errorf("project repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProject", "principal_id", principal.EmployeeID, "project_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update project", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "project updated")
	}()

	var existing Project
	existing, err = s.projects.GetProject(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canManageProject(principal, existing) {
		err = ErrForbidden
		return
	}

	input = normalizeProjectInput(input)
	if input.DepartmentID == "" {
		input.DepartmentID = existing.DepartmentID
	}
	if input.ManagerID == "" {
		input.ManagerID = existing.ManagerID
	}
	if input.Status == "" {
		input.Status = existing.Status
	}
	if input.MemberIDs == nil {
		input.MemberIDs = existing.MemberIDs
	}
	if input.DepartmentID != existing.DepartmentID {
		if !principal.IsAdmin() {
			err = fmt.Errorf("%w: only administrators move projects between departments", ErrForbidden)
			return
		}
		if err = s.requireDepartment(ctx, input.DepartmentID); err != nil {
			return
		}
	}

	if vErr := validateProjectInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var members []Employee
	members, err = s.resolveParticipants(ctx, input.ManagerID, input.MemberIDs)
	if err != nil {
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Description = input.Description
	updated.DepartmentID = input.DepartmentID
	updated.ManagerID = input.ManagerID
	updated.MemberIDs = input.MemberIDs
	updated.Status = input.Status
	updated.UpdatedAt = s.now()

	project, err = s.projects.UpdateProject(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var added []Employee
	for _, member := range members {
		if !containsID(existing.MemberIDs, member.ID) {
			added = append(added, member)
		}
	}
	s.notifyMembers(ctx, logger, project, added)
	return
}

// DeleteProject removes a project together with its tasks.
func (s *ProjectService) DeleteProject(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.projects == nil {
		return fmt.Errorf("project repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteProject", "principal_id", principal.EmployeeID, "project_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete project", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "project deleted")
	}()

	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if !canManageProject(principal, project) {
		return ErrForbidden
	}
	return mapRepoError(s.projects.DeleteProject(ctx, id))
}

// AddMembers adds employees to the project roster and notifies the newcomers.
// The project manager may manage the roster as well.
func (s *ProjectService) AddMembers(ctx context.Context, principal Principal, projectID string, memberIDs []string) (project Project, err error) {
	if s == nil || s.projects == nil {
		err = fmt.Errorf("project repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "AddMembers", "principal_id", principal.EmployeeID, "project_id", projectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add project members", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_count", len(project.MemberIDs)).InfoContext(ctx, "project members added")
	}()

	project, err = s.projects.GetProject(ctx, projectID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !s.canManageRoster(principal, project) {
		err = ErrForbidden
		return
	}

	memberIDs = dedupeIDs(memberIDs)
	if len(memberIDs) == 0 {
		err = newValidationError("memberIds", "at least one member is required")
		return
	}

	var fresh []string
	for _, id := range memberIDs {
		if !containsID(project.MemberIDs, id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return
	}

	var members []Employee
	members, err = s.resolveEmployees(ctx, "memberIds", fresh)
	if err != nil {
		return
	}

	if err = s.projects.AddProjectMembers(ctx, projectID, fresh); err != nil {
		err = mapRepoError(err)
		return
	}

	project.MemberIDs = append(project.MemberIDs, fresh...)
	s.notifyMembers(ctx, logger, project, members)
	return
}

// RemoveMember drops an employee from the project roster.
func (s *ProjectService) RemoveMember(ctx context.Context, principal Principal, projectID, memberID string) (err error) {
	if s == nil || s.projects == nil {
		return fmt.Errorf("project repository not configured")
	}

	logger := s.loggerWith(ctx, "RemoveMember", "principal_id", principal.EmployeeID, "project_id", projectID, "member_id", memberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove project member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "project member removed")
	}()

	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return mapRepoError(err)
	}
	if !s.canManageRoster(principal, project) {
		return ErrForbidden
	}
	if !containsID(project.MemberIDs, memberID) {
		return fmt.Errorf("%w: employee is not a project member", ErrNotFound)
	}
	return mapRepoError(s.projects.RemoveProjectMember(ctx, projectID, memberID))
}

func (s *ProjectService) canManageRoster(principal Principal, project Project) bool {
	return canManageProject(principal, project) || project.ManagerID == principal.EmployeeID
}

func (s *ProjectService) requireDepartment(ctx context.Context, departmentID string) error {
	if s.departments == nil {
		return nil
	}
	if _, err := s.departments.GetDepartment(ctx, departmentID); err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return newValidationError("departmentId", "department does not exist")
		}
		return err
	}
	return nil
}

// resolveParticipants checks that the manager and all members exist and
// returns the member records.
func (s *ProjectService) resolveParticipants(ctx context.Context, managerID string, memberIDs []string) ([]Employee, error) {
	if _, err := s.resolveEmployees(ctx, "managerId", []string{managerID}); err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return nil, nil
	}
	return s.resolveEmployees(ctx, "memberIds", memberIDs)
}

func (s *ProjectService) resolveEmployees(ctx context.Context, field string, ids []string) ([]Employee, error) {
	return lookupEmployees(ctx, s.employees, field, ids)
}

func (s *ProjectService) notifyMembers(ctx context.Context, logger *slog.Logger, project Project, members []Employee) {
	if len(members) == 0 {
		return
	}
	if nErr := s.notifier.ProjectMembersAdded(ctx, project, members); nErr != nil {
		logger.WarnContext(ctx, "failed to queue membership email", "error", nErr)
	}
}

// lookupEmployees loads the employees with the given ids and fails with a
// validation error on field when any id is unknown.
func lookupEmployees(ctx context.Context, employees EmployeeRepository, field string, ids []string) ([]Employee, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	if employees == nil {
		return nil, fmt.Errorf("employee repository not configured")
	}

	found, err := employees.ListEmployees(ctx, EmployeeFilter{IDs: ids})
	if err != nil {
		return nil, mapRepoError(err)
	}

	known := make(map[string]struct{}, len(found))
	for _, e := range found {
		known[e.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, newValidationError(field, "unknown employees: "+strings.Join(missing, ", "))
	}
	return found, nil
}

func normalizeProjectInput(input ProjectInput) ProjectInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.DepartmentID = strings.TrimSpace(input.DepartmentID)
	input.ManagerID = strings.TrimSpace(input.ManagerID)
	input.Status = strings.ToUpper(strings.TrimSpace(input.Status))
	if input.MemberIDs != nil {
		input.MemberIDs = dedupeIDs(input.MemberIDs)
	}
	return input
}

func validateProjectInput(input ProjectInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.DepartmentID == "" {
		vErr.add("departmentId", "department is required")
	}
	if input.ManagerID == "" {
		vErr.add("managerId", "manager is required")
	}
	switch input.Status {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
	default:
		vErr.add("status", "status is invalid")
	}
	return vErr
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
