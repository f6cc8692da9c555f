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

// EmployeeService orchestrates validation, authorization, and persistence for employees.
type EmployeeService struct {
	employees   EmployeeRepository
	departments DepartmentRepository
	passwords   PasswordFuncs
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEmployeeService wires dependencies for the employee service.
func NewEmployeeService(employees EmployeeRepository, departments DepartmentRepository, passwords PasswordFuncs, notifier Notifier, idGenerator func() string, now func() time.Time) *EmployeeService {
	return NewEmployeeServiceWithLogger(employees, departments, passwords, notifier, idGenerator, now, nil)
}

// NewEmployeeServiceWithLogger wires dependencies for the employee service with a specified logger.
func NewEmployeeServiceWithLogger(employees EmployeeRepository, departments DepartmentRepository, passwords PasswordFuncs, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EmployeeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EmployeeService{
		employees:   employees,
		departments: departments,
		passwords:   passwords.withDefaults(),
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EmployeeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EmployeeService", operation, attrs...)
}

// CreateEmployee creates an employee. Administrators choose any role and
// department; managers always create USER-role employees in their own
// department, whatever the input says. A missing password is generated and
// mailed with the welcome message.
func (s *EmployeeService) CreateEmployee(ctx context.Context, principal Principal, input EmployeeInput) (employee Employee, err error) {
	if s == nil || s.employees == nil {
		err = fmt.Errorf("employee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEmployee", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create employee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("employee_id", employee.ID, "role", employee.Role).InfoContext(ctx, "employee created")
	}()

	switch {
	case principal.IsAdmin():
		if input.Role == nil {
			role := RoleUser
			input.Role = &role
		}
	case principal.IsManager():
		if principal.DepartmentID == "" {
			err = fmt.Errorf("%w: manager has no department", ErrForbidden)
			return
		}
		role := RoleUser
		department := principal.DepartmentID
		input.Role = &role
		input.DepartmentID = &department
	default:
		err = ErrForbidden
		return
	}

	employee, err = s.create(ctx, input)
	return
}

// CreateAdministrator creates an ADMIN employee outside any request scope.
// It backs the create-admin command.
func (s *EmployeeService) CreateAdministrator(ctx context.Context, input EmployeeInput) (Employee, error) {
	if s == nil || s.employees == nil {
		return Employee{}, fmt.Errorf("employee repository not configured")
	}
	role := RoleAdmin
	input.Role = &role
	input.DepartmentID = nil
	employee, err := s.create(ctx, input)
	if err != nil {
		s.loggerWith(ctx, "CreateAdministrator").ErrorContext(ctx, "failed to create administrator", "error", err, "error_kind", ErrorKind(err))
		return Employee{}, err
	}
	s.loggerWith(ctx, "CreateAdministrator").With("employee_id", employee.ID).InfoContext(ctx, "administrator created")
	return employee, nil
}

func (s *EmployeeService) create(ctx context.Context, input EmployeeInput) (Employee, error) {
	input = normalizeEmployeeInput(input)

	vErr := validateEmployeeProfile(input)
	role := *input.Role
	if !role.Valid() {
		vErr.add("role", "role must be ADMIN, MANAGER or USER")
	}
	if role != RoleAdmin && input.DepartmentID == nil {
		vErr.add("departmentId", "department is required for this role")
	}
	generated := input.Password == ""
	if !generated && len(input.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		return Employee{}, vErr
	}

	if input.DepartmentID != nil {
		if err := s.requireActiveDepartment(ctx, *input.DepartmentID); err != nil {
			return Employee{}, err
		}
	}

	password := input.Password
	if generated {
		var err error
		password, err = GeneratePassword(GeneratedPasswordLength)
		if err != nil {
			return Employee{}, err
		}
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return Employee{}, err
	}

	now := s.now()
	employee := Employee{
		ID:           s.idGenerator(),
		FullName:     input.FullName,
		Email:        input.Email,
		Phone:        input.Phone,
		Position:     input.Position,
		Role:         role,
		DepartmentID: input.DepartmentID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsActive != nil {
		employee.IsActive = *input.IsActive
	}

	employee, err = s.employees.CreateEmployee(ctx, employee, hash)
	if err != nil {
		return Employee{}, mapRepoError(err)
	}

	mailed := ""
	if generated {
		mailed = password
	}
	if nErr := s.notifier.EmployeeWelcome(ctx, employee, mailed); nErr != nil {
		s.loggerWith(ctx, "create", "employee_id", employee.ID).WarnContext(ctx, "failed to queue welcome email", "error", nErr)
	}
	return employee, nil
}

// GetEmployee returns an employee visible to the principal.
func (s *EmployeeService) GetEmployee(ctx context.Context, principal Principal, id string) (Employee, error) {
	if s == nil || s.employees == nil {
		return Employee{}, fmt.Errorf("employee repository not configured")
	}

	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, mapRepoError(err)
	}
	if !canViewEmployee(principal, employee) {
		return Employee{}, ErrForbidden
	}
	return employee, nil
}

// ListEmployees returns the employees in the principal's scope. Administrators
// may filter by department; managers always see their own department; users
// only themselves.
func (s *EmployeeService) ListEmployees(ctx context.Context, principal Principal, departmentID string) ([]Employee, error) {
	if s == nil || s.employees == nil {
		return nil, fmt.Errorf("employee repository not configured")
	}

	filter := EmployeeFilter{DepartmentID: strings.TrimSpace(departmentID)}
	switch {
	case principal.IsAdmin():
	case principal.IsManager():
		filter.DepartmentID = principal.DepartmentID
		if filter.DepartmentID == "" {
			filter = EmployeeFilter{IDs: []string{principal.EmployeeID}}
		}
	default:
		filter = EmployeeFilter{IDs: []string{principal.EmployeeID}}
	}

	employees, err := s.employees.ListEmployees(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	sort.Slice(employees, func(i, j int) bool {
		if strings.EqualFold(employees[i].FullName, employees[j].FullName) {
			return employees[i].ID < employees[j].ID
		}
		return strings.ToLower(employees[i].FullName) < strings.ToLower(employees[j].FullName)
	})
	return employees, nil
}

// UpdateEmployee applies profile changes. Everyone may edit their own profile
// fields; managers edit USER-role employees of their department; only
// administrators change role or department.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, principal Principal, id string, input EmployeeInput) (employee Employee, err error) {
	if s == nil || s.employees == nil {
		err = fmt.Errorf("employee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEmployee", "principal_id", principal.EmployeeID, "employee_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update employee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "employee updated")
	}()

	var existing Employee
	existing, err = s.employees.GetEmployee(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	self := principal.EmployeeID == existing.ID
	if !self && !canManageEmployee(principal, existing) {
		err = ErrForbidden
		return
	}

	input = normalizeEmployeeInput(input)
	updated := existing
	if input.FullName != "" {
		updated.FullName = input.FullName
	}
	if input.Email != "" {
		updated.Email = input.Email
	}
	if input.Phone != "" {
		updated.Phone = input.Phone
	}
	if input.Position != "" {
		updated.Position = input.Position
	}

	if changesRole(existing, input) || changesDepartment(existing, input) {
		if !principal.IsAdmin() {
			err = fmt.Errorf("%w: only administrators change role or department", ErrForbidden)
			return
		}
		if input.Role != nil {
			updated.Role = *input.Role
		}
		if input.DepartmentID != nil {
			updated.DepartmentID = input.DepartmentID
		}
	}

	if input.IsActive != nil && *input.IsActive != existing.IsActive {
		if self || !canManageEmployee(principal, existing) {
			err = fmt.Errorf("%w: cannot change own active flag", ErrForbidden)
			return
		}
		updated.IsActive = *input.IsActive
	}

	vErr := validateEmployeeProfile(EmployeeInput{FullName: updated.FullName, Email: updated.Email})
	if !updated.Role.Valid() {
		vErr.add("role", "role must be ADMIN, MANAGER or USER")
	}
	if updated.Role != RoleAdmin && updated.DepartmentID == nil {
		vErr.add("departmentId", "department is required for this role")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if updated.DepartmentID != nil && changesDepartment(existing, input) {
		if err = s.requireActiveDepartment(ctx, *updated.DepartmentID); err != nil {
			return
		}
	}

	updated.UpdatedAt = s.now()
	employee, err = s.employees.UpdateEmployee(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteEmployee hard-deletes an employee. Employees still referenced by
// projects, tasks or attendance cannot be removed and yield ErrConflict.
func (s *EmployeeService) DeleteEmployee(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.employees == nil {
		return fmt.Errorf("employee repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEmployee", "principal_id", principal.EmployeeID, "employee_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete employee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "employee deleted")
	}()

	if principal.EmployeeID == id {
		return fmt.Errorf("%w: cannot delete own account", ErrForbidden)
	}

	existing, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if !canManageEmployee(principal, existing) {
		return ErrForbidden
	}

	return mapRepoError(s.employees.DeleteEmployee(ctx, id))
}

func (s *EmployeeService) requireActiveDepartment(ctx context.Context, departmentID string) error {
	if s.departments == nil {
		return nil
	}
	department, err := s.departments.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return newValidationError("departmentId", "department does not exist")
		}
		return err
	}
	if !department.IsActive {
		return newValidationError("departmentId", "department is inactive")
	}
	return nil
}

func changesRole(existing Employee, input EmployeeInput) bool {
	return input.Role != nil && *input.Role != existing.Role
}

func changesDepartment(existing Employee, input EmployeeInput) bool {
	return input.DepartmentID != nil && !existing.InDepartment(*input.DepartmentID)
}

func normalizeEmployeeInput(input EmployeeInput) EmployeeInput {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = normalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Position = strings.TrimSpace(input.Position)
	if input.DepartmentID != nil {
		trimmed := strings.TrimSpace(*input.DepartmentID)
		input.DepartmentID = &trimmed
		if trimmed == "" {
			input.DepartmentID = nil
		}
	}
	return input
}

func validateEmployeeProfile(input EmployeeInput) *ValidationError {
	vErr := &ValidationError{}
	if input.FullName == "" {
		vErr.add("fullName", "full name is required")
	}
	if msg := validateEmail(input.Email); msg != "" {
		vErr.add("email", msg)
	}
	return vErr
}
