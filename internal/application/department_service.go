package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// DepartmentService orchestrates validation, authorization, and persistence for departments.
type DepartmentService struct {
	departments DepartmentRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDepartmentService constructs a department service.
func NewDepartmentService(departments DepartmentRepository, idGenerator func() string, now func() time.Time) *DepartmentService {
	return NewDepartmentServiceWithLogger(departments, idGenerator, now, nil)
}

// NewDepartmentServiceWithLogger constructs a department service with a specified logger.
func NewDepartmentServiceWithLogger(departments DepartmentRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DepartmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DepartmentService{departments: departments, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *DepartmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DepartmentService", operation, attrs...)
}

// CreateDepartment persists a new department. Administrators only.
func (s *DepartmentService) CreateDepartment(ctx context.Context, principal Principal, input DepartmentInput) (department Department, err error) {
	if s == nil || s.departments == nil {
		err = fmt.Errorf("department repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateDepartment", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create department", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("department_id", department.ID).InfoContext(ctx, "department created")
	}()

	if !principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	input = normalizeDepartmentInput(input)
	if vErr := validateDepartmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	department = Department{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IsActive != nil {
		department.IsActive = *input.IsActive
	}

	department, err = s.departments.CreateDepartment(ctx, department)
	err = mapRepoError(err)
	return
}

// GetDepartment returns a department visible to the principal.
func (s *DepartmentService) GetDepartment(ctx context.Context, principal Principal, id string) (Department, error) {
	if s == nil || s.departments == nil {
		return Department{}, fmt.Errorf("department repository not configured")
	}

	department, err := s.departments.GetDepartment(ctx, id)
	if err != nil {
		return Department{}, mapRepoError(err)
	}
	if !canViewDepartment(principal, department.ID) {
		return Department{}, ErrForbidden
	}
	return department, nil
}

// ListDepartments returns every department for administrators and the own
// department for everyone else.
func (s *DepartmentService) ListDepartments(ctx context.Context, principal Principal) ([]Department, error) {
	if s == nil || s.departments == nil {
		return nil, fmt.Errorf("department repository not configured")
	}

	filter := DepartmentFilter{}
	if !principal.IsAdmin() {
		if principal.DepartmentID == "" {
			return []Department{}, nil
		}
		filter.IDs = []string{principal.DepartmentID}
	}

	departments, err := s.departments.ListDepartments(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	sort.Slice(departments, func(i, j int) bool {
		return strings.ToLower(departments[i].Name) < strings.ToLower(departments[j].Name)
	})
	return departments, nil
}

// UpdateDepartment changes name, description or active flag.
// Managers may update their own department but not reactivate or deactivate it.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, principal Principal, id string, input DepartmentInput) (department Department, err error) {
	if s == nil || s.departments == nil {
		err = fmt.Errorf("department repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDepartment", "principal_id", principal.EmployeeID, "department_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update department", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "department updated")
	}()

	var existing Department
	existing, err = s.departments.GetDepartment(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canManageDepartment(principal, existing.ID) {
		err = ErrForbidden
		return
	}

	input = normalizeDepartmentInput(input)
	if vErr := validateDepartmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Description = input.Description
	if input.IsActive != nil && principal.IsAdmin() {
		updated.IsActive = *input.IsActive
	}
	updated.UpdatedAt = s.now()

	department, err = s.departments.UpdateDepartment(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteDepartment deactivates a department. Administrators only.
func (s *DepartmentService) DeleteDepartment(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.departments == nil {
		return fmt.Errorf("department repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteDepartment", "principal_id", principal.EmployeeID, "department_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate department", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "department deactivated")
	}()

	if !principal.IsAdmin() {
		return ErrForbidden
	}

	department, err := s.departments.GetDepartment(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	department.IsActive = false
	department.UpdatedAt = s.now()

	_, err = s.departments.UpdateDepartment(ctx, department)
	return mapRepoError(err)
}

func normalizeDepartmentInput(input DepartmentInput) DepartmentInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	return input
}

func validateDepartmentInput(input DepartmentInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 100 {
		vErr.add("name", "name must be at most 100 characters")
	}
	return vErr
}
