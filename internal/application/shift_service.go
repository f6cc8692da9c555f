package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const clockLayout = "15:04"

// ShiftService orchestrates validation, authorization, and persistence for shifts.
type ShiftService struct {
	shifts      ShiftRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewShiftService constructs a shift service.
func NewShiftService(shifts ShiftRepository, idGenerator func() string, now func() time.Time) *ShiftService {
	return NewShiftServiceWithLogger(shifts, idGenerator, now, nil)
}

// NewShiftServiceWithLogger constructs a shift service with a specified logger.
func NewShiftServiceWithLogger(shifts ShiftRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ShiftService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ShiftService{shifts: shifts, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ShiftService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ShiftService", operation, attrs...)
}

// CreateShift persists a shift. Administrators may create global or
// departmental shifts; managers' shifts are stamped with their department and
// must have a name unique within it.
func (s *ShiftService) CreateShift(ctx context.Context, principal Principal, input ShiftInput) (shift Shift, err error) {
	if s == nil || s.shifts == nil {
		err = fmt.Errorf("shift repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateShift", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("shift_id", shift.ID).InfoContext(ctx, "shift created")
	}()

	input = normalizeShiftInput(input)
	switch {
	case principal.IsAdmin():
	case principal.IsManager() && principal.DepartmentID != "":
		department := principal.DepartmentID
		input.DepartmentID = &department
	default:
		err = ErrForbidden
		return
	}

	if vErr := validateShiftInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if principal.IsManager() {
		if err = s.ensureUniqueName(ctx, *input.DepartmentID, input.Name, ""); err != nil {
			return
		}
	}

	now := s.now()
	shift = Shift{
		ID:           s.idGenerator(),
		Name:         input.Name,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		DepartmentID: input.DepartmentID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsActive != nil {
		shift.IsActive = *input.IsActive
	}

	shift, err = s.shifts.CreateShift(ctx, shift)
	err = mapRepoError(err)
	return
}

// GetShift returns a shift visible to the principal.
func (s *ShiftService) GetShift(ctx context.Context, principal Principal, id string) (Shift, error) {
	if s == nil || s.shifts == nil {
		return Shift{}, fmt.Errorf("shift repository not configured")
	}

	shift, err := s.shifts.GetShift(ctx, id)
	if err != nil {
		return Shift{}, mapRepoError(err)
	}
	if !canViewShift(principal, shift) {
		return Shift{}, ErrForbidden
	}
	return shift, nil
}

// ListShifts returns all shifts for administrators and the own-department plus
// global shifts for everyone else.
func (s *ShiftService) ListShifts(ctx context.Context, principal Principal, activeOnly bool) ([]Shift, error) {
	if s == nil || s.shifts == nil {
		return nil, fmt.Errorf("shift repository not configured")
	}

	// Managers see their department's shifts only; users also see global
	// shifts so they can pick one at check-in.
	filter := ShiftFilter{ActiveOnly: activeOnly}
	switch {
	case principal.IsAdmin():
	case principal.IsManager():
		if principal.DepartmentID == "" {
			return []Shift{}, nil
		}
		filter.DepartmentID = principal.DepartmentID
	case principal.DepartmentID == "":
		filter.GlobalOnly = true
	default:
		filter.DepartmentID = principal.DepartmentID
		filter.IncludeGlobal = true
	}

	shifts, err := s.shifts.ListShifts(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].StartTime == shifts[j].StartTime {
			return shifts[i].Name < shifts[j].Name
		}
		return shifts[i].StartTime < shifts[j].StartTime
	})
	return shifts, nil
}

// UpdateShift changes a shift owned by the principal's scope. The department
// of a shift is fixed once created.
func (s *ShiftService) UpdateShift(ctx context.Context, principal Principal, id string, input ShiftInput) (shift Shift, err error) {
	if s == nil || s.shifts == nil {
		err = fmt.Errorf("shift repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateShift", "principal_id", principal.EmployeeID, "shift_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift updated")
	}()

	var existing Shift
	existing, err = s.shifts.GetShift(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canManageShift(principal, existing) {
		err = ErrForbidden
		return
	}

	input = normalizeShiftInput(input)
	if input.Name == "" {
		input.Name = existing.Name
	}
	if input.StartTime == "" {
		input.StartTime = existing.StartTime
	}
	if input.EndTime == "" {
		input.EndTime = existing.EndTime
	}
	if vErr := validateShiftInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if principal.IsManager() && input.Name != existing.Name {
		if err = s.ensureUniqueName(ctx, *existing.DepartmentID, input.Name, existing.ID); err != nil {
			return
		}
	}

	updated := existing
	updated.Name = input.Name
	updated.StartTime = input.StartTime
	updated.EndTime = input.EndTime
	if input.IsActive != nil {
		updated.IsActive = *input.IsActive
	}
	updated.UpdatedAt = s.now()

	shift, err = s.shifts.UpdateShift(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteShift deactivates a shift.
func (s *ShiftService) DeleteShift(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.shifts == nil {
		return fmt.Errorf("shift repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteShift", "principal_id", principal.EmployeeID, "shift_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift deactivated")
	}()

	shift, err := s.shifts.GetShift(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if !canManageShift(principal, shift) {
		return ErrForbidden
	}

	shift.IsActive = false
	shift.UpdatedAt = s.now()
	_, err = s.shifts.UpdateShift(ctx, shift)
	return mapRepoError(err)
}

func (s *ShiftService) ensureUniqueName(ctx context.Context, departmentID, name, exceptID string) error {
	existing, err := s.shifts.ListShifts(ctx, ShiftFilter{DepartmentID: departmentID, Name: name})
	if err != nil {
		return mapRepoError(err)
	}
	for _, shift := range existing {
		if shift.ID != exceptID && strings.EqualFold(shift.Name, name) {
			return fmt.Errorf("%w: shift %q already exists in this department", ErrAlreadyExists, name)
		}
	}
	return nil
}

func normalizeShiftInput(input ShiftInput) ShiftInput {
	input.Name = strings.TrimSpace(input.Name)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	if input.DepartmentID != nil {
		trimmed := strings.TrimSpace(*input.DepartmentID)
		input.DepartmentID = &trimmed
		if trimmed == "" {
			input.DepartmentID = nil
		}
	}
	return input
}

func validateShiftInput(input ShiftInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}

	start, startErr := parseClock(input.StartTime)
	if startErr != nil {
		vErr.add("startTime", "start time must use HH:mm")
	}
	end, endErr := parseClock(input.EndTime)
	if endErr != nil {
		vErr.add("endTime", "end time must use HH:mm")
	}
	if startErr == nil && endErr == nil && !start.Before(end) {
		vErr.add("endTime", "end time must be after start time")
	}
	return vErr
}

// parseClock parses a strict HH:mm wall-clock value.
func parseClock(value string) (time.Time, error) {
	if len(value) != len(clockLayout) {
		return time.Time{}, fmt.Errorf("invalid clock value %q", value)
	}
	return time.Parse(clockLayout, value)
}
