package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// CheckInParams captures a direct check-in request. An empty EmployeeID means the caller.
type CheckInParams struct {
	EmployeeID string
	ShiftID    string
	Note       string
}

// CheckOutParams captures a direct check-out request. An empty EmployeeID means the caller.
type CheckOutParams struct {
	EmployeeID string
	Note       string
}

// TimekeepingListParams carries attendance listing filters. From and To are
// inclusive calendar days formatted as YYYY-MM-DD.
type TimekeepingListParams struct {
	EmployeeID string
	From       string
	To         string
}

// TimekeepingService implements attendance check-in and check-out.
type TimekeepingService struct {
	records     TimekeepingRepository
	employees   EmployeeRepository
	shifts      ShiftRepository
	tokens      *TokenManager
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTimekeepingService constructs an attendance service. Calendar days are
// evaluated in location, which defaults to time.Local.
func NewTimekeepingService(records TimekeepingRepository, employees EmployeeRepository, shifts ShiftRepository, tokens *TokenManager, location *time.Location, idGenerator func() string, now func() time.Time) *TimekeepingService {
	return NewTimekeepingServiceWithLogger(records, employees, shifts, tokens, location, idGenerator, now, nil)
}

// NewTimekeepingServiceWithLogger constructs an attendance service with a specified logger.
func NewTimekeepingServiceWithLogger(records TimekeepingRepository, employees EmployeeRepository, shifts ShiftRepository, tokens *TokenManager, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TimekeepingService {
	if location == nil {
		location = time.Local
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TimekeepingService{
		records:     records,
		employees:   employees,
		shifts:      shifts,
		tokens:      tokens,
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TimekeepingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimekeepingService", operation, attrs...)
}

func (s *TimekeepingService) configured() error {
	if s == nil || s.records == nil || s.employees == nil || s.shifts == nil {
		return fmt.Errorf("timekeeping repositories not configured")
	}
	return nil
}

// CheckIn records today's arrival for the caller, or for any employee when
// the caller is an administrator.
func (s *TimekeepingService) CheckIn(ctx context.Context, principal Principal, params CheckInParams) (record Timekeeping, err error) {
	if err = s.configured(); err != nil {
		return
	}

	employeeID := targetEmployee(principal, params.EmployeeID)
	logger := s.loggerWith(ctx, "CheckIn", "principal_id", principal.EmployeeID, "employee_id", employeeID, "shift_id", params.ShiftID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("timekeeping_id", record.ID, "late", record.IsLate).InfoContext(ctx, "checked in")
	}()

	if !canRecordAttendanceFor(principal, employeeID) {
		err = ErrForbidden
		return
	}
	if strings.TrimSpace(params.ShiftID) == "" {
		err = newValidationError("shiftId", "shift is required")
		return
	}

	var employee Employee
	employee, err = s.activeEmployee(ctx, employeeID)
	if err != nil {
		return
	}

	var shift Shift
	shift, err = s.usableShift(ctx, employee, strings.TrimSpace(params.ShiftID))
	if err != nil {
		return
	}

	record, err = s.checkIn(ctx, employee, shift, params.Note)
	return
}

// CheckOut records today's departure.
func (s *TimekeepingService) CheckOut(ctx context.Context, principal Principal, params CheckOutParams) (record Timekeeping, err error) {
	if err = s.configured(); err != nil {
		return
	}

	employeeID := targetEmployee(principal, params.EmployeeID)
	logger := s.loggerWith(ctx, "CheckOut", "principal_id", principal.EmployeeID, "employee_id", employeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "check-out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("timekeeping_id", record.ID, "early_leave", record.IsEarlyLeave).InfoContext(ctx, "checked out")
	}()

	if !canRecordAttendanceFor(principal, employeeID) {
		err = ErrForbidden
		return
	}

	record, err = s.checkOut(ctx, employeeID, params.Note)
	return
}

// CheckInWithQR records the caller's arrival using a kiosk QR token.
func (s *TimekeepingService) CheckInWithQR(ctx context.Context, principal Principal, token string) (record Timekeeping, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CheckInWithQR", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "qr check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("timekeeping_id", record.ID, "late", record.IsLate).InfoContext(ctx, "checked in with qr")
	}()

	var (
		claims   QRClaims
		employee Employee
	)
	claims, employee, err = s.validateQR(ctx, principal, token, AttendanceCheckIn)
	if err != nil {
		return
	}

	var shift Shift
	shift, err = s.usableShift(ctx, employee, claims.ShiftID)
	if err != nil {
		return
	}

	record, err = s.checkIn(ctx, employee, shift, "")
	return
}

// CheckOutWithQR records the caller's departure using a kiosk QR token.
func (s *TimekeepingService) CheckOutWithQR(ctx context.Context, principal Principal, token string) (record Timekeeping, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CheckOutWithQR", "principal_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "qr check-out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("timekeeping_id", record.ID, "early_leave", record.IsEarlyLeave).InfoContext(ctx, "checked out with qr")
	}()

	var employee Employee
	_, employee, err = s.validateQR(ctx, principal, token, AttendanceCheckOut)
	if err != nil {
		return
	}

	record, err = s.checkOut(ctx, employee.ID, "")
	return
}

// validateQR verifies the token signature and age, the operation type and
// that the caller belongs to the token's department.
func (s *TimekeepingService) validateQR(ctx context.Context, principal Principal, token, operation string) (QRClaims, Employee, error) {
	if s.tokens == nil {
		return QRClaims{}, Employee{}, fmt.Errorf("token manager not configured")
	}

	claims, err := s.tokens.ParseQRToken(token)
	if err != nil {
		return QRClaims{}, Employee{}, err
	}
	if claims.Type != operation {
		return QRClaims{}, Employee{}, fmt.Errorf("%w: token is for %s, not %s", ErrInvalidToken, claims.Type, operation)
	}

	employee, err := s.activeEmployee(ctx, principal.EmployeeID)
	if err != nil {
		return QRClaims{}, Employee{}, err
	}
	if !employee.InDepartment(claims.DepartmentID) {
		return QRClaims{}, Employee{}, fmt.Errorf("%w: token belongs to another department", ErrForbidden)
	}
	return claims, employee, nil
}

func (s *TimekeepingService) checkIn(ctx context.Context, employee Employee, shift Shift, note string) (Timekeeping, error) {
	now := s.now().In(s.location)
	dayStart, dayEnd := dayBounds(now)

	_, err := s.records.FindForDay(ctx, employee.ID, dayStart, dayEnd)
	switch {
	case err == nil:
		return Timekeeping{}, fmt.Errorf("%w: already checked in today", ErrConflict)
	case !errors.Is(mapRepoError(err), ErrNotFound):
		return Timekeeping{}, mapRepoError(err)
	}

	clock := now.Format(clockLayout)
	record := Timekeeping{
		ID:         s.idGenerator(),
		EmployeeID: employee.ID,
		ShiftID:    shift.ID,
		WorkDate:   dayStart,
		CheckIn:    clock,
		IsLate:     clock > shift.StartTime,
		Note:       strings.TrimSpace(note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	record, err = s.records.CreateTimekeeping(ctx, record)
	if err != nil {
		// a concurrent check-in won the unique (employee, day) slot
		if errors.Is(mapRepoError(err), ErrAlreadyExists) {
			return Timekeeping{}, fmt.Errorf("%w: already checked in today", ErrConflict)
		}
		return Timekeeping{}, mapRepoError(err)
	}
	return record, nil
}

func (s *TimekeepingService) checkOut(ctx context.Context, employeeID, note string) (Timekeeping, error) {
	now := s.now().In(s.location)
	dayStart, dayEnd := dayBounds(now)

	record, err := s.records.FindForDay(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return Timekeeping{}, fmt.Errorf("%w: no check-in recorded today", ErrInvalidState)
		}
		return Timekeeping{}, mapRepoError(err)
	}
	if record.CheckOut != nil {
		return Timekeeping{}, fmt.Errorf("%w: already checked out today", ErrInvalidState)
	}

	shift, err := s.shifts.GetShift(ctx, record.ShiftID)
	if err != nil {
		return Timekeeping{}, mapRepoError(err)
	}

	clock := now.Format(clockLayout)
	record.CheckOut = &clock
	record.IsEarlyLeave = clock < shift.EndTime
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		record.Note = trimmed
	}
	record.UpdatedAt = now

	record, err = s.records.UpdateTimekeeping(ctx, record)
	return record, mapRepoError(err)
}

// ListTimekeeping returns attendance records in the principal's scope.
func (s *TimekeepingService) ListTimekeeping(ctx context.Context, principal Principal, params TimekeepingListParams) ([]Timekeeping, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}

	filter := TimekeepingFilter{EmployeeID: strings.TrimSpace(params.EmployeeID)}
	switch {
	case principal.IsAdmin():
	case principal.IsManager() && principal.DepartmentID != "":
		filter.DepartmentID = principal.DepartmentID
	default:
		filter.EmployeeID = principal.EmployeeID
	}

	vErr := &ValidationError{}
	if params.From != "" {
		from, err := time.ParseInLocation(dayLayout, params.From, s.location)
		if err != nil {
			vErr.add("from", "from must use YYYY-MM-DD")
		} else {
			filter.From = &from
		}
	}
	if params.To != "" {
		to, err := time.ParseInLocation(dayLayout, params.To, s.location)
		if err != nil {
			vErr.add("to", "to must use YYYY-MM-DD")
		} else {
			end := to.AddDate(0, 0, 1)
			filter.To = &end
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	records, err := s.records.ListTimekeeping(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if records == nil {
		records = []Timekeeping{}
	}
	return records, nil
}

// GetTimekeeping returns one attendance record in the principal's scope.
func (s *TimekeepingService) GetTimekeeping(ctx context.Context, principal Principal, id string) (Timekeeping, error) {
	if err := s.configured(); err != nil {
		return Timekeeping{}, err
	}

	record, owner, err := s.loadWithOwner(ctx, id)
	if err != nil {
		return Timekeeping{}, err
	}
	if !canViewTimekeeping(principal, owner) {
		return Timekeeping{}, ErrForbidden
	}
	return record, nil
}

// UpdateNote replaces the note of a record. Administrators and the managers
// of the employee's department may do so.
func (s *TimekeepingService) UpdateNote(ctx context.Context, principal Principal, id, note string) (record Timekeeping, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateNote", "principal_id", principal.EmployeeID, "timekeeping_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update attendance note", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance note updated")
	}()

	var owner Employee
	record, owner, err = s.loadWithOwner(ctx, id)
	if err != nil {
		return
	}
	if !canManageTimekeeping(principal, owner) {
		err = ErrForbidden
		return
	}

	record.Note = strings.TrimSpace(note)
	record.UpdatedAt = s.now()
	record, err = s.records.UpdateTimekeeping(ctx, record)
	err = mapRepoError(err)
	return
}

// DeleteTimekeeping removes a record. Administrators only.
func (s *TimekeepingService) DeleteTimekeeping(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteTimekeeping", "principal_id", principal.EmployeeID, "timekeeping_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete attendance record", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance record deleted")
	}()

	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return mapRepoError(s.records.DeleteTimekeeping(ctx, id))
}

func (s *TimekeepingService) loadWithOwner(ctx context.Context, id string) (Timekeeping, Employee, error) {
	record, err := s.records.GetTimekeeping(ctx, id)
	if err != nil {
		return Timekeeping{}, Employee{}, mapRepoError(err)
	}
	owner, err := s.employees.GetEmployee(ctx, record.EmployeeID)
	if err != nil {
		return Timekeeping{}, Employee{}, mapRepoError(err)
	}
	return record, owner, nil
}

func (s *TimekeepingService) activeEmployee(ctx context.Context, id string) (Employee, error) {
	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, mapRepoError(err)
	}
	if !employee.IsActive {
		return Employee{}, ErrAccountDisabled
	}
	return employee, nil
}

// usableShift loads an active shift that is global or belongs to the employee's department.
func (s *TimekeepingService) usableShift(ctx context.Context, employee Employee, shiftID string) (Shift, error) {
	shift, err := s.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return Shift{}, mapRepoError(err)
	}
	if !shift.IsActive {
		return Shift{}, fmt.Errorf("%w: shift is inactive", ErrInvalidState)
	}
	if shift.DepartmentID != nil && !employee.InDepartment(*shift.DepartmentID) {
		return Shift{}, fmt.Errorf("%w: shift belongs to another department", ErrForbidden)
	}
	return shift, nil
}

func targetEmployee(principal Principal, requested string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	return principal.EmployeeID
}

// dayBounds returns local midnight of t and of the following day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
