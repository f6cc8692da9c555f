package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// TimekeepingRepository implements application.TimekeepingRepository using SQLite.
// Work dates are stored as unix seconds of the local midnight.
type TimekeepingRepository struct {
	pool     *ConnectionPool
	helper   *QueryHelper
	mapper   *ErrorMapper
	location *time.Location
}

var _ application.TimekeepingRepository = (*TimekeepingRepository)(nil)

// NewTimekeepingRepository creates a new SQLite attendance repository.
// Work dates are returned in location, which defaults to time.Local.
func NewTimekeepingRepository(pool *ConnectionPool, location *time.Location) *TimekeepingRepository {
	if location == nil {
		location = time.Local
	}
	return &TimekeepingRepository{
		pool:     pool,
		helper:   NewQueryHelper(pool),
		mapper:   NewErrorMapper(),
		location: location,
	}
}

const timekeepingColumns = `k.id, k.employee_id, k.shift_id, k.work_date, k.check_in, k.check_out,
	k.is_late, k.is_early_leave, k.note, k.created_at, k.updated_at`

// CreateTimekeeping inserts an attendance record. A second record for the
// same employee and day surfaces as persistence.ErrDuplicate.
func (r *TimekeepingRepository) CreateTimekeeping(ctx context.Context, record application.Timekeeping) (application.Timekeeping, error) {
	if record.ID == "" {
		return application.Timekeeping{}, persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO timekeepings (id, employee_id, shift_id, work_date, check_in, check_out,
			is_late, is_early_leave, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.EmployeeID,
		record.ShiftID,
		record.WorkDate.Unix(),
		record.CheckIn,
		nullableString(record.CheckOut),
		record.IsLate,
		record.IsEarlyLeave,
		record.Note,
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return application.Timekeeping{}, r.mapper.MapError(err)
	}
	return r.GetTimekeeping(ctx, record.ID)
}

// GetTimekeeping retrieves an attendance record by ID
func (r *TimekeepingRepository) GetTimekeeping(ctx context.Context, id string) (application.Timekeeping, error) {
	if id == "" {
		return application.Timekeeping{}, persistence.ErrNotFound
	}
	record, err := r.scan(r.helper.QueryRow(ctx, `SELECT `+timekeepingColumns+` FROM timekeepings k WHERE k.id = ?`, id))
	if err != nil {
		return application.Timekeeping{}, r.mapper.MapError(err)
	}
	return record, nil
}

// FindForDay returns the employee's record with a work date in [dayStart, dayEnd)
func (r *TimekeepingRepository) FindForDay(ctx context.Context, employeeID string, dayStart, dayEnd time.Time) (application.Timekeeping, error) {
	record, err := r.scan(r.helper.QueryRow(ctx, `
		SELECT `+timekeepingColumns+` FROM timekeepings k
		WHERE k.employee_id = ? AND k.work_date >= ? AND k.work_date < ?
		ORDER BY k.work_date ASC
		LIMIT 1
	`, employeeID, dayStart.Unix(), dayEnd.Unix()))
	if err != nil {
		return application.Timekeeping{}, r.mapper.MapError(err)
	}
	return record, nil
}

// UpdateTimekeeping overwrites the check-out, flags and note of a record
func (r *TimekeepingRepository) UpdateTimekeeping(ctx context.Context, record application.Timekeeping) (application.Timekeeping, error) {
	err := r.helper.ExecAffecting(ctx, nil, `
		UPDATE timekeepings
		SET check_in = ?, check_out = ?, is_late = ?, is_early_leave = ?, note = ?, updated_at = ?
		WHERE id = ?
	`,
		record.CheckIn,
		nullableString(record.CheckOut),
		record.IsLate,
		record.IsEarlyLeave,
		record.Note,
		formatTime(record.UpdatedAt),
		record.ID,
	)
	if err != nil {
		return application.Timekeeping{}, r.mapper.MapError(err)
	}
	return r.GetTimekeeping(ctx, record.ID)
}

// DeleteTimekeeping removes an attendance record
func (r *TimekeepingRepository) DeleteTimekeeping(ctx context.Context, id string) error {
	return r.mapper.MapError(r.helper.ExecAffecting(ctx, nil, `DELETE FROM timekeepings WHERE id = ?`, id))
}

// ListTimekeeping returns records newest day first
func (r *TimekeepingRepository) ListTimekeeping(ctx context.Context, filter application.TimekeepingFilter) ([]application.Timekeeping, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.EmployeeID != "" {
		conditions = append(conditions, "k.employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, "e.department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.From != nil {
		conditions = append(conditions, "k.work_date >= ?")
		args = append(args, filter.From.Unix())
	}
	if filter.To != nil {
		conditions = append(conditions, "k.work_date < ?")
		args = append(args, filter.To.Unix())
	}

	query := `SELECT ` + timekeepingColumns + ` FROM timekeepings k JOIN employees e ON e.id = k.employee_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY k.work_date DESC, e.full_name COLLATE NOCASE ASC, k.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	records := []application.Timekeeping{}
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return records, nil
}

func (r *TimekeepingRepository) scan(row rowScanner) (application.Timekeeping, error) {
	var (
		record               application.Timekeeping
		workDate             int64
		checkOut             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&record.ID,
		&record.EmployeeID,
		&record.ShiftID,
		&workDate,
		&record.CheckIn,
		&checkOut,
		&record.IsLate,
		&record.IsEarlyLeave,
		&record.Note,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Timekeeping{}, persistence.ErrNotFound
		}
		return application.Timekeeping{}, err
	}

	record.WorkDate = time.Unix(workDate, 0).In(r.location)
	record.CheckOut = stringPointer(checkOut)

	var err error
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Timekeeping{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Timekeeping{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return record, nil
}
