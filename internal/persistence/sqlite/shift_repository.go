package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// ShiftRepository implements application.ShiftRepository using SQLite
type ShiftRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.ShiftRepository = (*ShiftRepository)(nil)

// NewShiftRepository creates a new SQLite shift repository
func NewShiftRepository(pool *ConnectionPool) *ShiftRepository {
	return &ShiftRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const shiftColumns = `id, name, start_time, end_time, department_id, is_active, created_at, updated_at`

// CreateShift inserts a new shift
func (r *ShiftRepository) CreateShift(ctx context.Context, shift application.Shift) (application.Shift, error) {
	if shift.ID == "" {
		return application.Shift{}, persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO shifts (id, name, start_time, end_time, department_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shift.ID,
		shift.Name,
		shift.StartTime,
		shift.EndTime,
		nullableString(shift.DepartmentID),
		shift.IsActive,
		formatTime(shift.CreatedAt),
		formatTime(shift.UpdatedAt),
	)
	if err != nil {
		return application.Shift{}, r.mapper.MapError(err)
	}
	return r.GetShift(ctx, shift.ID)
}

// GetShift retrieves a shift by ID
func (r *ShiftRepository) GetShift(ctx context.Context, id string) (application.Shift, error) {
	if id == "" {
		return application.Shift{}, persistence.ErrNotFound
	}
	shift, err := scanShift(r.helper.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
	if err != nil {
		return application.Shift{}, r.mapper.MapError(err)
	}
	return shift, nil
}

// UpdateShift overwrites the mutable shift fields
func (r *ShiftRepository) UpdateShift(ctx context.Context, shift application.Shift) (application.Shift, error) {
	err := r.helper.ExecAffecting(ctx, nil, `
		UPDATE shifts
		SET name = ?, start_time = ?, end_time = ?, department_id = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		shift.Name,
		shift.StartTime,
		shift.EndTime,
		nullableString(shift.DepartmentID),
		shift.IsActive,
		formatTime(shift.UpdatedAt),
		shift.ID,
	)
	if err != nil {
		return application.Shift{}, r.mapper.MapError(err)
	}
	return r.GetShift(ctx, shift.ID)
}

// ListShifts returns shifts ordered by start time then name
func (r *ShiftRepository) ListShifts(ctx context.Context, filter application.ShiftFilter) ([]application.Shift, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.DepartmentID != "" {
		if filter.IncludeGlobal {
			conditions = append(conditions, "(department_id = ? OR department_id IS NULL)")
		} else {
			conditions = append(conditions, "department_id = ?")
		}
		args = append(args, filter.DepartmentID)
	}
	if filter.GlobalOnly {
		conditions = append(conditions, "department_id IS NULL")
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		conditions = append(conditions, "name = ? COLLATE NOCASE")
		args = append(args, name)
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, name COLLATE NOCASE ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	shifts := []application.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return shifts, nil
}

func scanShift(row rowScanner) (application.Shift, error) {
	var (
		shift                application.Shift
		departmentID         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&shift.ID,
		&shift.Name,
		&shift.StartTime,
		&shift.EndTime,
		&departmentID,
		&shift.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Shift{}, persistence.ErrNotFound
		}
		return application.Shift{}, err
	}

	shift.DepartmentID = stringPointer(departmentID)

	var err error
	if shift.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Shift{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if shift.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Shift{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return shift, nil
}
