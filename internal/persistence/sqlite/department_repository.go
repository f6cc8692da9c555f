package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// DepartmentRepository implements application.DepartmentRepository using SQLite
type DepartmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.DepartmentRepository = (*DepartmentRepository)(nil)

// NewDepartmentRepository creates a new SQLite department repository
func NewDepartmentRepository(pool *ConnectionPool) *DepartmentRepository {
	return &DepartmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const departmentColumns = `id, name, description, is_active, created_at, updated_at`

// CreateDepartment inserts a new department
func (r *DepartmentRepository) CreateDepartment(ctx context.Context, department application.Department) (application.Department, error) {
	if department.ID == "" {
		return application.Department{}, persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO departments (id, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		department.ID,
		department.Name,
		department.Description,
		department.IsActive,
		formatTime(department.CreatedAt),
		formatTime(department.UpdatedAt),
	)
	if err != nil {
		return application.Department{}, r.mapper.MapError(err)
	}
	return r.GetDepartment(ctx, department.ID)
}

// GetDepartment retrieves a department by ID
func (r *DepartmentRepository) GetDepartment(ctx context.Context, id string) (application.Department, error) {
	if id == "" {
		return application.Department{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = ?`, id)
	department, err := scanDepartment(row)
	if err != nil {
		return application.Department{}, r.mapper.MapError(err)
	}
	return department, nil
}

// UpdateDepartment overwrites the mutable department fields
func (r *DepartmentRepository) UpdateDepartment(ctx context.Context, department application.Department) (application.Department, error) {
	err := r.helper.ExecAffecting(ctx, nil, `
		UPDATE departments
		SET name = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		department.Name,
		department.Description,
		department.IsActive,
		formatTime(department.UpdatedAt),
		department.ID,
	)
	if err != nil {
		return application.Department{}, r.mapper.MapError(err)
	}
	return r.GetDepartment(ctx, department.ID)
}

// ListDepartments returns departments ordered by name
func (r *DepartmentRepository) ListDepartments(ctx context.Context, filter application.DepartmentFilter) ([]application.Department, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []application.Department{}, nil
		}
		conditions = append(conditions, "id IN ("+placeholders(len(filter.IDs))+")")
		args = append(args, stringArgs(filter.IDs)...)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}

	query := `SELECT ` + departmentColumns + ` FROM departments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	departments := []application.Department{}
	for rows.Next() {
		department, err := scanDepartment(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		departments = append(departments, department)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return departments, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (application.Department, error) {
	var (
		department           application.Department
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&department.ID,
		&department.Name,
		&department.Description,
		&department.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Department{}, persistence.ErrNotFound
		}
		return application.Department{}, err
	}

	var err error
	if department.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Department{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if department.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Department{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return department, nil
}
