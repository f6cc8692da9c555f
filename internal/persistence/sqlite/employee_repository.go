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

// EmployeeRepository implements application.EmployeeRepository using SQLite
type EmployeeRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.EmployeeRepository = (*EmployeeRepository)(nil)

// NewEmployeeRepository creates a new SQLite employee repository
func NewEmployeeRepository(pool *ConnectionPool) *EmployeeRepository {
	return &EmployeeRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const employeeColumns = `id, full_name, email, phone, position, role, department_id, is_active, created_at, updated_at`

// CreateEmployee inserts an employee together with its password hash
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, employee application.Employee, passwordHash string) (application.Employee, error) {
	if employee.ID == "" || passwordHash == "" {
		return application.Employee{}, persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO employees (id, full_name, email, phone, position, role, department_id, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		employee.ID,
		employee.FullName,
		strings.ToLower(employee.Email),
		employee.Phone,
		employee.Position,
		string(employee.Role),
		nullableString(employee.DepartmentID),
		passwordHash,
		employee.IsActive,
		formatTime(employee.CreatedAt),
		formatTime(employee.UpdatedAt),
	)
	if err != nil {
		return application.Employee{}, r.mapper.MapError(err)
	}
	return r.GetEmployee(ctx, employee.ID)
}

// GetEmployee retrieves an employee by ID
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id string) (application.Employee, error) {
	if id == "" {
		return application.Employee{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	employee, err := scanEmployee(row)
	if err != nil {
		return application.Employee{}, r.mapper.MapError(err)
	}
	return employee, nil
}

// GetCredentialsByEmail loads the employee and password hash for a login email
func (r *EmployeeRepository) GetCredentialsByEmail(ctx context.Context, email string) (application.EmployeeCredentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return application.EmployeeCredentials{}, persistence.ErrNotFound
	}
	return r.credentials(ctx, `email = ?`, email)
}

// GetCredentials loads the employee and password hash by ID
func (r *EmployeeRepository) GetCredentials(ctx context.Context, id string) (application.EmployeeCredentials, error) {
	if id == "" {
		return application.EmployeeCredentials{}, persistence.ErrNotFound
	}
	return r.credentials(ctx, `id = ?`, id)
}

func (r *EmployeeRepository) credentials(ctx context.Context, condition string, arg any) (application.EmployeeCredentials, error) {
	var (
		creds                application.EmployeeCredentials
		role                 string
		departmentID         sql.NullString
		createdAt, updatedAt string
	)
	err := r.helper.QueryRow(ctx, `SELECT `+employeeColumns+`, password_hash FROM employees WHERE `+condition, arg).Scan(
		&creds.Employee.ID,
		&creds.Employee.FullName,
		&creds.Employee.Email,
		&creds.Employee.Phone,
		&creds.Employee.Position,
		&role,
		&departmentID,
		&creds.Employee.IsActive,
		&createdAt,
		&updatedAt,
		&creds.PasswordHash,
	)
	if err != nil {
		return application.EmployeeCredentials{}, r.mapper.MapError(err)
	}

	creds.Employee.Role = application.Role(role)
	creds.Employee.DepartmentID = stringPointer(departmentID)
	if creds.Employee.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.EmployeeCredentials{}, err
	}
	if creds.Employee.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.EmployeeCredentials{}, err
	}
	return creds, nil
}

// UpdateEmployee overwrites the profile fields of an employee
func (r *EmployeeRepository) UpdateEmployee(ctx context.Context, employee application.Employee) (application.Employee, error) {
	err := r.helper.ExecAffecting(ctx, nil, `
		UPDATE employees
		SET full_name = ?, email = ?, phone = ?, position = ?, role = ?, department_id = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		employee.FullName,
		strings.ToLower(employee.Email),
		employee.Phone,
		employee.Position,
		string(employee.Role),
		nullableString(employee.DepartmentID),
		employee.IsActive,
		formatTime(employee.UpdatedAt),
		employee.ID,
	)
	if err != nil {
		return application.Employee{}, r.mapper.MapError(err)
	}
	return r.GetEmployee(ctx, employee.ID)
}

// UpdatePassword replaces the stored password hash
func (r *EmployeeRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if passwordHash == "" {
		return persistence.ErrConstraintViolation
	}
	err := r.helper.ExecAffecting(ctx, nil,
		`UPDATE employees SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(updatedAt), id,
	)
	return r.mapper.MapError(err)
}

// DeleteEmployee removes an employee. Rows still referencing the employee
// surface as persistence.ErrForeignKey.
func (r *EmployeeRepository) DeleteEmployee(ctx context.Context, id string) error {
	err := r.helper.ExecAffecting(ctx, nil, `DELETE FROM employees WHERE id = ?`, id)
	return r.mapper.MapError(err)
}

// ListEmployees returns employees ordered by full name
func (r *EmployeeRepository) ListEmployees(ctx context.Context, filter application.EmployeeFilter) ([]application.Employee, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.DepartmentID != "" {
		conditions = append(conditions, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []application.Employee{}, nil
		}
		conditions = append(conditions, "id IN ("+placeholders(len(filter.IDs))+")")
		args = append(args, stringArgs(filter.IDs)...)
	}

	query := `SELECT ` + employeeColumns + ` FROM employees`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY full_name COLLATE NOCASE ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	employees := []application.Employee{}
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return employees, nil
}

func scanEmployee(row rowScanner) (application.Employee, error) {
	var (
		employee             application.Employee
		role                 string
		departmentID         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&employee.ID,
		&employee.FullName,
		&employee.Email,
		&employee.Phone,
		&employee.Position,
		&role,
		&departmentID,
		&employee.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Employee{}, persistence.ErrNotFound
		}
		return application.Employee{}, err
	}

	employee.Role = application.Role(role)
	employee.DepartmentID = stringPointer(departmentID)

	var err error
	if employee.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Employee{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if employee.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Employee{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return employee, nil
}
