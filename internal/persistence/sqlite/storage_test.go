package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
	"github.com/example/hrm-service/internal/persistence/sqlite/migration"
)

var testEpoch = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hrm.db")
	storage, err := Open(context.Background(), migration.DefaultSQLiteConfig(path), time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func seedDepartment(t *testing.T, storage *Storage, id, name string) application.Department {
	t.Helper()
	department, err := storage.Departments.CreateDepartment(context.Background(), application.Department{
		ID:        id,
		Name:      name,
		IsActive:  true,
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
	})
	if err != nil {
		t.Fatalf("CreateDepartment(%s) failed: %v", id, err)
	}
	return department
}

func seedEmployee(t *testing.T, storage *Storage, id string, role application.Role, departmentID string) application.Employee {
	t.Helper()
	employee := application.Employee{
		ID:        id,
		FullName:  "Employee " + id,
		Email:     id + "@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
	}
	if departmentID != "" {
		employee.DepartmentID = &departmentID
	}
	created, err := storage.Employees.CreateEmployee(context.Background(), employee, "hash-"+id)
	if err != nil {
		t.Fatalf("CreateEmployee(%s) failed: %v", id, err)
	}
	return created
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	if err := storage.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.PendingCount != 0 {
		t.Fatalf("expected no pending migrations, got %d", status.PendingCount)
	}
	if status.CurrentVersion != "001" {
		t.Fatalf("expected current version 001, got %q", status.CurrentVersion)
	}
	if err := storage.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestDepartmentRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	sales := seedDepartment(t, storage, "dep-sales", "Sales")
	seedDepartment(t, storage, "dep-eng", "Engineering")

	if _, err := storage.Departments.CreateDepartment(ctx, application.Department{
		ID: "dep-dup", Name: "sales", IsActive: true, CreatedAt: testEpoch, UpdatedAt: testEpoch,
	}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}

	sales.IsActive = false
	sales.Description = "closed"
	sales.UpdatedAt = testEpoch.Add(time.Hour)
	updated, err := storage.Departments.UpdateDepartment(ctx, sales)
	if err != nil {
		t.Fatalf("UpdateDepartment failed: %v", err)
	}
	if updated.IsActive || updated.Description != "closed" || !updated.UpdatedAt.Equal(sales.UpdatedAt) {
		t.Fatalf("unexpected department after update: %#v", updated)
	}

	all, err := storage.Departments.ListDepartments(ctx, application.DepartmentFilter{})
	if err != nil {
		t.Fatalf("ListDepartments failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Engineering" {
		t.Fatalf("expected departments ordered by name, got %#v", all)
	}

	active, err := storage.Departments.ListDepartments(ctx, application.DepartmentFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListDepartments(active) failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "dep-eng" {
		t.Fatalf("expected only the active department, got %#v", active)
	}

	scoped, err := storage.Departments.ListDepartments(ctx, application.DepartmentFilter{IDs: []string{}})
	if err != nil {
		t.Fatalf("ListDepartments(empty ids) failed: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("expected empty id filter to match nothing, got %d", len(scoped))
	}

	if _, err := storage.Departments.GetDepartment(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmployeeRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedDepartment(t, storage, "dep-1", "Operations")

	alice := seedEmployee(t, storage, "alice", application.RoleManager, "dep-1")
	seedEmployee(t, storage, "bob", application.RoleUser, "")

	if alice.DepartmentID == nil || *alice.DepartmentID != "dep-1" {
		t.Fatalf("expected department to round trip, got %#v", alice.DepartmentID)
	}

	creds, err := storage.Employees.GetCredentialsByEmail(ctx, "  ALICE@example.com ")
	if err != nil {
		t.Fatalf("GetCredentialsByEmail failed: %v", err)
	}
	if creds.PasswordHash != "hash-alice" || creds.Employee.Role != application.RoleManager {
		t.Fatalf("unexpected credentials: %#v", creds)
	}

	dup := alice
	dup.ID = "alice-2"
	dup.Email = "Alice@Example.com"
	if _, err := storage.Employees.CreateEmployee(ctx, dup, "x"); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}

	if err := storage.Employees.UpdatePassword(ctx, "alice", "new-hash", testEpoch.Add(time.Minute)); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	creds, err = storage.Employees.GetCredentials(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if creds.PasswordHash != "new-hash" {
		t.Fatalf("expected password hash to change, got %q", creds.PasswordHash)
	}

	alice.DepartmentID = nil
	alice.Role = application.RoleUser
	alice.UpdatedAt = testEpoch.Add(2 * time.Minute)
	updated, err := storage.Employees.UpdateEmployee(ctx, alice)
	if err != nil {
		t.Fatalf("UpdateEmployee failed: %v", err)
	}
	if updated.DepartmentID != nil || updated.Role != application.RoleUser {
		t.Fatalf("unexpected employee after update: %#v", updated)
	}

	seedEmployee(t, storage, "carol", application.RoleUser, "dep-1")
	inDept, err := storage.Employees.ListEmployees(ctx, application.EmployeeFilter{DepartmentID: "dep-1"})
	if err != nil {
		t.Fatalf("ListEmployees failed: %v", err)
	}
	if len(inDept) != 1 || inDept[0].ID != "carol" {
		t.Fatalf("expected only carol in dep-1, got %#v", inDept)
	}

	byID, err := storage.Employees.ListEmployees(ctx, application.EmployeeFilter{IDs: []string{"alice", "bob"}})
	if err != nil {
		t.Fatalf("ListEmployees(ids) failed: %v", err)
	}
	if len(byID) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(byID))
	}

	if err := storage.Employees.DeleteEmployee(ctx, "bob"); err != nil {
		t.Fatalf("DeleteEmployee failed: %v", err)
	}
	if err := storage.Employees.DeleteEmployee(ctx, "bob"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEmployeeRepository_DeleteReferencedEmployee(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedDepartment(t, storage, "dep-1", "Operations")
	seedEmployee(t, storage, "manager", application.RoleManager, "dep-1")

	if _, err := storage.Projects.CreateProject(ctx, application.Project{
		ID:           "proj-1",
		Name:         "Audit",
		DepartmentID: "dep-1",
		ManagerID:    "manager",
		Status:       application.ProjectStatusActive,
		CreatedAt:    testEpoch,
		UpdatedAt:    testEpoch,
	}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if err := storage.Employees.DeleteEmployee(ctx, "manager"); !errors.Is(err, persistence.ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}
}

func TestShiftRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedDepartment(t, storage, "dep-1", "Operations")
	dep := "dep-1"

	create := func(id, name, start, end string, departmentID *string, active bool) {
		t.Helper()
		if _, err := storage.Shifts.CreateShift(ctx, application.Shift{
			ID: id, Name: name, StartTime: start, EndTime: end, DepartmentID: departmentID,
			IsActive: active, CreatedAt: testEpoch, UpdatedAt: testEpoch,
		}); err != nil {
			t.Fatalf("CreateShift(%s) failed: %v", id, err)
		}
	}
	create("morning", "Morning", "08:00", "12:00", nil, true)
	create("late", "Late", "13:00", "17:30", &dep, true)
	create("night", "Night", "18:00", "22:00", &dep, false)

	if _, err := storage.Shifts.CreateShift(ctx, application.Shift{
		ID: "bad", Name: "Bad", StartTime: "17:00", EndTime: "09:00", IsActive: true, CreatedAt: testEpoch, UpdatedAt: testEpoch,
	}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation for inverted window, got %v", err)
	}

	withGlobal, err := storage.Shifts.ListShifts(ctx, application.ShiftFilter{DepartmentID: dep, IncludeGlobal: true, ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListShifts failed: %v", err)
	}
	if len(withGlobal) != 2 || withGlobal[0].ID != "morning" || withGlobal[1].ID != "late" {
		t.Fatalf("unexpected shifts: %#v", withGlobal)
	}

	deptOnly, err := storage.Shifts.ListShifts(ctx, application.ShiftFilter{DepartmentID: dep})
	if err != nil {
		t.Fatalf("ListShifts(dept) failed: %v", err)
	}
	if len(deptOnly) != 2 {
		t.Fatalf("expected 2 department shifts, got %d", len(deptOnly))
	}

	globalOnly, err := storage.Shifts.ListShifts(ctx, application.ShiftFilter{GlobalOnly: true})
	if err != nil {
		t.Fatalf("ListShifts(global) failed: %v", err)
	}
	if len(globalOnly) != 1 || globalOnly[0].ID != "morning" {
		t.Fatalf("expected only the global shift, got %#v", globalOnly)
	}

	named, err := storage.Shifts.ListShifts(ctx, application.ShiftFilter{Name: "LATE"})
	if err != nil {
		t.Fatalf("ListShifts(name) failed: %v", err)
	}
	if len(named) != 1 || named[0].ID != "late" {
		t.Fatalf("expected case-insensitive name match, got %#v", named)
	}
}

func TestConnectionPool_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	sentinel := errors.New("boom")

	err := storage.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO departments (id, name, description, is_active, created_at, updated_at) VALUES ('d', 'D', '', 1, ?, ?)`,
			formatTime(testEpoch), formatTime(testEpoch)); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if _, err := storage.Departments.GetDepartment(ctx, "d"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected rolled back insert, got %v", err)
	}
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "unique", in: errors.New("constraint failed: UNIQUE constraint failed: employees.email (2067)"), want: persistence.ErrDuplicate},
		{name: "foreign key", in: errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), want: persistence.ErrForeignKey},
		{name: "check", in: errors.New("constraint failed: CHECK constraint failed: priority (275)"), want: persistence.ErrConstraintViolation},
		{name: "sentinel passthrough", in: persistence.ErrStaleWrite, want: persistence.ErrStaleWrite},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapper.MapError(tt.in); !errors.Is(got, tt.want) {
				t.Fatalf("MapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if mapper.MapError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	if got := placeholders(3); got != "?, ?, ?" {
		t.Fatalf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Fatalf("placeholders(0) = %q", got)
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	t.Parallel()

	earlier := formatTime(testEpoch)
	later := formatTime(testEpoch.Add(500 * time.Millisecond))
	if earlier >= later {
		t.Fatalf("expected %q < %q", earlier, later)
	}

	parsed, err := parseTime(later)
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(testEpoch.Add(500 * time.Millisecond)) {
		t.Fatalf("round trip mismatch: %v", parsed)
	}
}
