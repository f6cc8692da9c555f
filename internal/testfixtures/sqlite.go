package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence/sqlite"
	"github.com/example/hrm-service/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a migrated temporary SQLite storage together with
// helpers that seed fixtures directly through the repositories.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Location *time.Location

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database file under tb.TempDir.
// Attendance work dates are reported in location, UTC when nil. Callers may
// invoke Close, but a cleanup callback is registered with tb as well.
func NewSQLiteHarness(tb testing.TB, location *time.Location) *SQLiteHarness {
	tb.Helper()

	if location == nil {
		location = time.UTC
	}
	path := filepath.Join(tb.TempDir(), "hrm.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storage, err := sqlite.Open(context.Background(), migration.DefaultSQLiteConfig(path), location, logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Location: location,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedDepartment inserts the department fixture.
func (h *SQLiteHarness) SeedDepartment(tb testing.TB, fixture DepartmentFixture) application.Department {
	tb.Helper()
	department, err := h.Storage.Departments.CreateDepartment(context.Background(), fixture.Application())
	if err != nil {
		tb.Fatalf("seed department %s: %v", fixture.ID, err)
	}
	return department
}

// SeedEmployee inserts the employee fixture with its password hashed by
// CheapPasswords.
func (h *SQLiteHarness) SeedEmployee(tb testing.TB, fixture EmployeeFixture) application.Employee {
	tb.Helper()
	hash, err := CheapPasswords().Hash(fixture.Password)
	if err != nil {
		tb.Fatalf("hash password for %s: %v", fixture.ID, err)
	}
	employee, err := h.Storage.Employees.CreateEmployee(context.Background(), fixture.Application(), hash)
	if err != nil {
		tb.Fatalf("seed employee %s: %v", fixture.ID, err)
	}
	return employee
}

// SeedShift inserts the shift fixture.
func (h *SQLiteHarness) SeedShift(tb testing.TB, fixture ShiftFixture) application.Shift {
	tb.Helper()
	shift, err := h.Storage.Shifts.CreateShift(context.Background(), fixture.Application())
	if err != nil {
		tb.Fatalf("seed shift %s: %v", fixture.ID, err)
	}
	return shift
}

// SeedProject inserts the project fixture with its members.
func (h *SQLiteHarness) SeedProject(tb testing.TB, fixture ProjectFixture) application.Project {
	tb.Helper()
	project, err := h.Storage.Projects.CreateProject(context.Background(), fixture.Application())
	if err != nil {
		tb.Fatalf("seed project %s: %v", fixture.ID, err)
	}
	return project
}
