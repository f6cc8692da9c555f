package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/hrm-service/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage bundles the SQLite-backed repositories over one connection pool.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Departments *DepartmentRepository
	Employees   *EmployeeRepository
	Shifts      *ShiftRepository
	Projects    *ProjectRepository
	Tasks       *TaskRepository
	Comments    *CommentRepository
	Timekeeping *TimekeepingRepository
	OTPs        *OTPRepository
}

// Open connects to the database described by cfg. Attendance work dates are
// reported in location, which defaults to time.Local.
func Open(ctx context.Context, cfg migration.SQLiteConfig, location *time.Location, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:        pool,
		logger:      logger,
		Departments: NewDepartmentRepository(pool),
		Employees:   NewEmployeeRepository(pool),
		Shifts:      NewShiftRepository(pool),
		Projects:    NewProjectRepository(pool),
		Tasks:       NewTaskRepository(pool),
		Comments:    NewCommentRepository(pool),
		Timekeeping: NewTimekeepingRepository(pool, location),
		OTPs:        NewOTPRepository(pool),
	}, nil
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) migrations() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		migrationDir,
		s.logger,
	)
}

// Migrate applies every pending schema migration.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.migrations().RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.migrations().Status(ctx)
}
