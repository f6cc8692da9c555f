package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager coordinates scanning, ordering and applying migrations.
type Manager struct {
	scanner  *Scanner
	executor Executor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewManager creates a Manager reading migration files from dir inside fsys.
func NewManager(scanner *Scanner, executor Executor, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if scanner == nil {
		scanner = NewScanner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		fsys:     fsys,
		dir:      dir,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// RunMigrations applies every pending migration in version order.
// It stops at the first failure; earlier migrations remain applied.
func (m *Manager) RunMigrations(ctx context.Context) error {
	start := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", slog.Any("error", err))
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine pending migrations", slog.Any("error", err))
		return err
	}

	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "schema is up to date")
		return nil
	}

	for i, migration := range pending {
		migrationStart := time.Now()
		logger := m.logger.With(
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Int("position", i+1),
			slog.Int("total", len(pending)),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", slog.Any("error", err))
			return fmt.Errorf("%w: %s: %w", ErrMigrationFailed, migration.Version, err)
		}

		elapsed := time.Since(migrationStart)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", slog.Any("error", err))
			return fmt.Errorf("%w: %s: %w", ErrMigrationFailed, migration.Version, err)
		}

		logger.InfoContext(ctx, "migration applied", slog.Duration("duration", elapsed))
	}

	m.logger.InfoContext(ctx, "migrations complete",
		slog.Int("applied", len(pending)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// PendingMigrations returns the migrations that have not been applied yet.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.fsys, m.dir)
	if err != nil {
		return nil, err
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	if err := checkHistory(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		appliedSet[a.Version] = struct{}{}
	}

	var pending []Migration
	for _, migration := range available {
		if _, ok := appliedSet[migration.Version]; !ok {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status reports the applied and pending migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, err
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	for _, a := range applied {
		if versionNumber(a.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

// checkHistory rejects databases that recorded versions unknown to the
// available files, and applied files whose content changed afterwards.
func checkHistory(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[string]Migration, len(available))
	for _, migration := range available {
		byVersion[migration.Version] = migration
	}

	for _, a := range applied {
		migration, ok := byVersion[a.Version]
		if !ok {
			return fmt.Errorf("%w: version %s is recorded but no file exists", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return fmt.Errorf("%w: version %s was modified after being applied", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
