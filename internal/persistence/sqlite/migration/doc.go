// Package migration applies versioned schema changes to the HRM SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_initial_schema.sql") and are read from an fs.FS, normally
// the embedded migrations directory of the sqlite package. Applied versions are
// tracked in a schema_migrations table so each file runs exactly once, inside
// its own transaction.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(), migration.NewSQLiteExecutor(db), files, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
