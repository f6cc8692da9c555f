package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         fstest.MapFS
		expectedOrder []string
		expectErr     error
	}{
		{
			name: "sorted by numeric version",
			files: fstest.MapFS{
				"migrations/010_add_indexes.sql":    {Data: []byte("CREATE INDEX idx ON employees(email);")},
				"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE employees (id TEXT PRIMARY KEY);")},
				"migrations/002_add_shifts.sql":     {Data: []byte("CREATE TABLE shifts (id TEXT PRIMARY KEY);")},
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "non sql files ignored",
			files: fstest.MapFS{
				"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE employees (id TEXT PRIMARY KEY);")},
				"migrations/README.md":              {Data: []byte("# migrations")},
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "invalid filename",
			files: fstest.MapFS{
				"migrations/initial.sql": {Data: []byte("CREATE TABLE t (id TEXT);")},
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "comment only file",
			files: fstest.MapFS{
				"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")},
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"migrations/001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/0001_again.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
				"migrations/001_second.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
			},
			expectErr: ErrDuplicateVersion,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			migrations, err := NewScanner().ScanMigrations(tc.files, "migrations")
			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("expected %v, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(migrations) != len(tc.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tc.expectedOrder), len(migrations))
			}
			for i, version := range tc.expectedOrder {
				if migrations[i].Version != version {
					t.Fatalf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if migrations[i].Checksum == "" {
					t.Fatalf("expected checksum for %s", version)
				}
			}
		})
	}
}

func TestScanner_DescriptionFromHeader(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/001_initial_schema.sql": {Data: []byte("-- Description: Create HRM tables\nCREATE TABLE t (id TEXT);")},
		"migrations/002_add_notes.sql":      {Data: []byte("ALTER TABLE t ADD COLUMN note TEXT;")},
	}

	migrations, err := NewScanner().ScanMigrations(files, "migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrations[0].Description != "Create HRM tables" {
		t.Fatalf("unexpected description %q", migrations[0].Description)
	}
	if migrations[1].Description != "add notes" {
		t.Fatalf("unexpected fallback description %q", migrations[1].Description)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	content := `
-- header comment
CREATE TABLE a (id TEXT);

-- second
CREATE TABLE b (
    id TEXT
);
`
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement %q", statements[0])
	}
}
