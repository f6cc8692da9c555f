package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/hrm-service/internal/persistence/sqlite/migration"
)

func newMigrateCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			storage, err := env.openStorage(ctx)
			if err != nil {
				return err
			}
			defer env.closeStorage(storage)

			if err := storage.Migrate(ctx); err != nil {
				return err
			}
			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at version %s\n", versionOrNone(status.CurrentVersion))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			storage, err := env.openStorage(ctx)
			if err != nil {
				return err
			}
			defer env.closeStorage(storage)

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	})
	return cmd
}

func printStatus(w io.Writer, status migration.Status) {
	fmt.Fprintf(w, "current version: %s\n", versionOrNone(status.CurrentVersion))
	fmt.Fprintf(w, "applied: %d\n", len(status.AppliedMigrations))
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(w, "  %s  %s\n", applied.Version, applied.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "pending: %d\n", status.PendingCount)
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(w, "  %s  %s\n", pending.Version, pending.Description)
	}
}

func versionOrNone(version string) string {
	if version == "" {
		return "none"
	}
	return version
}
