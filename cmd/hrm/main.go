package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/hrm-service/internal/config"
	"github.com/example/hrm-service/internal/logging"
	"github.com/example/hrm-service/internal/persistence/sqlite"
	"github.com/example/hrm-service/internal/persistence/sqlite/migration"
)

var version = "dev"

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFiles   []string
}

// environment is populated before any subcommand runs.
type environment struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	env := &environment{}

	root := &cobra.Command{
		Use:           "hrm",
		Short:         "HRM backend: employees, attendance, projects and tasks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.load(opts, cmd.ErrOrStderr())
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading HRM_ variables")

	root.AddCommand(
		newServeCommand(env),
		newMigrateCommand(env),
		newSweepOTPsCommand(env),
		newCreateAdminCommand(env),
	)
	return root
}

func (e *environment) load(opts *rootOptions, logOutput io.Writer) error {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logOutput, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *environment) openStorage(ctx context.Context) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(e.cfg.SQLitePath), e.cfg.Location, e.logger)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", e.cfg.SQLitePath, err)
	}
	return storage, nil
}

func (e *environment) closeStorage(storage *sqlite.Storage) {
	if err := storage.Close(); err != nil {
		e.logger.Error("failed to close storage", "error", err)
	}
}
