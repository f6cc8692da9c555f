package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/hrm-service/internal/application"
)

func newCreateAdminCommand(env *environment) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		Long: `Create an ADMIN account outside the API, typically to bootstrap a fresh database.

Without --password a random password is generated and mailed to the account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			storage, err := env.openStorage(ctx)
			if err != nil {
				return err
			}
			defer env.closeStorage(storage)

			svc, err := newServices(env.cfg, storage, env.logger)
			if err != nil {
				return err
			}
			defer func() {
				drainCtx, cancel := context.WithTimeout(context.Background(), env.cfg.ShutdownTimeout)
				defer cancel()
				if err := svc.mailer.Close(drainCtx); err != nil {
					env.logger.Error("mail queue not drained", "error", err)
				}
			}()

			admin, err := svc.employees.CreateAdministrator(ctx, application.EmployeeInput{
				FullName: name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("create administrator: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s <%s>\n", admin.ID, admin.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSweepOTPsCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-otps",
		Short: "Delete expired password reset codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			storage, err := env.openStorage(ctx)
			if err != nil {
				return err
			}
			defer env.closeStorage(storage)

			deleted, err := newOTPService(env.cfg, storage, env.logger).SweepExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired codes\n", deleted)
			return nil
		},
	}
}
