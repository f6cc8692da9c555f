package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/hrm-service/internal/application"
)

func newServeCommand(env *environment) *cobra.Command {
	var (
		addr        string
		skipMigrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

Pending migrations are applied on start unless --skip-migrate is given.
Expired password reset codes are swept every HRM_OTP_SWEEP_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.cfg.ValidateForServer(); err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf(":%d", env.cfg.HTTPPort)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			return serve(ctx, env, listener, !skipMigrate)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":HRM_HTTP_PORT\")")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	return cmd
}

// serve runs the API on listener until ctx is cancelled, then drains
// in-flight requests and queued mail within the shutdown timeout.
func serve(ctx context.Context, env *environment, listener net.Listener, migrate bool) error {
	logger := env.logger

	storage, err := env.openStorage(ctx)
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer env.closeStorage(storage)

	if migrate {
		if err := storage.Migrate(ctx); err != nil {
			_ = listener.Close()
			return err
		}
	}

	svc, err := newServices(env.cfg, storage, logger)
	if err != nil {
		_ = listener.Close()
		return err
	}

	server := &http.Server{
		Handler:           svc.handler(storage, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweepOTPsEvery(sweepCtx, svc.otps, env.cfg.OTPSweepInterval, logger)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info("HRM API listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := svc.mailer.Close(shutdownCtx); err != nil {
		logger.Error("mail queue not drained", "error", err)
	}
	cancelSweep()
	<-sweepDone
	return runErr
}

// sweepOTPsEvery removes expired reset codes on start and then every interval
// until ctx ends.
func sweepOTPsEvery(ctx context.Context, otps *application.OTPService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := otps.SweepExpired(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("otp sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
