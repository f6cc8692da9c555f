package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/config"
	httptransport "github.com/example/hrm-service/internal/http"
	"github.com/example/hrm-service/internal/mail"
	"github.com/example/hrm-service/internal/persistence/sqlite"
	"github.com/example/hrm-service/internal/qrcode"
)

type services struct {
	mailer      *mail.Dispatcher
	otps        *application.OTPService
	auth        *application.AuthService
	departments *application.DepartmentService
	employees   *application.EmployeeService
	shifts      *application.ShiftService
	projects    *application.ProjectService
	tasks       *application.TaskService
	comments    *application.CommentService
	timekeeping *application.TimekeepingService
	qr          *application.QRService
}

// newMailer delivers over SMTP when a host is configured and logs messages otherwise.
func newMailer(cfg config.Config, logger *slog.Logger) (*mail.Dispatcher, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.SMTP.Enabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	return mail.NewDispatcher(sender, renderer, cfg.MailQueueSize, cfg.Location, logger), nil
}

func newOTPService(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger) *application.OTPService {
	return application.NewOTPServiceWithLogger(storage.OTPs, uuid.NewString, time.Now, cfg.OTPTTL, logger)
}

func newServices(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger) (*services, error) {
	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return nil, err
	}

	idGenerator := uuid.NewString
	now := time.Now
	passwords := application.PasswordFuncs{Hash: application.HashPassword, Verify: application.VerifyPassword}
	tokens := application.NewTokenManager(cfg.JWTSecret, cfg.QRSecret, cfg.JWTTTL, cfg.QRTokenTTL, now)
	otps := newOTPService(cfg, storage, logger)

	return &services{
		mailer:      mailer,
		otps:        otps,
		auth:        application.NewAuthServiceWithLogger(storage.Employees, otps, tokens, passwords, mailer, idGenerator, now, logger),
		departments: application.NewDepartmentServiceWithLogger(storage.Departments, idGenerator, now, logger),
		employees:   application.NewEmployeeServiceWithLogger(storage.Employees, storage.Departments, passwords, mailer, idGenerator, now, logger),
		shifts:      application.NewShiftServiceWithLogger(storage.Shifts, idGenerator, now, logger),
		projects:    application.NewProjectServiceWithLogger(storage.Projects, storage.Employees, storage.Departments, mailer, idGenerator, now, logger),
		tasks:       application.NewTaskServiceWithLogger(storage.Tasks, storage.Projects, storage.Employees, mailer, idGenerator, now, logger),
		comments:    application.NewCommentServiceWithLogger(storage.Comments, storage.Tasks, storage.Projects, idGenerator, now, logger),
		timekeeping: application.NewTimekeepingServiceWithLogger(storage.Timekeeping, storage.Employees, storage.Shifts, tokens, cfg.Location, idGenerator, now, logger),
		qr:          application.NewQRServiceWithLogger(storage.Shifts, tokens, qrcode.NewRenderer(qrcode.DefaultSize).Render, logger),
	}, nil
}

func (s *services) handler(storage *sqlite.Storage, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(s.auth, logger),
		Departments:   httptransport.NewDepartmentHandler(s.departments, logger),
		Employees:     httptransport.NewEmployeeHandler(s.employees, logger),
		Shifts:        httptransport.NewShiftHandler(s.shifts, logger),
		Projects:      httptransport.NewProjectHandler(s.projects, logger),
		Tasks:         httptransport.NewTaskHandler(s.tasks, logger),
		Comments:      httptransport.NewCommentHandler(s.comments, logger),
		Timekeeping:   httptransport.NewTimekeepingHandler(s.timekeeping, logger),
		QRCodes:       httptransport.NewQRCodeHandler(s.qr, logger),
		Authenticator: httptransport.RequireAuth(s.auth, logger),
		Health:        storage.Ping,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
		Logger: logger,
	})
}
