package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence/sqlite"
)

// Token secrets used by factory built services.
const (
	AccessSecret = "test-access-secret"
	QRSecret     = "test-qr-secret"
)

// Token lifetimes used by factory built services.
const (
	AccessTokenTTL = 8 * time.Hour
	QRTokenTTL     = 15 * time.Minute
	OTPTTL         = 5 * time.Minute
)

var cheapArgon2Params = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// CheapPasswords hashes with minimal argon2id cost. Hashes remain verifiable
// by application.VerifyPassword since the parameters are encoded in them.
func CheapPasswords() application.PasswordFuncs {
	return application.PasswordFuncs{
		Hash: func(password string) (string, error) {
			return application.CreatePasswordHash(password, cheapArgon2Params)
		},
		Verify: application.VerifyPassword,
	}
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Notifier    application.Notifier
	Logger      *slog.Logger
	// QRRenderer is passed to the QR service; nil issues tokens without images.
	QRRenderer application.QRRenderer
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithNotifier routes outbound notifications to n.
func WithNotifier(n application.Notifier) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Notifier = n
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// WithQRRenderer sets the image renderer of the QR service.
func WithQRRenderer(render application.QRRenderer) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.QRRenderer = render
	}
}

// Services bundles every application service wired over one storage.
type Services struct {
	Tokens      *application.TokenManager
	OTPs        *application.OTPService
	Auth        *application.AuthService
	Departments *application.DepartmentService
	Employees   *application.EmployeeService
	Shifts      *application.ShiftService
	Projects    *application.ProjectService
	Tasks       *application.TaskService
	Comments    *application.CommentService
	Timekeeping *application.TimekeepingService
	QR          *application.QRService
}

// NewTokenManager builds a token manager driven by the factory clock.
func (f *ServiceFactory) NewTokenManager() *application.TokenManager {
	return application.NewTokenManager(AccessSecret, QRSecret, AccessTokenTTL, QRTokenTTL, f.Clock.NowFunc())
}

// Build wires every service against the repositories of storage. Each
// service draws identifiers from the shared generator under its own prefix.
func (f *ServiceFactory) Build(storage *sqlite.Storage, location *time.Location) *Services {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator
	passwords := CheapPasswords()
	tokens := f.NewTokenManager()

	otps := application.NewOTPServiceWithLogger(storage.OTPs, ids.Prefixed("otp"), now, OTPTTL, f.Logger)
	return &Services{
		Tokens: tokens,
		OTPs:   otps,
		Auth: application.NewAuthServiceWithLogger(
			storage.Employees, otps, tokens, passwords, f.Notifier, ids.Prefixed("emp"), now, f.Logger,
		),
		Departments: application.NewDepartmentServiceWithLogger(storage.Departments, ids.Prefixed("dep"), now, f.Logger),
		Employees: application.NewEmployeeServiceWithLogger(
			storage.Employees, storage.Departments, passwords, f.Notifier, ids.Prefixed("emp"), now, f.Logger,
		),
		Shifts: application.NewShiftServiceWithLogger(storage.Shifts, ids.Prefixed("shift"), now, f.Logger),
		Projects: application.NewProjectServiceWithLogger(
			storage.Projects, storage.Employees, storage.Departments, f.Notifier, ids.Prefixed("proj"), now, f.Logger,
		),
		Tasks: application.NewTaskServiceWithLogger(
			storage.Tasks, storage.Projects, storage.Employees, f.Notifier, ids.Prefixed("task"), now, f.Logger,
		),
		Comments: application.NewCommentServiceWithLogger(
			storage.Comments, storage.Tasks, storage.Projects, ids.Prefixed("cmt"), now, f.Logger,
		),
		Timekeeping: application.NewTimekeepingServiceWithLogger(
			storage.Timekeeping, storage.Employees, storage.Shifts, tokens, location, ids.Prefixed("tk"), now, f.Logger,
		),
		QR: application.NewQRServiceWithLogger(storage.Shifts, tokens, f.QRRenderer, f.Logger),
	}
}

// RecordingNotifier captures notifications in memory. The zero value is ready to use.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []string
	otps   map[string]string
	resets map[string]string
}

var _ application.Notifier = (*RecordingNotifier)(nil)

// Events returns the notification kinds in delivery order, e.g. "TaskAssigned:task-3".
func (n *RecordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// LastOTP returns the most recent reset code mailed to email.
func (n *RecordingNotifier) LastOTP(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.otps[email]
}

// LastPassword returns the most recent generated password mailed to email.
func (n *RecordingNotifier) LastPassword(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resets[email]
}

func (n *RecordingNotifier) record(event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *RecordingNotifier) OTPIssued(_ context.Context, employee application.Employee, code string, _ time.Time) error {
	n.mu.Lock()
	if n.otps == nil {
		n.otps = make(map[string]string)
	}
	n.otps[employee.Email] = code
	n.mu.Unlock()
	n.record("OTPIssued:" + employee.ID)
	return nil
}

func (n *RecordingNotifier) PasswordReset(_ context.Context, employee application.Employee, newPassword string) error {
	n.mu.Lock()
	if n.resets == nil {
		n.resets = make(map[string]string)
	}
	n.resets[employee.Email] = newPassword
	n.mu.Unlock()
	n.record("PasswordReset:" + employee.ID)
	return nil
}

func (n *RecordingNotifier) EmployeeWelcome(_ context.Context, employee application.Employee, _ string) error {
	n.record("EmployeeWelcome:" + employee.ID)
	return nil
}

func (n *RecordingNotifier) TaskAssigned(_ context.Context, task application.Task, _ application.Employee, _ []application.Employee) error {
	n.record("TaskAssigned:" + task.ID)
	return nil
}

func (n *RecordingNotifier) TaskSubmitted(_ context.Context, task application.Task, _, _ application.Employee) error {
	n.record("TaskSubmitted:" + task.ID)
	return nil
}

func (n *RecordingNotifier) TaskReviewed(_ context.Context, task application.Task, _ application.Employee, _ []application.Employee) error {
	n.record("TaskReviewed:" + task.ID)
	return nil
}

func (n *RecordingNotifier) ProjectMembersAdded(_ context.Context, project application.Project, _ []application.Employee) error {
	n.record("ProjectMembersAdded:" + project.ID)
	return nil
}
