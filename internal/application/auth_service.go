package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// PasswordFuncs bundles hashing and verification so tests can swap in cheap versions.
type PasswordFuncs struct {
	Hash   PasswordHasher
	Verify PasswordVerifier
}

func (p PasswordFuncs) withDefaults() PasswordFuncs {
	if p.Hash == nil {
		p.Hash = HashPassword
	}
	if p.Verify == nil {
		p.Verify = VerifyPassword
	}
	return p
}

// LoginParams captures the data required to authenticate an employee.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Employee  Employee
}

// RegisterParams captures self-registration fields.
type RegisterParams struct {
	FullName string
	Email    string
	Password string
	Phone    string
}

// AuthService coordinates login, registration, token validation and password recovery.
type AuthService struct {
	employees   EmployeeRepository
	otps        *OTPService
	tokens      *TokenManager
	passwords   PasswordFuncs
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(employees EmployeeRepository, otps *OTPService, tokens *TokenManager, passwords PasswordFuncs, notifier Notifier, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(employees, otps, tokens, passwords, notifier, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(employees EmployeeRepository, otps *OTPService, tokens *TokenManager, passwords PasswordFuncs, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		employees:   employees,
		otps:        otps,
		tokens:      tokens,
		passwords:   passwords.withDefaults(),
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login validates credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil || s.employees == nil || s.tokens == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("employee_id", result.Employee.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds EmployeeCredentials
	creds, err = s.employees.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.passwords.Verify(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	if !creds.Employee.IsActive {
		err = ErrAccountDisabled
		return
	}

	token, expiresAt, err := s.tokens.IssueAccessToken(creds.Employee)
	if err != nil {
		return
	}

	result = LoginResult{Token: token, ExpiresAt: expiresAt, Employee: creds.Employee}
	return
}

// Register creates an active USER-role employee without a department.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (employee Employee, err error) {
	if s == nil || s.employees == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("employee_id", employee.ID).InfoContext(ctx, "employee registered")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.FullName) == "" {
		vErr.add("fullName", "full name is required")
	}
	if msg := validateEmail(email); msg != "" {
		vErr.add("email", msg)
	}
	if len(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.passwords.Hash(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	employee = Employee{
		ID:        s.idGenerator(),
		FullName:  strings.TrimSpace(params.FullName),
		Email:     email,
		Phone:     strings.TrimSpace(params.Phone),
		Role:      RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	employee, err = s.employees.CreateEmployee(ctx, employee, hash)
	err = mapRepoError(err)
	return
}

// Profile returns the employee record of the principal.
func (s *AuthService) Profile(ctx context.Context, principal Principal) (Employee, error) {
	if s == nil || s.employees == nil {
		return Employee{}, fmt.Errorf("AuthService is not configured")
	}
	employee, err := s.employees.GetEmployee(ctx, principal.EmployeeID)
	return employee, mapRepoError(err)
}

// ChangePassword replaces the principal's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, principal Principal, current, next string) (err error) {
	if s == nil || s.employees == nil {
		return fmt.Errorf("AuthService is not configured")
	}

	logger := s.loggerWith(ctx, "ChangePassword", "employee_id", principal.EmployeeID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if len(next) < MinPasswordLength {
		return newValidationError("newPassword", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	creds, err := s.employees.GetCredentials(ctx, principal.EmployeeID)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.passwords.Verify(creds.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return err
	}
	return mapRepoError(s.employees.UpdatePassword(ctx, principal.EmployeeID, hash, s.now()))
}

// ValidateToken verifies a bearer token and resolves the principal from the
// current employee record, so role or department changes apply immediately.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil || s.employees == nil || s.tokens == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ValidateToken", "token_provided", strings.TrimSpace(token) != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "token validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.EmployeeID).DebugContext(ctx, "token validated")
	}()

	var claims AccessClaims
	claims, err = s.tokens.ParseAccessToken(token)
	if err != nil {
		return
	}

	var employee Employee
	employee, err = s.employees.GetEmployee(ctx, claims.Subject)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidToken
		}
		return
	}
	if !employee.IsActive {
		err = ErrAccountDisabled
		return
	}

	principal = principalFor(employee)
	return
}

// ForgotPassword issues an OTP for the employee with the given email and mails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	if s == nil || s.employees == nil || s.otps == nil {
		return fmt.Errorf("AuthService is not configured")
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "ForgotPassword", "email", email)
	skipped := ""
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "password recovery failed", "error", err, "error_kind", ErrorKind(err))
		case skipped != "":
			logger.InfoContext(ctx, "password recovery ignored", "reason", skipped)
		default:
			logger.InfoContext(ctx, "password recovery code sent")
		}
	}()

	if msg := validateEmail(email); msg != "" {
		return newValidationError("email", msg)
	}

	// Unknown and disabled accounts answer like known ones so the endpoint
	// does not reveal which emails are registered.
	creds, err := s.employees.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			skipped = "unknown email"
			return nil
		}
		return err
	}
	if !creds.Employee.IsActive {
		skipped = "account disabled"
		return nil
	}

	otp, err := s.otps.CreateOTP(ctx, creds.Employee)
	if err != nil {
		return err
	}

	if nErr := s.notifier.OTPIssued(ctx, creds.Employee, otp.Code, otp.ExpiresAt); nErr != nil {
		logger.WarnContext(ctx, "failed to queue otp email", "error", nErr)
	}
	return nil
}

// ResetPasswordWithOTP consumes the code and replaces the password with a
// generated one that is mailed to the employee.
func (s *AuthService) ResetPasswordWithOTP(ctx context.Context, email, code string) (err error) {
	if s == nil || s.employees == nil || s.otps == nil {
		return fmt.Errorf("AuthService is not configured")
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "ResetPasswordWithOTP", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset")
	}()

	creds, err := s.employees.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}

	if err := s.otps.VerifyOTP(ctx, creds.Employee.ID, code); err != nil {
		return err
	}

	password, err := GeneratePassword(GeneratedPasswordLength)
	if err != nil {
		return err
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}
	if err := s.employees.UpdatePassword(ctx, creds.Employee.ID, hash, s.now()); err != nil {
		return mapRepoError(err)
	}

	if nErr := s.notifier.PasswordReset(ctx, creds.Employee, password); nErr != nil {
		logger.WarnContext(ctx, "failed to queue password email", "error", nErr)
	}
	return nil
}

func principalFor(employee Employee) Principal {
	principal := Principal{EmployeeID: employee.ID, Role: employee.Role}
	if employee.DepartmentID != nil {
		principal.DepartmentID = *employee.DepartmentID
	}
	return principal
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "email is invalid"
	}
	return ""
}
