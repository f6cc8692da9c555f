package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	otpDigits     = 6
	defaultOTPTTL = 15 * time.Minute
)

// OTPService issues and consumes password reset codes.
type OTPService struct {
	otps          OTPRepository
	idGenerator   func() string
	codeGenerator func() (string, error)
	now           func() time.Time
	ttl           time.Duration
	logger        *slog.Logger
}

// NewOTPService constructs an OTP service.
func NewOTPService(otps OTPRepository, idGenerator func() string, now func() time.Time, ttl time.Duration) *OTPService {
	return NewOTPServiceWithLogger(otps, idGenerator, now, ttl, nil)
}

// NewOTPServiceWithLogger constructs an OTP service with a specified logger.
func NewOTPServiceWithLogger(otps OTPRepository, idGenerator func() string, now func() time.Time, ttl time.Duration, logger *slog.Logger) *OTPService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPService{
		otps:          otps,
		idGenerator:   idGenerator,
		codeGenerator: func() (string, error) { return GenerateNumericCode(otpDigits) },
		now:           now,
		ttl:           ttl,
		logger:        defaultLogger(logger),
	}
}

func (s *OTPService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OTPService", operation, attrs...)
}

// CreateOTP discards the employee's unused codes and issues a fresh one.
func (s *OTPService) CreateOTP(ctx context.Context, employee Employee) (otp OTP, err error) {
	if s == nil || s.otps == nil {
		err = fmt.Errorf("otp repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateOTP", "employee_id", employee.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to issue otp", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("otp_id", otp.ID, "expires_at", otp.ExpiresAt).InfoContext(ctx, "otp issued")
	}()

	if err = s.otps.DeleteUnusedOTPs(ctx, employee.ID); err != nil {
		err = mapRepoError(err)
		return
	}

	var code string
	code, err = s.codeGenerator()
	if err != nil {
		return
	}

	now := s.now()
	otp = OTP{
		ID:         s.idGenerator(),
		EmployeeID: employee.ID,
		Email:      employee.Email,
		Code:       code,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}

	otp, err = s.otps.CreateOTP(ctx, otp)
	err = mapRepoError(err)
	return
}

// VerifyOTP consumes a code. It succeeds once for an exact, unused and unexpired code.
func (s *OTPService) VerifyOTP(ctx context.Context, employeeID, code string) (err error) {
	if s == nil || s.otps == nil {
		return fmt.Errorf("otp repository not configured")
	}

	logger := s.loggerWith(ctx, "VerifyOTP", "employee_id", employeeID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "otp rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "otp consumed")
	}()

	code = strings.TrimSpace(code)
	if len(code) != otpDigits {
		return ErrInvalidOTP
	}

	now := s.now()
	otp, err := s.otps.FindActiveOTP(ctx, employeeID, code, now)
	if err != nil {
		if mapped := mapRepoError(err); mapped != ErrNotFound {
			return mapped
		}
		return ErrInvalidOTP
	}

	if err := s.otps.MarkOTPUsed(ctx, otp.ID, now); err != nil {
		if mapped := mapRepoError(err); mapped != ErrNotFound {
			return mapped
		}
		// consumed concurrently
		return ErrInvalidOTP
	}
	return nil
}

// SweepExpired deletes codes whose expiry has passed and reports how many were removed.
func (s *OTPService) SweepExpired(ctx context.Context) (deleted int64, err error) {
	if s == nil || s.otps == nil {
		return 0, fmt.Errorf("otp repository not configured")
	}

	logger := s.loggerWith(ctx, "SweepExpired")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "otp sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if deleted > 0 {
			logger.With("deleted", deleted).InfoContext(ctx, "expired otps removed")
		}
	}()

	deleted, err = s.otps.DeleteExpiredOTPs(ctx, s.now())
	return
}
