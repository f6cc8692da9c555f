package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// OTPRepository implements application.OTPRepository using SQLite
type OTPRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.OTPRepository = (*OTPRepository)(nil)

// NewOTPRepository creates a new SQLite reset code repository
func NewOTPRepository(pool *ConnectionPool) *OTPRepository {
	return &OTPRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const otpColumns = `id, employee_id, email, code, is_used, expires_at, used_at, created_at`

// CreateOTP inserts a reset code
func (r *OTPRepository) CreateOTP(ctx context.Context, otp application.OTP) (application.OTP, error) {
	if otp.ID == "" {
		return application.OTP{}, persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO otps (id, employee_id, email, code, is_used, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		otp.ID,
		otp.EmployeeID,
		otp.Email,
		otp.Code,
		otp.IsUsed,
		formatTime(otp.ExpiresAt),
		formatOptionalTime(otp.UsedAt),
		formatTime(otp.CreatedAt),
	)
	if err != nil {
		return application.OTP{}, r.mapper.MapError(err)
	}

	created, err := scanOTP(r.helper.QueryRow(ctx, `SELECT `+otpColumns+` FROM otps WHERE id = ?`, otp.ID))
	if err != nil {
		return application.OTP{}, r.mapper.MapError(err)
	}
	return created, nil
}

// DeleteUnusedOTPs drops every unconsumed code of an employee
func (r *OTPRepository) DeleteUnusedOTPs(ctx context.Context, employeeID string) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM otps WHERE employee_id = ? AND is_used = 0`, employeeID)
	return r.mapper.MapError(err)
}

// FindActiveOTP returns the newest unused, unexpired code matching employeeID and code
func (r *OTPRepository) FindActiveOTP(ctx context.Context, employeeID, code string, now time.Time) (application.OTP, error) {
	otp, err := scanOTP(r.helper.QueryRow(ctx, `
		SELECT `+otpColumns+` FROM otps
		WHERE employee_id = ? AND code = ? AND is_used = 0 AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`, employeeID, code, formatTime(now)))
	if err != nil {
		return application.OTP{}, r.mapper.MapError(err)
	}
	return otp, nil
}

// MarkOTPUsed consumes a code. A code that is already used reports persistence.ErrNotFound.
func (r *OTPRepository) MarkOTPUsed(ctx context.Context, id string, usedAt time.Time) error {
	err := r.helper.ExecAffecting(ctx, nil,
		`UPDATE otps SET is_used = 1, used_at = ? WHERE id = ? AND is_used = 0`,
		formatTime(usedAt), id,
	)
	return r.mapper.MapError(err)
}

// DeleteExpiredOTPs removes codes that expired at or before now
func (r *OTPRepository) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx, `DELETE FROM otps WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func scanOTP(row rowScanner) (application.OTP, error) {
	var (
		otp                  application.OTP
		expiresAt, createdAt string
		usedAt               sql.NullString
	)
	if err := row.Scan(
		&otp.ID,
		&otp.EmployeeID,
		&otp.Email,
		&otp.Code,
		&otp.IsUsed,
		&expiresAt,
		&usedAt,
		&createdAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.OTP{}, persistence.ErrNotFound
		}
		return application.OTP{}, err
	}

	var err error
	if otp.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return application.OTP{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if otp.UsedAt, err = parseOptionalTime(usedAt); err != nil {
		return application.OTP{}, fmt.Errorf("failed to parse used_at: %w", err)
	}
	if otp.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.OTP{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return otp, nil
}
