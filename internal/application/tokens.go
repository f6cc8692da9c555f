package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTokenTTL = 24 * time.Hour
	// QRTokenMaxAge bounds how long after issuance a QR token is honoured,
	// regardless of the expiry embedded in the token.
	QRTokenMaxAge = 15 * time.Minute
)

// AccessClaims is the payload of bearer tokens.
type AccessClaims struct {
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentId,omitempty"`
	jwt.RegisteredClaims
}

// QRClaims is the payload of attendance QR tokens.
type QRClaims struct {
	DepartmentID string `json:"departmentId"`
	ShiftID      string `json:"shiftId"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	accessSecret []byte
	qrSecret     []byte
	accessTTL    time.Duration
	qrTTL        time.Duration
	now          func() time.Time
}

// NewTokenManager constructs a TokenManager. An empty qrSecret reuses the access secret.
func NewTokenManager(accessSecret, qrSecret string, accessTTL, qrTTL time.Duration, now func() time.Time) *TokenManager {
	if qrSecret == "" {
		qrSecret = accessSecret
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if qrTTL <= 0 {
		qrTTL = QRTokenMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		qrSecret:     []byte(qrSecret),
		accessTTL:    accessTTL,
		qrTTL:        qrTTL,
		now:          now,
	}
}

// IssueAccessToken signs a bearer token for the employee.
func (m *TokenManager) IssueAccessToken(employee Employee) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.accessTTL)

	claims := AccessClaims{
		Role: employee.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employee.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if employee.DepartmentID != nil {
		claims.DepartmentID = *employee.DepartmentID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies a bearer token and returns its claims.
func (m *TokenManager) ParseAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(token, m.accessSecret, &claims); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" {
		return AccessClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// IssueQRToken signs a QR token binding department, shift and operation type.
func (m *TokenManager) IssueQRToken(departmentID, shiftID, operation string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.qrTTL)

	claims := QRClaims{
		DepartmentID: departmentID,
		ShiftID:      shiftID,
		Type:         operation,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.qrSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign qr token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseQRToken verifies a QR token. On top of the embedded expiry, tokens
// issued more than QRTokenMaxAge ago are rejected.
func (m *TokenManager) ParseQRToken(token string) (QRClaims, error) {
	var claims QRClaims
	if err := m.parse(token, m.qrSecret, &claims); err != nil {
		return QRClaims{}, err
	}
	if claims.IssuedAt == nil {
		return QRClaims{}, fmt.Errorf("%w: missing issue time", ErrInvalidToken)
	}
	if m.now().Sub(claims.IssuedAt.Time) > QRTokenMaxAge {
		return QRClaims{}, fmt.Errorf("%w: qr token issued more than %s ago", ErrTokenExpired, QRTokenMaxAge)
	}
	if claims.DepartmentID == "" || claims.ShiftID == "" {
		return QRClaims{}, fmt.Errorf("%w: incomplete qr payload", ErrInvalidToken)
	}
	return claims, nil
}

func (m *TokenManager) parse(token string, secret []byte, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
