package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown login and wrong password
	ErrInvalidCredentials = errors.New("invalid login or password")

	// ErrUserBlocked is returned when the account has been blocked
	ErrUserBlocked = errors.New("account is blocked")

	// ErrUserUnconfirmed is returned when login requires a confirmed email
	ErrUserUnconfirmed = errors.New("email address is not confirmed")

	// ErrInvalidToken is returned for unknown, expired or mismatched tokens
	ErrInvalidToken = errors.New("token is invalid or expired")

	// ErrTwoFactorRequired signals that login needs a second factor
	ErrTwoFactorRequired = errors.New("two-factor code required")

	// ErrInvalidTwoFactorCode is returned when neither TOTP nor a backup code matched
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")

	// ErrTwoFactorNotEnabled is returned for 2FA operations without an enabled record
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication is not enabled")

	// ErrTwoFactorAlreadyEnabled is returned when setup is started again
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")

	// ErrForbidden is returned when the caller may not perform the operation
	ErrForbidden = errors.New("operation not permitted")

	// ErrRegistrationDisabled is returned when registration is switched off
	ErrRegistrationDisabled = errors.New("registration is disabled")

	// ErrRecoveryDisabled is returned when password recovery is switched off
	ErrRecoveryDisabled = errors.New("password recovery is disabled")

	// ErrConsentRequired is returned when GDPR consent is mandatory and missing
	ErrConsentRequired = errors.New("data processing consent is required")

	// ErrLastAuthMethod guards against disconnecting the only way to sign in
	ErrLastAuthMethod = errors.New("cannot remove the only sign-in method")

	// ErrRateLimited is returned when the sliding window is exhausted
	ErrRateLimited = errors.New("too many requests")
)

// ValidationError carries per-field validation messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// AsValidationError unwraps a ValidationError if err carries one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
