package domain

import "time"

// User statuses. Blocked is tracked canonically through BlockedAt;
// the status column is kept in sync as a denormalized cache.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User represents a user account
type User struct {
	ID                     string     `json:"id" db:"id"`
	Email                  string     `json:"email" db:"email"`
	Username               *string    `json:"username" db:"username"`
	PasswordHash           string     `json:"-" db:"password_hash"`
	AuthKey                string     `json:"-" db:"auth_key"`
	Status                 string     `json:"status" db:"status"`
	EmailConfirmedAt       *time.Time `json:"email_confirmed_at" db:"email_confirmed_at"`
	BlockedAt              *time.Time `json:"blocked_at" db:"blocked_at"`
	LastLoginAt            *time.Time `json:"last_login_at" db:"last_login_at"`
	LastLoginIP            *string    `json:"last_login_ip" db:"last_login_ip"`
	RegistrationIP         *string    `json:"registration_ip" db:"registration_ip"`
	GDPRConsentAt          *time.Time `json:"gdpr_consent_at" db:"gdpr_consent_at"`
	GDPRConsentVersion     *string    `json:"gdpr_consent_version" db:"gdpr_consent_version"`
	GDPRMarketingConsentAt *time.Time `json:"gdpr_marketing_consent_at" db:"gdpr_marketing_consent_at"`
	GDPRDeletedAt          *time.Time `json:"gdpr_deleted_at" db:"gdpr_deleted_at"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// IsBlocked reports whether the account is blocked. BlockedAt is the
// source of truth; a blocked status with a nil BlockedAt is undefined
// behavior and intentionally not reconciled here.
func (u *User) IsBlocked() bool {
	return u.BlockedAt != nil
}

// IsConfirmed reports whether the email address has been confirmed.
// Confirmation is independent of status.
func (u *User) IsConfirmed() bool {
	return u.EmailConfirmedAt != nil
}
