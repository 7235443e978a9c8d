package domain

import "time"

// TwoFactor holds the TOTP enrollment state for a user, one row per user.
// A nil EnabledAt means the secret was provisioned but never confirmed.
type TwoFactor struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Secret      string     `json:"-" db:"secret"`
	EnabledAt   *time.Time `json:"enabled_at" db:"enabled_at"`
	BackupCodes []string   `json:"-" db:"backup_codes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsEnabled reports whether two-factor auth is active for the user
func (t *TwoFactor) IsEnabled() bool {
	return t.EnabledAt != nil
}
