package domain

import "time"

// TokenType identifies what a single-use token is good for
type TokenType string

const (
	TokenTypeConfirmation TokenType = "confirmation"
	TokenTypeRecovery     TokenType = "recovery"
	TokenTypeEmailChange  TokenType = "email_change"
)

// TokenDataNewEmail is the payload key carrying the pending address of
// an email change token.
const TokenDataNewEmail = "new_email"

// Token is a single-use, typed, time-bounded credential artifact.
// It is deleted the moment it is successfully consumed.
type Token struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Type      TokenType         `json:"type" db:"type"`
	Token     string            `json:"-" db:"token"`
	Data      map[string]string `json:"data" db:"data"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the token has passed its expiry
func (t *Token) IsExpired() bool {
	return t.ExpiresAt.Before(time.Now())
}
