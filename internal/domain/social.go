package domain

import (
	"encoding/json"
	"time"
)

// SocialAccount links an external identity to a local user. UserID is
// nil while the account only exists transiently during an OAuth flow.
type SocialAccount struct {
	ID         string          `json:"id" db:"id"`
	UserID     *string         `json:"user_id" db:"user_id"`
	Provider   string          `json:"provider" db:"provider"`
	ProviderID string          `json:"provider_id" db:"provider_id"`
	Email      *string         `json:"email" db:"email"`
	Username   *string         `json:"username" db:"username"`
	Data       json.RawMessage `json:"data" db:"data"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// SocialProfile is the identity a provider reports during an OAuth exchange
type SocialProfile struct {
	Provider   string
	ProviderID string
	Email      string
	Username   string
	Raw        json.RawMessage
}
