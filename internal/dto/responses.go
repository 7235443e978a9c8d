package dto

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// TwoFactorPendingResponse is returned when login needs a second factor
type TwoFactorPendingResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	PendingToken      string `json:"pending_token"`
	ExpiresIn         int    `json:"expires_in"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username,omitempty"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    *string `json:"username"`
	Status      string  `json:"status"`
	IsConfirmed bool    `json:"is_confirmed"`
	IsBlocked   bool    `json:"is_blocked"`
	LastLoginAt *string `json:"last_login_at"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// SessionResponse represents one tracked session
type SessionResponse struct {
	ID             string `json:"id"`
	IP             string `json:"ip"`
	DeviceName     string `json:"device_name"`
	LastActivityAt string `json:"last_activity_at"`
	CreatedAt      string `json:"created_at"`
	Current        bool   `json:"current"`
}

// SocialAccountResponse represents one linked provider account
type SocialAccountResponse struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// TwoFactorSetupResponse carries provisioning material for 2FA setup
type TwoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodeBase64    string `json:"qr_code_base64"`
}

// TwoFactorEnabledResponse is returned once 2FA is confirmed
type TwoFactorEnabledResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// PasswordStrengthResponse reports a password score with feedback
type PasswordStrengthResponse struct {
	Score    int      `json:"score"`
	Feedback []string `json:"feedback"`
}

// GDPRExportResponse bundles everything stored about a user
type GDPRExportResponse struct {
	User           *UserResponse           `json:"user"`
	Sessions       []SessionResponse       `json:"sessions"`
	SocialAccounts []SocialAccountResponse `json:"social_accounts"`
	ExportedAt     string                  `json:"exported_at"`
}

// SweepResponse reports how many rows a maintenance sweep removed
type SweepResponse struct {
	ExpiredTokens    int64 `json:"expired_tokens"`
	InactiveSessions int64 `json:"inactive_sessions"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
