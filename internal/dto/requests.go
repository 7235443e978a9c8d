package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"omitempty,min=3,max=255"`
	Password        string `json:"password" binding:"omitempty,max=72"`
	GDPRConsent     bool   `json:"gdpr_consent"`
	CaptchaResponse string `json:"captcha_response"`
}

// LoginRequest represents a login request by email or username
type LoginRequest struct {
	Login      string `json:"login" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// TwoFactorLoginRequest completes a login that was paused for a second factor
type TwoFactorLoginRequest struct {
	PendingToken string `json:"pending_token" binding:"required"`
	Code         string `json:"code" binding:"required"`
}

// ConfirmRequest represents an email confirmation request
type ConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendConfirmationRequest asks for a fresh confirmation email
type ResendConfirmationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RecoveryRequest starts a password recovery flow
type RecoveryRequest struct {
	Email           string `json:"email" binding:"required,email"`
	CaptchaResponse string `json:"captcha_response"`
}

// ResetPasswordRequest completes a password recovery flow
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

// ChangePasswordRequest changes the password of a logged-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,max=72"`
}

// ChangeEmailRequest starts an email change flow
type ChangeEmailRequest struct {
	NewEmail        string `json:"new_email" binding:"required,email"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// UpdateProfileRequest updates mutable account fields
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=255"`
}

// TwoFactorEnableRequest confirms 2FA setup with a first code
type TwoFactorEnableRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorDisableRequest disables 2FA
type TwoFactorDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

// SocialCallbackRequest carries the OAuth2 callback parameters
type SocialCallbackRequest struct {
	Code  string `json:"code" form:"code" binding:"required"`
	State string `json:"state" form:"state"`
}

// GDPRConsentRequest records consent
type GDPRConsentRequest struct {
	MarketingConsent bool `json:"marketing_consent"`
}

// GDPRDeleteRequest requests account deletion, gated by password
type GDPRDeleteRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminCreateUserRequest creates a user from the admin surface
type AdminCreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"omitempty,min=3,max=255"`
	Password string `json:"password" binding:"omitempty,max=72"`
	Confirm  bool   `json:"confirm"`
}

// AdminBlockRequest blocks or unblocks a user
type AdminBlockRequest struct {
	Block bool `json:"block"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
