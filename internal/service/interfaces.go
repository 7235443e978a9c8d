package service

import (
	"context"
	"time"

	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
)

// Mailer delivers lifecycle emails. Implementations must honor ctx cancellation.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, token string) error
	SendRecovery(ctx context.Context, email, token string) error
	SendEmailChange(ctx context.Context, email, token string) error
	SendEmailChangeNotice(ctx context.Context, oldEmail, newEmail string) error
	SendWelcome(ctx context.Context, email, generatedPassword string) error
	SendBlockedNotice(ctx context.Context, email string) error
}

// Captcha verifies a challenge response. A nil implementation disables the check.
type Captcha interface {
	Verify(ctx context.Context, response, remoteIP string) (bool, error)
}

// OAuthClient talks to a social identity provider
type OAuthClient interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*domain.SocialProfile, error)
}

// RegistrationService handles sign-up and email confirmation
type RegistrationService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, remoteIP string) (*dto.UserResponse, error)
	Confirm(ctx context.Context, tokenString string) (*dto.UserResponse, error)
	ResendConfirmation(ctx context.Context, email string) error
}

// RecoveryService handles the forgotten-password flow
type RecoveryService interface {
	RequestRecovery(ctx context.Context, req *dto.RecoveryRequest, remoteIP string) error
	ValidateToken(ctx context.Context, tokenString string) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

// AuthService handles credential login and JWT issuance
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, remoteIP, userAgent string) (*LoginResult, error)
	CompleteTwoFactorLogin(ctx context.Context, req *dto.TwoFactorLoginRequest, remoteIP, userAgent string) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, userID, sessionID, accessToken string, accessTokenTTL time.Duration) error
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// TwoFactorService manages TOTP enrollment and verification
type TwoFactorService interface {
	StartSetup(ctx context.Context, userID string) (*dto.TwoFactorSetupResponse, error)
	Enable(ctx context.Context, userID, code string) (*dto.TwoFactorEnabledResponse, error)
	Disable(ctx context.Context, userID, password string) error
	Verify(ctx context.Context, userID, code string) (bool, error)
	RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error)
	IsEnabled(ctx context.Context, userID string) (bool, error)
}

// SessionService tracks login sessions per user
type SessionService interface {
	Track(ctx context.Context, userID, sessionID, ip, userAgent string) error
	List(ctx context.Context, userID, currentSessionID string) ([]dto.SessionResponse, error)
	Terminate(ctx context.Context, userID, sessionRecordID string) (*domain.Session, error)
	TerminateOthers(ctx context.Context, userID, currentSessionID string) (int64, error)
	UpdateActivity(ctx context.Context, sessionID string) error
}

// SocialService handles OAuth2 login and account linking
type SocialService interface {
	AuthURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code, remoteIP, userAgent string) (*LoginResult, error)
	Connect(ctx context.Context, userID, provider, code string) (*dto.SocialAccountResponse, error)
	ListConnections(ctx context.Context, userID string) ([]dto.SocialAccountResponse, error)
	Disconnect(ctx context.Context, userID, accountID string) error
}

// AccountService covers the self-service settings surface
type AccountService interface {
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	RequestEmailChange(ctx context.Context, userID string, req *dto.ChangeEmailRequest) error
	ConfirmEmailChange(ctx context.Context, tokenString string) error
	CheckPasswordStrength(password string) *dto.PasswordStrengthResponse
}

// UserAdminService covers the administrative surface
type UserAdminService interface {
	Create(ctx context.Context, req *dto.AdminCreateUserRequest) (*dto.UserResponse, error)
	Get(ctx context.Context, userID string) (*dto.UserResponse, error)
	Block(ctx context.Context, actorID, userID string) error
	Unblock(ctx context.Context, userID string) error
	ForceConfirm(ctx context.Context, userID string) error
	ResendPassword(ctx context.Context, userID string) error
	Delete(ctx context.Context, actorID, userID string) error
	CanImpersonate(actorID, targetID string) error
}

// GDPRService covers consent, export and erasure
type GDPRService interface {
	RecordConsent(ctx context.Context, userID string, req *dto.GDPRConsentRequest) error
	Export(ctx context.Context, userID string) (*dto.GDPRExportResponse, error)
	Delete(ctx context.Context, userID, password string) error
}

// MaintenanceService runs the periodic sweeps
type MaintenanceService interface {
	Sweep(ctx context.Context) (*dto.SweepResponse, error)
}
