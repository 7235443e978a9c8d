package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

// registrationService implements RegistrationService
type registrationService struct {
	store   repository.Store
	tokens  *TokenService
	mailer  Mailer
	captcha Captcha
	hooks   *Hooks
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	store repository.Store,
	tokens *TokenService,
	mailer Mailer,
	captcha Captcha,
	hooks *Hooks,
	cfg *config.Config,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		store:   store,
		tokens:  tokens,
		mailer:  mailer,
		captcha: captcha,
		hooks:   hooks,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register creates a new account. The uniqueness check and insert run in
// one serializable transaction so two concurrent registrations for the
// same email cannot both succeed.
func (s *registrationService) Register(ctx context.Context, req *dto.RegisterRequest, remoteIP string) (*dto.UserResponse, error) {
	if !s.cfg.Registration.EnableRegistration {
		return nil, ErrRegistrationDisabled
	}

	if s.cfg.GDPR.ConsentEnabled && s.cfg.GDPR.RequireBeforeRegistration && !req.GDPRConsent {
		return nil, ErrConsentRequired
	}

	if s.captcha != nil {
		ok, err := s.captcha.Verify(ctx, req.CaptchaResponse, remoteIP)
		if err != nil {
			return nil, fmt.Errorf("failed to verify captcha: %w", err)
		}
		if !ok {
			return nil, NewValidationError("captcha_response", "captcha verification failed")
		}
	}

	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, NewValidationError("email", "invalid email address")
	}

	var username *string
	if req.Username != "" {
		name := utils.SanitizeUsername(req.Username)
		if !utils.ValidateUsername(name) {
			return nil, NewValidationError("username", "invalid username")
		}
		username = &name
	}

	password := req.Password
	generated := false
	if s.cfg.Registration.EnableGeneratedPassword && password == "" {
		var err error
		password, err = utils.GeneratePassword(12)
		if err != nil {
			return nil, err
		}
		generated = true
	}
	if !utils.ValidatePasswordLength(password, s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength) {
		return nil, NewValidationError("password", fmt.Sprintf(
			"password must be between %d and %d characters",
			s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength))
	}

	passwordHash, err := utils.HashPassword(password, s.cfg.Security.BCryptCost)
	if err != nil {
		return nil, err
	}

	authKey, err := newAuthKey()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		Email:          email,
		Username:       username,
		PasswordHash:   passwordHash,
		AuthKey:        authKey,
		Status:         domain.StatusPending,
		RegistrationIP: &remoteIP,
	}

	if !s.cfg.Registration.EnableConfirmation {
		user.Status = domain.StatusActive
		user.EmailConfirmedAt = &now
	}

	if s.cfg.GDPR.ConsentEnabled && req.GDPRConsent {
		user.GDPRConsentAt = &now
		user.GDPRConsentVersion = &s.cfg.GDPR.ConsentVersion
	}

	var confirmationToken *domain.Token

	err = s.store.Atomic(ctx, sql.LevelSerializable, func(store repository.Store) error {
		if err := store.Users().Create(ctx, user); err != nil {
			return err
		}

		if s.cfg.Registration.EnableConfirmation {
			tokens := NewTokenService(store)
			confirmationToken, err = tokens.Issue(ctx, user.ID,
				domain.TokenTypeConfirmation, s.cfg.Registration.ConfirmWithin.Duration, nil)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, NewValidationError("email", "email address is already registered")
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, NewValidationError("username", "username is already taken")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if confirmationToken != nil {
		if err := s.mailer.SendConfirmation(ctx, user.Email, confirmationToken.Token); err != nil {
			s.logger.Error("failed to send confirmation email",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	if generated {
		if err := s.mailer.SendWelcome(ctx, user.Email, password); err != nil {
			s.logger.Error("failed to send welcome email",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.hooks.notifyRegistered(ctx, user)

	return userToResponse(user), nil
}

// Confirm redeems a confirmation token and activates the account
func (s *registrationService) Confirm(ctx context.Context, tokenString string) (*dto.UserResponse, error) {
	token, err := s.tokens.Validate(ctx, tokenString, domain.TokenTypeConfirmation)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for confirmation: %w", err)
	}

	err = s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if !user.IsConfirmed() {
			now := time.Now()
			user.EmailConfirmedAt = &now
			if user.Status == domain.StatusPending {
				user.Status = domain.StatusActive
			}
			if err := store.Users().Update(ctx, user); err != nil {
				return fmt.Errorf("failed to confirm user: %w", err)
			}
		}
		return NewTokenService(store).Consume(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	s.hooks.notifyConfirmed(ctx, user)

	return userToResponse(user), nil
}

// ResendConfirmation issues a fresh confirmation token. The response does
// not reveal whether the address belongs to an account.
func (s *registrationService) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.store.Users().GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsConfirmed() || user.IsBlocked() {
		return nil
	}

	token, err := s.tokens.Issue(ctx, user.ID,
		domain.TokenTypeConfirmation, s.cfg.Registration.ConfirmWithin.Duration, nil)
	if err != nil {
		return err
	}

	if err := s.mailer.SendConfirmation(ctx, user.Email, token.Token); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	return nil
}

// newAuthKey returns a 32 character random key used to invalidate
// remember-me material when the account changes hands
func newAuthKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func userToResponse(user *domain.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Status:      user.Status,
		IsConfirmed: user.IsConfirmed(),
		IsBlocked:   user.IsBlocked(),
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		formatted := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &formatted
	}
	return resp
}
