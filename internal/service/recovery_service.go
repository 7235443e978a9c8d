package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

// recoveryService implements RecoveryService
type recoveryService struct {
	store   repository.Store
	tokens  *TokenService
	mailer  Mailer
	captcha Captcha
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	store repository.Store,
	tokens *TokenService,
	mailer Mailer,
	captcha Captcha,
	cfg *config.Config,
	logger *zap.Logger,
) RecoveryService {
	return &recoveryService{
		store:   store,
		tokens:  tokens,
		mailer:  mailer,
		captcha: captcha,
		cfg:     cfg,
		logger:  logger,
	}
}

// RequestRecovery starts a recovery flow. It reports success whether or
// not the address belongs to an account, so the endpoint cannot be used
// to probe for registered emails.
func (s *recoveryService) RequestRecovery(ctx context.Context, req *dto.RecoveryRequest, remoteIP string) error {
	if !s.cfg.Registration.EnablePasswordRecovery {
		return ErrRecoveryDisabled
	}

	if s.captcha != nil {
		ok, err := s.captcha.Verify(ctx, req.CaptchaResponse, remoteIP)
		if err != nil {
			return fmt.Errorf("failed to verify captcha: %w", err)
		}
		if !ok {
			return NewValidationError("captcha_response", "captcha verification failed")
		}
	}

	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return NewValidationError("email", "invalid email address")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsBlocked() {
		return nil
	}

	token, err := s.tokens.Issue(ctx, user.ID,
		domain.TokenTypeRecovery, s.cfg.Registration.RecoverWithin.Duration, nil)
	if err != nil {
		s.logger.Error("failed to issue recovery token",
			zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}

	if err := s.mailer.SendRecovery(ctx, user.Email, token.Token); err != nil {
		s.logger.Error("failed to send recovery email",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ValidateToken checks a recovery token without consuming it, so a reset
// form can be rejected before the user types a new password
func (s *recoveryService) ValidateToken(ctx context.Context, tokenString string) error {
	_, err := s.tokens.Validate(ctx, tokenString, domain.TokenTypeRecovery)
	return err
}

// ResetPassword redeems a recovery token and sets a new password. All
// outstanding recovery tokens for the user are purged, not just the one
// redeemed.
func (s *recoveryService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	token, err := s.tokens.Validate(ctx, req.Token, domain.TokenTypeRecovery)
	if err != nil {
		return err
	}

	if !utils.ValidatePasswordLength(req.Password, s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength) {
		return NewValidationError("password", fmt.Sprintf(
			"password must be between %d and %d characters",
			s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength))
	}

	user, err := s.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user for reset: %w", err)
	}

	if user.IsBlocked() {
		return ErrUserBlocked
	}

	passwordHash, err := utils.HashPassword(req.Password, s.cfg.Security.BCryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	authKey, err := newAuthKey()
	if err != nil {
		return err
	}
	user.AuthKey = authKey

	return s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if err := store.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return NewTokenService(store).RevokeAll(ctx, user.ID, domain.TokenTypeRecovery)
	})
}
