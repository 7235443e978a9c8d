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

// accountService implements AccountService
type accountService struct {
	store  repository.Store
	tokens *TokenService
	mailer Mailer
	cfg    *config.Config
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	store repository.Store,
	tokens *TokenService,
	mailer Mailer,
	cfg *config.Config,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProfile returns the caller's own account
func (s *accountService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userToResponse(user), nil
}

// UpdateProfile updates mutable account fields
func (s *accountService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		name := utils.SanitizeUsername(*req.Username)
		if !utils.ValidateUsername(name) {
			return nil, NewValidationError("username", "invalid username")
		}
		user.Username = &name
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, NewValidationError("username", "username is already taken")
		}
		return nil, err
	}

	return userToResponse(user), nil
}

// ChangePassword swaps the password after re-verifying the current one.
// The auth key is rotated so remembered sessions elsewhere die with it.
func (s *accountService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return NewValidationError("current_password", "current password is incorrect")
	}

	if !utils.ValidatePasswordLength(req.NewPassword, s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength) {
		return NewValidationError("new_password", fmt.Sprintf(
			"password must be between %d and %d characters",
			s.cfg.Security.MinPasswordLength, s.cfg.Security.MaxPasswordLength))
	}

	passwordHash, err := utils.HashPassword(req.NewPassword, s.cfg.Security.BCryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	authKey, err := newAuthKey()
	if err != nil {
		return err
	}
	user.AuthKey = authKey

	return s.store.Users().Update(ctx, user)
}

// RequestEmailChange starts an email change. With the insecure strategy
// the address flips immediately, otherwise a confirmation token goes to
// the new address and the change waits for it.
func (s *accountService) RequestEmailChange(ctx context.Context, userID string, req *dto.ChangeEmailRequest) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return NewValidationError("current_password", "current password is incorrect")
	}

	newEmail := utils.SanitizeEmail(req.NewEmail)
	if !utils.ValidateEmail(newEmail) {
		return NewValidationError("new_email", "invalid email address")
	}
	if newEmail == user.Email {
		return NewValidationError("new_email", "this is already your email address")
	}

	if _, err := s.store.Users().GetByEmail(ctx, newEmail); err == nil {
		return NewValidationError("new_email", "email address is already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if s.cfg.Registration.EmailChangeStrategy == config.EmailChangeInsecure {
		user.Email = newEmail
		if err := s.store.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return NewValidationError("new_email", "email address is already registered")
			}
			return err
		}
		return nil
	}

	token, err := s.tokens.Issue(ctx, user.ID, domain.TokenTypeEmailChange,
		s.cfg.Registration.ConfirmWithin.Duration,
		map[string]string{domain.TokenDataNewEmail: newEmail})
	if err != nil {
		return err
	}

	if err := s.mailer.SendEmailChange(ctx, newEmail, token.Token); err != nil {
		return fmt.Errorf("failed to send email change message: %w", err)
	}

	if s.cfg.Registration.EmailChangeStrategy == config.EmailChangeSecure {
		// Heads-up to the current address so a hijacked session is noticed
		if err := s.mailer.SendEmailChangeNotice(ctx, user.Email, newEmail); err != nil {
			s.logger.Warn("failed to notify old address of email change",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}

// ConfirmEmailChange redeems an email change token and applies the
// pending address
func (s *accountService) ConfirmEmailChange(ctx context.Context, tokenString string) error {
	token, err := s.tokens.Validate(ctx, tokenString, domain.TokenTypeEmailChange)
	if err != nil {
		return err
	}

	newEmail, ok := token.Data[domain.TokenDataNewEmail]
	if !ok || newEmail == "" {
		return fmt.Errorf("email change token has no pending address: %w", ErrInvalidToken)
	}

	user, err := s.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}

	user.Email = newEmail
	err = s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if err := store.Users().Update(ctx, user); err != nil {
			return err
		}
		return NewTokenService(store).Consume(ctx, token)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return NewValidationError("new_email", "email address is already registered")
		}
		return err
	}

	return nil
}

// CheckPasswordStrength scores a candidate password
func (s *accountService) CheckPasswordStrength(password string) *dto.PasswordStrengthResponse {
	score, feedback := utils.CheckPasswordStrength(password)
	return &dto.PasswordStrengthResponse{Score: score, Feedback: feedback}
}
