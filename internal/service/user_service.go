package service

import (
	"context"
	"database/sql"
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

// userAdminService implements UserAdminService
type userAdminService struct {
	store  repository.Store
	tokens *TokenService
	mailer Mailer
	hooks  *Hooks
	cfg    *config.Config
	logger *zap.Logger
}

// NewUserAdminService creates a new admin service
func NewUserAdminService(
	store repository.Store,
	tokens *TokenService,
	mailer Mailer,
	hooks *Hooks,
	cfg *config.Config,
	logger *zap.Logger,
) UserAdminService {
	return &userAdminService{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		hooks:  hooks,
		cfg:    cfg,
		logger: logger,
	}
}

// Create provisions an account from the admin surface. Without an
// explicit password a generated one is mailed to the user.
func (s *userAdminService) Create(ctx context.Context, req *dto.AdminCreateUserRequest) (*dto.UserResponse, error) {
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
	if password == "" {
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
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		AuthKey:      authKey,
		Status:       domain.StatusPending,
	}
	if req.Confirm || !s.cfg.Registration.EnableConfirmation {
		user.Status = domain.StatusActive
		user.EmailConfirmedAt = &now
	}

	err = s.store.Atomic(ctx, sql.LevelSerializable, func(store repository.Store) error {
		return store.Users().Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, NewValidationError("email", "email address is already registered")
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, NewValidationError("username", "username is already taken")
		}
		return nil, err
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

// Get returns any account by id
func (s *userAdminService) Get(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userToResponse(user), nil
}

// Block marks an account blocked and cuts its sessions. The auth key is
// rotated so nothing issued before the block survives it.
func (s *userAdminService) Block(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("%w: cannot block yourself", ErrForbidden)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsBlocked() {
		return nil
	}

	now := time.Now()
	user.BlockedAt = &now
	user.Status = domain.StatusBlocked

	authKey, err := newAuthKey()
	if err != nil {
		return err
	}
	user.AuthKey = authKey

	err = s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if err := store.Users().Update(ctx, user); err != nil {
			return err
		}
		if _, err := store.Sessions().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		_, err := store.Tokens().DeleteAllForUser(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendBlockedNotice(ctx, user.Email); err != nil {
		s.logger.Warn("failed to send blocked notice",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	s.hooks.notifyBlocked(ctx, user)

	return nil
}

// Unblock lifts a block. Unblocking an account that is not blocked is
// not an error.
func (s *userAdminService) Unblock(ctx context.Context, userID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.IsBlocked() {
		return nil
	}

	user.BlockedAt = nil
	if user.IsConfirmed() {
		user.Status = domain.StatusActive
	} else {
		user.Status = domain.StatusPending
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}

	s.hooks.notifyUnblocked(ctx, user)

	return nil
}

// ForceConfirm confirms an account without a token
func (s *userAdminService) ForceConfirm(ctx context.Context, userID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsConfirmed() {
		return nil
	}

	now := time.Now()
	user.EmailConfirmedAt = &now
	if user.Status == domain.StatusPending {
		user.Status = domain.StatusActive
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}

	if err := s.tokens.RevokeAll(ctx, userID, domain.TokenTypeConfirmation); err != nil {
		return err
	}

	s.hooks.notifyConfirmed(ctx, user)

	return nil
}

// ResendPassword generates a new password and mails it. Refused for
// admin accounts so a compromised admin cannot lock out the others.
func (s *userAdminService) ResendPassword(ctx context.Context, userID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if s.isAdmin(user) {
		return fmt.Errorf("%w: cannot reset an admin password this way", ErrForbidden)
	}

	password, err := utils.GeneratePassword(12)
	if err != nil {
		return err
	}
	passwordHash, err := utils.HashPassword(password, s.cfg.Security.BCryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, password); err != nil {
		return fmt.Errorf("failed to send password email: %w", err)
	}

	return nil
}

// Delete removes an account and everything it owns
func (s *userAdminService) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("%w: cannot delete yourself", ErrForbidden)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if _, err := store.Tokens().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if _, err := store.Sessions().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if _, err := store.SocialAccounts().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if _, err := store.TwoFactor().DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return store.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.hooks.notifyDeleted(ctx, user)

	return nil
}

// CanImpersonate reports whether actor may switch into target. Admins
// cannot impersonate each other.
func (s *userAdminService) CanImpersonate(actorID, targetID string) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot impersonate yourself", ErrForbidden)
	}
	for _, admin := range s.cfg.Security.Admins {
		if admin == targetID {
			return fmt.Errorf("%w: cannot impersonate an admin", ErrForbidden)
		}
	}
	return nil
}

func (s *userAdminService) isAdmin(user *domain.User) bool {
	return isAdminUser(s.cfg, user)
}

// isAdminUser checks the configured admin list against email, username
// and id
func isAdminUser(cfg *config.Config, user *domain.User) bool {
	for _, admin := range cfg.Security.Admins {
		if admin == user.Email {
			return true
		}
		if user.Username != nil && admin == *user.Username {
			return true
		}
		if admin == user.ID {
			return true
		}
	}
	return false
}
