package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

// gdprService implements GDPRService
type gdprService struct {
	store    repository.Store
	sessions SessionService
	social   SocialService
	hooks    *Hooks
	cfg      *config.Config
	logger   *zap.Logger
}

// NewGDPRService creates a new GDPR service
func NewGDPRService(
	store repository.Store,
	sessions SessionService,
	social SocialService,
	hooks *Hooks,
	cfg *config.Config,
	logger *zap.Logger,
) GDPRService {
	return &gdprService{
		store:    store,
		sessions: sessions,
		social:   social,
		hooks:    hooks,
		cfg:      cfg,
		logger:   logger,
	}
}

// RecordConsent stamps consent with the current policy version
func (s *gdprService) RecordConsent(ctx context.Context, userID string, req *dto.GDPRConsentRequest) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	user.GDPRConsentAt = &now
	user.GDPRConsentVersion = &s.cfg.GDPR.ConsentVersion
	if req.MarketingConsent {
		user.GDPRMarketingConsentAt = &now
	} else {
		user.GDPRMarketingConsentAt = nil
	}

	return s.store.Users().Update(ctx, user)
}

// Export bundles everything stored about the user into one document
func (s *gdprService) Export(ctx context.Context, userID string) (*dto.GDPRExportResponse, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	accounts, err := s.social.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.GDPRExportResponse{
		User:           userToResponse(user),
		Sessions:       sessions,
		SocialAccounts: accounts,
		ExportedAt:     time.Now().Format(time.RFC3339),
	}, nil
}

// Delete is the right-to-be-forgotten path. The row is kept for audit
// but every identifying field is wiped, and everything the user owns
// goes away with it.
func (s *gdprService) Delete(ctx context.Context, userID, password string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return NewValidationError("password", "password is incorrect")
	}

	authKey, err := newAuthKey()
	if err != nil {
		return err
	}

	now := time.Now()
	user.Email = fmt.Sprintf("deleted_%s@deleted.local", user.ID)
	user.Username = nil
	user.PasswordHash = ""
	user.AuthKey = authKey
	user.Status = domain.StatusBlocked
	user.BlockedAt = &now
	user.GDPRDeletedAt = &now
	user.GDPRConsentAt = nil
	user.GDPRConsentVersion = nil
	user.GDPRMarketingConsentAt = nil

	err = s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if err := store.Users().Update(ctx, user); err != nil {
			return err
		}
		if _, err := store.Tokens().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if _, err := store.Sessions().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if _, err := store.SocialAccounts().DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		_, err := store.TwoFactor().DeleteByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to erase account: %w", err)
	}

	s.hooks.notifyDeleted(ctx, user)

	return nil
}
