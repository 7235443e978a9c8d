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

// socialService implements SocialService
type socialService struct {
	loginIssuer
	clients map[string]OAuthClient
	hooks   *Hooks
}

// NewSocialService creates a new social login service. The clients map
// is keyed by provider name.
func NewSocialService(
	store repository.Store,
	jwtManager *utils.JWTManager,
	sessions SessionService,
	clients map[string]OAuthClient,
	hooks *Hooks,
	cfg *config.Config,
	logger *zap.Logger,
) SocialService {
	return &socialService{
		loginIssuer: loginIssuer{
			store:      store,
			jwtManager: jwtManager,
			sessions:   sessions,
			cfg:        cfg,
			logger:     logger,
		},
		clients: clients,
		hooks:   hooks,
	}
}

// AuthURL returns the provider's authorization URL for a state value
func (s *socialService) AuthURL(provider, state string) (string, error) {
	client, ok := s.clients[provider]
	if !ok {
		return "", NewValidationError("provider", "unknown provider")
	}
	return client.AuthCodeURL(state)
}

// HandleCallback finishes an OAuth flow for an anonymous visitor. A
// known identity logs in, an unknown one registers a new account when
// social registration is enabled.
func (s *socialService) HandleCallback(ctx context.Context, provider, code, remoteIP, userAgent string) (*LoginResult, error) {
	profile, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	account, err := s.store.SocialAccounts().GetByProviderAndID(ctx, profile.Provider, profile.ProviderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if account != nil && account.UserID != nil {
		user, err := s.store.Users().GetByID(ctx, *account.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load linked user: %w", err)
		}
		if user.IsBlocked() {
			return nil, ErrUserBlocked
		}
		// Social logins have no remember checkbox and are always persistent
		return s.completeLogin(ctx, user, true, remoteIP, userAgent)
	}

	if !s.cfg.Social.EnableRegistration {
		return nil, ErrRegistrationDisabled
	}

	user, err := s.registerFromProfile(ctx, profile, remoteIP)
	if err != nil {
		return nil, err
	}

	s.hooks.notifyRegistered(ctx, user)

	return s.completeLogin(ctx, user, true, remoteIP, userAgent)
}

// Connect links a provider identity to an existing account. An identity
// already linked to a different account is rejected.
func (s *socialService) Connect(ctx context.Context, userID, provider, code string) (*dto.SocialAccountResponse, error) {
	if !s.cfg.Social.EnableConnect {
		return nil, ErrForbidden
	}

	profile, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.SocialAccounts().GetByProviderAndID(ctx, profile.Provider, profile.ProviderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && (existing.UserID == nil || *existing.UserID != userID) {
		return nil, NewValidationError("provider", "this identity is already linked to another account")
	}

	account, err := s.store.SocialAccounts().GetByUserAndProvider(ctx, userID, provider)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if account == nil {
		account = &domain.SocialAccount{
			UserID:   &userID,
			Provider: profile.Provider,
		}
	}

	account.ProviderID = profile.ProviderID
	account.Data = profile.Raw
	if profile.Email != "" {
		email := profile.Email
		account.Email = &email
	}
	if profile.Username != "" {
		name := profile.Username
		account.Username = &name
	}

	if account.ID == "" {
		err = s.store.SocialAccounts().Create(ctx, account)
	} else {
		err = s.store.SocialAccounts().Update(ctx, account)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSocialAccount) {
			return nil, NewValidationError("provider", "this identity is already linked to another account")
		}
		return nil, err
	}

	return socialAccountToResponse(account), nil
}

// ListConnections returns the user's linked provider accounts
func (s *socialService) ListConnections(ctx context.Context, userID string) ([]dto.SocialAccountResponse, error) {
	accounts, err := s.store.SocialAccounts().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SocialAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, *socialAccountToResponse(account))
	}

	return responses, nil
}

// Disconnect unlinks a provider account owned by the user. The last
// linked account of a user who cannot sign in any other way stays.
func (s *socialService) Disconnect(ctx context.Context, userID, accountID string) error {
	accounts, err := s.store.SocialAccounts().ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	if len(accounts) == 1 && accounts[0].ID == accountID {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		// An unconfirmed address can neither log in with a password nor
		// receive recovery mail, so the social login is all they have
		if !user.IsConfirmed() {
			return ErrLastAuthMethod
		}
	}

	deleted, err := s.store.SocialAccounts().Delete(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("social account: %w", repository.ErrNotFound)
	}
	return nil
}

func (s *socialService) exchange(ctx context.Context, provider, code string) (*domain.SocialProfile, error) {
	client, ok := s.clients[provider]
	if !ok {
		return nil, NewValidationError("provider", "unknown provider")
	}

	profile, err := client.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if profile.ProviderID == "" {
		return nil, NewValidationError("provider", "provider did not return an identity")
	}

	return profile, nil
}

// registerFromProfile creates a user from a provider identity. Accounts
// without a provider email get a placeholder address and stay
// unconfirmed until a real address is set.
func (s *socialService) registerFromProfile(ctx context.Context, profile *domain.SocialProfile, remoteIP string) (*domain.User, error) {
	password, err := utils.GeneratePassword(16)
	if err != nil {
		return nil, err
	}
	passwordHash, err := utils.HashPassword(password, s.cfg.Security.BCryptCost)
	if err != nil {
		return nil, err
	}
	authKey, err := newAuthKey()
	if err != nil {
		return nil, err
	}

	email := profile.Email
	hasEmail := email != ""
	if !hasEmail {
		email = fmt.Sprintf("%s_%s@social.local", profile.Provider, profile.ProviderID)
	}

	now := time.Now()
	user := &domain.User{
		Email:          utils.SanitizeEmail(email),
		PasswordHash:   passwordHash,
		AuthKey:        authKey,
		Status:         domain.StatusActive,
		RegistrationIP: &remoteIP,
	}
	if hasEmail {
		user.EmailConfirmedAt = &now
	}

	err = s.store.Atomic(ctx, sql.LevelSerializable, func(store repository.Store) error {
		if profile.Username != "" {
			username, err := uniqueUsername(ctx, store, profile.Username)
			if err != nil {
				return err
			}
			user.Username = username
		}

		if err := store.Users().Create(ctx, user); err != nil {
			return err
		}

		account := &domain.SocialAccount{
			UserID:     &user.ID,
			Provider:   profile.Provider,
			ProviderID: profile.ProviderID,
			Data:       profile.Raw,
		}
		if hasEmail {
			account.Email = &profile.Email
		}
		if profile.Username != "" {
			account.Username = &profile.Username
		}

		return store.SocialAccounts().Create(ctx, account)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register social user: %w", err)
	}

	return user, nil
}

// uniqueUsername appends a numeric suffix until the name is free
func uniqueUsername(ctx context.Context, store repository.Store, base string) (*string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		_, err := store.Users().GetByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return &candidate, nil
		}
		if err != nil {
			return nil, err
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

func socialAccountToResponse(account *domain.SocialAccount) *dto.SocialAccountResponse {
	resp := &dto.SocialAccountResponse{
		ID:        account.ID,
		Provider:  account.Provider,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
	if account.Email != nil {
		resp.Email = *account.Email
	}
	if account.Username != nil {
		resp.Username = *account.Username
	}
	return resp
}
