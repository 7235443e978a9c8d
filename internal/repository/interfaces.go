package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cgsmith/user-service/internal/domain"
)

// Store bundles all repositories and the transaction boundary. Atomic
// runs fn against a store whose repositories share one transaction;
// any error rolls the transaction back and is propagated.
type Store interface {
	Users() UserRepository
	Tokens() TokenRepository
	TwoFactor() TwoFactorRepository
	Sessions() SessionRepository
	SocialAccounts() SocialAccountRepository

	Atomic(ctx context.Context, level sql.IsolationLevel, fn func(Store) error) error
}

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmailOrUsername(ctx context.Context, login string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, userID string, ip *string) error
	Delete(ctx context.Context, userID string) error
}

// TokenRepository defines methods for single-use token operations
type TokenRepository interface {
	Create(ctx context.Context, token *domain.Token) error
	// GetByTokenAndType resolves a live token; expired rows read as absent.
	GetByTokenAndType(ctx context.Context, token string, tokenType domain.TokenType) (*domain.Token, error)
	DeleteByID(ctx context.Context, tokenID string) (int64, error)
	DeleteForUser(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// TwoFactorRepository defines methods for two-factor enrollment records
type TwoFactorRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error)
	GetEnabledByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error)
	Upsert(ctx context.Context, twoFactor *domain.TwoFactor) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	// ConsumeBackupCode removes a single backup code by value. The delete
	// must affect exactly one element so a code can never be spent twice.
	ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error)
	ReplaceBackupCodes(ctx context.Context, userID string, codes []string) error
}

// SessionRepository defines methods for tracked login sessions
type SessionRepository interface {
	Upsert(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error)
	// ListByUser returns sessions ordered by last activity, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteBySessionID(ctx context.Context, sessionID, userID string) (int64, error)
	DeleteOthers(ctx context.Context, userID, currentSessionID string) (int64, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// SocialAccountRepository defines methods for external identity links
type SocialAccountRepository interface {
	Create(ctx context.Context, account *domain.SocialAccount) error
	GetByProviderAndID(ctx context.Context, provider, providerID string) (*domain.SocialAccount, error)
	GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.SocialAccount, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.SocialAccount, error)
	Update(ctx context.Context, account *domain.SocialAccount) error
	Delete(ctx context.Context, accountID, userID string) (int64, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
