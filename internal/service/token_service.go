package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/repository"
)

const tokenIssueRetries = 3

// TokenService issues and redeems single-use lifecycle tokens
type TokenService struct {
	store repository.Store
}

// NewTokenService creates a new token service
func NewTokenService(store repository.Store) *TokenService {
	return &TokenService{store: store}
}

// Issue mints a fresh token of the given type for a user. Any previous
// live token of the same type is removed first, so at most one token per
// (user, type) can be outstanding.
func (s *TokenService) Issue(ctx context.Context, userID string, tokenType domain.TokenType, ttl time.Duration, data map[string]string) (*domain.Token, error) {
	var token *domain.Token

	err := s.store.Atomic(ctx, sql.LevelDefault, func(store repository.Store) error {
		if _, err := store.Tokens().DeleteForUser(ctx, userID, tokenType); err != nil {
			return fmt.Errorf("failed to remove previous tokens: %w", err)
		}

		for attempt := 0; attempt < tokenIssueRetries; attempt++ {
			candidate, err := generateTokenString()
			if err != nil {
				return err
			}

			token = &domain.Token{
				UserID:    userID,
				Type:      tokenType,
				Token:     candidate,
				Data:      data,
				ExpiresAt: time.Now().Add(ttl),
			}

			err = store.Tokens().Create(ctx, token)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrDuplicateToken) {
				return err
			}
		}

		return fmt.Errorf("failed to issue token after %d attempts", tokenIssueRetries)
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Validate resolves a live token without consuming it
func (s *TokenService) Validate(ctx context.Context, tokenString string, tokenType domain.TokenType) (*domain.Token, error) {
	token, err := s.store.Tokens().GetByTokenAndType(ctx, tokenString, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s token: %w", tokenType, ErrInvalidToken)
		}
		return nil, err
	}
	return token, nil
}

// Consume deletes a redeemed token. Consuming a token that is already
// gone is not an error, so redeem paths stay idempotent.
func (s *TokenService) Consume(ctx context.Context, token *domain.Token) error {
	if _, err := s.store.Tokens().DeleteByID(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	return nil
}

// RevokeAll removes every token of a type for a user
func (s *TokenService) RevokeAll(ctx context.Context, userID string, tokenType domain.TokenType) error {
	if _, err := s.store.Tokens().DeleteForUser(ctx, userID, tokenType); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// SweepExpired removes all expired tokens and reports how many went away
func (s *TokenService) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.Tokens().DeleteExpired(ctx)
}

// generateTokenString returns 48 random bytes as unpadded URL-safe base64
func generateTokenString() (string, error) {
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
