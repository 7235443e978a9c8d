package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cgsmith/user-service/internal/domain"
)

// tokenRepository implements TokenRepository
type tokenRepository struct {
	exec executor
}

// Create creates a new single-use token
func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO user_tokens (id, user_id, type, token, data, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	var data []byte
	if token.Data != nil {
		var err error
		data, err = json.Marshal(token.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal token data: %w", err)
		}
	}

	_, err := r.exec.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Type,
		token.Token,
		data,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("token collision: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetByTokenAndType resolves a live token. Expired rows are not
// distinguished from absent ones.
func (r *tokenRepository) GetByTokenAndType(ctx context.Context, tokenString string, tokenType domain.TokenType) (*domain.Token, error) {
	query := `
		SELECT id, user_id, type, token, data, expires_at, created_at
		FROM user_tokens
		WHERE token = $1 AND type = $2 AND expires_at > NOW()
	`

	token := &domain.Token{}
	var data []byte

	err := r.exec.QueryRowContext(ctx, query, tokenString, tokenType).Scan(
		&token.ID,
		&token.UserID,
		&token.Type,
		&token.Token,
		&data,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &token.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
		}
	}

	return token, nil
}

// DeleteByID deletes a token row. Deleting an absent row is not an error.
func (r *tokenRepository) DeleteByID(ctx context.Context, tokenID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_tokens WHERE id = $1`, tokenID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete token: %w", err)
	}
	return result.RowsAffected()
}

// DeleteForUser deletes all tokens of a type for a user
func (r *tokenRepository) DeleteForUser(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND type = $2`, userID, tokenType)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens for user: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllForUser deletes every token owned by a user
func (r *tokenRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens for user: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired deletes all expired tokens
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
