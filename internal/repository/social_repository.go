package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cgsmith/user-service/internal/domain"
)

// socialAccountRepository implements SocialAccountRepository
type socialAccountRepository struct {
	exec executor
}

const socialColumns = `id, user_id, provider, provider_id, email, username, data, created_at`

// Create creates a new social account link
func (r *socialAccountRepository) Create(ctx context.Context, account *domain.SocialAccount) error {
	query := `
		INSERT INTO user_social_accounts (` + socialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	_, err := r.exec.ExecContext(ctx, query,
		account.ID,
		account.UserID,
		account.Provider,
		account.ProviderID,
		account.Email,
		account.Username,
		[]byte(account.Data),
		account.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("provider identity already linked: %w", ErrDuplicateSocialAccount)
		}
		return fmt.Errorf("failed to create social account: %w", err)
	}

	return nil
}

// GetByProviderAndID retrieves a link by provider identity
func (r *socialAccountRepository) GetByProviderAndID(ctx context.Context, provider, providerID string) (*domain.SocialAccount, error) {
	query := `SELECT ` + socialColumns + ` FROM user_social_accounts WHERE provider = $1 AND provider_id = $2`
	return r.scanAccount(r.exec.QueryRowContext(ctx, query, provider, providerID))
}

// GetByUserAndProvider retrieves a user's link for a provider
func (r *socialAccountRepository) GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.SocialAccount, error) {
	query := `SELECT ` + socialColumns + ` FROM user_social_accounts WHERE user_id = $1 AND provider = $2`
	return r.scanAccount(r.exec.QueryRowContext(ctx, query, userID, provider))
}

// ListByUser returns all links for a user ordered by provider
func (r *socialAccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SocialAccount, error) {
	query := `SELECT ` + socialColumns + ` FROM user_social_accounts WHERE user_id = $1 ORDER BY provider ASC`

	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.SocialAccount
	for rows.Next() {
		account := &domain.SocialAccount{}
		var data []byte
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Provider,
			&account.ProviderID,
			&account.Email,
			&account.Username,
			&data,
			&account.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social account: %w", err)
		}
		account.Data = data
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate social accounts: %w", err)
	}

	return accounts, nil
}

// Update updates an existing social account link
func (r *socialAccountRepository) Update(ctx context.Context, account *domain.SocialAccount) error {
	query := `
		UPDATE user_social_accounts
		SET user_id = $2, provider_id = $3, email = $4, username = $5, data = $6
		WHERE id = $1
	`

	result, err := r.exec.ExecContext(ctx, query,
		account.ID,
		account.UserID,
		account.ProviderID,
		account.Email,
		account.Username,
		[]byte(account.Data),
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("provider identity already linked: %w", ErrDuplicateSocialAccount)
		}
		return fmt.Errorf("failed to update social account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("social account %s not found: %w", account.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a link owned by the user
func (r *socialAccountRepository) Delete(ctx context.Context, accountID, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_social_accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete social account: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllForUser deletes every link owned by the user
func (r *socialAccountRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_social_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete social accounts: %w", err)
	}
	return result.RowsAffected()
}

func (r *socialAccountRepository) scanAccount(row *sql.Row) (*domain.SocialAccount, error) {
	account := &domain.SocialAccount{}
	var data []byte

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Provider,
		&account.ProviderID,
		&account.Email,
		&account.Username,
		&data,
		&account.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("social account not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get social account: %w", err)
	}

	account.Data = data
	return account, nil
}
