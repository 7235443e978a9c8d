package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cgsmith/user-service/internal/domain"
)

// userRepository implements UserRepository
type userRepository struct {
	exec executor
}

const userColumns = `id, email, username, password_hash, auth_key, status,
	email_confirmed_at, blocked_at, last_login_at, last_login_ip, registration_ip,
	gdpr_consent_at, gdpr_consent_version, gdpr_marketing_consent_at, gdpr_deleted_at,
	created_at, updated_at`

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.Status == "" {
		user.Status = domain.StatusPending
	}

	_, err := r.exec.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.AuthKey,
		user.Status,
		user.EmailConfirmedAt,
		user.BlockedAt,
		user.LastLoginAt,
		user.LastLoginIP,
		user.RegistrationIP,
		user.GDPRConsentAt,
		user.GDPRConsentVersion,
		user.GDPRMarketingConsentAt,
		user.GDPRDeletedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return mapUserConstraintError(err, user)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.exec.QueryRowContext(ctx, query, id), "id "+id)
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.exec.QueryRowContext(ctx, query, email), "email "+email)
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(r.exec.QueryRowContext(ctx, query, username), "username "+username)
}

// GetByEmailOrUsername retrieves a user by either identifier
func (r *userRepository) GetByEmailOrUsername(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $1`
	return r.scanUser(r.exec.QueryRowContext(ctx, query, login), "login "+login)
}

// Update updates all mutable columns of an existing user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, password_hash = $4, auth_key = $5, status = $6,
			email_confirmed_at = $7, blocked_at = $8,
			gdpr_consent_at = $9, gdpr_consent_version = $10,
			gdpr_marketing_consent_at = $11, gdpr_deleted_at = $12,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.exec.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.AuthKey,
		user.Status,
		user.EmailConfirmedAt,
		user.BlockedAt,
		user.GDPRConsentAt,
		user.GDPRConsentVersion,
		user.GDPRMarketingConsentAt,
		user.GDPRDeletedAt,
	)

	if err != nil {
		return mapUserConstraintError(err, user)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp and IP for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, ip *string) error {
	query := `
		UPDATE users
		SET last_login_at = $2, last_login_ip = $3
		WHERE id = $1
	`

	result, err := r.exec.ExecContext(ctx, query, userID, time.Now(), ip)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// Delete removes a user. Owned records cascade at the schema level.
func (r *userRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

func (r *userRepository) scanUser(row *sql.Row, ref string) (*domain.User, error) {
	user := &domain.User{}

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.AuthKey,
		&user.Status,
		&user.EmailConfirmedAt,
		&user.BlockedAt,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.RegistrationIP,
		&user.GDPRConsentAt,
		&user.GDPRConsentVersion,
		&user.GDPRMarketingConsentAt,
		&user.GDPRDeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with %s not found: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", ref, err)
	}

	return user, nil
}

func mapUserConstraintError(err error, user *domain.User) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "username") {
			return fmt.Errorf("username already taken: %w", ErrDuplicateUsername)
		}
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}
	return fmt.Errorf("failed to save user: %w", err)
}
