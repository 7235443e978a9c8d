package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cgsmith/user-service/internal/domain"
)

// twoFactorRepository implements TwoFactorRepository
type twoFactorRepository struct {
	exec executor
}

// GetByUserID retrieves the two-factor record for a user
func (r *twoFactorRepository) GetByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error) {
	query := `
		SELECT id, user_id, secret, enabled_at, backup_codes, created_at, updated_at
		FROM user_two_factor
		WHERE user_id = $1
	`
	return r.scanTwoFactor(r.exec.QueryRowContext(ctx, query, userID))
}

// GetEnabledByUserID retrieves the record only if 2FA has been confirmed
func (r *twoFactorRepository) GetEnabledByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error) {
	query := `
		SELECT id, user_id, secret, enabled_at, backup_codes, created_at, updated_at
		FROM user_two_factor
		WHERE user_id = $1 AND enabled_at IS NOT NULL
	`
	return r.scanTwoFactor(r.exec.QueryRowContext(ctx, query, userID))
}

// Upsert creates or replaces the two-factor record for a user
func (r *twoFactorRepository) Upsert(ctx context.Context, twoFactor *domain.TwoFactor) error {
	query := `
		INSERT INTO user_two_factor (id, user_id, secret, enabled_at, backup_codes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET secret = EXCLUDED.secret,
			enabled_at = EXCLUDED.enabled_at,
			backup_codes = EXCLUDED.backup_codes,
			updated_at = EXCLUDED.updated_at
	`

	if twoFactor.ID == "" {
		twoFactor.ID = uuid.New().String()
	}

	now := time.Now()
	if twoFactor.CreatedAt.IsZero() {
		twoFactor.CreatedAt = now
	}
	twoFactor.UpdatedAt = now

	codes, err := json.Marshal(twoFactor.BackupCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal backup codes: %w", err)
	}

	_, err = r.exec.ExecContext(ctx, query,
		twoFactor.ID,
		twoFactor.UserID,
		twoFactor.Secret,
		twoFactor.EnabledAt,
		codes,
		twoFactor.CreatedAt,
		twoFactor.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert two-factor record: %w", err)
	}

	return nil
}

// DeleteByUserID deletes the two-factor record for a user
func (r *twoFactorRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_two_factor WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete two-factor record: %w", err)
	}
	return result.RowsAffected()
}

// ConsumeBackupCode removes one backup code by value. The jsonb
// containment guard makes the removal affect exactly one stored code,
// so concurrent attempts to spend the same code cannot both succeed.
func (r *twoFactorRepository) ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error) {
	query := `
		UPDATE user_two_factor
		SET backup_codes = backup_codes - $2, updated_at = NOW()
		WHERE user_id = $1 AND enabled_at IS NOT NULL AND backup_codes ? $2
	`

	result, err := r.exec.ExecContext(ctx, query, userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ReplaceBackupCodes swaps the whole backup code set
func (r *twoFactorRepository) ReplaceBackupCodes(ctx context.Context, userID string, codes []string) error {
	encoded, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to marshal backup codes: %w", err)
	}

	result, err := r.exec.ExecContext(ctx,
		`UPDATE user_two_factor SET backup_codes = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, encoded)
	if err != nil {
		return fmt.Errorf("failed to replace backup codes: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("two-factor record for user %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

func (r *twoFactorRepository) scanTwoFactor(row *sql.Row) (*domain.TwoFactor, error) {
	twoFactor := &domain.TwoFactor{}
	var codes []byte

	err := row.Scan(
		&twoFactor.ID,
		&twoFactor.UserID,
		&twoFactor.Secret,
		&twoFactor.EnabledAt,
		&codes,
		&twoFactor.CreatedAt,
		&twoFactor.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("two-factor record not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get two-factor record: %w", err)
	}

	if len(codes) > 0 {
		if err := json.Unmarshal(codes, &twoFactor.BackupCodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal backup codes: %w", err)
		}
	}

	return twoFactor, nil
}
