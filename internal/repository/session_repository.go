package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cgsmith/user-service/internal/domain"
)

// sessionRepository implements SessionRepository
type sessionRepository struct {
	exec executor
}

const sessionColumns = `id, user_id, session_id, ip, user_agent, device_name, last_activity_at, created_at`

// Upsert creates or refreshes a session record keyed by session_id
func (r *sessionRepository) Upsert(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO user_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE
		SET ip = EXCLUDED.ip,
			user_agent = EXCLUDED.user_agent,
			device_name = EXCLUDED.device_name,
			last_activity_at = EXCLUDED.last_activity_at
	`

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastActivityAt = now

	_, err := r.exec.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.SessionID,
		session.IP,
		session.UserAgent,
		session.DeviceName,
		session.LastActivityAt,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its record id
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE id = $1`
	return r.scanSession(r.exec.QueryRowContext(ctx, query, id))
}

// GetBySessionID retrieves a session by the transport session id
func (r *sessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE session_id = $1`
	return r.scanSession(r.exec.QueryRowContext(ctx, query, sessionID))
}

// ListByUser returns all sessions for a user, newest activity first
func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY last_activity_at DESC
	`

	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session := &domain.Session{}
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.SessionID,
			&session.IP,
			&session.UserAgent,
			&session.DeviceName,
			&session.LastActivityAt,
			&session.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteByID deletes a session record
func (r *sessionRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return result.RowsAffected()
}

// DeleteBySessionID deletes a user's session by transport session id
func (r *sessionRepository) DeleteBySessionID(ctx context.Context, sessionID, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE session_id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOthers deletes all sessions for a user except the current one
func (r *sessionRepository) DeleteOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1 AND session_id != $2`, userID, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete other sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllForUser deletes every session for a user
func (r *sessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteInactiveSince deletes sessions whose last activity predates cutoff
func (r *sessionRepository) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.exec.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE last_activity_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}
	return result.RowsAffected()
}

func (r *sessionRepository) scanSession(row *sql.Row) (*domain.Session, error) {
	session := &domain.Session{}

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.SessionID,
		&session.IP,
		&session.UserAgent,
		&session.DeviceName,
		&session.LastActivityAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}
