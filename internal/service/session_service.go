package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
)

// sessionService implements SessionService
type sessionService struct {
	store repository.Store
	cfg   *config.Config
}

// NewSessionService creates a new session service
func NewSessionService(store repository.Store, cfg *config.Config) SessionService {
	return &sessionService{store: store, cfg: cfg}
}

// Track records a login session. When the history limit is exceeded the
// oldest sessions are evicted, never the one just recorded.
func (s *sessionService) Track(ctx context.Context, userID, sessionID, ip, userAgent string) error {
	if !s.cfg.Session.HistoryEnabled {
		return nil
	}

	session := &domain.Session{
		UserID:     userID,
		SessionID:  sessionID,
		IP:         ip,
		UserAgent:  userAgent,
		DeviceName: domain.ParseDeviceName(userAgent),
	}

	if err := s.store.Sessions().Upsert(ctx, session); err != nil {
		return err
	}

	return s.enforceLimit(ctx, userID, sessionID)
}

// enforceLimit trims the session list down to the configured cap
func (s *sessionService) enforceLimit(ctx context.Context, userID, currentSessionID string) error {
	limit := s.cfg.Session.HistoryLimit
	if limit <= 0 {
		return nil
	}

	sessions, err := s.store.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	if len(sessions) <= limit {
		return nil
	}

	// Sessions come back newest first, so walk the tail upward
	excess := len(sessions) - limit
	for i := len(sessions) - 1; i >= 0 && excess > 0; i-- {
		if sessions[i].SessionID == currentSessionID {
			continue
		}
		if _, err := s.store.Sessions().DeleteByID(ctx, sessions[i].ID); err != nil {
			return err
		}
		excess--
	}

	return nil
}

// List returns the user's sessions, newest activity first, with the
// current one marked
func (s *sessionService) List(ctx context.Context, userID, currentSessionID string) ([]dto.SessionResponse, error) {
	sessions, err := s.store.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, dto.SessionResponse{
			ID:             session.ID,
			IP:             session.IP,
			DeviceName:     session.DeviceName,
			LastActivityAt: session.LastActivityAt.Format(time.RFC3339),
			CreatedAt:      session.CreatedAt.Format(time.RFC3339),
			Current:        session.SessionID == currentSessionID,
		})
	}

	return responses, nil
}

// Terminate removes one session owned by the user and returns the
// terminated record, so callers can tell when it was their own
func (s *sessionService) Terminate(ctx context.Context, userID, sessionRecordID string) (*domain.Session, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionRecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("session: %w", ErrInvalidToken)
		}
		return nil, err
	}

	if session.UserID != userID {
		return nil, ErrForbidden
	}

	if _, err := s.store.Sessions().DeleteByID(ctx, session.ID); err != nil {
		return nil, err
	}

	return session, nil
}

// TerminateOthers removes every session of the user except the current one
func (s *sessionService) TerminateOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	return s.store.Sessions().DeleteOthers(ctx, userID, currentSessionID)
}

// UpdateActivity bumps the last activity timestamp of a session
func (s *sessionService) UpdateActivity(ctx context.Context, sessionID string) error {
	session, err := s.store.Sessions().GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	return s.store.Sessions().Upsert(ctx, session)
}
