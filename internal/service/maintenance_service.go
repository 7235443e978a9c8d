package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
)

// sessionRetention is how long an idle session record is kept around
const sessionRetention = 90 * 24 * time.Hour

// maintenanceService implements MaintenanceService
type maintenanceService struct {
	store  repository.Store
	tokens *TokenService
	logger *zap.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(store repository.Store, tokens *TokenService, logger *zap.Logger) MaintenanceService {
	return &maintenanceService{store: store, tokens: tokens, logger: logger}
}

// Sweep removes expired tokens and stale session records. Meant to be
// driven by an external scheduler.
func (s *maintenanceService) Sweep(ctx context.Context) (*dto.SweepResponse, error) {
	tokens, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.Sessions().DeleteInactiveSince(ctx, time.Now().Add(-sessionRetention))
	if err != nil {
		return nil, err
	}

	s.logger.Info("maintenance sweep finished",
		zap.Int64("expired_tokens", tokens),
		zap.Int64("inactive_sessions", sessions))

	return &dto.SweepResponse{
		ExpiredTokens:    tokens,
		InactiveSessions: sessions,
	}, nil
}
