package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

// loginIssuer finishes a successful authentication: it mints the token
// pair, stamps the login and tracks the session. Shared between password
// and social login.
type loginIssuer struct {
	store      repository.Store
	jwtManager *utils.JWTManager
	sessions   SessionService
	cfg        *config.Config
	logger     *zap.Logger
}

func (l *loginIssuer) completeLogin(ctx context.Context, user *domain.User, rememberMe bool, remoteIP, userAgent string) (*LoginResult, error) {
	sessionID := uuid.New().String()

	result, err := l.issueTokenPair(user, sessionID, rememberMe)
	if err != nil {
		return nil, err
	}

	var ip *string
	if remoteIP != "" {
		ip = &remoteIP
	}
	if err := l.store.Users().UpdateLastLogin(ctx, user.ID, ip); err != nil {
		// Log error but don't fail the login
		l.logger.Warn("failed to update last login",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := l.sessions.Track(ctx, user.ID, sessionID, remoteIP, userAgent); err != nil {
		l.logger.Warn("failed to track session",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	return result, nil
}

// issueTokenPair generates access and refresh tokens for a session. The
// remember flag picks the refresh lifetime and rides inside the refresh
// token so rotation preserves it.
func (l *loginIssuer) issueTokenPair(user *domain.User, sessionID string, rememberMe bool) (*LoginResult, error) {
	accessToken, err := l.jwtManager.GenerateAccessToken(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := l.jwtManager.GenerateRefreshToken(user.ID, sessionID, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &LoginResult{
		AuthResponse: &dto.AuthResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   l.jwtManager.GetAccessTokenExpiry(),
			User: dto.UserInfo{
				ID:       user.ID,
				Email:    user.Email,
				Username: user.Username,
			},
		},
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int(l.jwtManager.RefreshTokenTTL(rememberMe).Seconds()),
		SessionID:        sessionID,
	}, nil
}
