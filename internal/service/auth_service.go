package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

// authService implements AuthService
type authService struct {
	loginIssuer
	blacklist *TokenBlacklistService
	pending   *PendingTwoFactorStore
	twoFactor TwoFactorService
}

// NewAuthService creates a new auth service
func NewAuthService(
	store repository.Store,
	jwtManager *utils.JWTManager,
	blacklist *TokenBlacklistService,
	pending *PendingTwoFactorStore,
	twoFactor TwoFactorService,
	sessions SessionService,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authService{
		loginIssuer: loginIssuer{
			store:      store,
			jwtManager: jwtManager,
			sessions:   sessions,
			cfg:        cfg,
			logger:     logger,
		},
		blacklist: blacklist,
		pending:   pending,
		twoFactor: twoFactor,
	}
}

// Login authenticates by email or username. When the account has 2FA
// enabled the password check succeeds into a pending state instead of a
// token pair.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, remoteIP, userAgent string) (*LoginResult, error) {
	login := strings.TrimSpace(req.Login)
	if strings.Contains(login, "@") {
		login = utils.SanitizeEmail(login)
	}

	user, err := s.store.Users().GetByEmailOrUsername(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}

	if s.cfg.Registration.EnableConfirmation &&
		!s.cfg.Registration.EnableUnconfirmedLogin && !user.IsConfirmed() {
		return nil, ErrUserUnconfirmed
	}

	if s.cfg.TwoFactor.Enabled {
		enabled, err := s.twoFactor.IsEnabled(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if enabled {
			return s.pauseForTwoFactor(ctx, user, req.RememberMe, remoteIP)
		}
	}

	return s.completeLogin(ctx, user, req.RememberMe, remoteIP, userAgent)
}

// CompleteTwoFactorLogin redeems a pending login handle with a TOTP or
// backup code
func (s *authService) CompleteTwoFactorLogin(ctx context.Context, req *dto.TwoFactorLoginRequest, remoteIP, userAgent string) (*LoginResult, error) {
	pending, err := s.pending.Take(ctx, req.PendingToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, pending.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending user: %w", err)
	}

	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}

	ok, err := s.twoFactor.Verify(ctx, user.ID, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTwoFactorCode
	}

	return s.completeLogin(ctx, user, pending.RememberMe, remoteIP, userAgent)
}

// RefreshToken rotates a refresh token into a fresh pair
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	blacklisted, err := s.blacklist.IsTokenBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrInvalidToken
	}

	userID, sessionID, remember, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", ErrInvalidToken)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}

	// A terminated session must not rotate its way back in
	if s.cfg.Session.HistoryEnabled {
		if _, err := s.store.Sessions().GetBySessionID(ctx, sessionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("session terminated: %w", ErrInvalidToken)
			}
			return nil, err
		}
	}

	// One-shot rotation: the old token is dead from here on
	if err := s.blacklist.AddToken(ctx, refreshToken, s.cfg.Registration.RememberFor.Duration); err != nil {
		return nil, err
	}

	result, err := s.issueTokenPair(user, sessionID, remember)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.UpdateActivity(ctx, sessionID); err != nil {
		s.logger.Warn("failed to update session activity",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return result, nil
}

// Logout revokes the access token and drops the session
func (s *authService) Logout(ctx context.Context, userID, sessionID, accessToken string, accessTokenTTL time.Duration) error {
	if err := s.blacklist.AddToken(ctx, accessToken, accessTokenTTL); err != nil {
		return err
	}

	if _, err := s.store.Sessions().DeleteBySessionID(ctx, sessionID, userID); err != nil {
		return err
	}

	return nil
}

// ValidateToken parses and checks an access token
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	blacklisted, err := s.blacklist.IsTokenBlacklisted(ctx, token)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrInvalidToken
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", ErrInvalidToken)
	}

	return claims, nil
}

func (s *authService) pauseForTwoFactor(ctx context.Context, user *domain.User, rememberMe bool, remoteIP string) (*LoginResult, error) {
	token, err := s.pending.Put(ctx, &PendingLogin{
		UserID:     user.ID,
		RememberMe: rememberMe,
		IP:         remoteIP,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		TwoFactorPending: &dto.TwoFactorPendingResponse{
			TwoFactorRequired: true,
			PendingToken:      token,
			ExpiresIn:         int(s.pending.TTL().Seconds()),
		},
	}, nil
}
