package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/utils"
)

const testJWTSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newAuthFixture(t *testing.T, store *memStore, cfg *config.Config) (AuthService, *utils.JWTManager) {
	t.Helper()

	jwtManager := utils.NewJWTManager(testJWTSecret,
		cfg.JWT.AccessTokenExpiry.Duration, cfg.Registration.RememberFor.Duration)
	redis := newTestRedis(t)

	svc := NewAuthService(store, jwtManager,
		NewTokenBlacklistService(redis),
		NewPendingTwoFactorStore(redis, cfg.TwoFactor.PendingTTL.Duration),
		NewTwoFactorService(store, cfg), NewSessionService(store, cfg), cfg, zap.NewNop())
	return svc, jwtManager
}

func TestLoginWithEmail(t *testing.T) {
	store := newMemStore()
	svc, jwtManager := newAuthFixture(t, store, testConfig())
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")

	result, err := svc.Login(ctx, &dto.LoginRequest{
		Login:    "  Bob@Example.com ",
		Password: "correct horse",
	}, "10.0.0.1", "Mozilla/5.0 (Windows NT 10.0) Firefox/121.0")
	require.NoError(t, err)
	require.False(t, result.NeedsTwoFactor())

	assert.Equal(t, "Bearer", result.AuthResponse.TokenType)
	assert.Equal(t, user.ID, result.AuthResponse.User.ID)
	assert.NotEmpty(t, result.RefreshToken)

	claims, err := jwtManager.ValidateToken(result.AuthResponse.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, result.SessionID, claims.SessionID)

	// Login stamps last login and tracks the session
	updated, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastLoginAt)
	require.NotNil(t, updated.LastLoginIP)
	assert.Equal(t, "10.0.0.1", *updated.LastLoginIP)

	sessions, err := store.Sessions().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Firefox on Windows", sessions[0].DeviceName)
}

func TestLoginWithUsername(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	user := seedUser(t, store, "bob@example.com", "correct horse")
	username := "bob"
	user.Username = &username

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob",
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.AuthResponse.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	seedUser(t, store, "bob@example.com", "correct horse")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob@example.com",
		Password: "wrong",
	}, "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownAccount(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "nobody@example.com",
		Password: "whatever",
	}, "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBlockedAccount(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	user := seedUser(t, store, "bob@example.com", "correct horse")
	now := time.Now()
	user.BlockedAt = &now

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob@example.com",
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrUserBlocked)
}

func TestLoginUnconfirmedAccount(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	user := seedUser(t, store, "bob@example.com", "correct horse")
	user.EmailConfirmedAt = nil

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob@example.com",
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrUserUnconfirmed)
}

func TestLoginUnconfirmedAllowedWhenConfigured(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Registration.EnableUnconfirmedLogin = true
	svc, _ := newAuthFixture(t, store, cfg)

	user := seedUser(t, store, "bob@example.com", "correct horse")
	user.EmailConfirmedAt = nil

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob@example.com",
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	require.NoError(t, err)
	assert.False(t, result.NeedsTwoFactor())
}

func TestLoginChecksPasswordBeforeBlockState(t *testing.T) {
	store := newMemStore()
	svc, _ := newAuthFixture(t, store, testConfig())

	user := seedUser(t, store, "bob@example.com", "correct horse")
	now := time.Now()
	user.BlockedAt = &now

	// A wrong password on a blocked account reads as bad credentials,
	// not as a block, so the block state leaks nothing
	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Login:    "bob@example.com",
		Password: "wrong",
	}, "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRememberMePicksRefreshLifetime(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	svc, jwtManager := newAuthFixture(t, store, cfg)
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")

	plain, err := svc.Login(ctx, &dto.LoginRequest{
		Login:    user.Email,
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	require.NoError(t, err)

	_, _, remember, err := jwtManager.ValidateRefreshToken(plain.RefreshToken)
	require.NoError(t, err)
	assert.False(t, remember)
	assert.Equal(t, int(cfg.JWT.AccessTokenExpiry.Duration.Seconds()), plain.RefreshExpiresIn)

	remembered, err := svc.Login(ctx, &dto.LoginRequest{
		Login:      user.Email,
		Password:   "correct horse",
		RememberMe: true,
	}, "10.0.0.1", "agent")
	require.NoError(t, err)

	_, _, remember, err = jwtManager.ValidateRefreshToken(remembered.RefreshToken)
	require.NoError(t, err)
	assert.True(t, remember)
	assert.Equal(t, int(cfg.Registration.RememberFor.Duration.Seconds()), remembered.RefreshExpiresIn)
}

func TestLoginWithTwoFactorCompletes(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	svc, jwtManager := newAuthFixture(t, store, cfg)
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")
	enableTwoFactor(t, NewTwoFactorService(store, cfg), store, user.ID)

	pending, err := svc.Login(ctx, &dto.LoginRequest{
		Login:      user.Email,
		Password:   "correct horse",
		RememberMe: true,
	}, "10.0.0.1", "agent")
	require.NoError(t, err)
	require.True(t, pending.NeedsTwoFactor())
	assert.NotEmpty(t, pending.TwoFactorPending.PendingToken)

	record, err := store.TwoFactor().GetByUserID(ctx, user.ID)
	require.NoError(t, err)

	result, err := svc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		PendingToken: pending.TwoFactorPending.PendingToken,
		Code:         totpCode(t, record.Secret),
	}, "10.0.0.1", "agent")
	require.NoError(t, err)
	require.False(t, result.NeedsTwoFactor())

	// The remember choice made at the password step carries through
	_, _, remember, err := jwtManager.ValidateRefreshToken(result.RefreshToken)
	require.NoError(t, err)
	assert.True(t, remember)

	// The pending handle is single use
	_, err = svc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		PendingToken: pending.TwoFactorPending.PendingToken,
		Code:         totpCode(t, record.Secret),
	}, "10.0.0.1", "agent")
	assert.Error(t, err)
}

func TestRefreshTokenRotationInvalidatesOldToken(t *testing.T) {
	store := newMemStore()
	svc, jwtManager := newAuthFixture(t, store, testConfig())
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")

	login, err := svc.Login(ctx, &dto.LoginRequest{
		Login:      user.Email,
		Password:   "correct horse",
		RememberMe: true,
	}, "10.0.0.1", "agent")
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, login.SessionID, rotated.SessionID)

	// Rotation keeps the remember choice
	_, _, remember, err := jwtManager.ValidateRefreshToken(rotated.RefreshToken)
	require.NoError(t, err)
	assert.True(t, remember)

	// The rotated-out token is dead
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRejectedAfterSessionTerminated(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	svc, _ := newAuthFixture(t, store, cfg)
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")

	login, err := svc.Login(ctx, &dto.LoginRequest{
		Login:      user.Email,
		Password:   "correct horse",
		RememberMe: true,
	}, "10.0.0.1", "agent")
	require.NoError(t, err)

	sessions := NewSessionService(store, cfg)
	_, err = sessions.Terminate(ctx, user.ID, store.sessions[login.SessionID].ID)
	require.NoError(t, err)

	// A terminated device cannot rotate its way back in
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	svc, _ := newAuthFixture(t, store, cfg)
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")

	login, err := svc.Login(ctx, &dto.LoginRequest{
		Login:    user.Email,
		Password: "correct horse",
	}, "10.0.0.1", "agent")
	require.NoError(t, err)

	accessToken := login.AuthResponse.AccessToken
	_, err = svc.ValidateToken(ctx, accessToken)
	require.NoError(t, err)

	err = svc.Logout(ctx, user.ID, login.SessionID, accessToken,
		cfg.JWT.AccessTokenExpiry.Duration)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	sessions, err := store.Sessions().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
