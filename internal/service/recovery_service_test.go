package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/utils"
)

func seedUser(t *testing.T, store *memStore, email, password string) *domain.User {
	t.Helper()

	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)

	now := time.Now()
	user := &domain.User{
		Email:            email,
		PasswordHash:     hash,
		AuthKey:          "seed-auth-key",
		Status:           domain.StatusActive,
		EmailConfirmedAt: &now,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func TestRequestRecoverySendsToken(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{}
	svc := NewRecoveryService(store, NewTokenService(store), mailer, nil, testConfig(), zap.NewNop())

	seedUser(t, store, "bob@example.com", "correct horse")

	err := svc.RequestRecovery(context.Background(), &dto.RecoveryRequest{Email: "bob@example.com"}, "10.0.0.1")
	require.NoError(t, err)

	sent := mailer.byKind("recovery")
	require.Len(t, sent, 1)
	assert.NoError(t, svc.ValidateToken(context.Background(), sent[0].token))
}

func TestRequestRecoveryDoesNotRevealUnknownEmail(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{}
	svc := NewRecoveryService(store, NewTokenService(store), mailer, nil, testConfig(), zap.NewNop())

	err := svc.RequestRecovery(context.Background(), &dto.RecoveryRequest{Email: "nobody@example.com"}, "10.0.0.1")
	assert.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestRequestRecoverySilentForBlockedAccount(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{}
	svc := NewRecoveryService(store, NewTokenService(store), mailer, nil, testConfig(), zap.NewNop())

	user := seedUser(t, store, "bob@example.com", "correct horse")
	now := time.Now()
	user.BlockedAt = &now

	err := svc.RequestRecovery(context.Background(), &dto.RecoveryRequest{Email: "bob@example.com"}, "10.0.0.1")
	assert.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestRequestRecoveryDisabled(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Registration.EnablePasswordRecovery = false
	svc := NewRecoveryService(store, NewTokenService(store), &recordingMailer{}, nil, cfg, zap.NewNop())

	err := svc.RequestRecovery(context.Background(), &dto.RecoveryRequest{Email: "bob@example.com"}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrRecoveryDisabled)
}

func TestResetPasswordRotatesCredentials(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{}
	svc := NewRecoveryService(store, NewTokenService(store), mailer, nil, testConfig(), zap.NewNop())
	ctx := context.Background()

	user := seedUser(t, store, "bob@example.com", "correct horse")
	oldAuthKey := user.AuthKey

	require.NoError(t, svc.RequestRecovery(ctx, &dto.RecoveryRequest{Email: "bob@example.com"}, "10.0.0.1"))
	token := mailer.byKind("recovery")[0].token

	require.NoError(t, svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:    token,
		Password: "battery staple",
	}))

	updated, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("battery staple", updated.PasswordHash))
	assert.NotEqual(t, oldAuthKey, updated.AuthKey)

	// The token set is purged, the link cannot be replayed
	assert.ErrorIs(t, svc.ValidateToken(ctx, token), ErrInvalidToken)
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{}
	svc := NewRecoveryService(store, NewTokenService(store), mailer, nil, testConfig(), zap.NewNop())
	ctx := context.Background()

	seedUser(t, store, "bob@example.com", "correct horse")
	require.NoError(t, svc.RequestRecovery(ctx, &dto.RecoveryRequest{Email: "bob@example.com"}, "10.0.0.1"))
	token := mailer.byKind("recovery")[0].token

	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, Password: "short"})
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "password")

	// Rejected attempts must not consume the token
	assert.NoError(t, svc.ValidateToken(ctx, token))
}

func TestResetPasswordInvalidToken(t *testing.T) {
	store := newMemStore()
	svc := NewRecoveryService(store, NewTokenService(store), &recordingMailer{}, nil, testConfig(), zap.NewNop())

	err := svc.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Token:    "bogus",
		Password: "battery staple",
	})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
