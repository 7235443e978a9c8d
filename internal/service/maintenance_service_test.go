package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/domain"
)

func TestSweepRemovesExpiredTokensAndStaleSessions(t *testing.T) {
	store := newMemStore()
	tokens := NewTokenService(store)
	svc := NewMaintenanceService(store, tokens, zap.NewNop())
	ctx := context.Background()

	_, err := tokens.Issue(ctx, "user-1", domain.TokenTypeRecovery, -time.Minute, nil)
	require.NoError(t, err)
	_, err = tokens.Issue(ctx, "user-2", domain.TokenTypeConfirmation, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, store.Sessions().Upsert(ctx, &domain.Session{UserID: "user-1", SessionID: "sess-old"}))
	store.sessions["sess-old"].LastActivityAt = time.Now().Add(-120 * 24 * time.Hour)
	require.NoError(t, store.Sessions().Upsert(ctx, &domain.Session{UserID: "user-1", SessionID: "sess-new"}))

	resp, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ExpiredTokens)
	assert.Equal(t, int64(1), resp.InactiveSessions)

	// The live rows survive
	assert.Len(t, store.tokens, 1)
	_, ok := store.sessions["sess-new"]
	assert.True(t, ok)
}
