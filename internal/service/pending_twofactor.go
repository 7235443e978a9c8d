package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cgsmith/user-service/pkg/database"
)

// PendingLogin is a login that passed the password check but still needs
// a second factor
type PendingLogin struct {
	UserID     string `json:"user_id"`
	RememberMe bool   `json:"remember_me"`
	IP         string `json:"ip"`
}

// PendingTwoFactorStore parks half-finished logins in Redis until the
// second factor arrives or the TTL runs out
type PendingTwoFactorStore struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewPendingTwoFactorStore creates a new pending login store
func NewPendingTwoFactorStore(redis *database.Redis, ttl time.Duration) *PendingTwoFactorStore {
	return &PendingTwoFactorStore{redis: redis, ttl: ttl}
}

// Put stores a pending login and returns its one-time handle
func (s *PendingTwoFactorStore) Put(ctx context.Context, pending *PendingLogin) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate pending token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	payload, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pending login: %w", err)
	}

	key := fmt.Sprintf("pending2fa:%s", token)
	if err := s.redis.Client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store pending login: %w", err)
	}

	return token, nil
}

// Take consumes a pending login. The handle is deleted before the payload
// is returned, so it can only be redeemed once.
func (s *PendingTwoFactorStore) Take(ctx context.Context, token string) (*PendingLogin, error) {
	key := fmt.Sprintf("pending2fa:%s", token)

	payload, err := s.redis.Client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("pending login not found: %w", ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to take pending login: %w", err)
	}

	pending := &PendingLogin{}
	if err := json.Unmarshal([]byte(payload), pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending login: %w", err)
	}

	return pending, nil
}

// TTL returns the configured pending login lifetime
func (s *PendingTwoFactorStore) TTL() time.Duration {
	return s.ttl
}
