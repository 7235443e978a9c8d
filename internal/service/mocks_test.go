package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/pkg/database"
)

// newTestRedis backs the Redis-dependent services with an in-process
// server so blacklist and rate limit paths can run in tests
func newTestRedis(t *testing.T) *database.Redis {
	t.Helper()

	server := miniredis.RunT(t)
	return &database.Redis{Client: redis.NewClient(&redis.Options{Addr: server.Addr()})}
}

// testConfig returns a config with every feature switched on and a low
// bcrypt cost so hashing does not dominate test time
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.BCryptCost = 4
	cfg.Security.MinPasswordLength = 8
	cfg.Security.MaxPasswordLength = 72
	cfg.Registration.EnableRegistration = true
	cfg.Registration.EnableConfirmation = true
	cfg.Registration.EnablePasswordRecovery = true
	cfg.Registration.ConfirmWithin = config.Duration{Duration: 24 * time.Hour}
	cfg.Registration.RecoverWithin = config.Duration{Duration: 6 * time.Hour}
	cfg.Registration.RememberFor = config.Duration{Duration: 14 * 24 * time.Hour}
	cfg.Registration.EmailChangeStrategy = config.EmailChangeDefault
	cfg.JWT.AccessTokenExpiry = config.Duration{Duration: 15 * time.Minute}
	cfg.TwoFactor.Enabled = true
	cfg.TwoFactor.Issuer = "User Service Test"
	cfg.TwoFactor.BackupCodesCount = 10
	cfg.TwoFactor.PendingTTL = config.Duration{Duration: 5 * time.Minute}
	cfg.Session.HistoryEnabled = true
	cfg.Session.HistoryLimit = 3
	cfg.Social.EnableRegistration = true
	cfg.Social.EnableConnect = true
	cfg.GDPR.ConsentVersion = "1.0"
	return cfg
}

// memStore is an in-memory repository.Store for exercising services
// without a database. Atomic simply runs the callback against the same
// store; transactional semantics are covered by repository tests.
type memStore struct {
	mu sync.Mutex

	seq      int
	users    map[string]*domain.User
	tokens   map[string]*domain.Token
	twoFA    map[string]*domain.TwoFactor
	sessions map[string]*domain.Session
	social   map[string]*domain.SocialAccount
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		tokens:   make(map[string]*domain.Token),
		twoFA:    make(map[string]*domain.TwoFactor),
		sessions: make(map[string]*domain.Session),
		social:   make(map[string]*domain.SocialAccount),
	}
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%04d", m.seq)
}

func (m *memStore) Users() repository.UserRepository          { return (*memUserRepo)(m) }
func (m *memStore) Tokens() repository.TokenRepository        { return (*memTokenRepo)(m) }
func (m *memStore) TwoFactor() repository.TwoFactorRepository { return (*memTwoFactorRepo)(m) }
func (m *memStore) Sessions() repository.SessionRepository    { return (*memSessionRepo)(m) }
func (m *memStore) SocialAccounts() repository.SocialAccountRepository {
	return (*memSocialRepo)(m)
}

func (m *memStore) Atomic(ctx context.Context, level sql.IsolationLevel, fn func(repository.Store) error) error {
	return fn(m)
}

type memUserRepo memStore

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if user.Username != nil && existing.Username != nil && *existing.Username == *user.Username {
			return repository.ErrDuplicateUsername
		}
	}

	if user.ID == "" {
		user.ID = m.nextID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Username != nil && *user.Username == username {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmailOrUsername(ctx context.Context, login string) (*domain.User, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == login || (user.Username != nil && *user.Username == login) {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if user.Username != nil && existing.Username != nil && *existing.Username == *user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, userID string, ip *string) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	user.LastLoginIP = ip
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, userID string) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

type memTokenRepo memStore

func (r *memTokenRepo) Create(ctx context.Context, token *domain.Token) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tokens {
		if existing.Token == token.Token {
			return repository.ErrDuplicateToken
		}
	}
	if token.ID == "" {
		token.ID = m.nextID()
	}
	token.CreatedAt = time.Now()
	m.tokens[token.ID] = token
	return nil
}

func (r *memTokenRepo) GetByTokenAndType(ctx context.Context, tokenString string, tokenType domain.TokenType) (*domain.Token, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range m.tokens {
		if token.Token == tokenString && token.Type == tokenType && !token.IsExpired() {
			return token, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) DeleteByID(ctx context.Context, tokenID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[tokenID]; !ok {
		return 0, nil
	}
	delete(m.tokens, tokenID)
	return 1, nil
}

func (r *memTokenRepo) DeleteForUser(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, token := range m.tokens {
		if token.UserID == userID && token.Type == tokenType {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

func (r *memTokenRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, token := range m.tokens {
		if token.UserID == userID {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

func (r *memTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, token := range m.tokens {
		if token.IsExpired() {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

type memTwoFactorRepo memStore

func (r *memTwoFactorRepo) GetByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.twoFA[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

func (r *memTwoFactorRepo) GetEnabledByUserID(ctx context.Context, userID string) (*domain.TwoFactor, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.twoFA[userID]
	if !ok || !record.IsEnabled() {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

func (r *memTwoFactorRepo) Upsert(ctx context.Context, twoFactor *domain.TwoFactor) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if twoFactor.ID == "" {
		twoFactor.ID = m.nextID()
	}
	now := time.Now()
	if twoFactor.CreatedAt.IsZero() {
		twoFactor.CreatedAt = now
	}
	twoFactor.UpdatedAt = now
	m.twoFA[twoFactor.UserID] = twoFactor
	return nil
}

func (r *memTwoFactorRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.twoFA[userID]; !ok {
		return 0, nil
	}
	delete(m.twoFA, userID)
	return 1, nil
}

func (r *memTwoFactorRepo) ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.twoFA[userID]
	if !ok || !record.IsEnabled() {
		return false, nil
	}
	for i, candidate := range record.BackupCodes {
		if candidate == code {
			record.BackupCodes = append(append([]string(nil), record.BackupCodes[:i]...), record.BackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memTwoFactorRepo) ReplaceBackupCodes(ctx context.Context, userID string, codes []string) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.twoFA[userID]
	if !ok {
		return repository.ErrNotFound
	}
	record.BackupCodes = codes
	return nil
}

type memSessionRepo memStore

func (r *memSessionRepo) Upsert(ctx context.Context, session *domain.Session) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.sessions[session.SessionID]; ok {
		existing.IP = session.IP
		existing.UserAgent = session.UserAgent
		existing.DeviceName = session.DeviceName
		existing.LastActivityAt = now
		*session = *existing
		return nil
	}

	if session.ID == "" {
		session.ID = m.nextID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastActivityAt = now
	m.sessions[session.SessionID] = session
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (r *memSessionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*domain.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	return sessions, nil
}

func (r *memSessionRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, session := range m.sessions {
		if session.ID == id {
			delete(m.sessions, key)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memSessionRepo) DeleteBySessionID(ctx context.Context, sessionID, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return 0, nil
	}
	delete(m.sessions, sessionID)
	return 1, nil
}

func (r *memSessionRepo) DeleteOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, session := range m.sessions {
		if session.UserID == userID && session.SessionID != currentSessionID {
			delete(m.sessions, key)
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, key)
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, session := range m.sessions {
		if session.LastActivityAt.Before(cutoff) {
			delete(m.sessions, key)
			count++
		}
	}
	return count, nil
}

type memSocialRepo memStore

func (r *memSocialRepo) Create(ctx context.Context, account *domain.SocialAccount) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.social {
		if existing.Provider == account.Provider && existing.ProviderID == account.ProviderID {
			return repository.ErrDuplicateSocialAccount
		}
	}
	if account.ID == "" {
		account.ID = m.nextID()
	}
	account.CreatedAt = time.Now()
	m.social[account.ID] = account
	return nil
}

func (r *memSocialRepo) GetByProviderAndID(ctx context.Context, provider, providerID string) (*domain.SocialAccount, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.social {
		if account.Provider == provider && account.ProviderID == providerID {
			return account, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSocialRepo) GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.SocialAccount, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.social {
		if account.UserID != nil && *account.UserID == userID && account.Provider == provider {
			return account, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSocialRepo) ListByUser(ctx context.Context, userID string) ([]*domain.SocialAccount, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var accounts []*domain.SocialAccount
	for _, account := range m.social {
		if account.UserID != nil && *account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Provider < accounts[j].Provider
	})
	return accounts, nil
}

func (r *memSocialRepo) Update(ctx context.Context, account *domain.SocialAccount) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.social[account.ID]; !ok {
		return repository.ErrNotFound
	}
	m.social[account.ID] = account
	return nil
}

func (r *memSocialRepo) Delete(ctx context.Context, accountID, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.social[accountID]
	if !ok || account.UserID == nil || *account.UserID != userID {
		return 0, nil
	}
	delete(m.social, accountID)
	return 1, nil
}

func (r *memSocialRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, account := range m.social {
		if account.UserID != nil && *account.UserID == userID {
			delete(m.social, id)
			count++
		}
	}
	return count, nil
}

// recordingMailer captures outgoing mail instead of sending it
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	kind  string
	to    string
	token string
}

func (m *recordingMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return nil
}

func (m *recordingMailer) byKind(kind string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, mail := range m.sent {
		if mail.kind == kind {
			out = append(out, mail)
		}
	}
	return out
}

func (m *recordingMailer) SendConfirmation(ctx context.Context, to, token string) error {
	return m.record("confirmation", to, token)
}

func (m *recordingMailer) SendRecovery(ctx context.Context, to, token string) error {
	return m.record("recovery", to, token)
}

func (m *recordingMailer) SendEmailChange(ctx context.Context, to, token string) error {
	return m.record("email_change", to, token)
}

func (m *recordingMailer) SendEmailChangeNotice(ctx context.Context, oldEmail, newEmail string) error {
	return m.record("email_change_notice", oldEmail, newEmail)
}

func (m *recordingMailer) SendWelcome(ctx context.Context, to, password string) error {
	return m.record("welcome", to, password)
}

func (m *recordingMailer) SendBlockedNotice(ctx context.Context, to string) error {
	return m.record("blocked", to, "")
}

// staticCaptcha accepts or rejects every challenge
type staticCaptcha struct {
	pass bool
}

func (c *staticCaptcha) Verify(ctx context.Context, response, remoteIP string) (bool, error) {
	return c.pass, nil
}

// staticOAuthClient replays a canned profile for social login tests
type staticOAuthClient struct {
	profile *domain.SocialProfile
	err     error
}

func (c *staticOAuthClient) AuthCodeURL(state string) (string, error) {
	return "https://provider.example/authorize?state=" + state, nil
}

func (c *staticOAuthClient) Exchange(ctx context.Context, code string) (*domain.SocialProfile, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.profile, nil
}
