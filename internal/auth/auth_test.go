package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryStore struct {
	mu       sync.Mutex
	hash     string
	sessions map[string]Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]Session{}}
}

func (m *memoryStore) AdminPasswordHash(context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hash, m.hash != "", nil
}

func (m *memoryStore) SetAdminPasswordHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hash = hash
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &s, nil
}

func (m *memoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memoryStore) DeleteAllSessions(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = map[string]Session{}
	return nil
}

func (m *memoryStore) CleanExpiredSessions(context.Context) error { return nil }

func newTestManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	hashCost = bcrypt.MinCost
	store := newMemoryStore()
	m := NewManager(store, time.Hour, time.Minute)
	t.Cleanup(m.Close)
	return m, store
}

func TestInitializeAdminOnlyOnce(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	password, err := m.InitializeAdmin(ctx)
	require.NoError(t, err)
	assert.Len(t, password, 22)

	again, err := m.InitializeAdmin(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = m.Login(ctx, password)
	require.NoError(t, err)
}

func TestLoginAndValidate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.Login(ctx, "whatever")
	assert.ErrorIs(t, err, ErrNoPassword)

	require.NoError(t, m.SetPassword(ctx, "correct horse"))

	_, err = m.Login(ctx, "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := m.Login(ctx, "correct horse")
	require.NoError(t, err)

	got, err := m.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Token, got.Token)

	require.NoError(t, m.Logout(ctx, session.Token))
	_, err = m.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSetPasswordDropsSessions(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	require.NoError(t, m.SetPassword(ctx, "first password"))
	session, err := m.Login(ctx, "first password")
	require.NoError(t, err)

	require.NoError(t, m.SetPassword(ctx, "second password"))
	assert.Empty(t, store.sessions)
	_, err = m.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Error(t, m.SetPassword(ctx, "short"))
}

func TestExpiredSessionRejected(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	expired := Session{Token: "old", CreatedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.CreateSession(ctx, expired))

	_, err := m.ValidateSession(ctx, "old")
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotContains(t, store.sessions, "old")
}
