package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrNoPassword         = errors.New("admin password not set")
)

var hashCost = bcrypt.DefaultCost

// Session represents an authenticated API client
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store defines the persistence needed for the admin password and sessions
type Store interface {
	AdminPasswordHash(ctx context.Context) (string, bool, error)
	SetAdminPasswordHash(ctx context.Context, hash string) error

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteAllSessions(ctx context.Context) error
	CleanExpiredSessions(ctx context.Context) error
}

// Manager handles authentication operations
type Manager struct {
	store           Store
	sessionDuration time.Duration
	sessionCache    *SessionCache
}

// NewManager creates a new authentication manager. Validated sessions are
// cached for cacheTTL.
func NewManager(store Store, sessionDuration, cacheTTL time.Duration) *Manager {
	if sessionDuration == 0 {
		sessionDuration = 24 * time.Hour
	}
	return &Manager{
		store:           store,
		sessionDuration: sessionDuration,
		sessionCache:    NewSessionCache(cacheTTL),
	}
}

// GeneratePassword generates a random password for the admin
func GeneratePassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("admin-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(bytes)[:22]
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken generates a secure random token
func GenerateToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		hash := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
		return hex.EncodeToString(hash[:])
	}
	return hex.EncodeToString(bytes)
}

// InitializeAdmin stores a generated admin password if none exists yet and
// returns it. An empty result means a password was already configured.
func (m *Manager) InitializeAdmin(ctx context.Context) (string, error) {
	_, ok, err := m.store.AdminPasswordHash(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}

	password := GeneratePassword()
	if err := m.SetPassword(ctx, password); err != nil {
		return "", err
	}
	return password, nil
}

// SetPassword replaces the admin password and drops every session.
func (m *Manager) SetPassword(ctx context.Context, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := m.store.SetAdminPasswordHash(ctx, hash); err != nil {
		return err
	}
	if m.sessionCache != nil {
		m.sessionCache.Clear()
	}
	return m.store.DeleteAllSessions(ctx)
}

// Login checks the admin password and creates a session
func (m *Manager) Login(ctx context.Context, password string) (*Session, error) {
	hash, ok, err := m.store.AdminPasswordHash(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoPassword
	}
	if !VerifyPassword(password, hash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := Session{
		Token:     GenerateToken(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionDuration),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if m.sessionCache != nil {
		m.sessionCache.Set(&session)
	}
	return &session, nil
}

// Logout invalidates a session
func (m *Manager) Logout(ctx context.Context, token string) error {
	if m.sessionCache != nil {
		m.sessionCache.Delete(token)
	}
	return m.store.DeleteSession(ctx, token)
}

// ValidateSession validates a session token with caching
func (m *Manager) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if m.sessionCache != nil {
		if session, found := m.sessionCache.Get(token); found {
			return session, nil
		}
	}

	session, err := m.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, token)
		if m.sessionCache != nil {
			m.sessionCache.Delete(token)
		}
		return nil, ErrTokenExpired
	}

	if m.sessionCache != nil {
		m.sessionCache.Set(session)
	}
	return session, nil
}

// CleanupExpiredSessions removes expired sessions
func (m *Manager) CleanupExpiredSessions(ctx context.Context) error {
	return m.store.CleanExpiredSessions(ctx)
}

// Close stops the cache cleanup loop.
func (m *Manager) Close() {
	if m.sessionCache != nil {
		m.sessionCache.Close()
	}
}
