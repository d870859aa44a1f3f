package auth

import (
	"sync"
	"time"
)

// SessionCache keeps recently validated sessions in memory so API requests
// do not hit the database for every token check.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]*cachedSession
	ttl      time.Duration
	stop     chan struct{}
	once     sync.Once
}

type cachedSession struct {
	session   *Session
	expiresAt time.Time
	cachedAt  time.Time
}

// NewSessionCache creates a new session cache with the specified TTL
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	cache := &SessionCache{
		sessions: make(map[string]*cachedSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go cache.cleanupLoop()

	return cache
}

// Get retrieves a session from the cache
func (c *SessionCache) Get(token string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.sessions[token]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(cached.cachedAt.Add(c.ttl)) || now.After(cached.expiresAt) {
		return nil, false
	}
	return cached.session, true
}

// Set stores a session in the cache
func (c *SessionCache) Set(session *Session) {
	if session == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[session.Token] = &cachedSession{
		session:   session,
		expiresAt: session.ExpiresAt,
		cachedAt:  time.Now(),
	}
}

// Delete removes a session from the cache
func (c *SessionCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, token)
}

// Clear removes all sessions from the cache
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions = make(map[string]*cachedSession)
}

// Size returns the number of cached sessions
func (c *SessionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions)
}

// Close ends the background cleanup.
func (c *SessionCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *SessionCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *SessionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for token, cached := range c.sessions {
		if now.After(cached.cachedAt.Add(c.ttl)) || now.After(cached.expiresAt) {
			delete(c.sessions, token)
		}
	}
}
