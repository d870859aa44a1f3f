package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter admits one request per key every minInterval.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
	now         func() time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether key may proceed, and otherwise how long to wait.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)

	last, ok := r.lastSeen[key]
	if !ok {
		r.lastSeen[key] = now
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed < r.minInterval {
		return false, r.minInterval - elapsed
	}
	r.lastSeen[key] = now
	return true, 0
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	if len(r.lastSeen) < 1024 {
		return
	}
	for key, seen := range r.lastSeen {
		if now.Sub(seen) >= r.minInterval {
			delete(r.lastSeen, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
