package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter enforces a per-client request budget on the API.
//
// Uses a sliding window algorithm: each window tracks request counts per
// client IP, and expired windows are garbage-collected periodically.
type RateLimiter struct {
	mu      sync.RWMutex
	windows map[string]*rateLimitWindow
	limit   int
	logger  *log.Logger
}

type rateLimitWindow struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter allowing perMinute requests per
// client per minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}

	rl := &RateLimiter{
		windows: make(map[string]*rateLimitWindow),
		limit:   perMinute,
		logger:  log.New(log.Writer(), "[RATE-LIMIT] ", log.LstdFlags),
	}

	// Start background cleanup
	go rl.cleanup()

	return rl
}

// Allow checks if a request from the given key should be allowed.
//
// Uses a read-first pattern: only acquires the write lock when a new window
// must be created or the window has expired. Existing-window checks use
// RLock to reduce contention; the count increment races slightly, which is
// acceptable for a soft limit.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	// Fast path: check existing window under read lock
	rl.mu.RLock()
	window, exists := rl.windows[key]
	if exists && now.Sub(window.windowStart) <= time.Minute {
		window.count++
		count := window.count
		rl.mu.RUnlock()

		if count > rl.limit {
			rl.logger.Printf("Rate limit exceeded: client=%s count=%d limit=%d", key, count, rl.limit)
			return false
		}
		return true
	}
	rl.mu.RUnlock()

	// Slow path: new window needed
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	window, exists = rl.windows[key]
	if exists && now.Sub(window.windowStart) <= time.Minute {
		window.count++
		return window.count <= rl.limit
	}

	rl.windows[key] = &rateLimitWindow{
		count:       1,
		windowStart: now,
	}
	return true
}

// Middleware returns an HTTP middleware that enforces rate limiting keyed by
// client IP. Rejected requests get a 429 with a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"detail":"Rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the originating client: the first X-Forwarded-For hop
// when present (the service runs behind a proxy), else the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// cleanup periodically removes expired windows to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, window := range rl.windows {
			if now.Sub(window.windowStart) > 2*time.Minute {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Stats returns current rate limiter statistics.
func (rl *RateLimiter) Stats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return map[string]interface{}{
		"active_windows":    len(rl.windows),
		"max_calls_per_min": rl.limit,
	}
}
