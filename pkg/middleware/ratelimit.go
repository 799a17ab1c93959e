package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/edukit/eduguard/pkg/auth"
	"github.com/edukit/eduguard/pkg/contextkeys"
	"github.com/edukit/eduguard/pkg/httputil"
)

// RateLimitConfig bounds request rates for one limiter
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the steady rate
	BurstSize int
}

// DefaultRateLimitConfig covers anonymous traffic per client IP
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// AuthAttemptConfig is the tight limit for login and token endpoints
func AuthAttemptConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         3,
	}
}

// PerUserRateLimitConfig covers authenticated API traffic per user
func PerUserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// RateLimiter is a token-bucket limiter with in-process buckets. Use
// DistributedRateLimiter when more than one instance serves traffic.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a limiter. A nil config uses the defaults.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for the key, reporting whether the request
// may proceed
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()
	capacity := float64(rl.config.RequestsPerWindow + rl.config.BurstSize)
	refillRate := float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, lastUpdate: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastUpdate).Seconds() * refillRate
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastUpdate = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets idle longer than maxIdle. Call it periodically to
// keep memory bounded under churny IP traffic.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	for key, b := range rl.buckets {
		if b.lastUpdate.Before(cutoff) {
			delete(rl.buckets, key)
			pruned++
		}
	}
	return pruned
}

// PerIP throttles by client address. Meant for unauthenticated surfaces
// like the login endpoint.
func (rl *RateLimiter) PerIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PerUser throttles by caller identity. See throttleKey for how the
// identity is derived.
func (rl *RateLimiter) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(throttleKey(r)) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttleKey derives the bucket key for per-user throttling. The user
// ID from the context wins when the guard has already run; ahead of
// authentication the bearer token identifies the caller, so two users
// behind one NAT address get separate buckets. The token is hashed
// before use so raw credentials never appear as bucket or Redis keys.
// Requests with no credentials at all share a per-address bucket.
func throttleKey(r *http.Request) string {
	if id := contextkeys.GetUserID(r.Context()); id != "" {
		return "user:" + id
	}
	if token := auth.ExtractToken(r); token != "" {
		sum := sha256.Sum256([]byte(token))
		return "token:" + hex.EncodeToString(sum[:8])
	}
	return "ip:" + clientIP(r)
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	httputil.WriteErrorMessage(w, http.StatusTooManyRequests, "Too many requests")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
