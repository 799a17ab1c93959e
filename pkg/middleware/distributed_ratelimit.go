package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/edukit/eduguard/pkg/observability"
)

// DistributedRateLimiter shares a fixed-window counter across instances
// through Redis. A Redis failure fails open: throttling is protection,
// not a dependency the portal is allowed to go down over.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	logger *observability.Logger
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed limiter. A nil config
// uses the defaults.
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, logger *observability.Logger) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		logger: logger,
		prefix: "eduguard:ratelimit",
	}
}

// Allow consumes one slot in the key's current window
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit counter: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow+rl.config.BurstSize), nil
}

// PerUser throttles by caller identity across all instances, keyed the
// same way as RateLimiter.PerUser
func (rl *DistributedRateLimiter) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), throttleKey(r))
		if err != nil {
			rl.logger.WithError(err).Warn("rate limiter degraded, allowing request")
		}
		if !allowed {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
