package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/edukit/eduguard/pkg/observability"
)

// Cache holds resolved custom roles and per-user permission lists. L1 is an
// in-process expiring LRU; L2 is an optional shared Redis layer so a grant
// revoked on one portal node is not served stale by another for longer than
// the TTL.
type Cache struct {
	l1      *expirable.LRU[string, []byte]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// Cache layer labels for the hit and miss counters
const (
	cacheLayerL1    = "l1"
	cacheLayerRedis = "redis"
)

// NewCache creates a cache with the given L1 size and entry TTL. The Redis
// client may be nil for a single-node deployment.
func NewCache(size int, ttl time.Duration, rdb *redis.Client) *Cache {
	if size <= 0 {
		size = 1024
	}
	return &Cache{
		l1:    expirable.NewLRU[string, []byte](size, nil, ttl),
		redis: rdb,
		ttl:   ttl,
	}
}

// SetMetrics enables per-layer hit and miss counters. Safe to leave
// unset; lookups then run uninstrumented.
func (c *Cache) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

func (c *Cache) hit(layer string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

func (c *Cache) miss(layer string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(layer).Inc()
	}
}

func userPermsKey(userID string) string { return "rbac:perms:" + userID }

func roleKey(name RoleName, companyID *int64) string {
	if companyID == nil {
		return "rbac:role:" + string(name)
	}
	return fmt.Sprintf("rbac:role:%s:%d", name, *companyID)
}

// GetUserPermissions returns a cached permission list. The second return is
// false on a miss at both layers.
func (c *Cache) GetUserPermissions(ctx context.Context, userID string) ([]Permission, bool) {
	var perms []Permission
	if c.lookup(ctx, userPermsKey(userID), &perms) {
		return perms, true
	}
	return nil, false
}

// SetUserPermissions stores a permission list at both layers
func (c *Cache) SetUserPermissions(ctx context.Context, userID string, perms []Permission) {
	c.put(ctx, userPermsKey(userID), perms)
}

// GetRole returns a cached custom role
func (c *Cache) GetRole(ctx context.Context, name RoleName, companyID *int64) (*Role, bool) {
	var role Role
	if c.lookup(ctx, roleKey(name, companyID), &role) {
		return &role, true
	}
	return nil, false
}

// SetRole stores a custom role at both layers
func (c *Cache) SetRole(ctx context.Context, role *Role) {
	c.put(ctx, roleKey(role.Name, role.CompanyID), role)
}

// InvalidateUser drops a user's cached permission list from both layers
func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	key := userPermsKey(userID)
	c.l1.Remove(key)
	if c.redis != nil {
		// Best effort: a failed delete only extends staleness until the TTL.
		_ = c.redis.Del(ctx, key).Err()
	}
}

func (c *Cache) lookup(ctx context.Context, key string, dest interface{}) bool {
	if raw, ok := c.l1.Get(key); ok {
		if json.Unmarshal(raw, dest) == nil {
			c.hit(cacheLayerL1)
			return true
		}
		return false
	}
	c.miss(cacheLayerL1)
	if c.redis == nil {
		return false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		c.miss(cacheLayerRedis)
		return false
	}
	if json.Unmarshal(raw, dest) != nil {
		return false
	}
	c.l1.Add(key, raw)
	c.hit(cacheLayerRedis)
	return true
}

func (c *Cache) put(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.l1.Add(key, raw)
	if c.redis != nil {
		_ = c.redis.Set(ctx, key, raw, c.ttl).Err()
	}
}
