package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/eduguard/pkg/observability"
)

func TestCache_L1Only(t *testing.T) {
	cache := NewCache(8, time.Minute, nil)
	ctx := context.Background()

	perms := []Permission{{Resource: ResourceUser, Action: ActionRead}}

	_, ok := cache.GetUserPermissions(ctx, "u-1")
	assert.False(t, ok)

	cache.SetUserPermissions(ctx, "u-1", perms)
	got, ok := cache.GetUserPermissions(ctx, "u-1")
	require.True(t, ok)
	assert.Equal(t, perms, got)

	cache.InvalidateUser(ctx, "u-1")
	_, ok = cache.GetUserPermissions(ctx, "u-1")
	assert.False(t, ok)
}

func TestCache_RedisLayer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	perms := []Permission{{Resource: ResourceAnnouncement, Action: ActionPublish}}

	writer := NewCache(8, time.Minute, rdb)
	writer.SetUserPermissions(ctx, "u-1", perms)

	// A second node with a cold L1 reads through Redis.
	reader := NewCache(8, time.Minute, rdb)
	got, ok := reader.GetUserPermissions(ctx, "u-1")
	require.True(t, ok)
	assert.Equal(t, perms, got)

	// Invalidation on one node clears the shared layer.
	writer.InvalidateUser(ctx, "u-1")
	cold := NewCache(8, time.Minute, rdb)
	_, ok = cold.GetUserPermissions(ctx, "u-1")
	assert.False(t, ok)
}

func TestCache_RoleEntries(t *testing.T) {
	cache := NewCache(8, time.Minute, nil)
	ctx := context.Background()

	companyID := int64(3)
	role := &Role{Name: "auditor", DisplayName: "Auditor", CompanyID: &companyID}
	cache.SetRole(ctx, role)

	got, ok := cache.GetRole(ctx, "auditor", &companyID)
	require.True(t, ok)
	assert.Equal(t, "Auditor", got.DisplayName)

	// Company scoping is part of the key.
	other := int64(4)
	_, ok = cache.GetRole(ctx, "auditor", &other)
	assert.False(t, ok)
	_, ok = cache.GetRole(ctx, "auditor", nil)
	assert.False(t, ok)
}

func TestCache_Metrics(t *testing.T) {
	ctx := context.Background()
	perms := []Permission{{Resource: ResourceUser, Action: ActionRead}}

	t.Run("l1 layer", func(t *testing.T) {
		m := observability.NewMetrics(prometheus.NewRegistry())
		cache := NewCache(8, time.Minute, nil)
		cache.SetMetrics(m)

		_, ok := cache.GetUserPermissions(ctx, "u-1")
		require.False(t, ok)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("l1")))

		cache.SetUserPermissions(ctx, "u-1", perms)
		_, ok = cache.GetUserPermissions(ctx, "u-1")
		require.True(t, ok)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))
	})

	t.Run("redis layer", func(t *testing.T) {
		m := observability.NewMetrics(prometheus.NewRegistry())
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		writer := NewCache(8, time.Minute, rdb)
		writer.SetUserPermissions(ctx, "u-2", perms)

		// A cold L1 reads through Redis: one L1 miss, one Redis hit.
		reader := NewCache(8, time.Minute, rdb)
		reader.SetMetrics(m)
		_, ok := reader.GetUserPermissions(ctx, "u-2")
		require.True(t, ok)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("redis")))

		// The read-through populated L1, so the next lookup hits there.
		_, ok = reader.GetUserPermissions(ctx, "u-2")
		require.True(t, ok)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))

		_, ok = reader.GetUserPermissions(ctx, "missing")
		require.False(t, ok)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("redis")))
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	cache := NewCache(8, 50*time.Millisecond, rdb)
	cache.SetUserPermissions(ctx, "u-1", []Permission{{Resource: ResourceUser, Action: ActionRead}})

	mr.FastForward(time.Second)

	// The Redis entry is expired; a cold node sees a miss.
	cold := NewCache(8, 50*time.Millisecond, rdb)
	_, ok := cold.GetUserPermissions(ctx, "u-1")
	assert.False(t, ok)
}
