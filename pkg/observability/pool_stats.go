package observability

import (
	"database/sql"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// StartPoolStatsCollector samples the connection pool gauges every
// interval until the returned stop function is called. The Redis client
// may be nil; its gauge then stays at zero. Stop is safe to call more
// than once.
func (m *Metrics) StartPoolStatsCollector(db *sql.DB, rdb *redis.Client, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	done := make(chan struct{})

	sample := func() {
		stats := db.Stats()
		m.DBConnectionsActive.Set(float64(stats.InUse))
		m.DBConnectionsIdle.Set(float64(stats.Idle))
		if rdb != nil {
			pool := rdb.PoolStats()
			m.RedisConnectionsActive.Set(float64(pool.TotalConns - pool.IdleConns))
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		sample()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				sample()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
