package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPoolStatsCollector(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Ping())

	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	stop := m.StartPoolStatsCollector(db, nil, 10*time.Millisecond)
	defer stop()

	// Ping left one open connection sitting idle in the pool.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.DBConnectionsIdle) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(m.DBConnectionsActive))
	assert.Zero(t, testutil.ToFloat64(m.RedisConnectionsActive))

	// Stop is idempotent.
	stop()
	stop()
}
