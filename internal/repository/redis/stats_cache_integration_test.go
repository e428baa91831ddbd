//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/stats"
)

func TestStatsCacheLifecycle(t *testing.T) {
	addr := os.Getenv("IT_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	ctx := context.Background()
	c, err := NewStatsCache(ctx, Config{Addr: addr, TTL: time.Minute, Prefix: "vigil:it:"}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	id := time.Now().UnixNano()
	_, ok, err := c.Get(ctx, id, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	s := &stats.Stats{EndpointID: id, HistoryDays: 30, DailyUptime: []stats.DailyUptime{{Uptime: 99.5, Total: 2}}}
	gen, err := c.Generation(ctx, id)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, s, gen))
	require.NoError(t, c.Set(ctx, &stats.Stats{EndpointID: id, HistoryDays: 90}, gen))

	got, ok, err := c.Get(ctx, id, 30)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 99.5, got.DailyUptime[0].Uptime)

	require.NoError(t, c.Invalidate(ctx, id))
	for _, days := range []int{30, 90} {
		_, ok, err = c.Get(ctx, id, days)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestStatsCacheSkipsStaleSet(t *testing.T) {
	addr := os.Getenv("IT_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	ctx := context.Background()
	c, err := NewStatsCache(ctx, Config{Addr: addr, TTL: time.Minute, Prefix: "vigil:it:"}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	id := time.Now().UnixNano()
	gen, err := c.Generation(ctx, id)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, id))
	next, err := c.Generation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	err = c.Set(ctx, &stats.Stats{EndpointID: id, HistoryDays: 30}, gen)
	require.ErrorIs(t, err, stats.ErrStale)
	_, ok, err := c.Get(ctx, id, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, &stats.Stats{EndpointID: id, HistoryDays: 30}, next))
	_, ok, err = c.Get(ctx, id, 30)
	require.NoError(t, err)
	assert.True(t, ok)
}
