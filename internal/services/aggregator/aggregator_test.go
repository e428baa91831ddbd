package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/stats"
	"github.com/NordCoder/Vigil/internal/repository/memory"
)

type fakeCache struct {
	entries     map[[2]int64]*stats.Stats
	gens        map[int64]int64
	getErr      error
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[[2]int64]*stats.Stats{}, gens: map[int64]int64{}}
}

func (c *fakeCache) Get(_ context.Context, id int64, days int) (*stats.Stats, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[[2]int64{id, int64(days)}]
	return s, ok, nil
}

func (c *fakeCache) Generation(_ context.Context, id int64) (int64, error) {
	return c.gens[id], nil
}

func (c *fakeCache) Set(_ context.Context, s *stats.Stats, gen int64) error {
	if c.gens[s.EndpointID] != gen {
		return stats.ErrStale
	}
	c.entries[[2]int64{s.EndpointID, int64(s.HistoryDays)}] = s
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	c.gens[id]++
	for k := range c.entries {
		if k[0] == id {
			delete(c.entries, k)
		}
	}
	return nil
}

func seed(t *testing.T, store *memory.Store, checks ...check.Check) int64 {
	t.Helper()
	ctx := context.Background()
	e := &endpoint.Endpoint{Name: "api", URL: "example.com", Interval: time.Minute, Active: true}
	require.NoError(t, store.CreateEndpoint(ctx, e))
	for _, c := range checks {
		c.EndpointID = e.ID
		require.NoError(t, store.Checks().Insert(ctx, &c))
	}
	return e.ID
}

func TestRollingUptime(t *testing.T) {
	store := memory.New()
	id := seed(t, store,
		check.Check{CheckedAt: now.Add(-time.Hour), Up: true},
		check.Check{CheckedAt: now.Add(-2 * time.Hour), Up: true},
		check.Check{CheckedAt: now.Add(-3 * time.Hour), Up: false},
		check.Check{CheckedAt: now.Add(-100 * day), Up: false},
	)
	a := New(store.Checks(), clock.Func(func() time.Time { return now }), nil, Config{}, zap.NewNop())

	got, err := a.RollingUptime(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, 66.67, got)

	got, err = a.RollingUptime(context.Background(), id, 200*day)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)

	empty := seed(t, store)
	got, err = a.RollingUptime(context.Background(), empty, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}

func TestStatsShapes(t *testing.T) {
	store := memory.New()
	id := seed(t, store, check.Check{CheckedAt: now.Add(-time.Minute), Up: true, LatencyMs: 80, StatusCode: 200})
	a := New(store.Checks(), clock.Func(func() time.Time { return now }), nil, Config{}, zap.NewNop())

	s, err := a.Stats(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, s.HistoryDays)
	assert.Len(t, s.HourlyLatency, 24)
	assert.Len(t, s.DailyUptime, 30)
	assert.Len(t, s.HourlyChecks, 24)
	assert.Len(t, s.StatusClasses, 4)
	assert.Len(t, s.ResponseTimes, 5)
	assert.Equal(t, 80.0, s.HourlyLatency[23].AvgMs)
	assert.Equal(t, 1, s.ResponseTimes[1].Count)

	s, err = a.Stats(context.Background(), id, 90)
	require.NoError(t, err)
	assert.Len(t, s.DailyUptime, 90)
}

func TestStatsCacheHitAndInvalidate(t *testing.T) {
	store := memory.New()
	id := seed(t, store, check.Check{CheckedAt: now.Add(-time.Minute), Up: true, LatencyMs: 10})
	cache := newFakeCache()
	a := New(store.Checks(), clock.Func(func() time.Time { return now }), cache, Config{}, zap.NewNop())
	ctx := context.Background()

	first, err := a.Stats(ctx, id, 30)
	require.NoError(t, err)

	require.NoError(t, store.Checks().Insert(ctx, &check.Check{EndpointID: id, CheckedAt: now, Up: false}))
	cached, err := a.Stats(ctx, id, 30)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	a.Invalidate(ctx, id)
	assert.Equal(t, []int64{id}, cache.invalidated)

	fresh, err := a.Stats(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, 50.0, fresh.DailyUptime[29].Uptime)
}

func TestStatsCacheFailureRecomputes(t *testing.T) {
	store := memory.New()
	id := seed(t, store, check.Check{CheckedAt: now.Add(-time.Minute), Up: true})
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	a := New(store.Checks(), clock.Func(func() time.Time { return now }), cache, Config{}, zap.NewNop())

	s, err := a.Stats(context.Background(), id, 3)
	require.NoError(t, err)
	assert.Len(t, s.DailyUptime, 3)
}

// appendDuringList simulates a pipeline pass that appends and invalidates while
// Stats is reading the check log.
type appendDuringList struct {
	check.Repo
	once func()
}

func (r *appendDuringList) ListSince(ctx context.Context, endpointID int64, since time.Time) ([]check.Check, error) {
	out, err := r.Repo.ListSince(ctx, endpointID, since)
	if r.once != nil {
		f := r.once
		r.once = nil
		f()
	}
	return out, err
}

func TestStatsNotCachedWhenInvalidatedMidCompute(t *testing.T) {
	store := memory.New()
	id := seed(t, store, check.Check{CheckedAt: now.Add(-time.Minute), Up: true, LatencyMs: 10})
	cache := newFakeCache()
	repo := &appendDuringList{Repo: store.Checks()}
	a := New(repo, clock.Func(func() time.Time { return now }), cache, Config{}, zap.NewNop())
	ctx := context.Background()

	repo.once = func() {
		require.NoError(t, store.Checks().Insert(ctx, &check.Check{EndpointID: id, CheckedAt: now, Up: false}))
		a.Invalidate(ctx, id)
	}

	stale, err := a.Stats(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stale.DailyUptime[29].Uptime)
	assert.Empty(t, cache.entries)

	fresh, err := a.Stats(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, 50.0, fresh.DailyUptime[29].Uptime)
	assert.Equal(t, 2, fresh.DailyUptime[29].Total)
}
