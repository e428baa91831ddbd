package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/engine"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/repository/memory"
)

type stateProbe struct {
	r    *Runner
	seen []State
}

func (s *stateProbe) Process(_ context.Context, ep *endpoint.Endpoint) (Report, error) {
	s.seen = append(s.seen, s.r.State())
	return Report{EndpointID: ep.ID}, nil
}

func TestRunOnce(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.CreateEndpoint(ctx, &endpoint.Endpoint{Name: "a", URL: "http://x", Interval: time.Minute, Active: true}))

	probe := &stateProbe{}
	r := New(zap.NewNop(), NewUC(store.Endpoints(), probe, clock.System{}, 1, zap.NewNop()), &config.SchedCfg{Tick: time.Hour})
	probe.r = r

	assert.Equal(t, StateIdle, r.State())
	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []State{StateRunning}, probe.seen)
	assert.Equal(t, StateIdle, r.State())
}

func TestRunStopsAfterPass(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, store.CreateEndpoint(ctx, &endpoint.Endpoint{Name: "a", URL: "http://x", Interval: time.Minute, Active: true}))

	probe := &stateProbe{}
	r := New(zap.NewNop(), NewUC(store.Endpoints(), probe, clock.System{}, 1, zap.NewNop()), &config.SchedCfg{Tick: time.Hour})
	probe.r = r

	// Cancelled before start: the first pass still runs to completion.
	cancel()
	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, probe.seen, 1)
	assert.Equal(t, StateIdle, r.State())
}
