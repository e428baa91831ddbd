package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
)

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	ep := &endpoint.Endpoint{Name: "api", URL: "example.com", Interval: time.Minute, Active: true}
	require.NoError(t, s.CreateEndpoint(ctx, ep))
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return s.Checks().Insert(ctx, &check.Check{EndpointID: ep.ID, CheckedAt: at, Up: true})
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Checks().Insert(ctx, &check.Check{EndpointID: ep.ID, CheckedAt: at, Up: false}))
		// nested call joins the outer transaction
		require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
			return s.Endpoints().UpdateHealth(ctx, ep.ID, endpoint.Health{Status: endpoint.StatusDown, Uptime: 50, LastCheck: at})
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	up, total, err := s.Checks().CountSince(ctx, ep.ID, at.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, total)

	got, err := s.Endpoints().GetByID(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusUp, got.Status)
}

func TestRollbackDiscardsConcurrentUntransactedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	ep := &endpoint.Endpoint{Name: "api", URL: "example.com", Interval: time.Minute, Active: true}
	require.NoError(t, s.CreateEndpoint(ctx, ep))

	err := s.WithTx(ctx, func(context.Context) error {
		require.NoError(t, s.SetActive(ctx, ep.ID, false))
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := s.Endpoints().GetByID(ctx, ep.ID)
	require.NoError(t, err)
	assert.True(t, got.Active, "whole-store snapshot restored")
}
