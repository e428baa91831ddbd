package statsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	"github.com/NordCoder/Vigil/internal/services/aggregator"
)

var now = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func newServer(t *testing.T) (*httptest.Server, *endpoint.Endpoint) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	ep := &endpoint.Endpoint{Name: "api", URL: "https://api.example.com", Interval: time.Minute, Active: true}
	require.NoError(t, store.CreateEndpoint(ctx, ep))
	for i, up := range []bool{true, true, true, false} {
		require.NoError(t, store.Checks().Insert(ctx, &check.Check{
			EndpointID: ep.ID,
			CheckedAt:  now.Add(-time.Duration(i+1) * time.Minute),
			Up:         up,
			LatencyMs:  int64(40 * (i + 1)),
			StatusCode: 200,
		}))
	}

	agg := aggregator.New(store.Checks(), clock.Func(func() time.Time { return now }), nil, aggregator.Config{}, zap.NewNop())
	mux := http.NewServeMux()
	NewServer(zap.NewNop(), agg, store.Endpoints()).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, ep
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStats(t *testing.T) {
	srv, ep := newServer(t)

	var st stats.Stats
	code := get(t, srv.URL+"/v1/endpoints/1/stats?days=20", &st)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ep.ID, st.EndpointID)
	assert.Equal(t, 30, st.HistoryDays)
	assert.Len(t, st.DailyUptime, 30)
	assert.Len(t, st.HourlyLatency, 24)
	assert.Equal(t, 75.0, st.DailyUptime[29].Uptime)
}

func TestStats_DefaultWindow(t *testing.T) {
	srv, _ := newServer(t)

	var st stats.Stats
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/endpoints/1/stats", &st))
	assert.Equal(t, 30, st.HistoryDays)
}

func TestUptime(t *testing.T) {
	srv, ep := newServer(t)

	var resp uptimeResponse
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/endpoints/1/uptime?days=1", &resp))
	assert.Equal(t, ep.ID, resp.EndpointID)
	assert.Equal(t, 1, resp.Days)
	assert.Equal(t, 75.0, resp.Uptime)
	assert.Equal(t, endpoint.StatusUp, resp.Status)
}

func TestErrors(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/endpoints/42/stats", nil))
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/endpoints/42/uptime", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/v1/endpoints/abc/stats", nil))
}

func TestDaysValidation(t *testing.T) {
	srv, _ := newServer(t)

	for _, q := range []string{"-5", "200000", "abc"} {
		assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/v1/endpoints/1/uptime?days="+q, nil), q)
	}
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/v1/endpoints/1/stats?days=-1", nil))

	var resp uptimeResponse
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/endpoints/1/uptime?days=365", &resp))
	assert.Equal(t, 365, resp.Days)

	var st stats.Stats
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/endpoints/1/stats?days=200000", &st))
	assert.Equal(t, 365, st.HistoryDays)
}
