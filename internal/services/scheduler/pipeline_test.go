package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/event"
	"github.com/NordCoder/Vigil/internal/domain/incident"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
	"github.com/NordCoder/Vigil/internal/repository/memory"
	"github.com/NordCoder/Vigil/internal/services/aggregator"
	"github.com/NordCoder/Vigil/internal/services/prober"
	"github.com/NordCoder/Vigil/internal/services/recorder"
	"github.com/NordCoder/Vigil/internal/services/transition"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Publish(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Type, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	sink     *recordingSink
	pipeline *Pipeline
	target   *httptest.Server
	code     atomic.Int32
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		sink:  &recordingSink{},
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.code.Store(http.StatusOK)
	f.target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(f.code.Load()))
	}))
	t.Cleanup(f.target.Close)

	clk := clock.Func(func() time.Time { return f.now })
	log := zap.NewNop()
	cfg := prober.Config{DefaultTimeout: 2 * time.Second}

	f.pipeline = &Pipeline{
		Prober:     prober.New(prober.NewHTTPClient(cfg), cfg),
		Recorder:   recorder.New(f.store.Checks()),
		Aggregator: aggregator.New(f.store.Checks(), clk, nil, aggregator.Config{}, log),
		Endpoints:  f.store.Endpoints(),
		Transition: transition.New(f.store.StatusPages(), f.store.Incidents(), f.store, clk, log),
		Tx:         f.store,
		Sink:       f.sink,
		Clock:      clk,
		Log:        log,
	}
	return f
}

func (f *fixture) endpoint(t *testing.T, name string) *endpoint.Endpoint {
	t.Helper()
	e := &endpoint.Endpoint{Name: name, URL: f.target.URL, Interval: time.Minute, Active: true}
	require.NoError(t, f.store.CreateEndpoint(context.Background(), e))
	return e
}

func (f *fixture) page(t *testing.T, slug string, eps ...*endpoint.Endpoint) *statuspage.StatusPage {
	t.Helper()
	p := &statuspage.StatusPage{Slug: slug, Name: slug}
	for _, e := range eps {
		p.EndpointIDs = append(p.EndpointIDs, e.ID)
	}
	require.NoError(t, f.store.CreateStatusPage(context.Background(), p))
	return p
}

// reload returns the endpoint as the next pass would list it.
func (f *fixture) reload(t *testing.T, id int64) *endpoint.Endpoint {
	t.Helper()
	e, err := f.store.Endpoints().GetByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

func TestProcess_FirstDownOpensIncident(t *testing.T) {
	f := newFixture(t)
	e1 := f.endpoint(t, "E1")
	p1 := f.page(t, "p1", e1)
	f.code.Store(http.StatusInternalServerError)
	ctx := context.Background()

	rep, err := f.pipeline.Process(ctx, f.reload(t, e1.ID))
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusUp, rep.Previous)
	assert.Equal(t, endpoint.StatusDown, rep.Status)
	assert.Zero(t, rep.PageFailures)

	checks, err := f.store.Checks().ListSince(ctx, e1.ID, f.now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.False(t, checks[0].Up)
	assert.Equal(t, http.StatusInternalServerError, checks[0].StatusCode)

	got := f.reload(t, e1.ID)
	assert.Equal(t, endpoint.StatusDown, got.Status)
	assert.Equal(t, 0.0, got.Uptime)
	require.NotNil(t, got.LastCheck)
	assert.True(t, got.LastCheck.Equal(f.now))

	incidents := f.store.AllIncidents(p1.ID)
	require.Len(t, incidents, 1)
	assert.Equal(t, incident.StatusInvestigating, incidents[0].Status)
	assert.Equal(t, []int64{e1.ID}, incidents[0].AffectedComponents)

	page, err := f.store.StatusPages().Lock(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, statuspage.StatusOutage, page.Status)

	require.Equal(t, []event.Type{event.TypeEndpointUpdate, event.TypePageUpdate}, f.sink.types())
	eu := f.sink.events[0].Endpoint
	assert.Equal(t, e1.ID, eu.EndpointID)
	assert.Equal(t, endpoint.StatusDown, eu.Status)
	assert.Equal(t, endpoint.StatusUp, eu.PreviousStatus)
	assert.True(t, eu.StatusChanged)
	pu := f.sink.events[1].Page
	assert.Equal(t, p1.ID, pu.PageID)
	assert.Equal(t, statuspage.StatusOutage, pu.Status)
	assert.Equal(t, e1.ID, pu.EndpointID)
}

func TestProcess_RecoveryResolves(t *testing.T) {
	f := newFixture(t)
	e := f.endpoint(t, "api")
	p := f.page(t, "acme", e)
	ctx := context.Background()

	f.code.Store(http.StatusServiceUnavailable)
	_, err := f.pipeline.Process(ctx, f.reload(t, e.ID))
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	f.code.Store(http.StatusOK)
	rep, err := f.pipeline.Process(ctx, f.reload(t, e.ID))
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusDown, rep.Previous)
	assert.Equal(t, endpoint.StatusUp, rep.Status)
	assert.Equal(t, 50.0, rep.Uptime)

	incidents := f.store.AllIncidents(p.ID)
	require.Len(t, incidents, 1)
	assert.True(t, incidents[0].Resolved())

	require.Equal(t, []event.Type{
		event.TypeEndpointUpdate, event.TypePageUpdate,
		event.TypeEndpointUpdate, event.TypePageUpdate,
	}, f.sink.types())
	assert.Equal(t, statuspage.StatusOperational, f.sink.events[3].Page.Status)
}

func TestProcess_SteadyStateOnlyEndpointUpdate(t *testing.T) {
	f := newFixture(t)
	e := f.endpoint(t, "api")
	p := f.page(t, "acme", e)

	rep, err := f.pipeline.Process(context.Background(), f.reload(t, e.ID))
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusUp, rep.Status)
	assert.Equal(t, 100.0, rep.Uptime)
	assert.Empty(t, rep.Pages)
	assert.Empty(t, f.store.AllIncidents(p.ID))
	require.Equal(t, []event.Type{event.TypeEndpointUpdate}, f.sink.types())
	assert.False(t, f.sink.events[0].Endpoint.StatusChanged)
}

func TestProcess_PersistenceFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	ghost := &endpoint.Endpoint{ID: 999, Name: "ghost", URL: f.target.URL, Status: endpoint.StatusUp}

	_, err := f.pipeline.Process(context.Background(), ghost)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.sink.types())
}

type failingIncidents struct{ incident.Repo }

func (failingIncidents) Create(context.Context, *incident.Incident) error {
	return errors.New("incidents table locked")
}

func TestProcess_PageFailureStillWritesHealth(t *testing.T) {
	f := newFixture(t)
	clk := clock.Func(func() time.Time { return f.now })
	f.pipeline.Transition = transition.New(f.store.StatusPages(), failingIncidents{f.store.Incidents()}, f.store, clk, zap.NewNop())
	e := f.endpoint(t, "api")
	p := f.page(t, "acme", e)
	f.code.Store(http.StatusInternalServerError)

	rep, err := f.pipeline.Process(context.Background(), f.reload(t, e.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.PageFailures)
	require.Error(t, rep.PageErr)
	assert.Empty(t, rep.Pages)

	got := f.reload(t, e.ID)
	assert.Equal(t, endpoint.StatusDown, got.Status)
	assert.Equal(t, 0.0, got.Uptime)
	require.NotNil(t, got.LastCheck)

	assert.Empty(t, f.store.AllIncidents(p.ID))
	require.Equal(t, []event.Type{event.TypeEndpointUpdate}, f.sink.types())
}
