// Package memory keeps every entity in process. It backs dev runs and engine tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/incident"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
	"github.com/NordCoder/Vigil/internal/domain/tx"
)

type state struct {
	seq       int64
	endpoints map[int64]endpoint.Endpoint
	checks    map[int64][]check.Check
	pages     map[int64]statuspage.StatusPage
	incidents map[int64]incident.Incident
}

func (s *state) clone() *state {
	c := &state{
		seq:       s.seq,
		endpoints: make(map[int64]endpoint.Endpoint, len(s.endpoints)),
		checks:    make(map[int64][]check.Check, len(s.checks)),
		pages:     make(map[int64]statuspage.StatusPage, len(s.pages)),
		incidents: make(map[int64]incident.Incident, len(s.incidents)),
	}
	for id, e := range s.endpoints {
		c.endpoints[id] = copyEndpoint(e)
	}
	for id, cs := range s.checks {
		c.checks[id] = slices.Clone(cs)
	}
	for id, p := range s.pages {
		p.EndpointIDs = slices.Clone(p.EndpointIDs)
		c.pages[id] = p
	}
	for id, in := range s.incidents {
		c.incidents[id] = copyIncident(in)
	}
	return c
}

// Store implements every storage port. Transactions are serialised by a store-wide
// mutex and roll back by restoring the snapshot taken at begin.
//
// The snapshot covers the whole store, so a rollback also discards writes made
// outside any transaction while it ran (CreateEndpoint, CreateStatusPage,
// SetActive, or a repo call without a tx context). Engine writes always run
// inside WithTx, so this only matters for seeding done concurrently with a pass.
// Use the postgres or sqlite adapters where that isolation is needed.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func New() *Store {
	return &Store{st: &state{
		endpoints: map[int64]endpoint.Endpoint{},
		checks:    map[int64][]check.Check{},
		pages:     map[int64]statuspage.StatusPage{},
		incidents: map[int64]incident.Incident{},
	}}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Endpoints() *EndpointRepo     { return &EndpointRepo{s} }
func (s *Store) Checks() *CheckRepo           { return &CheckRepo{s} }
func (s *Store) StatusPages() *StatusPageRepo { return &StatusPageRepo{s} }
func (s *Store) Incidents() *IncidentRepo     { return &IncidentRepo{s} }

var _ tx.Transactor = (*Store)(nil)

type txKey struct{}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return fmt.Errorf("function execution error: %w", err)
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

func copyEndpoint(e endpoint.Endpoint) endpoint.Endpoint {
	e.StatusPageIDs = slices.Clone(e.StatusPageIDs)
	if e.LastCheck != nil {
		t := *e.LastCheck
		e.LastCheck = &t
	}
	return e
}

func copyIncident(in incident.Incident) incident.Incident {
	in.AffectedComponents = slices.Clone(in.AffectedComponents)
	in.Timeline = slices.Clone(in.Timeline)
	if in.ResolvedAt != nil {
		t := *in.ResolvedAt
		in.ResolvedAt = &t
	}
	return in
}

func (s *Store) pageIDsOf(endpointID int64) []int64 {
	var ids []int64
	for id, p := range s.st.pages {
		if slices.Contains(p.EndpointIDs, endpointID) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Seeding. The external CRUD layer owns these writes in production.

// CreateEndpoint stores e. Health fields left zero get the storage defaults.
func (s *Store) CreateEndpoint(_ context.Context, e *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Status == "" {
		e.Status = endpoint.StatusUp
		e.Uptime = 100
	}
	e.ID = s.nextID()
	s.st.endpoints[e.ID] = copyEndpoint(*e)
	return nil
}

func (s *Store) CreateStatusPage(_ context.Context, p *statuspage.StatusPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Status == "" {
		p.Status = statuspage.StatusOperational
	}
	for _, eid := range p.EndpointIDs {
		if _, ok := s.st.endpoints[eid]; !ok {
			return fmt.Errorf("endpoint %d: %w", eid, domain.ErrNotFound)
		}
	}
	p.ID = s.nextID()
	cp := *p
	cp.EndpointIDs = slices.Clone(p.EndpointIDs)
	s.st.pages[p.ID] = cp
	return nil
}

func (s *Store) SetActive(_ context.Context, endpointID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.endpoints[endpointID]
	if !ok {
		return fmt.Errorf("endpoint %d: %w", endpointID, domain.ErrNotFound)
	}
	e.Active = active
	s.st.endpoints[endpointID] = e
	return nil
}

// AllIncidents returns every incident of a page, resolved ones included, ordered by id.
func (s *Store) AllIncidents(statusPageID int64) []incident.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []incident.Incident
	for _, in := range s.st.incidents {
		if in.StatusPageID == statusPageID {
			out = append(out, copyIncident(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type EndpointRepo struct{ s *Store }

var _ endpoint.Repo = (*EndpointRepo)(nil)

func (r *EndpointRepo) ListActive(context.Context) ([]*endpoint.Endpoint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(r.s.st.endpoints))
	var out []*endpoint.Endpoint
	for _, id := range ids {
		e := copyEndpoint(r.s.st.endpoints[id])
		if !e.Active {
			continue
		}
		e.StatusPageIDs = r.s.pageIDsOf(id)
		out = append(out, &e)
	}
	return out, nil
}

func (r *EndpointRepo) GetByID(_ context.Context, id int64) (*endpoint.Endpoint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.st.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %d: %w", id, domain.ErrNotFound)
	}
	e = copyEndpoint(e)
	e.StatusPageIDs = r.s.pageIDsOf(id)
	return &e, nil
}

func (r *EndpointRepo) UpdateHealth(_ context.Context, id int64, h endpoint.Health) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.st.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %d: %w", id, domain.ErrNotFound)
	}
	last := h.LastCheck
	e.Status, e.Uptime, e.LastCheck = h.Status, h.Uptime, &last
	r.s.st.endpoints[id] = e
	return nil
}

type CheckRepo struct{ s *Store }

var _ check.Repo = (*CheckRepo)(nil)

func (r *CheckRepo) Insert(_ context.Context, c *check.Check) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.endpoints[c.EndpointID]; !ok {
		return fmt.Errorf("endpoint %d: %w", c.EndpointID, domain.ErrNotFound)
	}
	c.ID = r.s.nextID()
	cs := append(r.s.st.checks[c.EndpointID], *c)
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].CheckedAt.Before(cs[j].CheckedAt) })
	r.s.st.checks[c.EndpointID] = cs
	return nil
}

func (r *CheckRepo) CountSince(_ context.Context, endpointID int64, since time.Time) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var up, total int
	for _, c := range r.s.st.checks[endpointID] {
		if c.CheckedAt.Before(since) {
			continue
		}
		total++
		if c.Up {
			up++
		}
	}
	return up, total, nil
}

func (r *CheckRepo) ListSince(_ context.Context, endpointID int64, since time.Time) ([]check.Check, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []check.Check
	for _, c := range r.s.st.checks[endpointID] {
		if !c.CheckedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

type StatusPageRepo struct{ s *Store }

var _ statuspage.Repo = (*StatusPageRepo)(nil)

func (r *StatusPageRepo) ListByEndpoint(_ context.Context, endpointID int64) ([]*statuspage.StatusPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*statuspage.StatusPage
	for _, id := range r.s.pageIDsOf(endpointID) {
		p := r.s.st.pages[id]
		p.EndpointIDs = slices.Clone(p.EndpointIDs)
		out = append(out, &p)
	}
	return out, nil
}

// Lock reads the page. Holding the transaction mutex already excludes other writers.
func (r *StatusPageRepo) Lock(_ context.Context, id int64) (*statuspage.StatusPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.st.pages[id]
	if !ok {
		return nil, fmt.Errorf("status page %d: %w", id, domain.ErrNotFound)
	}
	p.EndpointIDs = slices.Clone(p.EndpointIDs)
	return &p, nil
}

func (r *StatusPageRepo) UpdateStatus(_ context.Context, id int64, st statuspage.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.pages[id]
	if !ok {
		return fmt.Errorf("status page %d: %w", id, domain.ErrNotFound)
	}
	p.Status = st
	r.s.st.pages[id] = p
	return nil
}

type IncidentRepo struct{ s *Store }

var _ incident.Repo = (*IncidentRepo)(nil)

func (r *IncidentRepo) Create(_ context.Context, in *incident.Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.pages[in.StatusPageID]; !ok {
		return fmt.Errorf("status page %d: %w", in.StatusPageID, domain.ErrNotFound)
	}
	in.ID = r.s.nextID()
	r.s.st.incidents[in.ID] = copyIncident(*in)
	return nil
}

func (r *IncidentRepo) ListUnresolved(_ context.Context, statusPageID, endpointID int64) ([]*incident.Incident, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*incident.Incident
	for _, in := range r.s.st.incidents {
		if in.StatusPageID == statusPageID && !in.Resolved() && in.Affects(endpointID) {
			cp := copyIncident(in)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *IncidentRepo) Update(_ context.Context, in *incident.Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.incidents[in.ID]; !ok {
		return fmt.Errorf("incident %d: %w", in.ID, domain.ErrNotFound)
	}
	r.s.st.incidents[in.ID] = copyIncident(*in)
	return nil
}

func (r *IncidentRepo) CountUnresolved(_ context.Context, statusPageID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, in := range r.s.st.incidents {
		if in.StatusPageID == statusPageID && !in.Resolved() {
			n++
		}
	}
	return n, nil
}
