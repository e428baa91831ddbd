package transition

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/incident"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
	"github.com/NordCoder/Vigil/internal/domain/tx"
	"github.com/NordCoder/Vigil/internal/obs"
)

type PageChange struct {
	PageID int64
	Slug   string
	Status statuspage.Status
}

type Outcome struct {
	Changed bool
	Pages   []PageChange
	Failed  int
	Err     error
}

var (
	mOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_incidents_opened_total", Help: "Incidents created on up->down",
	})
	mResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_incidents_resolved_total", Help: "Incidents resolved on down->up",
	})
	mPageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_page_transition_failures_total", Help: "Per-page transition failures",
	})
)

type Engine struct {
	pages     statuspage.Repo
	incidents incident.Repo
	tx        tx.Transactor
	clock     clock.Clock
	log       *zap.Logger
}

func New(pages statuspage.Repo, incidents incident.Repo, t tx.Transactor, clk clock.Clock, log *zap.Logger) *Engine {
	return &Engine{
		pages:     pages,
		incidents: incidents,
		tx:        t,
		clock:     clk,
		log:       log.With(zap.String("component", "transition")),
	}
}

// Apply reacts to one status observation. It never writes the endpoint itself and
// returns page changes for the caller to publish after the endpoint update.
func (e *Engine) Apply(ctx context.Context, ep *endpoint.Endpoint, previous, next endpoint.Status) Outcome {
	if previous == next {
		return Outcome{}
	}
	out := Outcome{Changed: true}

	var step func(context.Context, *endpoint.Endpoint, int64) (*PageChange, error)
	switch next {
	case endpoint.StatusDown:
		step = e.openPage
	case endpoint.StatusUp:
		step = e.clearPage
	default:
		out.Err = fmt.Errorf("unknown status %q", next)
		return out
	}

	pages, err := e.pages.ListByEndpoint(ctx, ep.ID)
	if err != nil {
		out.Failed = 1
		out.Err = fmt.Errorf("list status pages: %w", err)
		mPageFailures.Inc()
		return out
	}

	log := obs.WithTrace(ctx, e.log).With(zap.Int64("endpoint_id", ep.ID), zap.String("to", string(next)))
	var errs []error
	for _, p := range pages {
		var change *PageChange
		err := e.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			change, err = step(ctx, ep, p.ID)
			return err
		})
		if err != nil {
			out.Failed++
			mPageFailures.Inc()
			errs = append(errs, fmt.Errorf("page %d: %w", p.ID, err))
			log.Error("page transition failed", zap.Int64("page_id", p.ID), zap.Error(err))
			continue
		}
		if change != nil {
			out.Pages = append(out.Pages, *change)
		}
	}
	out.Err = errors.Join(errs...)
	return out
}

// openPage makes sure an unresolved incident references the endpoint and marks the page as outage.
func (e *Engine) openPage(ctx context.Context, ep *endpoint.Endpoint, pageID int64) (*PageChange, error) {
	page, err := e.pages.Lock(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("lock page: %w", err)
	}
	open, err := e.incidents.ListUnresolved(ctx, pageID, ep.ID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	if len(open) == 0 {
		now := e.clock.Now()
		in := &incident.Incident{
			StatusPageID:       pageID,
			Title:              fmt.Sprintf("%s is down", ep.Name),
			Status:             incident.StatusInvestigating,
			Impact:             incident.ImpactCritical,
			StartedAt:          now,
			UpdatedAt:          now,
			AffectedComponents: []int64{ep.ID},
			Timeline: []incident.Update{{
				At:      now,
				Status:  incident.StatusInvestigating,
				Message: fmt.Sprintf("Automated monitoring detected that %s is not responding.", ep.Name),
			}},
		}
		if err := e.incidents.Create(ctx, in); err != nil {
			return nil, fmt.Errorf("create incident: %w", err)
		}
		mOpened.Inc()
	}

	if page.Status != statuspage.StatusOutage {
		if err := e.pages.UpdateStatus(ctx, pageID, statuspage.StatusOutage); err != nil {
			return nil, fmt.Errorf("update page status: %w", err)
		}
	}
	return &PageChange{PageID: pageID, Slug: page.Slug, Status: statuspage.StatusOutage}, nil
}

// clearPage resolves the endpoint's incidents and returns the page to operational once nothing is open.
func (e *Engine) clearPage(ctx context.Context, ep *endpoint.Endpoint, pageID int64) (*PageChange, error) {
	page, err := e.pages.Lock(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("lock page: %w", err)
	}
	open, err := e.incidents.ListUnresolved(ctx, pageID, ep.ID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	now := e.clock.Now()
	for _, in := range open {
		if !in.Resolve(now, fmt.Sprintf("%s is responding again.", ep.Name)) {
			continue
		}
		if err := e.incidents.Update(ctx, in); err != nil {
			return nil, fmt.Errorf("resolve incident %d: %w", in.ID, err)
		}
		mResolved.Inc()
	}

	remaining, err := e.incidents.CountUnresolved(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}
	if remaining > 0 || page.Status == statuspage.StatusOperational {
		return nil, nil
	}
	if err := e.pages.UpdateStatus(ctx, pageID, statuspage.StatusOperational); err != nil {
		return nil, fmt.Errorf("update page status: %w", err)
	}
	return &PageChange{PageID: pageID, Slug: page.Slug, Status: statuspage.StatusOperational}, nil
}
