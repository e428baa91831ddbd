package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/event"
	"github.com/NordCoder/Vigil/internal/domain/tx"
	"github.com/NordCoder/Vigil/internal/obs"
	"github.com/NordCoder/Vigil/internal/services/prober"
	"github.com/NordCoder/Vigil/internal/services/transition"
)

type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) prober.Result
}

type Recorder interface {
	Record(ctx context.Context, c check.Check) (check.Check, error)
}

type Aggregator interface {
	RollingUptime(ctx context.Context, endpointID int64, window time.Duration) (float64, error)
	Invalidate(ctx context.Context, endpointID int64)
}

type Transitioner interface {
	Apply(ctx context.Context, ep *endpoint.Endpoint, previous, next endpoint.Status) transition.Outcome
}

// Report describes one completed endpoint pass.
type Report struct {
	EndpointID   int64
	Check        check.Check
	Previous     endpoint.Status
	Status       endpoint.Status
	Uptime       float64
	Pages        []transition.PageChange
	PageFailures int
	PageErr      error
}

type Pipeline struct {
	Prober     Prober
	Recorder   Recorder
	Aggregator Aggregator
	Endpoints  endpoint.Repo
	Transition Transitioner
	Tx         tx.Transactor
	Sink       event.Sink
	Clock      clock.Clock
	Log        *zap.Logger
}

// Process runs probe, persistence, transition and broadcast for one endpoint.
// Only persistence failures are returned; page failures are carried in the report.
func (p *Pipeline) Process(ctx context.Context, ep *endpoint.Endpoint) (Report, error) {
	tr := otel.Tracer("scheduler.pipeline")
	ctx, span := tr.Start(ctx, "scheduler.process",
		trace.WithAttributes(
			attribute.Int64("endpoint.id", ep.ID),
			attribute.String("endpoint.url", ep.URL),
		),
	)
	defer span.End()

	previous := ep.Status
	if previous == "" {
		previous = endpoint.StatusUp
	}
	rep := Report{EndpointID: ep.ID, Previous: previous}

	checkedAt := p.Clock.Now()
	res := p.Prober.Probe(ctx, ep.URL, ep.Timeout)
	rep.Status = endpoint.StatusOf(res.Up)
	span.SetAttributes(
		attribute.Bool("probe.up", res.Up),
		attribute.Int("probe.status_code", res.StatusCode),
	)

	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := p.Recorder.Record(ctx, check.Check{
			EndpointID: ep.ID,
			CheckedAt:  checkedAt,
			Up:         res.Up,
			LatencyMs:  res.LatencyMs,
			StatusCode: res.StatusCode,
		})
		if err != nil {
			return err
		}
		rep.Check = c

		uptime, err := p.Aggregator.RollingUptime(ctx, ep.ID, 0)
		if err != nil {
			return err
		}
		rep.Uptime = uptime

		return p.Endpoints.UpdateHealth(ctx, ep.ID, endpoint.Health{
			Status:    rep.Status,
			Uptime:    uptime,
			LastCheck: c.CheckedAt,
		})
	})
	if err != nil {
		span.RecordError(err)
		return rep, fmt.Errorf("persist endpoint %d: %w", ep.ID, err)
	}

	p.Aggregator.Invalidate(ctx, ep.ID)

	out := p.Transition.Apply(ctx, ep, previous, rep.Status)
	rep.Pages, rep.PageFailures, rep.PageErr = out.Pages, out.Failed, out.Err

	p.publish(ctx, event.NewEndpointUpdate(event.EndpointUpdate{
		EndpointID:     ep.ID,
		Name:           ep.Name,
		URL:            ep.URL,
		Status:         rep.Status,
		PreviousStatus: previous,
		Uptime:         rep.Uptime,
		LatencyMs:      res.LatencyMs,
		CheckedAt:      rep.Check.CheckedAt,
		StatusChanged:  out.Changed,
	}))
	for _, pc := range out.Pages {
		p.publish(ctx, event.NewPageUpdate(event.PageUpdate{
			PageID:     pc.PageID,
			Slug:       pc.Slug,
			Status:     pc.Status,
			EndpointID: ep.ID,
		}))
	}
	return rep, nil
}

func (p *Pipeline) publish(ctx context.Context, e event.Event) {
	if p.Sink == nil {
		return
	}
	if err := p.Sink.Publish(ctx, e); err != nil {
		obs.WithTrace(ctx, p.Log).Warn("publish event",
			zap.String("type", string(e.Type)),
			zap.Int64("endpoint_id", e.Key()),
			zap.Error(err),
		)
	}
}
