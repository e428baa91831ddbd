package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/obs"
)

type Processor interface {
	Process(ctx context.Context, ep *endpoint.Endpoint) (Report, error)
}

type PassResult struct {
	Listed       int
	Due          int
	Succeeded    int
	Failed       int
	PageFailures int
}

type Usecase struct {
	Endpoints endpoint.Repo
	Pipeline  Processor
	Clock     clock.Clock
	Workers   int
	Log       *zap.Logger
}

func NewUC(endpoints endpoint.Repo, pipeline Processor, clk clock.Clock, workers int, log *zap.Logger) *Usecase {
	if workers <= 0 {
		workers = 1
	}
	return &Usecase{Endpoints: endpoints, Pipeline: pipeline, Clock: clk, Workers: workers, Log: log}
}

// Tick runs one pass over all due endpoints. Only a failed listing fails the pass.
func (u *Usecase) Tick(ctx context.Context) (PassResult, error) {
	tr := otel.Tracer("scheduler.uc")
	ctx, span := tr.Start(ctx, "scheduler.tick",
		trace.WithAttributes(attribute.Int("pool.workers", u.Workers)),
	)
	defer span.End()

	var res PassResult
	eps, err := u.Endpoints.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return res, fmt.Errorf("list active endpoints: %w", err)
	}
	res.Listed = len(eps)

	due := selectDue(eps, u.Clock.Now())
	res.Due = len(due)
	span.SetAttributes(
		attribute.Int("pass.listed", res.Listed),
		attribute.Int("pass.due", res.Due),
	)
	if len(due) == 0 {
		return res, nil
	}

	log := obs.WithTrace(ctx, u.Log)
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(u.Workers)
	for _, ep := range due {
		p.Go(func() {
			rep, err := u.Pipeline.Process(ctx, ep)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				log.Error("endpoint pass failed",
					zap.Int64("endpoint_id", ep.ID),
					zap.String("url", ep.URL),
					zap.Error(err),
				)
				return
			}
			res.Succeeded++
			res.PageFailures += rep.PageFailures
			if rep.PageErr != nil {
				log.Warn("page transitions failed",
					zap.Int64("endpoint_id", ep.ID),
					zap.String("url", ep.URL),
					zap.Int("pages", rep.PageFailures),
					zap.Error(rep.PageErr),
				)
			}
		})
	}
	p.Wait()

	span.SetAttributes(
		attribute.Int("pass.succeeded", res.Succeeded),
		attribute.Int("pass.failed", res.Failed),
		attribute.Int("pass.page_failures", res.PageFailures),
	)
	return res, nil
}
