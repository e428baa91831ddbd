package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/engine"
)

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
)

var states = []State{StateIdle, StateRunning, StateSleeping}

var (
	mListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scheduler_endpoints_listed_total", Help: "Active endpoints listed",
	})
	mDue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scheduler_endpoints_due_total", Help: "Endpoints selected as due",
	})
	mSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scheduler_endpoints_succeeded_total", Help: "Endpoint passes persisted",
	})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scheduler_endpoints_failed_total", Help: "Endpoint passes that failed",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scheduler_errors_total", Help: "Failed passes",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "vigil_scheduler_pass_duration_seconds", Help: "Scheduler pass duration",
		Buckets: prometheus.DefBuckets,
	})
	mState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vigil_scheduler_state", Help: "1 for the current scheduler state",
	}, []string{"state"})
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SchedCfg

	state atomic.Value
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SchedCfg) *Runner {
	r := &Runner{Log: log.With(zap.String("component", "scheduler")), UC: uc, Cfg: cfg}
	r.setState(StateIdle)
	return r
}

func (r *Runner) State() State { return r.state.Load().(State) }

func (r *Runner) setState(s State) {
	r.state.Store(s)
	for _, st := range states {
		v := 0.0
		if st == s {
			v = 1
		}
		mState.WithLabelValues(string(st)).Set(v)
	}
}

// tick runs one pass on a context detached from cancellation so a stop request lets it finish.
func (r *Runner) tick(ctx context.Context) (PassResult, error) {
	r.setState(StateRunning)
	start := time.Now()

	res, err := r.UC.Tick(context.WithoutCancel(ctx))
	if err != nil {
		mErr.Inc()
		r.Log.Warn("pass failed", zap.Error(err))
	}
	mListed.Add(float64(res.Listed))
	mDue.Add(float64(res.Due))
	mSucceeded.Add(float64(res.Succeeded))
	mFailed.Add(float64(res.Failed))
	if res.Due > 0 {
		r.Log.Debug("pass done",
			zap.Int("listed", res.Listed),
			zap.Int("due", res.Due),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
			zap.Int("page_failures", res.PageFailures),
		)
	}
	mLoopDur.Observe(time.Since(start).Seconds())
	return res, err
}

// RunOnce executes a single pass, for external triggers.
func (r *Runner) RunOnce(ctx context.Context) (PassResult, error) {
	defer r.setState(StateIdle)
	return r.tick(ctx)
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()
	defer r.setState(StateIdle)

	_, _ = r.tick(ctx)

	for {
		r.setState(StateSleeping)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = r.tick(ctx)
		}
	}
}
