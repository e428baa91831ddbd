// Package retry runs startup dependency calls with capped exponential backoff.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

// ExpoJitter waits Base*2^attempt, capped at Max, scaled by a random factor in [1-Jitter, 1+Jitter].
type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	d := float64(b.Base) * math.Pow(2, float64(max(attempt, 0)))
	if b.Max > 0 {
		d = math.Min(d, float64(b.Max))
	}
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return time.Duration(d)
}

type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

func (p Policy) name() string {
	if p.Name == "" {
		return "default"
	}
	return p.Name
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return err != nil
	}
	return p.Retryable(err)
}

var (
	mAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_retry_attempts_total", Help: "Attempts made by retry.Do, including the last one",
	}, []string{"name"})
	mExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_retry_exhausted_total", Help: "Operations that gave up after retries",
	}, []string{"name"})
	mDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigil_retry_duration_seconds",
		Help:    "Wall time spent inside retry.Do",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})
)

// Do calls fn until it succeeds, returns a non-retryable error, runs out of attempts
// or ctx ends.
func Do(ctx context.Context, fn func() error, p Policy) (err error) {
	name := p.name()
	start := time.Now()
	defer func() { mDuration.WithLabelValues(name).Observe(time.Since(start).Seconds()) }()

	attempts := max(p.Attempts, 1)
	backoff := p.Backoff
	if backoff == nil {
		backoff = ExpoJitter{Base: 100 * time.Millisecond, Max: 5 * time.Second}
	}
	span := trace.SpanFromContext(ctx)

	for i := range attempts {
		mAttempts.WithLabelValues(name).Inc()
		if err = fn(); err == nil {
			return nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		span.AddEvent("retry.attempt", trace.WithAttributes(
			attribute.String("retry.name", name),
			attribute.Int("retry.attempt", i+1),
		))
		if !p.retryable(err) || i == attempts-1 {
			break
		}
		if werr := wait(ctx, backoff.Next(i)); werr != nil {
			return werr
		}
	}

	mExhausted.WithLabelValues(name).Inc()
	if p.OnExhaust != nil {
		p.OnExhaust(err)
	}
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
