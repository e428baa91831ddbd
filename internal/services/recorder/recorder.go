package recorder

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/check"
)

var (
	mRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_checks_recorded_total", Help: "Checks appended",
	})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_checks_record_failed_total", Help: "Check appends that failed",
	})
)

type Recorder struct {
	checks check.Repo
}

func New(checks check.Repo) *Recorder { return &Recorder{checks: checks} }

// Record appends one observation and returns it with its id.
func (r *Recorder) Record(ctx context.Context, c check.Check) (check.Check, error) {
	if err := validate(c); err != nil {
		mFailed.Inc()
		return c, err
	}
	c.CheckedAt = c.CheckedAt.UTC()
	if err := r.checks.Insert(ctx, &c); err != nil {
		mFailed.Inc()
		return c, fmt.Errorf("record check for endpoint %d: %w", c.EndpointID, err)
	}
	mRecorded.Inc()
	return c, nil
}

func validate(c check.Check) error {
	switch {
	case c.EndpointID <= 0:
		return fmt.Errorf("endpoint id %d: %w", c.EndpointID, domain.ErrInvalid)
	case c.LatencyMs < 0:
		return fmt.Errorf("latency %d: %w", c.LatencyMs, domain.ErrInvalid)
	case c.CheckedAt.IsZero():
		return fmt.Errorf("missing checked_at: %w", domain.ErrInvalid)
	}
	return nil
}
