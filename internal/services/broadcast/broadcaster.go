package broadcast

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/event"
	"github.com/NordCoder/Vigil/internal/obs"
)

var mSinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_broadcast_failures_total", Help: "Sink publish failures by event type",
}, []string{"type"})

// Broadcaster fans each event out to every sink. Delivery is best effort: sink
// errors are logged and counted, never returned.
type Broadcaster struct {
	sinks []event.Sink
	log   *zap.Logger
}

var _ event.Sink = (*Broadcaster)(nil)

func NewBroadcaster(log *zap.Logger, sinks ...event.Sink) *Broadcaster {
	return &Broadcaster{sinks: sinks, log: log.With(zap.String("component", "broadcaster"))}
}

func (b *Broadcaster) Publish(ctx context.Context, e event.Event) error {
	for _, s := range b.sinks {
		if err := s.Publish(ctx, e); err != nil {
			mSinkFailures.WithLabelValues(string(e.Type)).Inc()
			obs.WithTrace(ctx, b.log).Warn("publish failed",
				zap.String("type", string(e.Type)), zap.Int64("key", e.Key()), zap.Error(err))
		}
	}
	return nil
}
