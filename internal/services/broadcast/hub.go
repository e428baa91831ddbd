package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/event"
)

const DefaultBuffer = 64

var (
	mSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_hub_subscribers", Help: "Connected push subscribers",
	})
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_hub_delivered_total", Help: "Events queued to subscribers",
	})
	mDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_hub_dropped_total", Help: "Events dropped because a subscriber buffer was full",
	})
)

type Subscriber struct {
	ID string
	ch chan event.Event
}

func (s *Subscriber) Events() <-chan event.Event { return s.ch }

// Hub is the in-process registry of live subscribers. Delivery is at most once: a
// full subscriber buffer drops the event for that subscriber only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	buffer int
	log    *zap.Logger
}

var _ event.Sink = (*Hub)(nil)

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   map[string]*Subscriber{},
		buffer: buffer,
		log:    log.With(zap.String("component", "hub")),
	}
}

// Subscribe registers a subscriber whose first event is the connected acknowledgement.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ID: uuid.NewString(), ch: make(chan event.Event, h.buffer)}
	s.ch <- event.Connected()

	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()

	mSubscribers.Inc()
	h.log.Debug("subscriber connected", zap.String("subscriber", s.ID))
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.ID]
	if ok {
		delete(h.subs, s.ID)
		close(s.ch)
	}
	h.mu.Unlock()

	if ok {
		mSubscribers.Dec()
		h.log.Debug("subscriber disconnected", zap.String("subscriber", s.ID))
	}
}

func (h *Hub) Publish(_ context.Context, e event.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.ch <- e:
			mDelivered.Inc()
		default:
			mDropped.Inc()
			h.log.Debug("subscriber buffer full, event dropped",
				zap.String("subscriber", s.ID), zap.String("type", string(e.Type)))
		}
	}
	return nil
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
		mSubscribers.Dec()
	}
}
