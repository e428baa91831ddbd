package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Vigil/internal/domain/event"
)

const DefaultPublishTimeout = 2 * time.Second

// EventSink publishes events as structpb.Struct messages keyed by endpoint id, so an
// endpoint_update and the page_updates it caused land on one partition in order.
// Each write is bounded by timeout since it runs inside the endpoint pipeline.
type EventSink struct {
	p       *Producer
	timeout time.Duration
}

func NewEventSink(p *Producer) *EventSink { return &EventSink{p: p, timeout: DefaultPublishTimeout} }

func (s *EventSink) WithTimeout(d time.Duration) *EventSink {
	if d > 0 {
		s.timeout = d
	}
	return s
}

var _ event.Sink = (*EventSink)(nil)

func (s *EventSink) Publish(ctx context.Context, e event.Event) error {
	msg, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.p.PublishProto(ctx, KeyFromInt64(e.Key()), msg,
		kafka.Header{Key: headerEventType, Value: []byte(e.Type)})
}

func EncodeEvent(e event.Event) (*structpb.Struct, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("struct event: %w", err)
	}
	return st, nil
}

func DecodeEvent(st *structpb.Struct) (event.Event, error) {
	var e event.Event
	raw, err := protojson.Marshal(st)
	if err != nil {
		return e, fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// EventHandler decodes relayed events and hands them to sink.
func EventHandler(sink event.Sink) Handler {
	return ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, st *structpb.Struct) error {
			e, err := DecodeEvent(st)
			if err != nil {
				return err
			}
			return sink.Publish(ctx, e)
		},
	)
}
