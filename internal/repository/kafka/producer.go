package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

var (
	mPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_kafka_published_total", Help: "Messages written by topic",
	}, []string{"topic"})
	mPublishFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_kafka_publish_failed_total", Help: "Failed writes by topic",
	}, []string{"topic"})
)

// Producer writes keyed messages synchronously; the hash balancer keeps one key on one partition.
type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           2 * time.Second,
			MaxAttempts:            3,
			WriteBackoffMax:        250 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "kafka.producer"), zap.String("topic", p.topic))
	return &cp
}

// PublishProto marshals m and writes it with the trace context and extra headers attached.
func (p *Producer) PublishProto(ctx context.Context, key []byte, m proto.Message, headers ...kafka.Header) error {
	value, err := proto.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", m, err)
	}

	ctx, span := otel.Tracer("kafka.producer").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
			semconv.MessagingKafkaMessageKey(string(key)),
		),
	)
	defer span.End()

	hs := append([]kafka.Header(nil), headers...)
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{&hs})

	if err := p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Headers: hs}); err != nil {
		mPublishFailed.WithLabelValues(p.topic).Inc()
		span.RecordError(err)
		p.log.Warn("kafka write failed", zap.ByteString("key", key), zap.Error(err))
		return fmt.Errorf("write %s: %w", p.topic, err)
	}
	mPublished.WithLabelValues(p.topic).Inc()
	p.log.Debug("message published", zap.ByteString("key", key), zap.Int("value_len", len(value)))
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func KeyFromInt64(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
