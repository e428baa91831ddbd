package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/NordCoder/Vigil/internal/obs/retry"
)

type Handler func(ctx context.Context, key, value []byte) error

// ProtoHandler decodes each value into a fresh M before calling handle.
func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return fmt.Errorf("unmarshal %T: %w", msg, err)
		}
		return handle(ctx, key, msg)
	}
}

var (
	mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_kafka_consumed_total", Help: "Messages handled by topic",
	}, []string{"topic"})
	mHandlerErr = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_kafka_handler_errors_total", Help: "Messages whose handler failed, by topic",
	}, []string{"topic"})
)

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	// NoCommit skips offset commits; the relay only ever wants live events.
	NoCommit bool
	Logger   *zap.Logger
}

type Consumer struct {
	reader  *kafka.Reader
	log     *zap.Logger
	cfg     *ConsumerConfig
	backoff retry.Backoff
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           500 * time.Millisecond,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	c := &Consumer{
		reader:  r,
		cfg:     cfg,
		backoff: retry.ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.1},
	}
	return c.WithLogger(cfg.Logger)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	c.log = l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", c.cfg.Topic),
		zap.String("group", c.cfg.GroupID),
	)
	return c
}

// Consume feeds every fetched message to h until ctx ends. Fetch failures back off;
// handler failures are logged and the message is skipped.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")
	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			wait := c.backoff.Next(failures)
			failures++
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF, retrying", zap.Duration("backoff", wait))
			} else {
				c.log.Warn("fetch failed, retrying", zap.Duration("backoff", wait), zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		c.handle(ctx, msg, h)

		if c.cfg.NoCommit {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, h Handler) {
	hs := msg.Headers
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{&hs})
	ctx, span := otel.Tracer("kafka.consumer").Start(ctx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	mConsumed.WithLabelValues(msg.Topic).Inc()
	if err := h(ctx, msg.Key, msg.Value); err != nil {
		mHandlerErr.WithLabelValues(msg.Topic).Inc()
		span.RecordError(err)
		c.log.Error("handler error",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("event_type", headerCarrier{&hs}.Get(headerEventType)),
			zap.Error(err),
		)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
