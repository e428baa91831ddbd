package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/obs/retry"
)

func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, spec TopicSpec, logger *zap.Logger) *Consumer {
	if spec.Name == "" {
		spec.Name = cfg.Topic
	}
	_ = BootstrapTopic(ctx, cfg.Brokers, spec, logger)
	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, brokers []string, spec TopicSpec, logger *zap.Logger) *Producer {
	_ = BootstrapTopic(ctx, brokers, spec, logger)
	return NewProducer(brokers, spec.Name).WithLogger(logger)
}

// BootstrapTopic retries EnsureTopic; a missing topic is logged, the writer can still auto-create it.
func BootstrapTopic(ctx context.Context, brokers []string, spec TopicSpec, logger *zap.Logger) error {
	if spec.MaxWait <= 0 {
		spec.MaxWait = 5 * time.Second
	}
	err := retry.Do(ctx, func() error {
		return EnsureTopic(ctx, brokers, spec, logger)
	}, retry.StartupPolicy("kafka.topic", logger))
	if err != nil {
		logger.Warn("topic bootstrap failed", zap.String("topic", spec.Name), zap.Error(err))
	}
	return err
}
