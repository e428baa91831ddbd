package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/engine"
	"github.com/NordCoder/Vigil/internal/domain/event"
	"github.com/NordCoder/Vigil/internal/domain/stats"
	kafkaRepo "github.com/NordCoder/Vigil/internal/repository/kafka"
	redisRepo "github.com/NordCoder/Vigil/internal/repository/redis"
	"github.com/NordCoder/Vigil/internal/services/broadcast"
)

// initSinks returns the local hub plus, when enabled, the durable Kafka sink. The
// returned closer releases the producer.
func initSinks(ctx context.Context, cfg *config.Config, hub *broadcast.Hub, logger *zap.Logger) (event.Sink, func()) {
	sinks := []event.Sink{hub}
	closer := func() {}

	if cfg.Kafka.Enable {
		prod := kafkaRepo.BootstrapProducer(ctx, cfg.Kafka.Brokers, kafkaRepo.TopicSpec{
			Name:              cfg.Kafka.Topic,
			NumPartitions:     cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		}, logger)
		sinks = append(sinks, kafkaRepo.NewEventSink(prod).WithTimeout(cfg.Kafka.PublishTimeout))
		closer = func() { _ = prod.Close() }
		logger.Info("kafka sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	return broadcast.NewBroadcaster(logger, sinks...), closer
}

// initCache connects the stats cache. A failed connection only disables caching.
func initCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stats.Cache, func()) {
	if !cfg.Redis.Enable {
		return nil, func() {}
	}
	c, err := redisRepo.NewStatsCache(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, stats cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return nil, func() {}
	}
	return c, func() { _ = c.Close() }
}
