package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/stream"
	"github.com/NordCoder/Vigil/internal/obs"
	"github.com/NordCoder/Vigil/internal/repository/kafka"
	"github.com/NordCoder/Vigil/internal/services/broadcast"
)

func main() {
	cfgPath := flag.String("config", "config/stream.yaml", "path to stream config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// Every instance reads the whole topic from the tail, so each gets its own group.
	group := "vigil-stream-" + uuid.NewString()
	cons := kafka.BootstrapConsumer(rootCtx, &kafka.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  group,
		Topic:    cfg.Kafka.Topic,
		NoCommit: true,
		Logger:   l,
	}, kafka.TopicSpec{
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	}, l)
	defer func() { _ = cons.Close() }()

	hub := broadcast.NewHub(cfg.HTTP.Buffer, l)
	ms := obs.BootstrapMetricsServer(cfg.HTTP.MetricsAddr, func(context.Context) error { return nil }, l)
	mux := http.NewServeMux()
	broadcast.Mount(mux, hub, cfg.HTTP.Heartbeat, l)
	srv := obs.BootstrapHTTPServer(cfg.HTTP.Addr, mux, l)

	l.Info("stream relay started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", group),
	)

	if err := cons.Consume(rootCtx, kafka.EventHandler(hub)); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("consumer error", zap.Error(err))
	}

	hub.Close()
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
