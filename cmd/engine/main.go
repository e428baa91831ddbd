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

	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/engine"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/obs"
	"github.com/NordCoder/Vigil/internal/services/aggregator"
	"github.com/NordCoder/Vigil/internal/services/broadcast"
	"github.com/NordCoder/Vigil/internal/services/prober"
	"github.com/NordCoder/Vigil/internal/services/recorder"
	"github.com/NordCoder/Vigil/internal/services/scheduler"
	"github.com/NordCoder/Vigil/internal/services/statsapi"
	"github.com/NordCoder/Vigil/internal/services/transition"
)

func main() {
	cfgPath := flag.String("config", "config/engine.yaml", "path to engine config")
	flag.Parse()

	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting engine",
		zap.String("db_driver", cfg.DB.Driver),
		zap.Duration("tick", cfg.Sched.Tick),
		zap.Int("workers", cfg.Sched.Workers),
		zap.Bool("kafka", cfg.Kafka.Enable),
		zap.Bool("redis", cfg.Redis.Enable),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// storage
	st, err := initStorage(ctx, cfg, l)
	if err != nil {
		l.Fatal("storage init", zap.Error(err))
	}
	defer st.close()

	// cache and sinks
	cache, closeCache := initCache(ctx, cfg, l)
	defer closeCache()
	hub := broadcast.NewHub(cfg.HTTP.Buffer, l)
	sink, closeSinks := initSinks(ctx, cfg, hub, l)
	defer closeSinks()

	// wiring
	clk := clock.System{}
	agg := aggregator.New(st.checks, clk, cache, cfg.Stats, l)
	pipeline := &scheduler.Pipeline{
		Prober:     prober.New(prober.NewHTTPClient(cfg.Probe), cfg.Probe),
		Recorder:   recorder.New(st.checks),
		Aggregator: agg,
		Endpoints:  st.endpoints,
		Transition: transition.New(st.pages, st.incidents, st.tx, clk, l),
		Tx:         st.tx,
		Sink:       sink,
		Clock:      clk,
		Log:        l,
	}
	uc := scheduler.NewUC(st.endpoints, pipeline, clk, cfg.Sched.Workers, l)
	runner := scheduler.New(l, uc, &cfg.Sched)

	// servers
	ms := obs.BootstrapMetricsServer(cfg.HTTP.MetricsAddr, st.ping, l)
	mux := http.NewServeMux()
	broadcast.Mount(mux, hub, cfg.HTTP.Heartbeat, l)
	statsapi.NewServer(l, agg, st.endpoints).Mount(mux)
	srv := obs.BootstrapHTTPServer(cfg.HTTP.Addr, mux, l)

	// run
	if cfg.Sched.Once {
		res, err := runner.RunOnce(ctx)
		if err != nil {
			l.Error("pass failed", zap.Error(err))
		}
		l.Info("pass done",
			zap.Int("listed", res.Listed),
			zap.Int("due", res.Due),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
			zap.Int("page_failures", res.PageFailures),
		)
	} else {
		errCh := make(chan error, 1)
		go func() { errCh <- runner.Run(ctx) }()
		l.Info("engine started")

		// Run returns only after the in-flight pass has finished.
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	// graceful shutdown
	hub.Close()
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
