package obs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func BootstrapMetricsServer(addr string, health func(context.Context) error, l *zap.Logger) *http.Server {
	ms := createMetricsServer(addr, health)
	serve(ms, "metrics", l)
	return ms
}

// BootstrapHTTPServer serves a public handler. WriteTimeout stays unset so SSE and WebSocket streams are not cut.
func BootstrapHTTPServer(addr string, h http.Handler, l *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	serve(srv, "http", l)
	return srv
}

func serve(srv *http.Server, name string, l *zap.Logger) {
	go func() {
		l.Info(name+" listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(name+" server error", zap.Error(err))
		}
	}()
}

func createMetricsServer(addr string, health func(context.Context) error) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      metricsMux(health),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func metricsMux(health func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := health(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
