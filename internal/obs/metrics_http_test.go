package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHealthz(t *testing.T) {
	var healthErr error
	mux := metricsMux(func(context.Context) error { return healthErr })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthErr = errors.New("db down")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "nonsense", App: "vigil", Env: "test"})
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
	assert.False(t, l.Core().Enabled(-1))
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	WithTrace(context.Background(), l).Info("plain")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	WithTrace(trace.ContextWithSpanContext(context.Background(), sc), l).Info("traced")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].Context)
	assert.Equal(t, sc.TraceID().String(), entries[1].ContextMap()["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entries[1].ContextMap()["span_id"])
}
