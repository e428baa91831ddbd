package obs

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

// NewLogger builds the process logger and installs it as zap's global, which
// components fall back to when no logger is injected. Unknown levels become info.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	l, err := cfg.Build(zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
		zap.String("version", c.Ver),
	))
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// WithTrace tags log with the trace and span ids carried by ctx, if any.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		log = zap.L()
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	)
}
