package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/clock"
	"github.com/NordCoder/Vigil/internal/domain/stats"
)

const (
	DefaultUptimeWindow = 90 * day
	DefaultHistoryDays  = 30
)

// HistoryWindows are the retention windows offered by the plans, ascending.
var HistoryWindows = []int{3, 30, 90, 365}

// MaxHistoryDays is the longest retention window.
const MaxHistoryDays = 365

// ClampHistory maps a requested history length onto the smallest plan window that covers it.
func ClampHistory(days int) int {
	if days <= 0 {
		return DefaultHistoryDays
	}
	for _, w := range HistoryWindows {
		if days <= w {
			return w
		}
	}
	return HistoryWindows[len(HistoryWindows)-1]
}

type Config struct {
	UptimeWindow time.Duration `mapstructure:"uptime_window"`
	HistoryDays  int           `mapstructure:"history_days"`
}

var mCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_stats_cache_total", Help: "Stats cache lookups by result",
}, []string{"result"})

type Aggregator struct {
	checks check.Repo
	clock  clock.Clock
	cache  stats.Cache
	log    *zap.Logger
	cfg    Config
}

// New builds an Aggregator. cache may be nil.
func New(checks check.Repo, clk clock.Clock, cache stats.Cache, cfg Config, log *zap.Logger) *Aggregator {
	if cfg.UptimeWindow <= 0 {
		cfg.UptimeWindow = DefaultUptimeWindow
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	return &Aggregator{
		checks: checks,
		clock:  clk,
		cache:  cache,
		log:    log.With(zap.String("component", "aggregator")),
		cfg:    cfg,
	}
}

// RollingUptime recomputes availability from the check log over window (the configured default when <= 0).
func (a *Aggregator) RollingUptime(ctx context.Context, endpointID int64, window time.Duration) (float64, error) {
	if window <= 0 {
		window = a.cfg.UptimeWindow
	}
	up, total, err := a.checks.CountSince(ctx, endpointID, a.clock.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("count checks: %w", err)
	}
	return Uptime(up, total), nil
}

func (a *Aggregator) Stats(ctx context.Context, endpointID int64, historyDays int) (*stats.Stats, error) {
	if historyDays <= 0 {
		historyDays = a.cfg.HistoryDays
	}

	cacheable := false
	var gen int64
	if a.cache != nil {
		s, ok, err := a.cache.Get(ctx, endpointID, historyDays)
		switch {
		case err != nil:
			mCache.WithLabelValues("error").Inc()
			a.log.Warn("stats cache get", zap.Int64("endpoint_id", endpointID), zap.Error(err))
		case ok:
			mCache.WithLabelValues("hit").Inc()
			return s, nil
		default:
			mCache.WithLabelValues("miss").Inc()
		}

		if gen, err = a.cache.Generation(ctx, endpointID); err != nil {
			a.log.Warn("stats cache generation", zap.Int64("endpoint_id", endpointID), zap.Error(err))
		} else {
			cacheable = true
		}
	}

	now := a.clock.Now().UTC()
	since := dayStart(now).Add(-time.Duration(historyDays-1) * day)
	if s := now.Add(-statusClassRange); s.Before(since) {
		since = s
	}
	checks, err := a.checks.ListSince(ctx, endpointID, since)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	s := &stats.Stats{
		EndpointID:    endpointID,
		GeneratedAt:   now,
		HistoryDays:   historyDays,
		HourlyLatency: hourlyLatency(checks, now),
		DailyUptime:   dailyUptime(checks, now, historyDays),
		StatusClasses: statusClasses(checks, now),
		HourlyChecks:  hourlyChecks(checks, now),
		ResponseTimes: responseTimes(checks, now),
	}

	if cacheable {
		switch err := a.cache.Set(ctx, s, gen); {
		case errors.Is(err, stats.ErrStale):
			mCache.WithLabelValues("stale").Inc()
		case err != nil:
			a.log.Warn("stats cache set", zap.Int64("endpoint_id", endpointID), zap.Error(err))
		}
	}
	return s, nil
}

// Invalidate drops cached views after a new check was appended. Failures only log.
func (a *Aggregator) Invalidate(ctx context.Context, endpointID int64) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, endpointID); err != nil {
		a.log.Warn("stats cache invalidate", zap.Int64("endpoint_id", endpointID), zap.Error(err))
	}
}
