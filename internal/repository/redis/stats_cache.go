package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/stats"
)

type Config struct {
	Enable   bool          `mapstructure:"enable"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

func (c Config) Options() *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

// StatsCache keeps one hash per endpoint, one field per history window, so a
// single DEL invalidates every view of the endpoint. A counter next to the hash
// counts invalidations and guards Set against writing back a stale view.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ stats.Cache = (*StatsCache)(nil)

func NewStatsCache(ctx context.Context, cfg Config, log *zap.Logger) (*StatsCache, error) {
	client := redis.NewClient(cfg.Options())

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return NewStatsCacheFromClient(client, cfg), nil
}

func NewStatsCacheFromClient(client *redis.Client, cfg Config) *StatsCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "vigil:stats:"
	}
	return &StatsCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *StatsCache) key(endpointID int64) string {
	return c.prefix + strconv.FormatInt(endpointID, 10)
}

func (c *StatsCache) Get(ctx context.Context, endpointID int64, historyDays int) (*stats.Stats, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(endpointID), strconv.Itoa(historyDays)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	var s stats.Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode stats: %w", err)
	}
	return &s, true, nil
}

func (c *StatsCache) genKey(endpointID int64) string {
	return c.key(endpointID) + ":gen"
}

func (c *StatsCache) Generation(ctx context.Context, endpointID int64) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(endpointID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// Set writes s under WATCH of the generation key, so an Invalidate that lands
// between the read of the check log and this write wins.
func (c *StatsCache) Set(ctx context.Context, s *stats.Stats, gen int64) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	key, genKey := c.key(s.EndpointID), c.genKey(s.EndpointID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return fmt.Errorf("redis get generation: %w", err)
		}
		if cur != gen {
			return stats.ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, strconv.Itoa(s.HistoryDays), data)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return stats.ErrStale
	case errors.Is(err, stats.ErrStale):
		return err
	case err != nil:
		return fmt.Errorf("redis set stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, endpointID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(endpointID))
		pipe.Del(ctx, c.key(endpointID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

func (c *StatsCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *StatsCache) Close() error { return c.client.Close() }
