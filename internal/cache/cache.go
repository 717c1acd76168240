// Package cache keeps built leaderboards in Redis so repeated dashboard loads do
// not rescan the session table. A nil *LeaderboardCache is a disabled cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/metrics"
)

const keyPrefix = "htdashboard:leaderboard:"

type LeaderboardCache struct {
	client  *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Manager
}

// New connects to the configured Redis. It returns nil when no address is set.
func New(cfg config.CacheConfig, log *zap.Logger, m *metrics.Manager) *LeaderboardCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewWithClient(client, cfg.TTL, log, m)
}

func NewWithClient(client *redis.Client, ttl time.Duration, log *zap.Logger, m *metrics.Manager) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl, log: log, metrics: m}
}

// Key identifies a leaderboard by its resolved window and at-bat threshold.
func Key(from, to time.Time, minAtBats int) string {
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, from.Format(time.DateOnly), to.Format(time.DateOnly), minAtBats)
}

func (c *LeaderboardCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns a cached leaderboard. Errors other than a miss are logged and
// reported as a miss.
func (c *LeaderboardCache) Get(ctx context.Context, key string) (analytics.Leaderboard, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Leaderboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.RecordCache(false)
		return nil, false
	}

	var lb analytics.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		c.log.Warn("Discarding corrupt leaderboard cache entry", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCache(false)
		return nil, false
	}
	c.metrics.RecordCache(true)
	return lb, true
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, lb analytics.Leaderboard) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(lb)
	if err != nil {
		c.log.Warn("Failed to encode leaderboard", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Leaderboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached leaderboard. It runs after each sync.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var cursor uint64
	var dropped int64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan leaderboard keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete leaderboard keys: %w", err)
			}
			dropped += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.log.Debug("Leaderboard cache invalidated", zap.Int64("keys", dropped))
	return nil
}

func (c *LeaderboardCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
