// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/watchlist/internal/watchlist"
)

const (
	// DefaultKey holds the JSON encoded current snapshot.
	DefaultKey = "watchlist:snapshot"
	// DefaultChannel receives the run id of every published snapshot.
	DefaultChannel = "watchlist:updated"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int
	Key      string // defaults to DefaultKey
	Channel  string // defaults to DefaultChannel
}

// Redis shares snapshots with other processes through a Redis key and
// announces each publish on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	key     string
	channel string
	logger  zerolog.Logger
	stats   struct {
		publishes atomic.Int64
		hits      atomic.Int64
		misses    atomic.Int64
	}
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis snapshot store")

	return newRedisWithClient(client, cfg, logger), nil
}

func newRedisWithClient(client *redis.Client, cfg RedisConfig, logger zerolog.Logger) *Redis {
	r := &Redis{
		client:  client,
		key:     cfg.Key,
		channel: cfg.Channel,
		logger:  logger,
	}
	if r.key == "" {
		r.key = DefaultKey
	}
	if r.channel == "" {
		r.channel = DefaultChannel
	}
	return r
}

// Publish stores the snapshot and notifies subscribers in one pipeline.
func (r *Redis) Publish(ctx context.Context, snap *watchlist.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key, data, 0)
		p.Publish(ctx, r.channel, snap.RunID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	r.stats.publishes.Add(1)
	return nil
}

// Latest reads the snapshot last published by any process.
func (r *Redis) Latest(ctx context.Context) (*watchlist.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.stats.misses.Add(1)
		return nil, false
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("redis get failed")
		r.stats.misses.Add(1)
		return nil, false
	}

	var snap watchlist.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("json unmarshal failed")
		r.stats.misses.Add(1)
		return nil, false
	}
	r.stats.hits.Add(1)
	return &snap, true
}

// Subscribe returns a subscription to publish notifications. The caller
// must close it.
func (r *Redis) Subscribe(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, r.channel)
}

// Stats returns store statistics.
func (r *Redis) Stats() Stats {
	return Stats{
		Publishes: r.stats.publishes.Load(),
		Hits:      r.stats.hits.Load(),
		Misses:    r.stats.misses.Load(),
	}
}

// HealthCheck pings Redis.
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
