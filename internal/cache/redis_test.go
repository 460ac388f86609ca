// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a snapshot store backed by miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newRedisWithClient(client, RedisConfig{}, zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedis_PublishLatest(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	_, ok := store.Latest(ctx)
	assert.False(t, ok)

	snap := snapshot("run-1", 90, 40)
	require.NoError(t, store.Publish(ctx, snap))
	assert.True(t, mr.Exists(DefaultKey))

	got, ok := store.Latest(ctx)
	require.True(t, ok)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, Stats{Publishes: 1, Hits: 1, Misses: 1}, store.Stats())
}

func TestRedis_PublishNotifiesSubscribers(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	sub := store.Subscribe(ctx)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Publish(ctx, snapshot("run-42", 1)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, DefaultChannel, msg.Channel)
		assert.Equal(t, "run-42", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no publish notification")
	}
}

func TestRedis_CorruptValueIsMiss(t *testing.T) {
	mr, store := setupMiniRedis(t)
	require.NoError(t, mr.Set(DefaultKey, "{not json"))

	_, ok := store.Latest(context.Background())
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, store := setupMiniRedis(t)
	mr.Close()

	assert.Error(t, store.Publish(context.Background(), snapshot("run-1")))
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestNewRedis_ConnectionFailure(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewRedis_CustomKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedis(RedisConfig{Addr: mr.Addr(), Key: "wl:custom"}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Publish(context.Background(), snapshot("run-1", 5)))
	assert.True(t, mr.Exists("wl:custom"))
	assert.True(t, store.HealthCheck(context.Background()) == nil)
}
