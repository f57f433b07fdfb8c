//go:build integration

package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *RedisClient {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(rdURL)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisClient(client)
}

func TestPlanLock(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()
	key := PlanLockKey("plan-1")

	require.NoError(t, r.Ping(ctx))

	token, ok, err := r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be rejected")

	assert.ErrorIs(t, r.ReleaseLock(ctx, key, "foreign-token"), ErrLockNotHeld)
	require.NoError(t, r.ReleaseLock(ctx, key, token))

	_, ok, err = r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPlanLock_ExpiresAfterTTL(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()
	key := PlanLockKey("plan-2")

	token, ok, err := r.AcquireLock(ctx, key, 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	assert.ErrorIs(t, r.ReleaseLock(ctx, key, token), ErrLockNotHeld)
	_, ok, err = r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
