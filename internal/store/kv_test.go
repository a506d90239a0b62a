package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, NewRedisKV(c)
}

func TestRedisKV_GetSet(t *testing.T) {
	mr, kv := setupTestKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "relief:packages:available")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "relief:packages:available", `[{"id":1}]`, time.Minute))
	v, err := kv.Get(ctx, "relief:packages:available")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, v)

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "relief:packages:available")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDeletePattern(t *testing.T) {
	mr, kv := setupTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "relief:packages:available", "a", 0))
	require.NoError(t, kv.Set(ctx, "relief:packages:all", "b", 0))
	require.NoError(t, kv.Set(ctx, "relief:status:GCR25031234", "c", 0))

	require.NoError(t, DeletePattern(ctx, kv, "relief:packages:*"))
	assert.False(t, mr.Exists("relief:packages:available"))
	assert.False(t, mr.Exists("relief:packages:all"))
	assert.True(t, mr.Exists("relief:status:GCR25031234"))

	// no matches is not an error
	require.NoError(t, DeletePattern(ctx, kv, "relief:nothing:*"))
}

func TestNopKV(t *testing.T) {
	var kv KV = NopKV{}
	require.NoError(t, kv.Set(context.Background(), "k", "v", time.Minute))
	_, err := kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}
