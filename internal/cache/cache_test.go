package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/cache"
	"vetpulse/internal/testsupport"
)

func setupRedisStore(t *testing.T) *cache.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://"+mr.Addr(), time.Minute, testsupport.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestKeyIsDeterministic(t *testing.T) {
	type args struct {
		Code string
		Days int
	}

	a := cache.Key("analytics:summary", args{Code: "HVC", Days: 30})
	b := cache.Key("analytics:summary", args{Code: "HVC", Days: 30})
	c := cache.Key("analytics:summary", args{Code: "HVC", Days: 7})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, len(a) == len("analytics:summary")+1+12)

	// Unserializable arguments still produce a usable key.
	assert.Equal(t, "x:unkeyed", cache.Key("x", make(chan int)))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Total int64  `json:"total"`
	}

	var missing payload
	assert.False(t, store.Get(ctx, "analytics:missing", &missing))

	store.Set(ctx, "analytics:hit", payload{Name: "CBC", Total: 42}, 0)

	var got payload
	require.True(t, store.Get(ctx, "analytics:hit", &got))
	assert.Equal(t, "CBC", got.Name)
	assert.Equal(t, int64(42), got.Total)

	store.Delete(ctx, "analytics:hit")
	assert.False(t, store.Get(ctx, "analytics:hit", &got))
}

func TestRedisStoreDropsCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://"+mr.Addr(), time.Minute, testsupport.GetLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, mr.Set("analytics:bad", "{not json"))

	var dest map[string]any
	assert.False(t, store.Get(context.Background(), "analytics:bad", &dest))

	// The poisoned entry is gone, so the next write can land cleanly.
	assert.False(t, mr.Exists("analytics:bad"))
}

func TestRedisStoreClearPattern(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	store.Set(ctx, "analytics:tests:a", 1, 0)
	store.Set(ctx, "analytics:tests:b", 2, 0)
	store.Set(ctx, "analytics:species:c", 3, 0)
	store.Set(ctx, "other:d", 4, 0)

	assert.Equal(t, int64(3), store.ClearPattern(ctx, "analytics:*"))

	var n int
	assert.False(t, store.Get(ctx, "analytics:tests:a", &n))
	assert.True(t, store.Get(ctx, "other:d", &n))

	assert.Equal(t, int64(0), store.ClearPattern(ctx, "analytics:*"))
}

func TestRedisStoreStats(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	store.Set(ctx, "analytics:a", 1, 0)
	store.Set(ctx, "analytics:b", 2, 0)

	stats := store.Stats(ctx)
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(2), stats.Keys)
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := cache.NewRedisStore("not-a-url", time.Minute, testsupport.GetLogger())
	require.Error(t, err)
}

func TestDisabledStoreIsInert(t *testing.T) {
	store := cache.Disabled{}
	ctx := context.Background()

	store.Set(ctx, "k", 1, 0)
	var n int
	assert.False(t, store.Get(ctx, "k", &n))
	assert.Equal(t, int64(0), store.ClearPattern(ctx, "*"))

	stats := store.Stats(ctx)
	assert.False(t, stats.Enabled)
}
