package fallback

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore("redis", client, "fallback:"), mr
}

func TestRedisStore_SetGet(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	entry := &Entry{
		ID:        "u-1",
		Payload:   json.RawMessage(`{"id":"u-1","status":"active"}`),
		UpdatedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Set(ctx, entry))

	got, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.JSONEq(t, `{"id":"u-1","status":"active"}`, string(got.Payload))
}

func TestRedisStore_MissReturnsNotFound(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRedisStore_NoExpiration(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Entry{ID: "u-1", Payload: json.RawMessage(`{}`)}))

	// Entries are last-known-good, so Redis must hold them without TTL.
	ttl := mr.TTL("fallback:u-1")
	assert.Equal(t, time.Duration(0), ttl)

	mr.FastForward(365 * 24 * time.Hour)
	_, err := store.Get(ctx, "u-1")
	assert.NoError(t, err)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Entry{ID: "u-1", Payload: json.RawMessage(`{}`)}))
	assert.True(t, mr.Exists("fallback:u-1"))
}

func TestRedisStore_DeleteAndExists(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Entry{ID: "u-1", Payload: json.RawMessage(`{}`)}))
	assert.True(t, store.Exists(ctx, "u-1"))

	require.NoError(t, store.Delete(ctx, "u-1"))
	assert.False(t, store.Exists(ctx, "u-1"))
}

func TestRedisStore_Len(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"u-1", "u-2", "u-3"} {
		require.NoError(t, store.Set(ctx, &Entry{ID: id, Payload: json.RawMessage(`{}`)}))
	}

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEntryNotFound)
}
