package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ev-storefront/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestRedis(t *testing.T) *Redis {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	store, err := InitRedis(context.Background(), cfg)
	require.NoError(t, err)
	return store
}

// stores перечисляет обе реализации, контракт у них общий.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"redis":  setupTestRedis(t),
		"memory": NewMemory(),
	}
}

func TestSetAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			expected := testStruct{Name: "Alice", Age: 30}
			err := store.Set(context.Background(), "visitor:1:session", expected, time.Minute)
			require.NoError(t, err)

			var actual testStruct
			found, err := store.Get(context.Background(), "visitor:1:session", &actual)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, expected, actual)
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var out testStruct
			found, err := store.Get(context.Background(), "no_such_key", &out)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestInvalidate(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Set(context.Background(), "key", "value", time.Minute)
			require.NoError(t, err)

			err = store.Invalidate(context.Background(), "key")
			require.NoError(t, err)

			var out string
			found, err := store.Get(context.Background(), "key", &out)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestGetInvalidJSON(t *testing.T) {
	store := setupTestRedis(t)

	err := store.Db.Set(context.Background(), "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out testStruct
	found, err := store.Get(context.Background(), "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestMemoryTTLExpiry(t *testing.T) {
	store := NewMemory()

	err := store.Set(context.Background(), "short", "lived", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	var out string
	found, err := store.Get(context.Background(), "short", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInitRedisInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
	}

	store, err := InitRedis(context.Background(), cfg)
	assert.Nil(t, store)
	assert.Error(t, err)
}
