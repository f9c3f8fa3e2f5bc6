package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStoreWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseWindow(t, NewRedisStore(client))
}

func TestRedisStoreIndependent(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseIndependentClients(t, NewRedisStore(client))
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, WithKeyPrefix("app:rl:"))
	now := time.Now().Truncate(time.Millisecond)

	res, err := store.Take(context.Background(), "crm-1.2.3.4", 5, time.Minute, now)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	assert.True(t, mr.Exists("app:rl:crm-1.2.3.4"))
	assert.Equal(t, "1", mr.HGet("app:rl:crm-1.2.3.4", "count"))
	assert.Greater(t, mr.TTL("app:rl:crm-1.2.3.4"), time.Duration(0))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisStore(client).Take(context.Background(), "k", 1, time.Second, time.Now())
	assert.Error(t, err)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr, _ := setupTestRedis(t)

	store, client, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	assert.NotNil(t, store)

	_, _, err = NewRedisStoreFromURL(context.Background(), "not a url")
	assert.Error(t, err)
}
