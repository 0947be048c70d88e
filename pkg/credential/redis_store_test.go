package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis (DB 15) or skips the test.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	state := State{Token: "abc", ExpiresAt: time.Now().Add(10 * time.Minute).Truncate(time.Second)}
	if err := store.Save(ctx, "client", state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "client")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Token != state.Token || !loaded.ExpiresAt.Equal(state.ExpiresAt) {
		t.Errorf("Load() = %+v, want %+v", loaded, state)
	}

	ttl, err := client.TTL(ctx, RedisKeyPrefix+"client").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("TTL = %v, want ~10m", ttl)
	}
}

func TestRedisStore_LoadMissing(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.Load(context.Background(), "nobody")
	if !errors.Is(err, ErrNotStored) {
		t.Errorf("Load() error = %v, want ErrNotStored", err)
	}
}

func TestRedisStore_SkipsExpired(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "client", State{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := store.Load(ctx, "client"); !errors.Is(err, ErrNotStored) {
		t.Errorf("Load() error = %v, want ErrNotStored", err)
	}
}
