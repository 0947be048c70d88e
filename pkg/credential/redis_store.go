package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every stored credential key.
const RedisKeyPrefix = "catalog:credential:"

// RedisStore persists credential state in Redis. Entries expire together
// with the token they hold.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed credential store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Load returns the state stored under key or ErrNotStored.
func (s *RedisStore) Load(ctx context.Context, key string) (State, error) {
	data, err := s.redis.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotStored
		}
		return State{}, fmt.Errorf("redis get: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode credential: %w", err)
	}
	if state.Token == "" {
		return State{}, ErrNotStored
	}

	return state, nil
}

// Save stores state under key until it expires. Already expired states are
// not stored; non-expiring states are stored without TTL.
func (s *RedisStore) Save(ctx context.Context, key string, state State) error {
	var ttl time.Duration
	if !state.ExpiresAt.IsZero() {
		ttl = time.Until(state.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}
