package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
)

// RedisConfig is the redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache implements BalanceCache on redis with JSON values.
// The TTL bounds how long a stale entry can survive a missed invalidation.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to redis and checks the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisCache(rdb, cfg), nil
}

func newRedisCache(rdb *redis.Client, cfg RedisConfig) *RedisCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "splitledger:balances:"
	}
	return &RedisCache{rdb: rdb, ttl: cfg.TTL, prefix: prefix}
}

func (r *RedisCache) key(groupID string) string {
	return r.prefix + groupID
}

// Get reads a group's balances from redis.
func (r *RedisCache) Get(ctx context.Context, groupID string) (GroupBalances, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return GroupBalances{}, false, nil
	}
	if err != nil {
		return GroupBalances{}, false, fmt.Errorf("redis get: %w", err)
	}
	var balances GroupBalances
	if err := json.Unmarshal(val, &balances); err != nil {
		return GroupBalances{}, false, fmt.Errorf("decode cached balances: %w", err)
	}
	return balances, true, nil
}

// Set writes a group's balances with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, groupID string, balances GroupBalances) error {
	value, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(groupID), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes the given groups' entries.
func (r *RedisCache) Invalidate(ctx context.Context, groupIDs ...string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	keys := make([]string, len(groupIDs))
	for i, id := range groupIDs {
		keys[i] = r.key(id)
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
