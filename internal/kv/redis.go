package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 and tonumber(ARGV[1]) > 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

// RedisStore implements Store on top of a go-redis client.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. Every key is namespaced with prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) GetDel(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv getdel %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("kv del: %w", err)
	}
	return nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.PExpire(ctx, s.key(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv expire %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("kv incr %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
