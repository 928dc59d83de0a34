package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

// Store is the key/value collaborator used for short lived records
// (OTP codes, pending signups, refresh tokens, idempotency markers).
// A zero ttl means the key does not expire.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// GetDel atomically reads and removes key.
	GetDel(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	// Expire sets a ttl on an existing key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Incr increments a counter, applying ttl when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}
