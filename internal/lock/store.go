package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by Get and TTL when no live entry exists.
	ErrKeyNotFound = errors.New("lock key not found")
)

// Store is the minimal contract the lock service needs from a shared
// key-value backend. Every mutation must be a single atomic operation on
// the store side: SetIfAbsent is set-if-absent-with-expiry, and the
// compare-and-mutate pair must check the current value and mutate without
// any other caller observing the key in between. The Redis implementation
// uses Lua scripts for the latter; an in-process implementation backs tests.
type Store interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)

	// Scan enumerates live keys matching pattern via a non-blocking cursor
	// walk, returning at most limit keys.
	Scan(ctx context.Context, pattern string, limit int) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
