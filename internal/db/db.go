package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	KVStore
	HashStore
	QuotaStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// HashStore provides hash-based counter and record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
}

// QuotaStore provides the atomic increment-with-cap reservation used by
// the daily send quota. A read-then-write pair is not an acceptable
// implementation: concurrent reservations for the same key must never
// grant more than limit in total.
type QuotaStore interface {
	// ReserveSlots grants up to desired slots under the cap and returns
	// (granted, usedAfter). granted is 0 when the cap is already spent.
	ReserveSlots(ctx context.Context, key string, desired, limit int64) (int64, int64, error)
}
