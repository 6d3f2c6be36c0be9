// Package quota persists the per-tenant per-day send counter. All
// mutation goes through the store's atomic increment-with-cap script;
// there is deliberately no plain Get/Set pair to race with.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/zaplinehq/zapline/internal/domain"
)

// store is the consumer interface for quota counters (ISP).
type store interface {
	ReserveSlots(ctx context.Context, key string, desired, limit int64) (int64, int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements daily quota reservation.
type Repo struct {
	store    store
	dailyTTL time.Duration
}

// New creates a quota repository. dailyTTL is the TTL for daily keys
// (recommended: 48h, so yesterday's counter survives a midnight run).
func New(s store, dailyTTL time.Duration) *Repo {
	return &Repo{store: s, dailyTTL: dailyTTL}
}

func quotaKey(tenantID, day string) string {
	return fmt.Sprintf("%squota:%s:%s", domain.KeyPrefix, tenantID, day)
}

// Reserve atomically grants up to desired slots for the tenant's day
// and returns (granted, usedAfter).
func (r *Repo) Reserve(ctx context.Context, tenantID, day string, desired, limit int64) (int64, int64, error) {
	key := quotaKey(tenantID, day)
	granted, usedAfter, err := r.store.ReserveSlots(ctx, key, desired, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("quota reserve %s: %w", key, err)
	}

	// TTL only if the key has no expiry yet (NX — not reset on repeat).
	if err := r.store.Expire(ctx, key, r.dailyTTL, true); err != nil {
		return 0, 0, fmt.Errorf("quota EXPIRE %s: %w", key, err)
	}
	return granted, usedAfter, nil
}
