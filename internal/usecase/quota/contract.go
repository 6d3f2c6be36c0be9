package quota

import "context"

// Store reserves daily send slots atomically.
type Store interface {
	Reserve(ctx context.Context, tenantID, day string, desired, limit int64) (granted, usedAfter int64, err error)
}
