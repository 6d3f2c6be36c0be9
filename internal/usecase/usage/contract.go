package usage

import (
	"context"

	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
)

// Store persists monthly token counters.
type Store interface {
	Add(ctx context.Context, tenantID, monthKey, usageContext string, d domusage.Delta) (domusage.MonthlyUsage, error)
	Get(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error)
	Reset(ctx context.Context, tenantID, monthKey string) error
}
