package budget

import (
	"context"

	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
)

// PolicyStore persists per-tenant budget policy overrides.
type PolicyStore interface {
	Get(ctx context.Context, tenantID string) (dombudget.Policy, error)
	Set(ctx context.Context, tenantID string, p dombudget.Policy) error
}

// UsageReader loads monthly token consumption.
type UsageReader interface {
	Get(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error)
}
