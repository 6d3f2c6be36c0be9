// Package budget answers the question "may this tenant spend tokens
// right now", combining stored usage with the tenant's policy.
package budget

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
	"github.com/zaplinehq/zapline/internal/metrics"
)

// Service computes budget admission decisions.
type Service struct {
	policies      PolicyStore
	usage         UsageReader
	defaultPolicy dombudget.Policy
	log           *zap.Logger
	now           func() time.Time
}

// New creates a Service. defaultPolicy applies to tenants without an
// override.
func New(policies PolicyStore, usage UsageReader, defaultPolicy dombudget.Policy, log *zap.Logger) *Service {
	return &Service{
		policies:      policies,
		usage:         usage,
		defaultPolicy: defaultPolicy,
		log:           log,
		now:           time.Now,
	}
}

// WithClock overrides the time source (test hook).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Decide computes the admission decision for the tenant's current
// month. Lookup failures fail open: messaging keeps flowing and the
// incident surfaces in logs, never as a customer-facing outage.
func (s *Service) Decide(ctx context.Context, tenantID string, c dombudget.Context) (dombudget.Decision, error) {
	if tenantID == "" {
		return dombudget.Decision{}, domain.ErrTenantRequired
	}
	monthKey := domusage.MonthKey(s.now().UTC())

	policy := s.defaultPolicy
	p, err := s.policies.Get(ctx, tenantID)
	switch {
	case err == nil:
		policy = p
	case errors.Is(err, domain.ErrPolicyNotFound):
		// default policy applies
	default:
		s.log.Warn("budget policy lookup failed, using default policy",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}

	var used int64
	u, err := s.usage.Get(ctx, tenantID, monthKey)
	if err != nil {
		s.log.Warn("usage lookup failed, treating month as unspent",
			zap.String("tenant_id", tenantID),
			zap.String("month", monthKey),
			zap.Error(err))
	} else {
		used = u.Totals().TotalTokens
	}

	d := dombudget.Decide(used, policy, c, monthKey)
	metrics.BudgetDecisionsTotal.WithLabelValues(string(c), string(d.Action())).Inc()
	return d, nil
}

// SetPolicy stores a tenant policy override (operator hook).
func (s *Service) SetPolicy(ctx context.Context, tenantID string, p dombudget.Policy) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	return s.policies.Set(ctx, tenantID, p)
}
