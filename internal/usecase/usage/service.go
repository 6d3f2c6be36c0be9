// Package usage handles token usage reporting from LLM callers and the
// operator endpoints that read and reset the counters.
package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// New creates a Service.
func New(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// WithClock overrides the time source (test hook).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add folds a usage delta into the tenant's monthly counters. An empty
// monthKey means the current month. The context tag is optional and
// only used for the per-context breakdown.
func (s *Service) Add(ctx context.Context, tenantID, monthKey string, usageContext dombudget.Context, d domusage.Delta) (domusage.MonthlyUsage, error) {
	if tenantID == "" {
		return domusage.MonthlyUsage{}, domain.ErrTenantRequired
	}
	if !d.Valid() {
		return domusage.MonthlyUsage{}, fmt.Errorf("usage delta has negative counters")
	}
	if monthKey == "" {
		monthKey = domusage.MonthKey(s.now().UTC())
	} else if !domusage.ValidMonthKey(monthKey) {
		return domusage.MonthlyUsage{}, fmt.Errorf("invalid month key %q", monthKey)
	}

	var ctxTag string
	if usageContext != "" {
		if !usageContext.Valid() {
			return domusage.MonthlyUsage{}, fmt.Errorf("invalid usage context %q", usageContext)
		}
		ctxTag = string(usageContext)
	}

	u, err := s.store.Add(ctx, tenantID, monthKey, ctxTag, d)
	if err != nil {
		return domusage.MonthlyUsage{}, err
	}

	s.log.Debug("usage recorded",
		zap.String("tenant_id", tenantID),
		zap.String("month", monthKey),
		zap.String("context", ctxTag),
		zap.Int64("total_tokens", u.Totals().TotalTokens))
	return u, nil
}

// Get returns the monthly aggregate. An empty monthKey means the
// current month.
func (s *Service) Get(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error) {
	if tenantID == "" {
		return domusage.MonthlyUsage{}, domain.ErrTenantRequired
	}
	if monthKey == "" {
		monthKey = domusage.MonthKey(s.now().UTC())
	} else if !domusage.ValidMonthKey(monthKey) {
		return domusage.MonthlyUsage{}, fmt.Errorf("invalid month key %q", monthKey)
	}
	return s.store.Get(ctx, tenantID, monthKey)
}

// Reset drops a tenant's counters for the month (operator hook).
func (s *Service) Reset(ctx context.Context, tenantID, monthKey string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	if monthKey == "" {
		monthKey = domusage.MonthKey(s.now().UTC())
	} else if !domusage.ValidMonthKey(monthKey) {
		return fmt.Errorf("invalid month key %q", monthKey)
	}

	s.log.Info("resetting usage counters",
		zap.String("tenant_id", tenantID),
		zap.String("month", monthKey))
	return s.store.Reset(ctx, tenantID, monthKey)
}
