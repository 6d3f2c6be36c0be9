package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
)

type mockPolicies struct {
	getFn func(ctx context.Context, tenantID string) (dombudget.Policy, error)
	setFn func(ctx context.Context, tenantID string, p dombudget.Policy) error
}

func (m *mockPolicies) Get(ctx context.Context, tenantID string) (dombudget.Policy, error) {
	return m.getFn(ctx, tenantID)
}

func (m *mockPolicies) Set(ctx context.Context, tenantID string, p dombudget.Policy) error {
	return m.setFn(ctx, tenantID, p)
}

type mockUsage struct {
	getFn func(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error)
}

func (m *mockUsage) Get(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error) {
	return m.getFn(ctx, tenantID, monthKey)
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	}
}

func TestDecide_UsesTenantOverride(t *testing.T) {
	policies := &mockPolicies{
		getFn: func(_ context.Context, _ string) (dombudget.Policy, error) {
			return dombudget.NewPolicy(1000, dombudget.OverLimitBlock), nil
		},
	}
	usageReader := &mockUsage{
		getFn: func(_ context.Context, _, monthKey string) (domusage.MonthlyUsage, error) {
			if monthKey != "2026-08" {
				t.Errorf("monthKey = %q", monthKey)
			}
			return domusage.Reconstruct("t1", monthKey, domusage.Totals{TotalTokens: 1000}, nil), nil
		},
	}

	svc := New(policies, usageReader, dombudget.NewPolicy(0, dombudget.OverLimitDegrade), zap.NewNop()).
		WithClock(fixedClock())

	d, err := svc.Decide(context.Background(), "t1", dombudget.ContextCampaign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action() != dombudget.ActionBlock {
		t.Errorf("action = %q, want block", d.Action())
	}
}

func TestDecide_NoOverrideUsesDefault(t *testing.T) {
	policies := &mockPolicies{
		getFn: func(_ context.Context, _ string) (dombudget.Policy, error) {
			return dombudget.Policy{}, domain.ErrPolicyNotFound
		},
	}
	usageReader := &mockUsage{
		getFn: func(_ context.Context, _, monthKey string) (domusage.MonthlyUsage, error) {
			return domusage.Reconstruct("t1", monthKey, domusage.Totals{TotalTokens: 900}, nil), nil
		},
	}

	svc := New(policies, usageReader, dombudget.NewPolicy(1000, dombudget.OverLimitDegrade), zap.NewNop()).
		WithClock(fixedClock())

	d, err := svc.Decide(context.Background(), "t1", dombudget.ContextInbound)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action() != dombudget.ActionDegrade {
		t.Errorf("action = %q, want degrade at 90%%", d.Action())
	}
}

func TestDecide_PolicyLookupFailureFailsOpen(t *testing.T) {
	policies := &mockPolicies{
		getFn: func(_ context.Context, _ string) (dombudget.Policy, error) {
			return dombudget.Policy{}, errors.New("redis down")
		},
	}
	usageReader := &mockUsage{
		getFn: func(_ context.Context, _, monthKey string) (domusage.MonthlyUsage, error) {
			return domusage.Zero("t1", monthKey), nil
		},
	}

	// Default policy is unlimited, so a broken policy store must not block.
	svc := New(policies, usageReader, dombudget.NewPolicy(0, dombudget.OverLimitDegrade), zap.NewNop()).
		WithClock(fixedClock())

	d, err := svc.Decide(context.Background(), "t1", dombudget.ContextCampaign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action() != dombudget.ActionAllow {
		t.Errorf("action = %q, want allow on fail-open", d.Action())
	}
}

func TestDecide_UsageLookupFailureFailsOpen(t *testing.T) {
	policies := &mockPolicies{
		getFn: func(_ context.Context, _ string) (dombudget.Policy, error) {
			return dombudget.NewPolicy(1000, dombudget.OverLimitBlock), nil
		},
	}
	usageReader := &mockUsage{
		getFn: func(_ context.Context, _, _ string) (domusage.MonthlyUsage, error) {
			return domusage.MonthlyUsage{}, errors.New("redis down")
		},
	}

	svc := New(policies, usageReader, dombudget.Policy{}, zap.NewNop()).WithClock(fixedClock())

	d, err := svc.Decide(context.Background(), "t1", dombudget.ContextCampaign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Unknown usage is treated as zero spend.
	if d.Action() != dombudget.ActionAllow {
		t.Errorf("action = %q, want allow", d.Action())
	}
	if d.UsagePct() != 0 {
		t.Errorf("usagePct = %v, want 0", d.UsagePct())
	}
}

func TestDecide_TenantRequired(t *testing.T) {
	svc := New(&mockPolicies{}, &mockUsage{}, dombudget.Policy{}, zap.NewNop())
	if _, err := svc.Decide(context.Background(), "", dombudget.ContextInbound); !errors.Is(err, domain.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestSetPolicy(t *testing.T) {
	var setTenant string
	policies := &mockPolicies{
		setFn: func(_ context.Context, tenantID string, p dombudget.Policy) error {
			setTenant = tenantID
			if p.MonthlyTokenLimit() != 5000 {
				t.Errorf("limit = %d", p.MonthlyTokenLimit())
			}
			return nil
		},
	}

	svc := New(policies, &mockUsage{}, dombudget.Policy{}, zap.NewNop())
	if err := svc.SetPolicy(context.Background(), "t1", dombudget.NewPolicy(5000, dombudget.OverLimitBlock)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setTenant != "t1" {
		t.Errorf("tenant = %q", setTenant)
	}
}
