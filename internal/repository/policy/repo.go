// Package policy persists per-tenant budget policy overrides as JSON
// values. Tenants without an override fall back to the process default,
// which the budget usecase owns.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	"github.com/zaplinehq/zapline/internal/domain/budget"
)

// store is the consumer interface for policy records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements budget policy storage.
type Repo struct {
	store store
}

// New creates a policy repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

type policyDTO struct {
	MonthlyTokenLimit int64  `json:"monthly_token_limit"`
	OverLimitMode     string `json:"over_limit_mode"`
}

func policyKey(tenantID string) string {
	return fmt.Sprintf("%sbudget:policy:%s", domain.KeyPrefix, tenantID)
}

// Get returns a tenant's policy override, or domain.ErrPolicyNotFound.
func (r *Repo) Get(ctx context.Context, tenantID string) (budget.Policy, error) {
	raw, err := r.store.Get(ctx, policyKey(tenantID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return budget.Policy{}, domain.ErrPolicyNotFound
		}
		return budget.Policy{}, fmt.Errorf("policy GET %s: %w", tenantID, err)
	}

	var dto policyDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return budget.Policy{}, fmt.Errorf("policy parse %s: %w", tenantID, err)
	}
	return budget.NewPolicy(dto.MonthlyTokenLimit, budget.OverLimitMode(dto.OverLimitMode)), nil
}

// Set stores a tenant's policy override (operator hook).
func (r *Repo) Set(ctx context.Context, tenantID string, p budget.Policy) error {
	data, err := json.Marshal(policyDTO{
		MonthlyTokenLimit: p.MonthlyTokenLimit(),
		OverLimitMode:     string(p.OverLimitMode()),
	})
	if err != nil {
		return fmt.Errorf("policy marshal %s: %w", tenantID, err)
	}
	if err := r.store.Set(ctx, policyKey(tenantID), data); err != nil {
		return fmt.Errorf("policy SET %s: %w", tenantID, err)
	}
	return nil
}
