// Package campaign persists campaigns as JSON values keyed by
// (tenant, campaign id).
package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
)

// store is the consumer interface for campaign records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements campaign storage.
type Repo struct {
	store store
}

// New creates a campaign repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func campaignKey(tenantID, id string) string {
	return fmt.Sprintf("%scampaign:%s:%s", domain.KeyPrefix, tenantID, id)
}

// Create stores a new campaign, rejecting id reuse within the tenant.
func (r *Repo) Create(ctx context.Context, c domcampaign.Campaign) error {
	key := campaignKey(c.TenantID(), c.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("campaign EXISTS %s: %w", key, err)
	}
	if exists {
		return domain.ErrCampaignExists
	}
	return r.Save(ctx, c)
}

// Get loads a campaign by tenant and id.
func (r *Repo) Get(ctx context.Context, tenantID, id string) (domcampaign.Campaign, error) {
	key := campaignKey(tenantID, id)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcampaign.Campaign{}, domain.ErrCampaignNotFound
		}
		return domcampaign.Campaign{}, fmt.Errorf("campaign GET %s: %w", key, err)
	}
	return fromDTO(raw)
}

// Save overwrites the stored campaign.
func (r *Repo) Save(ctx context.Context, c domcampaign.Campaign) error {
	key := campaignKey(c.TenantID(), c.ID())
	data, err := json.Marshal(toDTO(c))
	if err != nil {
		return fmt.Errorf("campaign marshal %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("campaign SET %s: %w", key, err)
	}
	return nil
}

// SetStatus loads, transitions and persists the campaign status.
func (r *Repo) SetStatus(ctx context.Context, tenantID, id string, status domcampaign.Status) (domcampaign.Campaign, error) {
	c, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return domcampaign.Campaign{}, err
	}
	c = c.WithStatus(status)
	if err := r.Save(ctx, c); err != nil {
		return domcampaign.Campaign{}, err
	}
	return c, nil
}
