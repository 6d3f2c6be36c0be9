package campaign

import (
	"context"

	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
)

// Store persists campaigns.
type Store interface {
	Create(ctx context.Context, c domcampaign.Campaign) error
	Get(ctx context.Context, tenantID, id string) (domcampaign.Campaign, error)
}

// LedgerReader reads a campaign's send records.
type LedgerReader interface {
	GetAll(ctx context.Context, tenantID, campaignID string) (map[string]domledger.Entry, error)
}

// ProfileChecker validates pacing profile names at creation time.
type ProfileChecker interface {
	KnownProfile(name string) bool
}
