package dispatch

import (
	"context"
	"time"

	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domcontact "github.com/zaplinehq/zapline/internal/domain/contact"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
	domoutbox "github.com/zaplinehq/zapline/internal/domain/outbox"
	domquota "github.com/zaplinehq/zapline/internal/domain/quota"
)

// CampaignStore loads and persists campaigns.
type CampaignStore interface {
	Get(ctx context.Context, tenantID, id string) (domcampaign.Campaign, error)
	Save(ctx context.Context, c domcampaign.Campaign) error
}

// LedgerStore reads and writes per-recipient send records.
type LedgerStore interface {
	GetAll(ctx context.Context, tenantID, campaignID string) (map[string]domledger.Entry, error)
	Set(ctx context.Context, tenantID, campaignID string, e domledger.Entry) error
}

// BudgetDecider answers whether the tenant may spend tokens right now.
type BudgetDecider interface {
	Decide(ctx context.Context, tenantID string, c dombudget.Context) (dombudget.Decision, error)
}

// QuotaAllocator grants daily send slots.
type QuotaAllocator interface {
	Reserve(ctx context.Context, tenantID string, desired int64, now time.Time) (domquota.Reservation, error)
}

// Scheduler assigns not-before timestamps to a batch of sends.
type Scheduler interface {
	KnownProfile(name string) bool
	FirstSlot(now time.Time) time.Time
	Schedule(count int, profile string, startAt time.Time) ([]time.Time, error)
}

// TargetResolver expands a campaign target spec into concrete contacts.
type TargetResolver interface {
	EligibleContacts(ctx context.Context, tenantID string, target domcampaign.TargetSpec) ([]domcontact.Contact, error)
}

// Outbox hands messages to the delivery pipeline.
type Outbox interface {
	Enqueue(ctx context.Context, msg domoutbox.Message) error
	CancelPending(ctx context.Context, tenantID, campaignID string) (int, error)
}
