// Package campaign handles campaign lifecycle outside of dispatch:
// creation, lookup and ledger inspection.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
)

// Service handles campaign creation and lookup.
type Service struct {
	store    Store
	ledger   LedgerReader
	profiles ProfileChecker
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a Service.
func New(store Store, ledger LedgerReader, profiles ProfileChecker, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		profiles: profiles,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time source (test hook).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides the id source (test hook).
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// CreateInput is the caller-provided campaign definition.
type CreateInput struct {
	TenantID      string
	Message       string
	PacingProfile string
	Target        domcampaign.TargetSpec
}

// Create stores a new draft campaign with a generated id. Unknown
// pacing profiles are rejected here rather than at first send.
func (s *Service) Create(ctx context.Context, in CreateInput) (domcampaign.Campaign, error) {
	if !s.profiles.KnownProfile(in.PacingProfile) {
		return domcampaign.Campaign{}, fmt.Errorf("%w: %q", domain.ErrUnknownPacingProfile, in.PacingProfile)
	}

	c, err := domcampaign.New(s.newID(), in.TenantID, in.Message, in.PacingProfile,
		in.Target, s.now().UnixMilli())
	if err != nil {
		return domcampaign.Campaign{}, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return domcampaign.Campaign{}, err
	}

	s.log.Info("campaign created",
		zap.String("tenant_id", c.TenantID()),
		zap.String("campaign_id", c.ID()),
		zap.String("pacing_profile", c.PacingProfile()))
	return c, nil
}

// Get loads a campaign.
func (s *Service) Get(ctx context.Context, tenantID, id string) (domcampaign.Campaign, error) {
	if tenantID == "" {
		return domcampaign.Campaign{}, domain.ErrTenantRequired
	}
	return s.store.Get(ctx, tenantID, id)
}

// Ledger returns the campaign's send records keyed by contact id. The
// campaign must exist; an empty ledger is a valid answer.
func (s *Service) Ledger(ctx context.Context, tenantID, campaignID string) (map[string]domledger.Entry, error) {
	if _, err := s.store.Get(ctx, tenantID, campaignID); err != nil {
		return nil, err
	}
	return s.ledger.GetAll(ctx, tenantID, campaignID)
}
