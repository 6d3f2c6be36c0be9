// Package dispatch drives campaign sends end to end: admission, ledger
// filtering, daily quota, pacing and the per-target enqueue loop.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domcontact "github.com/zaplinehq/zapline/internal/domain/contact"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
	domoutbox "github.com/zaplinehq/zapline/internal/domain/outbox"
	domquota "github.com/zaplinehq/zapline/internal/domain/quota"
	"github.com/zaplinehq/zapline/internal/metrics"
)

// Mode selects the ledger filtering rule for a dispatch run.
type Mode string

// Dispatch modes.
const (
	// ModeSend targets everyone not yet agendado or enviado, retrying
	// erro entries automatically.
	ModeSend Mode = "send"
	// ModeResume targets only never-attempted contacts; erro entries are
	// left for an explicit retry.
	ModeResume Mode = "resume"
	// ModeRetryErrors targets exactly the erro entries.
	ModeRetryErrors Mode = "retry_errors"
)

// Summary is the per-run counter set returned to the caller.
type Summary struct {
	TotalTargets           int `json:"totalTargets"`
	CappedTargets          int `json:"cappedTargets"`
	Eligible               int `json:"eligible"`
	Attempted              int `json:"attempted"`
	Enqueued               int `json:"enqueued"`
	Errors                 int `json:"errors"`
	SkippedAlreadyHandled  int `json:"skippedAlreadyHandled"`
	SkippedDueToDailyLimit int `json:"skippedDueToDailyLimit"`
	LedgerWarnings         int `json:"ledgerWarnings"`
}

// Result is the outcome of one dispatch run.
type Result struct {
	Campaign domcampaign.Campaign
	Mode     Mode
	Summary  Summary
	Daily    domquota.Reservation
}

// PauseResult is the outcome of a pause call.
type PauseResult struct {
	Campaign        domcampaign.Campaign
	CanceledPending int
}

// Service is the campaign dispatcher.
type Service struct {
	campaigns CampaignStore
	ledger    LedgerStore
	budget    BudgetDecider
	quota     QuotaAllocator
	scheduler Scheduler
	resolver  TargetResolver
	outbox    Outbox

	maxPerCampaign int
	log            *zap.Logger
	now            func() time.Time
}

// New creates a dispatcher. maxPerCampaign is the absolute per-run
// target cap, independent of the daily quota.
func New(campaigns CampaignStore, ledger LedgerStore, budget BudgetDecider,
	quota QuotaAllocator, scheduler Scheduler, resolver TargetResolver,
	outbox Outbox, maxPerCampaign int, log *zap.Logger,
) *Service {
	return &Service{
		campaigns:      campaigns,
		ledger:         ledger,
		budget:         budget,
		quota:          quota,
		scheduler:      scheduler,
		resolver:       resolver,
		outbox:         outbox,
		maxPerCampaign: maxPerCampaign,
		log:            log,
		now:            time.Now,
	}
}

// WithClock overrides the time source (test hook).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Send dispatches the campaign to every contact not yet agendado or
// enviado.
func (s *Service) Send(ctx context.Context, tenantID, campaignID string) (Result, error) {
	return s.dispatch(ctx, tenantID, campaignID, ModeSend)
}

// Resume continues a quota-interrupted campaign, targeting only
// never-attempted contacts.
func (s *Service) Resume(ctx context.Context, tenantID, campaignID string) (Result, error) {
	return s.dispatch(ctx, tenantID, campaignID, ModeResume)
}

// RetryErrors re-dispatches exactly the contacts whose last attempt
// failed.
func (s *Service) RetryErrors(ctx context.Context, tenantID, campaignID string) (Result, error) {
	return s.dispatch(ctx, tenantID, campaignID, ModeRetryErrors)
}

// Pause stops a campaign: cancels its pending outbox items and sets
// status pausada. Already-enqueued in-flight sends are not recalled and
// agendado ledger entries are not rolled back.
func (s *Service) Pause(ctx context.Context, tenantID, campaignID string) (PauseResult, error) {
	c, err := s.campaigns.Get(ctx, tenantID, campaignID)
	if err != nil {
		return PauseResult{}, err
	}
	if c.Status() == domcampaign.StatusCancelada {
		return PauseResult{}, domain.ErrCampaignCanceled
	}

	canceled, err := s.outbox.CancelPending(ctx, tenantID, campaignID)
	if err != nil {
		return PauseResult{}, fmt.Errorf("cancel pending outbox items: %w", err)
	}

	c = c.WithStatus(domcampaign.StatusPausada)
	if err := s.campaigns.Save(ctx, c); err != nil {
		return PauseResult{}, err
	}

	s.log.Info("campaign paused",
		zap.String("tenant_id", tenantID),
		zap.String("campaign_id", campaignID),
		zap.Int("canceled_pending", canceled))
	return PauseResult{Campaign: c, CanceledPending: canceled}, nil
}

// dispatch is the pipeline shared by all three entry points. No state
// is mutated until the admission checks have all passed.
func (s *Service) dispatch(ctx context.Context, tenantID, campaignID string, mode Mode) (Result, error) {
	c, err := s.campaigns.Get(ctx, tenantID, campaignID)
	if err != nil {
		return Result{}, err
	}

	if err := s.admit(c, mode); err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(mode), "rejected").Inc()
		return Result{}, err
	}
	if !s.scheduler.KnownProfile(c.PacingProfile()) {
		metrics.DispatchesTotal.WithLabelValues(string(mode), "rejected").Inc()
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownPacingProfile, c.PacingProfile())
	}

	decision, err := s.budget.Decide(ctx, tenantID, dombudget.ContextCampaign)
	if err != nil {
		return Result{}, err
	}
	if decision.Action() == dombudget.ActionBlock {
		metrics.DispatchesTotal.WithLabelValues(string(mode), "budget_blocked").Inc()
		return Result{}, dombudget.NewBlocked(decision)
	}

	contacts, err := s.resolver.EligibleContacts(ctx, tenantID, c.Target())
	if err != nil {
		return Result{}, fmt.Errorf("resolve campaign targets: %w", err)
	}
	entries, err := s.ledger.GetAll(ctx, tenantID, campaignID)
	if err != nil {
		return Result{}, err
	}

	sum := Summary{TotalTargets: len(contacts)}
	eligible := filterByMode(contacts, entries, mode)
	sum.Eligible = len(eligible)
	sum.SkippedAlreadyHandled = sum.TotalTargets - sum.Eligible

	candidates := eligible
	if s.maxPerCampaign > 0 && len(candidates) > s.maxPerCampaign {
		candidates = candidates[:s.maxPerCampaign]
	}
	sum.CappedTargets = len(candidates)

	now := s.now()
	daily, err := s.quota.Reserve(ctx, tenantID, int64(len(candidates)), now)
	if err != nil {
		return Result{}, err
	}
	allowed := candidates
	if daily.Allowed() < len(allowed) {
		allowed = allowed[:daily.Allowed()]
	}
	sum.SkippedDueToDailyLimit = sum.CappedTargets - len(allowed)

	slots, err := s.scheduler.Schedule(len(allowed), c.PacingProfile(), s.scheduler.FirstSlot(now))
	if err != nil {
		return Result{}, err
	}

	s.enqueueAll(ctx, c, allowed, slots, entries, &sum)

	status := domcampaign.StatusDisparada
	if sum.SkippedDueToDailyLimit > 0 {
		status = domcampaign.StatusEmAndamento
	}
	c = c.WithStatus(status)
	if err := s.campaigns.Save(ctx, c); err != nil {
		return Result{}, err
	}

	metrics.DispatchesTotal.WithLabelValues(string(mode), "completed").Inc()
	s.log.Info("campaign dispatched",
		zap.String("tenant_id", tenantID),
		zap.String("campaign_id", campaignID),
		zap.String("mode", string(mode)),
		zap.String("status", string(status)),
		zap.Int("total_targets", sum.TotalTargets),
		zap.Int("enqueued", sum.Enqueued),
		zap.Int("errors", sum.Errors),
		zap.Int("skipped_already_handled", sum.SkippedAlreadyHandled),
		zap.Int("skipped_daily_limit", sum.SkippedDueToDailyLimit))

	return Result{Campaign: c, Mode: mode, Summary: sum, Daily: daily}, nil
}

// admit enforces the campaign status gate. Resume is the only entry
// point allowed on a paused campaign.
func (s *Service) admit(c domcampaign.Campaign, mode Mode) error {
	switch c.Status() {
	case domcampaign.StatusCancelada:
		return domain.ErrCampaignCanceled
	case domcampaign.StatusPausada:
		if mode != ModeResume {
			return domain.ErrCampaignPaused
		}
	}
	return nil
}

// enqueueAll runs the per-target loop. Individual failures never abort
// the batch; every outcome lands in the ledger and the summary. prior
// carries the entries loaded before filtering so a rewrite keeps the
// contact's first-attempt timestamp.
func (s *Service) enqueueAll(ctx context.Context, c domcampaign.Campaign,
	targets []domcontact.Contact, slots []time.Time,
	prior map[string]domledger.Entry, sum *Summary,
) {
	nowMillis := s.now().UnixMilli()

	for i, ct := range targets {
		sum.Attempted++
		createdAt := nowMillis
		if prev, ok := prior[ct.ID]; ok {
			createdAt = prev.CreatedAt()
		}
		msg := domoutbox.Message{
			TenantID:       c.TenantID(),
			CampaignID:     c.ID(),
			ContactID:      ct.ID,
			Identifier:     ct.Identifier,
			Body:           c.Message(),
			NotBefore:      slots[i],
			IdempotencyKey: IdempotencyKey(c.ID(), ct.ID),
		}

		if err := s.outbox.Enqueue(ctx, msg); err != nil {
			sum.Errors++
			metrics.EnqueueErrorsTotal.Inc()
			s.log.Warn("outbox enqueue failed",
				zap.String("campaign_id", c.ID()),
				zap.String("contact_id", ct.ID),
				zap.Error(err))
			// Best-effort erro record so retry-errors can find it later.
			entry := domledger.NewEntry(ct.ID, domledger.StatusErro, createdAt)
			if lerr := s.ledger.Set(ctx, c.TenantID(), c.ID(), entry); lerr != nil {
				s.log.Warn("ledger erro write failed",
					zap.String("campaign_id", c.ID()),
					zap.String("contact_id", ct.ID),
					zap.Error(lerr))
			}
			continue
		}

		sum.Enqueued++
		metrics.MessagesEnqueuedTotal.Inc()
		entry := domledger.NewEntry(ct.ID, domledger.StatusAgendado, createdAt)
		if lerr := s.ledger.Set(ctx, c.TenantID(), c.ID(), entry); lerr != nil {
			// The outbox item exists but the ledger does not know. The
			// next send would enqueue a duplicate if the outbox ignored
			// idempotency keys, so this must be visible to operators.
			sum.LedgerWarnings++
			metrics.LedgerWriteWarningsTotal.Inc()
			s.log.Warn("ledger write failed after successful enqueue",
				zap.String("campaign_id", c.ID()),
				zap.String("contact_id", ct.ID),
				zap.Error(lerr))
		}
	}
}

// filterByMode applies the mode-specific ledger rule, preserving
// resolver order.
func filterByMode(contacts []domcontact.Contact, entries map[string]domledger.Entry, mode Mode) []domcontact.Contact {
	out := make([]domcontact.Contact, 0, len(contacts))
	for _, ct := range contacts {
		e, attempted := entries[ct.ID]
		switch mode {
		case ModeSend:
			if attempted && (e.Status() == domledger.StatusAgendado || e.Status() == domledger.StatusEnviado) {
				continue
			}
		case ModeResume:
			if attempted && e.Status() != domledger.StatusSimulado {
				continue
			}
		case ModeRetryErrors:
			if !attempted || e.Status() != domledger.StatusErro {
				continue
			}
		}
		out = append(out, ct)
	}
	return out
}

// IdempotencyKey derives the stable outbox dedupe key for one
// (campaign, contact) pair.
func IdempotencyKey(campaignID, contactID string) string {
	return fmt.Sprintf("cmp:%s:contact:%s", campaignID, contactID)
}
