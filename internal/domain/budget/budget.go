package budget

import (
	"fmt"

	"github.com/zaplinehq/zapline/internal/domain"
)

// Context identifies what kind of work is asking for budget.
type Context string

// Budget contexts.
const (
	// ContextInbound is interactive automated-reply traffic.
	ContextInbound Context = "inbound"
	// ContextCampaign is bulk campaign dispatch.
	ContextCampaign Context = "campaign"
)

// Valid reports whether the context is a known value.
func (c Context) Valid() bool {
	return c == ContextInbound || c == ContextCampaign
}

// Action is the admission decision for a tenant.
type Action string

// Budget actions.
const (
	ActionAllow   Action = "allow"
	ActionDegrade Action = "degrade"
	ActionBlock   Action = "block"
)

// Severity grades a decision for operator surfaces.
type Severity string

// Decision severities.
const (
	SeverityNone  Severity = "none"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Fixed decision thresholds, in percent of the monthly limit.
const (
	WarnPct  = 80.0
	BlockPct = 100.0
)

// OverLimitMode selects behavior once usage crosses BlockPct.
type OverLimitMode string

// Over-limit modes.
const (
	OverLimitDegrade OverLimitMode = "degrade"
	OverLimitBlock   OverLimitMode = "block"
)

// Valid reports whether the mode is a known value.
func (m OverLimitMode) Valid() bool {
	return m == OverLimitDegrade || m == OverLimitBlock
}

// Policy is a tenant's monthly token budget policy.
type Policy struct {
	monthlyTokenLimit int64
	overLimitMode     OverLimitMode
}

// NewPolicy creates a budget policy. limit <= 0 means unlimited.
func NewPolicy(monthlyTokenLimit int64, mode OverLimitMode) Policy {
	if !mode.Valid() {
		mode = OverLimitDegrade
	}
	return Policy{monthlyTokenLimit: monthlyTokenLimit, overLimitMode: mode}
}

// MonthlyTokenLimit returns the monthly token cap.
func (p Policy) MonthlyTokenLimit() int64 { return p.monthlyTokenLimit }

// OverLimitMode returns the over-limit behavior.
func (p Policy) OverLimitMode() OverLimitMode { return p.overLimitMode }

// Snapshot captures the usage state a decision was computed from.
type Snapshot struct {
	used     int64
	limit    int64
	monthKey string
}

// NewSnapshot creates a usage snapshot.
func NewSnapshot(used, limit int64, monthKey string) Snapshot {
	return Snapshot{used: used, limit: limit, monthKey: monthKey}
}

// Used returns tokens consumed this month.
func (s Snapshot) Used() int64 { return s.used }

// Limit returns the monthly token cap.
func (s Snapshot) Limit() int64 { return s.limit }

// Remaining returns tokens left, clamped at zero.
func (s Snapshot) Remaining() int64 {
	r := s.limit - s.used
	if r < 0 {
		return 0
	}
	return r
}

// MonthKey returns the YYYY-MM month the snapshot covers.
func (s Snapshot) MonthKey() string { return s.monthKey }

// Decision is the outcome of a budget check. Computed fresh per query,
// never persisted.
type Decision struct {
	action    Action
	usagePct  float64
	overLimit bool
	severity  Severity
	message   string
	snapshot  Snapshot
}

// Action returns the admission action.
func (d Decision) Action() Action { return d.action }

// UsagePct returns usage as a percentage of the limit. May exceed 100.
func (d Decision) UsagePct() float64 { return d.usagePct }

// OverLimit reports whether usage crossed the warn threshold.
func (d Decision) OverLimit() bool { return d.overLimit }

// Severity returns the decision severity.
func (d Decision) Severity() Severity { return d.severity }

// Message returns the operator-facing explanation.
func (d Decision) Message() string { return d.message }

// Snapshot returns the usage state the decision was computed from.
func (d Decision) Snapshot() Snapshot { return d.snapshot }

// Decide computes the admission decision for the given usage and policy.
// usagePct is 0 when the limit is not positive, so unlimited tenants are
// always allowed and there is no division by zero.
func Decide(used int64, p Policy, c Context, monthKey string) Decision {
	snap := NewSnapshot(used, p.monthlyTokenLimit, monthKey)

	var pct float64
	if p.monthlyTokenLimit > 0 {
		pct = 100 * float64(used) / float64(p.monthlyTokenLimit)
	}

	d := Decision{usagePct: pct, snapshot: snap}

	switch {
	case p.monthlyTokenLimit > 0 && pct >= BlockPct:
		d.overLimit = true
		d.severity = SeverityError
		if p.overLimitMode == OverLimitBlock {
			d.action = ActionBlock
			d.message = fmt.Sprintf("monthly token budget exhausted (%.1f%% of %d used in %s); sends blocked",
				pct, p.monthlyTokenLimit, monthKey)
		} else {
			d.action = ActionDegrade
			d.message = fmt.Sprintf("monthly token budget exhausted (%.1f%% of %d used in %s); running degraded",
				pct, p.monthlyTokenLimit, monthKey)
		}
	case p.monthlyTokenLimit > 0 && pct >= WarnPct:
		d.overLimit = true
		d.action = ActionDegrade
		d.severity = SeverityWarn
		d.message = fmt.Sprintf("monthly token budget at %.1f%% of %d in %s", pct, p.monthlyTokenLimit, monthKey)
	default:
		d.action = ActionAllow
		d.severity = SeverityNone
		d.message = "within monthly token budget"
	}

	if c == ContextCampaign {
		d.action = promoteForCampaign(d.action)
	}
	return d
}

// promoteForCampaign lifts a degrade decision to allow for campaign
// dispatch. Campaigns are never throttled mid-flight: they run at full
// rate until usage crosses BlockPct with an over-limit mode of block,
// and only then are they stopped. Inbound traffic keeps the degrade
// step. This asymmetry is deliberate; do not fold it into Decide's
// switch.
func promoteForCampaign(a Action) Action {
	if a == ActionDegrade {
		return ActionAllow
	}
	return a
}

// BlockedError carries the decision that caused a hard budget block.
type BlockedError struct {
	Decision Decision
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrBudgetBlocked.Error(), e.Decision.Message())
}

func (e *BlockedError) Unwrap() error { return domain.ErrBudgetBlocked }

// NewBlocked wraps a block decision into an error.
func NewBlocked(d Decision) error {
	return &BlockedError{Decision: d}
}
