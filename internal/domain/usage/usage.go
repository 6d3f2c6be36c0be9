// Package usage models per-tenant monthly token consumption.
package usage

import (
	"fmt"
	"time"
)

// Totals is an additive token counter triple.
type Totals struct {
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
}

// Add returns the element-wise sum of two totals.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		TotalTokens:      t.TotalTokens + o.TotalTokens,
		PromptTokens:     t.PromptTokens + o.PromptTokens,
		CompletionTokens: t.CompletionTokens + o.CompletionTokens,
	}
}

// Delta is one usage report to be folded into a monthly counter.
type Delta struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Provider         string
	Model            string
}

// Normalize fills TotalTokens from prompt+completion when the reporter
// did not provide it.
func (d Delta) Normalize() Delta {
	if d.TotalTokens == 0 {
		d.TotalTokens = d.PromptTokens + d.CompletionTokens
	}
	return d
}

// Valid reports whether all counters are non-negative.
func (d Delta) Valid() bool {
	return d.PromptTokens >= 0 && d.CompletionTokens >= 0 && d.TotalTokens >= 0
}

// Totals converts the delta into a totals triple.
func (d Delta) Totals() Totals {
	return Totals{
		TotalTokens:      d.TotalTokens,
		PromptTokens:     d.PromptTokens,
		CompletionTokens: d.CompletionTokens,
	}
}

// MonthlyUsage is the aggregated consumption of one tenant in one
// calendar month, optionally broken down by usage context. Mutated only
// by additive deltas; reset drops the whole month.
type MonthlyUsage struct {
	tenantID  string
	monthKey  string
	totals    Totals
	byContext map[string]Totals
}

// Reconstruct rebuilds a MonthlyUsage from stored counters.
func Reconstruct(tenantID, monthKey string, totals Totals, byContext map[string]Totals) MonthlyUsage {
	return MonthlyUsage{tenantID: tenantID, monthKey: monthKey, totals: totals, byContext: byContext}
}

// Zero returns an empty usage record for a tenant and month.
func Zero(tenantID, monthKey string) MonthlyUsage {
	return MonthlyUsage{tenantID: tenantID, monthKey: monthKey}
}

// TenantID returns the owning tenant.
func (u MonthlyUsage) TenantID() string { return u.tenantID }

// MonthKey returns the YYYY-MM month the record covers.
func (u MonthlyUsage) MonthKey() string { return u.monthKey }

// Totals returns the month's aggregate counters.
func (u MonthlyUsage) Totals() Totals { return u.totals }

// ByContext returns per-context counters, keyed by context name.
func (u MonthlyUsage) ByContext() map[string]Totals { return u.byContext }

// MonthKey formats t as a YYYY-MM month key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonthKey reports whether s parses as YYYY-MM.
func ValidMonthKey(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

// ParseMonthKey parses a YYYY-MM month key.
func ParseMonthKey(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month key %q: %w", s, err)
	}
	return t, nil
}
