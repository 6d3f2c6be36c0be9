// Package usage persists monthly token counters as one hash per
// (tenant, month), mutated only via HINCRBY so deltas are atomic.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
)

// Hash fields of the aggregate counters.
const (
	fieldTotal      = "total"
	fieldPrompt     = "prompt"
	fieldCompletion = "completion"

	ctxFieldPrefix = "ctx:"
)

// store is the consumer interface for usage counters (ISP).
type store interface {
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements the usage ledger on top of db hash counters.
type Repo struct {
	store    store
	monthTTL time.Duration
}

// New creates a usage repository. monthTTL is the TTL for monthly keys
// (recommended: 62 days, long enough to survive the billing close).
func New(s store, monthTTL time.Duration) *Repo {
	return &Repo{store: s, monthTTL: monthTTL}
}

func usageKey(tenantID, monthKey string) string {
	return fmt.Sprintf("%susage:%s:%s", domain.KeyPrefix, tenantID, monthKey)
}

// Add folds a delta into the monthly counters and returns the updated
// aggregate. Counters only ever grow; reset is the sole exception.
func (r *Repo) Add(ctx context.Context, tenantID, monthKey, usageContext string, d domusage.Delta) (domusage.MonthlyUsage, error) {
	key := usageKey(tenantID, monthKey)
	d = d.Normalize()

	incr := func(field string, delta int64) error {
		if delta == 0 {
			return nil
		}
		if _, err := r.store.HIncrBy(ctx, key, field, delta); err != nil {
			return fmt.Errorf("usage HINCRBY %s %s: %w", key, field, err)
		}
		return nil
	}

	if err := incr(fieldTotal, d.TotalTokens); err != nil {
		return domusage.MonthlyUsage{}, err
	}
	if err := incr(fieldPrompt, d.PromptTokens); err != nil {
		return domusage.MonthlyUsage{}, err
	}
	if err := incr(fieldCompletion, d.CompletionTokens); err != nil {
		return domusage.MonthlyUsage{}, err
	}
	if usageContext != "" {
		if err := incr(ctxFieldPrefix+usageContext+":"+fieldTotal, d.TotalTokens); err != nil {
			return domusage.MonthlyUsage{}, err
		}
		if err := incr(ctxFieldPrefix+usageContext+":"+fieldPrompt, d.PromptTokens); err != nil {
			return domusage.MonthlyUsage{}, err
		}
		if err := incr(ctxFieldPrefix+usageContext+":"+fieldCompletion, d.CompletionTokens); err != nil {
			return domusage.MonthlyUsage{}, err
		}
	}

	// TTL only if the key has no expiry yet (NX — not reset on repeat).
	if err := r.store.Expire(ctx, key, r.monthTTL, true); err != nil {
		return domusage.MonthlyUsage{}, fmt.Errorf("usage EXPIRE %s: %w", key, err)
	}

	return r.Get(ctx, tenantID, monthKey)
}

// Get returns the monthly aggregate. A missing month yields a zero
// record, not an error.
func (r *Repo) Get(ctx context.Context, tenantID, monthKey string) (domusage.MonthlyUsage, error) {
	key := usageKey(tenantID, monthKey)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domusage.Zero(tenantID, monthKey), nil
		}
		return domusage.MonthlyUsage{}, fmt.Errorf("usage HGETALL %s: %w", key, err)
	}
	return parseUsage(tenantID, monthKey, m), nil
}

// Reset drops the month's counters entirely (operator hook).
func (r *Repo) Reset(ctx context.Context, tenantID, monthKey string) error {
	key := usageKey(tenantID, monthKey)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("usage DEL %s: %w", key, err)
	}
	return nil
}

func parseUsage(tenantID, monthKey string, m map[string]string) domusage.MonthlyUsage {
	var totals domusage.Totals
	byContext := make(map[string]domusage.Totals)

	for field, raw := range m {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if name, counter, ok := splitContextField(field); ok {
			t := byContext[name]
			applyCounter(&t, counter, v)
			byContext[name] = t
			continue
		}
		applyCounter(&totals, field, v)
	}

	if len(byContext) == 0 {
		byContext = nil
	}
	return domusage.Reconstruct(tenantID, monthKey, totals, byContext)
}

// splitContextField parses "ctx:{name}:{counter}" fields.
func splitContextField(field string) (name, counter string, ok bool) {
	if !strings.HasPrefix(field, ctxFieldPrefix) {
		return "", "", false
	}
	rest := field[len(ctxFieldPrefix):]
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

func applyCounter(t *domusage.Totals, counter string, v int64) {
	switch counter {
	case fieldTotal:
		t.TotalTokens = v
	case fieldPrompt:
		t.PromptTokens = v
	case fieldCompletion:
		t.CompletionTokens = v
	}
}
