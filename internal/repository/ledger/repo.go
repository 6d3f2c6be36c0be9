// Package ledger persists per-recipient send records as one hash per
// campaign, keyed by contact id. The hash is the idempotence source of
// truth for every dispatch mode.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
)

// store is the consumer interface for ledger hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo implements send-status ledger storage.
type Repo struct {
	store store
}

// New creates a ledger repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func ledgerKey(tenantID, campaignID string) string {
	return fmt.Sprintf("%sledger:%s:%s", domain.KeyPrefix, tenantID, campaignID)
}

// Set upserts one contact's entry. Last write wins.
func (r *Repo) Set(ctx context.Context, tenantID, campaignID string, e domledger.Entry) error {
	key := ledgerKey(tenantID, campaignID)
	fields := map[string]string{e.ContactID(): encodeEntry(e)}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("ledger HSET %s %s: %w", key, e.ContactID(), err)
	}
	return nil
}

// Get returns one contact's entry. found=false means the contact was
// never attempted, which is not an error.
func (r *Repo) Get(ctx context.Context, tenantID, campaignID, contactID string) (domledger.Entry, bool, error) {
	key := ledgerKey(tenantID, campaignID)
	raw, err := r.store.HGet(ctx, key, contactID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domledger.Entry{}, false, nil
		}
		return domledger.Entry{}, false, fmt.Errorf("ledger HGET %s %s: %w", key, contactID, err)
	}
	e, err := parseEntry(contactID, raw)
	if err != nil {
		return domledger.Entry{}, false, err
	}
	return e, true, nil
}

// GetAll returns the full campaign ledger keyed by contact id. A
// campaign never dispatched yields an empty map.
func (r *Repo) GetAll(ctx context.Context, tenantID, campaignID string) (map[string]domledger.Entry, error) {
	key := ledgerKey(tenantID, campaignID)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return map[string]domledger.Entry{}, nil
		}
		return nil, fmt.Errorf("ledger HGETALL %s: %w", key, err)
	}

	out := make(map[string]domledger.Entry, len(m))
	for contactID, raw := range m {
		e, err := parseEntry(contactID, raw)
		if err != nil {
			return nil, err
		}
		out[contactID] = e
	}
	return out, nil
}
