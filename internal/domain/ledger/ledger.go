// Package ledger models the per-recipient send status record that makes
// repeated dispatch calls idempotent.
package ledger

import (
	"fmt"

	"github.com/zaplinehq/zapline/internal/domain"
)

// Status is the last-known send state of one (campaign, contact) pair.
// Absence of an entry means the contact was never attempted.
type Status string

// Ledger statuses.
const (
	// StatusSimulado marks a dry-run entry; no message was enqueued.
	StatusSimulado Status = "simulado"
	// StatusAgendado marks a message accepted by the outbox.
	StatusAgendado Status = "agendado"
	// StatusEnviado marks a delivery-confirmed message. Written by the
	// delivery confirmation path, never by the dispatcher itself.
	StatusEnviado Status = "enviado"
	// StatusErro marks a failed enqueue, retried only via retry-errors
	// or a plain re-send.
	StatusErro Status = "erro"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusSimulado, StatusAgendado, StatusEnviado, StatusErro:
		return true
	}
	return false
}

// ParseStatus parses a stored status value.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, s)
	}
	return st, nil
}

// Entry is one ledger record. Created lazily on first dispatch attempt,
// updated in place afterwards, never deleted.
type Entry struct {
	contactID string
	status    Status
	createdAt int64 // unix millis of the first attempt
}

// NewEntry creates a ledger entry.
func NewEntry(contactID string, status Status, createdAt int64) Entry {
	return Entry{contactID: contactID, status: status, createdAt: createdAt}
}

// ContactID returns the contact the entry belongs to.
func (e Entry) ContactID() string { return e.contactID }

// Status returns the last-known send status.
func (e Entry) Status() Status { return e.status }

// CreatedAt returns the first-attempt timestamp (unix millis).
func (e Entry) CreatedAt() int64 { return e.createdAt }
