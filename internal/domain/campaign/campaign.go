// Package campaign models a bulk WhatsApp campaign and its dispatch
// state machine.
package campaign

import (
	"fmt"

	"github.com/zaplinehq/zapline/internal/domain"
)

// Status is the campaign dispatch state. Transitions are driven only by
// the dispatcher.
type Status string

// Campaign statuses.
const (
	// StatusDraft is a created campaign that was never dispatched.
	StatusDraft Status = "draft"
	// StatusDisparada means the full target set was handed to the outbox.
	StatusDisparada Status = "disparada"
	// StatusEmAndamento means dispatch stopped early on daily-quota
	// exhaustion and a later resume is expected.
	StatusEmAndamento Status = "em_andamento"
	// StatusPausada blocks send and retry-errors; resume re-activates.
	StatusPausada Status = "pausada"
	// StatusCancelada is terminal; every dispatch operation is rejected.
	StatusCancelada Status = "cancelada"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusDisparada, StatusEmAndamento, StatusPausada, StatusCancelada:
		return true
	}
	return false
}

// Terminal reports whether the status blocks all further operations.
func (s Status) Terminal() bool { return s == StatusCancelada }

// ParseStatus parses a stored status value.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, s)
	}
	return st, nil
}

// TargetSpec describes which contacts a campaign addresses. Resolution
// happens in the external contacts service.
type TargetSpec struct {
	ListID string
	Tags   []string
}

// Campaign is one bulk send job owned by a tenant.
type Campaign struct {
	id            string
	tenantID      string
	status        Status
	target        TargetSpec
	message       string
	pacingProfile string
	createdAt     int64 // unix millis
}

// New creates a draft campaign.
func New(id, tenantID, message, pacingProfile string, target TargetSpec, createdAt int64) (Campaign, error) {
	if id == "" {
		return Campaign{}, fmt.Errorf("campaign id is required")
	}
	if tenantID == "" {
		return Campaign{}, domain.ErrTenantRequired
	}
	if message == "" {
		return Campaign{}, fmt.Errorf("campaign message is required")
	}
	return Campaign{
		id:            id,
		tenantID:      tenantID,
		status:        StatusDraft,
		target:        target,
		message:       message,
		pacingProfile: pacingProfile,
		createdAt:     createdAt,
	}, nil
}

// Reconstruct rebuilds a campaign from storage.
func Reconstruct(id, tenantID string, status Status, target TargetSpec,
	message, pacingProfile string, createdAt int64,
) Campaign {
	return Campaign{
		id:            id,
		tenantID:      tenantID,
		status:        status,
		target:        target,
		message:       message,
		pacingProfile: pacingProfile,
		createdAt:     createdAt,
	}
}

// ID returns the campaign id.
func (c Campaign) ID() string { return c.id }

// TenantID returns the owning tenant.
func (c Campaign) TenantID() string { return c.tenantID }

// Status returns the dispatch state.
func (c Campaign) Status() Status { return c.status }

// Target returns the target spec.
func (c Campaign) Target() TargetSpec { return c.target }

// Message returns the message body.
func (c Campaign) Message() string { return c.message }

// PacingProfile returns the named pacing profile.
func (c Campaign) PacingProfile() string { return c.pacingProfile }

// CreatedAt returns the creation timestamp (unix millis).
func (c Campaign) CreatedAt() int64 { return c.createdAt }

// WithStatus returns a copy of the campaign in the given status.
func (c Campaign) WithStatus(s Status) Campaign {
	c.status = s
	return c
}
