// Package outbox holds the wire shape of the external WhatsApp queue.
// The queue itself is an external collaborator; zapline only enqueues
// and cancels items.
package outbox

import "time"

// Message is one outbound item handed to the WhatsApp queue. The
// idempotency key makes re-submission a no-op at the transport layer.
type Message struct {
	TenantID       string
	CampaignID     string
	ContactID      string
	Identifier     string
	Body           string
	NotBefore      time.Time
	IdempotencyKey string
}
