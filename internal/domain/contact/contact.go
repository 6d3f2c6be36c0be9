// Package contact holds the minimal contact shape the dispatcher needs.
// Contact storage and CRUD live in the external contacts service.
package contact

// Contact is one eligible campaign recipient.
type Contact struct {
	ID         string
	Identifier string // WhatsApp identifier (phone/JID)
}
