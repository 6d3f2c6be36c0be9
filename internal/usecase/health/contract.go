package health

import "context"

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// OutboxChecker checks the message outbox service.
type OutboxChecker interface {
	HealthCheck(ctx context.Context) error
}

// ContactsChecker checks the contacts service.
type ContactsChecker interface {
	HealthCheck(ctx context.Context) error
}
