package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	outbox   OutboxChecker
	contacts ContactsChecker
}

// New creates a Service. outbox and contacts can be nil.
func New(db DBPinger, outbox OutboxChecker, contacts ContactsChecker) *Service {
	return &Service{db: db, outbox: outbox, contacts: contacts}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.outbox != nil {
		if err := s.outbox.HealthCheck(ctx); err != nil {
			checks["outbox"] = CheckError
		} else {
			checks["outbox"] = CheckOK
		}
	}

	if s.contacts != nil {
		if err := s.contacts.HealthCheck(ctx); err != nil {
			checks["contacts"] = CheckError
		} else {
			checks["contacts"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
