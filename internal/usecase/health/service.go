// Package health aggregates component health checks for the /health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: the database answers but the
	// embedding provider does not, so ingestion and search will fail
	// while document reads keep working.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
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
	db        DBPinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{db: db, embedding: embedding}
}

// Check runs health checks against all components. The database is the
// hard dependency: when it fails the report is Unhealthy regardless of
// the embedding provider.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := s.db.Ping(ctx) == nil
	if dbOK {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
	}

	embOK := true
	if s.embedding != nil {
		embOK = s.embedding.HealthCheck(ctx) == nil
		if embOK {
			checks["embedding"] = CheckOK
		} else {
			checks["embedding"] = CheckError
		}
	}

	switch {
	case !dbOK:
		return Report{Status: Unhealthy, Checks: checks}
	case !embOK:
		return Report{Status: Degraded, Checks: checks}
	default:
		return Report{Status: Healthy, Checks: checks}
	}
}
