package fusedex

import (
	"context"
)

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Health probes the vector backend and, when the embedder exposes a
// health endpoint, the embedding provider. A degraded status means
// sparse-only retrieval still works.
func (r *Retriever) Health(ctx context.Context) HealthStatus {
	report := r.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
