package health

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; sparse-only retrieval still works.
	Degraded Status = "degraded"
	// Unhealthy indicates every probed component is down.
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

// Service coordinates health checks. The in-memory sparse index has no
// failure mode, so only the vector backend and the embedding provider
// are probed.
type Service struct {
	backend   BackendPinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil when the configured
// embedder has no health endpoint.
func New(backend BackendPinger, embedding EmbeddingChecker) *Service {
	return &Service{backend: backend, embedding: embedding}
}

// Check probes all components in parallel. One failed component degrades
// the status; all components failed makes it unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	var backendErr, embeddingErr error

	// Probes only store their error: one slow or failing component must
	// not cut the other probe short.
	g := new(errgroup.Group)
	g.Go(func() error {
		backendErr = s.backend.Ping(ctx)
		return nil
	})
	if s.embedding != nil {
		g.Go(func() error {
			embeddingErr = s.embedding.HealthCheck(ctx)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult)
	checks["backend"] = checkResult(backendErr)
	if s.embedding != nil {
		checks["embedding"] = checkResult(embeddingErr)
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks) && failed > 0:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func checkResult(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
