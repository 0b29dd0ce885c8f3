package memento

import (
	"context"

	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
)

// HealthStatus represents the aggregated index health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// OK reports whether every checked component is healthy.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Health checks the search index.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
