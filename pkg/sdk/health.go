package receiptdex

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
)

// HealthState is the aggregated state of the client's dependencies.
type HealthState string

// Health states.
const (
	HealthOK       HealthState = HealthState(healthuc.Healthy)
	HealthDegraded HealthState = HealthState(healthuc.Degraded)
	HealthError    HealthState = HealthState(healthuc.Unhealthy)
)

// HealthStatus reports the receipt store and, when it can tell, the language model.
type HealthStatus struct {
	Status HealthState
	Checks map[string]string // component -> "ok" | "error"
}

// Ready reports whether receipts can be read. A failing model only degrades
// search: list and put keep working.
func (h HealthStatus) Ready() bool { return h.Status != HealthError }

// Health checks the dependencies.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)
	c.obs.observe("health", start, nil)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: HealthState(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
