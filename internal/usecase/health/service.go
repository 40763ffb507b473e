package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; searches may still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the receipt store is unreachable.
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
	store   Pinger
	kv      Pinger
	model   ModelChecker
	timeout time.Duration
}

// New creates a Service. kv and model can be nil.
func New(store Pinger, kv Pinger, model ModelChecker) *Service {
	return &Service{store: store, kv: kv, model: model, timeout: 3 * time.Second}
}

// Check runs every dependency check with its own deadline.
// The receipt store is required; the KV store and the model only degrade.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	checks["store"] = s.check(ctx, s.store.Ping)
	if s.kv != nil {
		checks["kv"] = s.check(ctx, s.kv.Ping)
	}
	if s.model != nil {
		checks["llm"] = s.check(ctx, s.model.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["store"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) check(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
