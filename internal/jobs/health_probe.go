package jobs

import (
	"context"
	"log"

	"claramesh/internal/health"
)

// HealthProbeJob pings every upstream component that registered a probe
type HealthProbeJob struct {
	healthService *health.Service
}

// NewHealthProbeJob creates a new health probe job
func NewHealthProbeJob(healthService *health.Service) *HealthProbeJob {
	return &HealthProbeJob{healthService: healthService}
}

// Run probes all components. Failures are recorded in the health service,
// not returned: a down dependency is not a job failure.
func (p *HealthProbeJob) Run(ctx context.Context) error {
	failures := p.healthService.ProbeAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	status := p.healthService.GetStatus()
	log.Printf("[HEALTH-JOB] Probes complete: %d component(s), %d failed",
		status["total"], len(failures))
	for component, err := range failures {
		log.Printf("[HEALTH-JOB] %s: FAILED (%v)", component, err)
	}
	return nil
}
