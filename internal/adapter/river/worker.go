package river

import (
	"context"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ProvisionWorker prepares external resources for a new tenant. For now it
// records the request; provisioning backends plug in here.
type ProvisionWorker struct {
	river.WorkerDefaults[ProvisionTenantArgs]
	logger *zap.Logger
}

func (w *ProvisionWorker) Work(ctx context.Context, job *river.Job[ProvisionTenantArgs]) error {
	log := w.logger.With(
		zap.String("tenant_id", job.Args.TenantID),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)
	log.Info("provisioning tenant", zap.String("tenant_name", job.Args.TenantName))

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info("provisioned tenant")
	return nil
}

// DeprovisionWorker releases the external resources of a deleted tenant.
type DeprovisionWorker struct {
	river.WorkerDefaults[DeprovisionTenantArgs]
	logger *zap.Logger
}

func (w *DeprovisionWorker) Work(ctx context.Context, job *river.Job[DeprovisionTenantArgs]) error {
	log := w.logger.With(
		zap.String("tenant_id", job.Args.TenantID),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)
	log.Info("deprovisioning tenant", zap.String("tenant_name", job.Args.TenantName))

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info("deprovisioned tenant")
	return nil
}
