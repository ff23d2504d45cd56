package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/event"
)

// ProvisionTenantArgs carries a snapshot of a newly created tenant. River
// serializes it as JSON into its job table, so the worker never needs to
// query the database.
type ProvisionTenantArgs struct {
	EventID    string `json:"event_id"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	Email      string `json:"email"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ProvisionTenantArgs) Kind() string { return "tenant.provision" }

// DeprovisionTenantArgs carries a snapshot of a deleted tenant.
type DeprovisionTenantArgs struct {
	EventID    string `json:"event_id"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
}

func (DeprovisionTenantArgs) Kind() string { return "tenant.deprovision" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Inserter enqueues jobs. *Client satisfies it.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

var _ Inserter = (*Client)(nil)

// Enqueuer turns tenant events into background jobs.
type Enqueuer struct {
	jobs Inserter
}

// NewEnqueuer creates an enqueuer backed by the given inserter.
func NewEnqueuer(jobs Inserter) *Enqueuer {
	return &Enqueuer{jobs: jobs}
}

// Register subscribes the enqueuer to the tenant lifecycle events.
func (e *Enqueuer) Register(r *event.Registry) {
	event.Subscribe[domain.TenantCreated](r, "enqueue-tenant-provisioning", e.TenantCreated)
	event.Subscribe[domain.TenantDeleted](r, "enqueue-tenant-deprovisioning", e.TenantDeleted)
}

// TenantCreated enqueues a provisioning job.
func (e *Enqueuer) TenantCreated(ctx context.Context, ev domain.TenantCreated) error {
	_, err := e.jobs.Insert(ctx, ProvisionTenantArgs{
		EventID:    ev.EventID(),
		TenantID:   ev.TenantID,
		TenantName: ev.TenantName,
		Email:      ev.Email,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing provisioning job: %w", err)
	}
	return nil
}

// TenantDeleted enqueues a deprovisioning job.
func (e *Enqueuer) TenantDeleted(ctx context.Context, ev domain.TenantDeleted) error {
	_, err := e.jobs.Insert(ctx, DeprovisionTenantArgs{
		EventID:    ev.EventID(),
		TenantID:   ev.TenantID,
		TenantName: ev.TenantName,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing deprovisioning job: %w", err)
	}
	return nil
}
