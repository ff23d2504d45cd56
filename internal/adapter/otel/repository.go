package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/central/internal/domain"
)

const tracerName = "github.com/neomorfeo/central/internal/adapter/otel"

// TracingRepository wraps a domain.Repository with OpenTelemetry tracing.
// Each method creates a span named "<Entity>Repository.<Method>" and records
// errors.
type TracingRepository[T any] struct {
	next   domain.Repository[T]
	tracer trace.Tracer
	entity string
	idOf   func(T) string
}

// NewTracingRepository creates a tracing decorator around the given repository.
// idOf extracts the entity id recorded on write spans.
func NewTracingRepository[T any](entity string, next domain.Repository[T], idOf func(T) string) *TracingRepository[T] {
	return &TracingRepository[T]{
		next:   next,
		tracer: otel.Tracer(tracerName),
		entity: entity,
		idOf:   idOf,
	}
}

func (r *TracingRepository[T]) start(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, r.entity+"Repository."+method, trace.WithAttributes(attrs...))
}

func (r *TracingRepository[T]) idAttr(id string) attribute.KeyValue {
	return attribute.String("entity.id", id)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracingRepository[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	ctx, span := r.start(ctx, "GetByID", r.idAttr(id))
	e, ok, err := r.next.GetByID(ctx, id)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return e, ok, err
}

func (r *TracingRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	ctx, span := r.start(ctx, "GetAll")
	es, err := r.next.GetAll(ctx)
	span.SetAttributes(attribute.Int("result.count", len(es)))
	finish(span, err)
	return es, err
}

func (r *TracingRepository[T]) Find(ctx context.Context, pred domain.Predicate[T]) ([]T, error) {
	ctx, span := r.start(ctx, "Find")
	es, err := r.next.Find(ctx, pred)
	span.SetAttributes(attribute.Int("result.count", len(es)))
	finish(span, err)
	return es, err
}

func (r *TracingRepository[T]) SingleOrDefault(ctx context.Context, pred domain.Predicate[T]) (T, bool, error) {
	ctx, span := r.start(ctx, "SingleOrDefault")
	e, ok, err := r.next.SingleOrDefault(ctx, pred)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return e, ok, err
}

func (r *TracingRepository[T]) Add(ctx context.Context, entity T) (T, error) {
	ctx, span := r.start(ctx, "Add", r.idAttr(r.idOf(entity)))
	e, err := r.next.Add(ctx, entity)
	finish(span, err)
	return e, err
}

func (r *TracingRepository[T]) AddMany(ctx context.Context, entities []T) ([]T, error) {
	ctx, span := r.start(ctx, "AddMany", attribute.Int("batch.size", len(entities)))
	es, err := r.next.AddMany(ctx, entities)
	finish(span, err)
	return es, err
}

func (r *TracingRepository[T]) Update(ctx context.Context, entity T) (T, error) {
	ctx, span := r.start(ctx, "Update", r.idAttr(r.idOf(entity)))
	e, err := r.next.Update(ctx, entity)
	finish(span, err)
	return e, err
}

func (r *TracingRepository[T]) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := r.start(ctx, "Delete", r.idAttr(id))
	ok, err := r.next.Delete(ctx, id)
	span.SetAttributes(attribute.Bool("result.deleted", ok))
	finish(span, err)
	return ok, err
}

func (r *TracingRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := r.start(ctx, "Exists", r.idAttr(id))
	ok, err := r.next.Exists(ctx, id)
	finish(span, err)
	return ok, err
}

func (r *TracingRepository[T]) Count(ctx context.Context) (int, error) {
	ctx, span := r.start(ctx, "Count")
	n, err := r.next.Count(ctx)
	span.SetAttributes(attribute.Int("result.count", n))
	finish(span, err)
	return n, err
}

func (r *TracingRepository[T]) CountWhere(ctx context.Context, pred domain.Predicate[T]) (int, error) {
	ctx, span := r.start(ctx, "CountWhere")
	n, err := r.next.CountWhere(ctx, pred)
	span.SetAttributes(attribute.Int("result.count", n))
	finish(span, err)
	return n, err
}

// TracingBundleRepository adds spans to the bundle lookups.
type TracingBundleRepository struct {
	*TracingRepository[domain.Bundle]
	next domain.BundleRepository
}

var _ domain.BundleRepository = (*TracingBundleRepository)(nil)

func NewTracingBundleRepository(next domain.BundleRepository) *TracingBundleRepository {
	return &TracingBundleRepository{
		TracingRepository: NewTracingRepository[domain.Bundle]("Bundle", next, func(b domain.Bundle) string { return b.ID }),
		next:              next,
	}
}

func (r *TracingBundleRepository) GetByKey(ctx context.Context, key string) (domain.Bundle, bool, error) {
	ctx, span := r.start(ctx, "GetByKey", attribute.String("bundle.key", key))
	b, ok, err := r.next.GetByKey(ctx, key)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return b, ok, err
}

func (r *TracingBundleRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	ctx, span := r.start(ctx, "KeyExists", attribute.String("bundle.key", key))
	ok, err := r.next.KeyExists(ctx, key)
	finish(span, err)
	return ok, err
}

func (r *TracingBundleRepository) NameExists(ctx context.Context, name string) (bool, error) {
	ctx, span := r.start(ctx, "NameExists", attribute.String("bundle.name", name))
	ok, err := r.next.NameExists(ctx, name)
	finish(span, err)
	return ok, err
}

// TracingTenantRepository adds spans to the tenant lookups.
type TracingTenantRepository struct {
	*TracingRepository[domain.Tenant]
	next domain.TenantRepository
}

var _ domain.TenantRepository = (*TracingTenantRepository)(nil)

func NewTracingTenantRepository(next domain.TenantRepository) *TracingTenantRepository {
	return &TracingTenantRepository{
		TracingRepository: NewTracingRepository[domain.Tenant]("Tenant", next, func(t domain.Tenant) string { return t.ID }),
		next:              next,
	}
}

// Email and phone number are personal data and stay off the spans.

func (r *TracingTenantRepository) GetByEmail(ctx context.Context, email string) (domain.Tenant, bool, error) {
	ctx, span := r.start(ctx, "GetByEmail")
	t, ok, err := r.next.GetByEmail(ctx, email)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return t, ok, err
}

func (r *TracingTenantRepository) GetByPhoneNumber(ctx context.Context, phone string) (domain.Tenant, bool, error) {
	ctx, span := r.start(ctx, "GetByPhoneNumber")
	t, ok, err := r.next.GetByPhoneNumber(ctx, phone)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return t, ok, err
}

func (r *TracingTenantRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, span := r.start(ctx, "EmailExists")
	ok, err := r.next.EmailExists(ctx, email)
	finish(span, err)
	return ok, err
}

func (r *TracingTenantRepository) AddWithDomains(ctx context.Context, t domain.Tenant, ds []domain.TenantDomain) (domain.Tenant, []domain.TenantDomain, error) {
	ctx, span := r.start(ctx, "AddWithDomains", r.idAttr(t.ID), attribute.Int("batch.size", len(ds)))
	stored, added, err := r.next.AddWithDomains(ctx, t, ds)
	finish(span, err)
	return stored, added, err
}

// TracingTenantDomainRepository adds spans to the domain lookups.
type TracingTenantDomainRepository struct {
	*TracingRepository[domain.TenantDomain]
	next domain.TenantDomainRepository
}

var _ domain.TenantDomainRepository = (*TracingTenantDomainRepository)(nil)

func NewTracingTenantDomainRepository(next domain.TenantDomainRepository) *TracingTenantDomainRepository {
	return &TracingTenantDomainRepository{
		TracingRepository: NewTracingRepository[domain.TenantDomain]("TenantDomain", next, func(d domain.TenantDomain) string { return d.ID }),
		next:              next,
	}
}

func (r *TracingTenantDomainRepository) GetByName(ctx context.Context, name string) (domain.TenantDomain, bool, error) {
	ctx, span := r.start(ctx, "GetByName", attribute.String("domain.name", name))
	d, ok, err := r.next.GetByName(ctx, name)
	span.SetAttributes(attribute.Bool("result.found", ok))
	finish(span, err)
	return d, ok, err
}

func (r *TracingTenantDomainRepository) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantDomain, error) {
	ctx, span := r.start(ctx, "GetByTenantID", attribute.String("tenant.id", tenantID))
	ds, err := r.next.GetByTenantID(ctx, tenantID)
	span.SetAttributes(attribute.Int("result.count", len(ds)))
	finish(span, err)
	return ds, err
}

func (r *TracingTenantDomainRepository) NameExists(ctx context.Context, name string) (bool, error) {
	ctx, span := r.start(ctx, "NameExists", attribute.String("domain.name", name))
	ok, err := r.next.NameExists(ctx, name)
	finish(span, err)
	return ok, err
}

// TracingSubscriptionRepository adds spans to the subscription lookups.
type TracingSubscriptionRepository struct {
	*TracingRepository[domain.TenantSubscription]
	next domain.TenantSubscriptionRepository
}

var _ domain.TenantSubscriptionRepository = (*TracingSubscriptionRepository)(nil)

func NewTracingSubscriptionRepository(next domain.TenantSubscriptionRepository) *TracingSubscriptionRepository {
	return &TracingSubscriptionRepository{
		TracingRepository: NewTracingRepository[domain.TenantSubscription]("TenantSubscription", next, func(s domain.TenantSubscription) string { return s.ID }),
		next:              next,
	}
}

func (r *TracingSubscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantSubscription, error) {
	ctx, span := r.start(ctx, "GetByTenantID", attribute.String("tenant.id", tenantID))
	ss, err := r.next.GetByTenantID(ctx, tenantID)
	span.SetAttributes(attribute.Int("result.count", len(ss)))
	finish(span, err)
	return ss, err
}

func (r *TracingSubscriptionRepository) GetByBundleID(ctx context.Context, bundleID string) ([]domain.TenantSubscription, error) {
	ctx, span := r.start(ctx, "GetByBundleID", attribute.String("bundle.id", bundleID))
	ss, err := r.next.GetByBundleID(ctx, bundleID)
	span.SetAttributes(attribute.Int("result.count", len(ss)))
	finish(span, err)
	return ss, err
}

func (r *TracingSubscriptionRepository) GetCurrent(ctx context.Context, now time.Time) ([]domain.TenantSubscription, error) {
	ctx, span := r.start(ctx, "GetCurrent", attribute.String("query.now", now.UTC().Format(time.RFC3339)))
	ss, err := r.next.GetCurrent(ctx, now)
	span.SetAttributes(attribute.Int("result.count", len(ss)))
	finish(span, err)
	return ss, err
}
