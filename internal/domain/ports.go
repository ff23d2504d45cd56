package domain

import (
	"context"
	"time"
)

// Predicate selects entities in Find, SingleOrDefault and CountWhere.
type Predicate[T any] func(T) bool

// Repository is the persistence contract shared by every entity type.
//
// Soft-deleted rows are invisible to every method. Absence is never an
// error: lookups report it through their boolean or empty results.
type Repository[T any] interface {
	GetByID(ctx context.Context, id string) (T, bool, error)
	GetAll(ctx context.Context) ([]T, error)
	Find(ctx context.Context, pred Predicate[T]) ([]T, error)
	// SingleOrDefault returns the only match, or false when nothing matches.
	// More than one match is an error.
	SingleOrDefault(ctx context.Context, pred Predicate[T]) (T, bool, error)
	Add(ctx context.Context, entity T) (T, error)
	AddMany(ctx context.Context, entities []T) ([]T, error)
	// Update replaces a previously fetched entity.
	Update(ctx context.Context, entity T) (T, error)
	// Delete soft-deletes by id and reports whether a live row was marked.
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	CountWhere(ctx context.Context, pred Predicate[T]) (int, error)
}

// BundleRepository adds bundle lookups by unique columns.
type BundleRepository interface {
	Repository[Bundle]
	GetByKey(ctx context.Context, key string) (Bundle, bool, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	NameExists(ctx context.Context, name string) (bool, error)
}

// TenantRepository adds tenant lookups by contact details. Delete also
// soft-deletes the tenant's domains and subscriptions in the same write.
type TenantRepository interface {
	Repository[Tenant]
	GetByEmail(ctx context.Context, email string) (Tenant, bool, error)
	GetByPhoneNumber(ctx context.Context, phone string) (Tenant, bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// AddWithDomains stores a tenant and its domains atomically. Nothing is
	// stored when any insert fails.
	AddWithDomains(ctx context.Context, t Tenant, domains []TenantDomain) (Tenant, []TenantDomain, error)
}

// TenantDomainRepository adds domain lookups by name and owner.
type TenantDomainRepository interface {
	Repository[TenantDomain]
	GetByName(ctx context.Context, name string) (TenantDomain, bool, error)
	GetByTenantID(ctx context.Context, tenantID string) ([]TenantDomain, error)
	NameExists(ctx context.Context, name string) (bool, error)
}

// TenantSubscriptionRepository adds subscription lookups by owner and bundle.
type TenantSubscriptionRepository interface {
	Repository[TenantSubscription]
	GetByTenantID(ctx context.Context, tenantID string) ([]TenantSubscription, error)
	GetByBundleID(ctx context.Context, bundleID string) ([]TenantSubscription, error)
	// GetCurrent returns subscriptions whose period has not ended at now.
	GetCurrent(ctx context.Context, now time.Time) ([]TenantSubscription, error)
}

// FieldError is a single rule violation reported by a Validator.
type FieldError struct {
	Field   string
	Message string
}

// Validator checks a request value. An empty result means the value is valid.
type Validator[T any] interface {
	Validate(ctx context.Context, v T) []FieldError
}

// EventDispatcher delivers a domain event to every handler registered for it.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// TransitionValidator checks activation changes against ActivationTransitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current ActivationStatus, event ActivationEvent) (ActivationStatus, error)
}
