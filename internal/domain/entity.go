package domain

import "time"

// Base carries the identity and audit fields shared by every entity.
// A non-nil DeletedAt marks the entity as soft-deleted.
type Base struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	CreatedBy *string
	UpdatedBy *string
	DeletedBy *string
}

// IsDeleted reports whether the entity has been soft-deleted.
func (b Base) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Bundle is a purchasable feature package identified by a unique key.
type Bundle struct {
	Base
	Name        string
	Key         string
	Description *string
}

// TenantDomain is a domain name owned by one tenant.
type TenantDomain struct {
	Base
	TenantID string
	Name     string

	// TenantName is a read-only projection of the owning tenant.
	TenantName string
}
