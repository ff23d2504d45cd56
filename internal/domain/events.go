package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a fact emitted after a committed write.
type Event interface {
	EventID() string
	OccurredAt() time.Time
	// Kind identifies the event type; handlers are registered per kind.
	Kind() string
}

// EventMeta carries the fields common to every event.
type EventMeta struct {
	ID         string
	OccurredOn time.Time
}

// NewEventMeta stamps a fresh event identifier and the occurrence time.
func NewEventMeta(now time.Time) EventMeta {
	return EventMeta{ID: uuid.NewString(), OccurredOn: now.UTC()}
}

func (m EventMeta) EventID() string       { return m.ID }
func (m EventMeta) OccurredAt() time.Time { return m.OccurredOn }

const (
	KindTenantCreated = "tenant.created"
	KindTenantDeleted = "tenant.deleted"
)

// TenantCreated is emitted once a tenant and its initial domains are stored.
type TenantCreated struct {
	EventMeta
	TenantID   string
	TenantName string
	Email      string
}

func (TenantCreated) Kind() string { return KindTenantCreated }

// TenantDeleted is emitted after a tenant has been soft-deleted.
type TenantDeleted struct {
	EventMeta
	TenantID   string
	TenantName string
}

func (TenantDeleted) Kind() string { return KindTenantDeleted }
