package domain

// Tenant is a customer organization. It owns domains and subscriptions,
// both removed together with the tenant.
type Tenant struct {
	Base
	Name             string
	Email            string
	IsActive         bool
	LogoURL          *string
	PhoneNumber      *string
	PrimaryColor     *string
	SecondaryColor   *string
	ConnectionString *string

	Domains       []TenantDomain
	Subscriptions []TenantSubscription
}

// ActivationStatus is the activation state of a tenant.
type ActivationStatus string

const (
	StatusActive   ActivationStatus = "active"
	StatusInactive ActivationStatus = "inactive"
)

// ActivationEvent is an action that toggles a tenant's activation state.
type ActivationEvent string

const (
	EventActivate   ActivationEvent = "activate"
	EventDeactivate ActivationEvent = "deactivate"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event ActivationEvent
	Src   ActivationStatus
	Dst   ActivationStatus
}

// ActivationTransitions lists every valid activation change.
// This is domain knowledge consumed by the FSM adapter.
var ActivationTransitions = []Transition{
	{Event: EventActivate, Src: StatusInactive, Dst: StatusActive},
	{Event: EventDeactivate, Src: StatusActive, Dst: StatusInactive},
}

// Status derives the activation state from the IsActive flag.
func (t Tenant) Status() ActivationStatus {
	if t.IsActive {
		return StatusActive
	}
	return StatusInactive
}
