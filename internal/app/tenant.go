package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/result"
)

// TenantDTO is the external representation of a tenant. The connection
// string is never exposed.
type TenantDTO struct {
	ID             string
	Name           string
	Email          string
	IsActive       bool
	LogoURL        *string
	PhoneNumber    *string
	PrimaryColor   *string
	SecondaryColor *string
	Domains        []TenantDomainDTO
	Subscriptions  []SubscriptionDTO
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      *string
	UpdatedBy      *string
}

// CreateTenantRequest registers a tenant together with its initial domains.
type CreateTenantRequest struct {
	Name           string   `validate:"required,max=100"`
	Email          string   `validate:"required,email,max=50"`
	LogoURL        *string  `validate:"omitempty,url,max=500"`
	PhoneNumber    *string  `validate:"omitempty,max=20"`
	PrimaryColor   *string  `validate:"omitempty,hexcolor"`
	SecondaryColor *string  `validate:"omitempty,hexcolor"`
	DomainNames    []string `validate:"omitempty,unique,dive,required,max=100"`
}

type UpdateTenantRequest struct {
	ID             string  `validate:"required,uuid"`
	Name           string  `validate:"required,max=100"`
	Email          string  `validate:"required,email,max=50"`
	IsActive       bool
	LogoURL        *string `validate:"omitempty,url,max=500"`
	PhoneNumber    *string `validate:"omitempty,max=20"`
	PrimaryColor   *string `validate:"omitempty,hexcolor"`
	SecondaryColor *string `validate:"omitempty,hexcolor"`
}

// TenantListRequest narrows a tenant listing by name, email or activation.
type TenantListRequest struct {
	ListRequest
	Name     string
	Email    string
	IsActive *bool
}

var tenantMapper = Mapper[domain.Tenant, TenantDTO, CreateTenantRequest, UpdateTenantRequest]{
	Base: func(t *domain.Tenant) *domain.Base { return &t.Base },
	ToDTO: func(t domain.Tenant) TenantDTO {
		d := TenantDTO{
			ID:             t.ID,
			Name:           t.Name,
			Email:          t.Email,
			IsActive:       t.IsActive,
			LogoURL:        t.LogoURL,
			PhoneNumber:    t.PhoneNumber,
			PrimaryColor:   t.PrimaryColor,
			SecondaryColor: t.SecondaryColor,
			Domains:        make([]TenantDomainDTO, len(t.Domains)),
			Subscriptions:  make([]SubscriptionDTO, len(t.Subscriptions)),
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
			CreatedBy:      t.CreatedBy,
			UpdatedBy:      t.UpdatedBy,
		}
		for i, dom := range t.Domains {
			d.Domains[i] = tenantDomainDTO(dom)
		}
		for i, sub := range t.Subscriptions {
			d.Subscriptions[i] = subscriptionMapper.ToDTO(sub)
		}
		return d
	},
	FromCreate: func(r CreateTenantRequest) domain.Tenant {
		return domain.Tenant{
			Name:           r.Name,
			Email:          r.Email,
			IsActive:       true,
			LogoURL:        r.LogoURL,
			PhoneNumber:    r.PhoneNumber,
			PrimaryColor:   r.PrimaryColor,
			SecondaryColor: r.SecondaryColor,
		}
	},
	Overlay: func(t *domain.Tenant, r UpdateTenantRequest) {
		t.Name = r.Name
		t.Email = r.Email
		t.IsActive = r.IsActive
		t.LogoURL = r.LogoURL
		t.PhoneNumber = r.PhoneNumber
		t.PrimaryColor = r.PrimaryColor
		t.SecondaryColor = r.SecondaryColor
	},
	TargetID: func(r UpdateTenantRequest) string { return r.ID },
}

var tenantSorts = map[string]Comparator[domain.Tenant]{
	"name":      ByFold(func(t domain.Tenant) string { return t.Name }),
	"email":     ByFold(func(t domain.Tenant) string { return t.Email }),
	"isactive":  ByBool(func(t domain.Tenant) bool { return t.IsActive }),
	"createdat": ByTime(func(t domain.Tenant) time.Time { return t.CreatedAt }),
}

// TenantService manages tenants, their activation state and the events
// raised when they are created or removed.
type TenantService struct {
	*Service[domain.Tenant, TenantDTO, CreateTenantRequest, UpdateTenantRequest]
	tenants       domain.TenantRepository
	domains       domain.TenantDomainRepository
	subscriptions domain.TenantSubscriptionRepository
	dispatcher    domain.EventDispatcher
	transitions   domain.TransitionValidator
}

type TenantServiceDeps struct {
	Tenants         domain.TenantRepository
	Domains         domain.TenantDomainRepository
	Subscriptions   domain.TenantSubscriptionRepository
	Dispatcher      domain.EventDispatcher
	Transitions     domain.TransitionValidator
	CreateValidator domain.Validator[CreateTenantRequest]
	UpdateValidator domain.Validator[UpdateTenantRequest]
	Clock           func() time.Time
	NewID           func() string
	Logger          *zap.Logger
}

func NewTenantService(deps TenantServiceDeps) *TenantService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	window := withWindow(clock)
	return &TenantService{
		Service: NewService(ServiceConfig[domain.Tenant, TenantDTO, CreateTenantRequest, UpdateTenantRequest]{
			Entity:          "Tenant",
			Repo:            deps.Tenants,
			Mapper:          tenantMapper,
			CreateValidator: deps.CreateValidator,
			UpdateValidator: deps.UpdateValidator,
			Finalize: func(t domain.Tenant, d TenantDTO) TenantDTO {
				for i := range d.Subscriptions {
					d.Subscriptions[i] = window(t.Subscriptions[i], d.Subscriptions[i])
				}
				return d
			},
			Clock:  clock,
			NewID:  deps.NewID,
			Logger: deps.Logger,
		}),
		tenants:       deps.Tenants,
		domains:       deps.Domains,
		subscriptions: deps.Subscriptions,
		dispatcher:    deps.Dispatcher,
		transitions:   deps.Transitions,
	}
}

// List returns a page of tenants. Free text matches name, email or phone.
func (s *TenantService) List(ctx context.Context, req TenantListRequest) (result.Result[Page[TenantDTO]], error) {
	q := Query[domain.Tenant]{
		Match: MatchAny(
			func(t domain.Tenant) string { return t.Name },
			func(t domain.Tenant) string { return t.Email },
			func(t domain.Tenant) string { return deref(t.PhoneNumber) },
		),
		Sorts:       tenantSorts,
		DefaultSort: tenantSorts["name"],
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		q.Filters = append(q.Filters, containsFold(func(t domain.Tenant) string { return t.Name }, name))
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		q.Filters = append(q.Filters, containsFold(func(t domain.Tenant) string { return t.Email }, email))
	}
	if req.IsActive != nil {
		want := *req.IsActive
		q.Filters = append(q.Filters, func(t domain.Tenant) bool { return t.IsActive == want })
	}
	return s.page(ctx, q, req.ListRequest)
}

// GetByID returns a tenant with its live domains and subscriptions.
func (s *TenantService) GetByID(ctx context.Context, id string) (result.Result[TenantDTO], error) {
	t, st, err := s.load(ctx, id)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), err
	}
	if t.Domains, err = s.domains.GetByTenantID(ctx, t.ID); err != nil {
		return result.Result[TenantDTO]{}, fmt.Errorf("loading domains of tenant %s: %w", t.ID, err)
	}
	if t.Subscriptions, err = s.subscriptions.GetByTenantID(ctx, t.ID); err != nil {
		return result.Result[TenantDTO]{}, fmt.Errorf("loading subscriptions of tenant %s: %w", t.ID, err)
	}
	return result.Success(s.toDTO(t)), nil
}

// Create stores a tenant and its initial domains, then announces it.
// A failed announcement does not undo the write: Create returns the stored
// tenant together with the dispatch error.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (result.Result[TenantDTO], error) {
	if st := s.validate(s.createV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), nil
	}
	if st, err := s.checkEmail(ctx, "", req.Email); err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), err
	}
	seen := make(map[string]bool, len(req.DomainNames))
	for _, name := range req.DomainNames {
		if seen[name] {
			return result.Propagate[TenantDTO](conflictStatus("TenantDomain", "name", name)), nil
		}
		seen[name] = true
		taken, err := s.domains.NameExists(ctx, name)
		if err != nil {
			return result.Result[TenantDTO]{}, fmt.Errorf("checking domain name: %w", err)
		}
		if taken {
			return result.Propagate[TenantDTO](conflictStatus("TenantDomain", "name", name)), nil
		}
	}

	t := s.mapper.FromCreate(req)
	s.stamp(&t.Base)

	domains := make([]domain.TenantDomain, len(req.DomainNames))
	for i, name := range req.DomainNames {
		domains[i] = domain.TenantDomain{TenantID: t.ID, Name: name, TenantName: t.Name}
		s.stamp(&domains[i].Base)
	}

	// The tenant and its domains commit together or not at all.
	stored, added, err := s.tenants.AddWithDomains(ctx, t, domains)
	if st, ok := conflict(err); ok {
		return result.Propagate[TenantDTO](st), nil
	}
	if err != nil {
		return result.Result[TenantDTO]{}, fmt.Errorf("adding tenant: %w", err)
	}
	stored.Domains = added

	log := s.log(ctx).With(zap.String("tenant_id", stored.ID))
	log.Info("tenant created", zap.Int("domains", len(stored.Domains)))

	err = s.announce(ctx, log, domain.TenantCreated{
		EventMeta:  domain.NewEventMeta(s.now()),
		TenantID:   stored.ID,
		TenantName: stored.Name,
		Email:      stored.Email,
	})
	return result.Success(s.toDTO(stored)), err
}

// Update rejects an email already used by another live tenant.
func (s *TenantService) Update(ctx context.Context, req UpdateTenantRequest) (result.Result[TenantDTO], error) {
	if st := s.validate(s.updateV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), nil
	}
	existing, st, err := s.load(ctx, req.ID)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), err
	}
	if st, err := s.checkEmail(ctx, existing.ID, req.Email); err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), err
	}
	return s.apply(ctx, existing, req)
}

// Delete soft-deletes a tenant along with its domains and subscriptions,
// then announces the removal.
func (s *TenantService) Delete(ctx context.Context, id string) (result.Status, error) {
	t, st, err := s.load(ctx, id)
	if err != nil || !st.IsSuccess() {
		return st, err
	}

	deleted, err := s.tenants.Delete(ctx, id)
	if err != nil {
		return result.Status{}, fmt.Errorf("deleting tenant %s: %w", id, err)
	}
	if !deleted {
		return result.Failed(result.KindFailure, fmt.Sprintf("failed to delete Tenant with ID %s", id)), nil
	}

	log := s.log(ctx).With(zap.String("tenant_id", id))
	log.Info("tenant deleted")

	err = s.announce(ctx, log, domain.TenantDeleted{
		EventMeta:  domain.NewEventMeta(s.now()),
		TenantID:   t.ID,
		TenantName: t.Name,
	})
	return result.OK(), err
}

// Activate marks an inactive tenant active.
func (s *TenantService) Activate(ctx context.Context, id string) (result.Status, error) {
	return s.transition(ctx, id, domain.EventActivate)
}

// Deactivate marks an active tenant inactive.
func (s *TenantService) Deactivate(ctx context.Context, id string) (result.Status, error) {
	return s.transition(ctx, id, domain.EventDeactivate)
}

func (s *TenantService) transition(ctx context.Context, id string, event domain.ActivationEvent) (result.Status, error) {
	t, st, err := s.load(ctx, id)
	if err != nil || !st.IsSuccess() {
		return st, err
	}

	next, err := s.transitions.Apply(ctx, t.Status(), event)
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return result.Failed(result.KindDomainRule, fmt.Sprintf("Tenant is already %s", te.Current)), nil
	}
	if err != nil {
		return result.Status{}, fmt.Errorf("applying %s to tenant %s: %w", event, id, err)
	}

	t.IsActive = next == domain.StatusActive
	t.UpdatedAt = s.now().UTC()
	if _, err := s.tenants.Update(ctx, t); err != nil {
		return result.Status{}, fmt.Errorf("updating tenant %s: %w", id, err)
	}

	s.log(ctx).Info("tenant activation changed",
		zap.String("tenant_id", id),
		zap.String("status", string(next)),
	)
	return result.OK(), nil
}

// GetByEmail returns the live tenant with the given email.
func (s *TenantService) GetByEmail(ctx context.Context, email string) (result.Result[TenantDTO], error) {
	if st := requireKey("email", email); !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), nil
	}
	t, ok, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		return result.Result[TenantDTO]{}, fmt.Errorf("loading tenant by email: %w", err)
	}
	if !ok {
		return result.Fail[TenantDTO](result.KindNotFound, fmt.Sprintf("Tenant with email %q not found", email)), nil
	}
	return result.Success(s.toDTO(t)), nil
}

// GetByPhoneNumber returns the live tenant with the given phone number.
func (s *TenantService) GetByPhoneNumber(ctx context.Context, phone string) (result.Result[TenantDTO], error) {
	if st := requireKey("phone number", phone); !st.IsSuccess() {
		return result.Propagate[TenantDTO](st), nil
	}
	t, ok, err := s.tenants.GetByPhoneNumber(ctx, phone)
	if err != nil {
		return result.Result[TenantDTO]{}, fmt.Errorf("loading tenant by phone number: %w", err)
	}
	if !ok {
		return result.Fail[TenantDTO](result.KindNotFound, fmt.Sprintf("Tenant with phone number %q not found", phone)), nil
	}
	return result.Success(s.toDTO(t)), nil
}

func (s *TenantService) checkEmail(ctx context.Context, selfID, email string) (result.Status, error) {
	t, ok, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking tenant email: %w", err)
	}
	if ok && t.ID != selfID {
		return conflictStatus("Tenant", "email", email), nil
	}
	return result.OK(), nil
}

// announce dispatches an event after the write it describes has been stored.
// Handler failures are logged and returned; the write stays committed.
func (s *TenantService) announce(ctx context.Context, log *zap.Logger, event domain.Event) error {
	if s.dispatcher == nil {
		return nil
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		log.Error("dispatching domain event",
			zap.String("event_kind", event.Kind()),
			zap.Error(err),
		)
		return fmt.Errorf("announcing %s: %w", event.Kind(), err)
	}
	return nil
}
