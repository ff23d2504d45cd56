package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/result"
)

// SubscriptionDTO is the external representation of a tenant subscription.
// EndDate and IsActive are derived at read time.
type SubscriptionDTO struct {
	ID         string
	TenantID   string
	BundleID   string
	Duration   int
	StartDate  time.Time
	EndDate    time.Time
	IsActive   bool
	TenantName string
	BundleName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CreatedBy  *string
	UpdatedBy  *string
}

// CreateSubscriptionRequest grants a bundle to a tenant for Duration days.
type CreateSubscriptionRequest struct {
	TenantID  string    `validate:"required,uuid"`
	BundleID  string    `validate:"required,uuid"`
	Duration  int       `validate:"gt=0"`
	StartDate time.Time `validate:"required"`
}

type UpdateSubscriptionRequest struct {
	ID        string    `validate:"required,uuid"`
	TenantID  string    `validate:"required,uuid"`
	BundleID  string    `validate:"required,uuid"`
	Duration  int       `validate:"gt=0"`
	StartDate time.Time `validate:"required"`
}

// SubscriptionListRequest narrows a subscription listing by owner, bundle or
// activity at the time of the call.
type SubscriptionListRequest struct {
	ListRequest
	TenantID string
	BundleID string
	IsActive *bool
}

// subscriptionMapper leaves EndDate and IsActive unset; the service fills
// them in after mapping.
var subscriptionMapper = Mapper[domain.TenantSubscription, SubscriptionDTO, CreateSubscriptionRequest, UpdateSubscriptionRequest]{
	Base: func(s *domain.TenantSubscription) *domain.Base { return &s.Base },
	ToDTO: func(s domain.TenantSubscription) SubscriptionDTO {
		return SubscriptionDTO{
			ID:         s.ID,
			TenantID:   s.TenantID,
			BundleID:   s.BundleID,
			Duration:   s.Duration,
			StartDate:  s.StartDate,
			TenantName: s.TenantName,
			BundleName: s.BundleName,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
			CreatedBy:  s.CreatedBy,
			UpdatedBy:  s.UpdatedBy,
		}
	},
	FromCreate: func(r CreateSubscriptionRequest) domain.TenantSubscription {
		return domain.TenantSubscription{
			TenantID:  r.TenantID,
			BundleID:  r.BundleID,
			Duration:  r.Duration,
			StartDate: r.StartDate.UTC(),
		}
	},
	Overlay: func(s *domain.TenantSubscription, r UpdateSubscriptionRequest) {
		s.TenantID = r.TenantID
		s.BundleID = r.BundleID
		s.Duration = r.Duration
		s.StartDate = r.StartDate.UTC()
	},
	TargetID: func(r UpdateSubscriptionRequest) string { return r.ID },
}

var subscriptionSorts = map[string]Comparator[domain.TenantSubscription]{
	"startdate": ByTime(func(s domain.TenantSubscription) time.Time { return s.StartDate }),
	"duration":  By(func(s domain.TenantSubscription) int { return s.Duration }),
	"tenantid":  By(func(s domain.TenantSubscription) string { return s.TenantID }),
	"bundleid":  By(func(s domain.TenantSubscription) string { return s.BundleID }),
	"createdat": ByTime(func(s domain.TenantSubscription) time.Time { return s.CreatedAt }),
}

func newestFirst(a, b domain.TenantSubscription) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

// SubscriptionService manages tenant subscriptions and answers activity
// questions about them.
type SubscriptionService struct {
	*Service[domain.TenantSubscription, SubscriptionDTO, CreateSubscriptionRequest, UpdateSubscriptionRequest]
	subscriptions domain.TenantSubscriptionRepository
	tenants       domain.TenantRepository
	bundles       domain.BundleRepository
}

type SubscriptionServiceDeps struct {
	Subscriptions   domain.TenantSubscriptionRepository
	Tenants         domain.TenantRepository
	Bundles         domain.BundleRepository
	CreateValidator domain.Validator[CreateSubscriptionRequest]
	UpdateValidator domain.Validator[UpdateSubscriptionRequest]
	Clock           func() time.Time
	NewID           func() string
	Logger          *zap.Logger
}

func NewSubscriptionService(deps SubscriptionServiceDeps) *SubscriptionService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SubscriptionService{
		Service: NewService(ServiceConfig[domain.TenantSubscription, SubscriptionDTO, CreateSubscriptionRequest, UpdateSubscriptionRequest]{
			Entity:          "TenantSubscription",
			Repo:            deps.Subscriptions,
			Mapper:          subscriptionMapper,
			CreateValidator: deps.CreateValidator,
			UpdateValidator: deps.UpdateValidator,
			Finalize:        withWindow(clock),
			Clock:           clock,
			NewID:           deps.NewID,
			Logger:          deps.Logger,
		}),
		subscriptions: deps.Subscriptions,
		tenants:       deps.Tenants,
		bundles:       deps.Bundles,
	}
}

// withWindow overwrites the derived end date and activity flag of a mapped
// subscription.
func withWindow(clock func() time.Time) func(domain.TenantSubscription, SubscriptionDTO) SubscriptionDTO {
	return func(s domain.TenantSubscription, d SubscriptionDTO) SubscriptionDTO {
		d.EndDate, d.IsActive = s.Window(clock())
		return d
	}
}

// List returns a page of subscriptions, newest first unless sorted otherwise.
// A numeric search matches the duration exactly; any other search matches
// tenant and bundle ids.
func (s *SubscriptionService) List(ctx context.Context, req SubscriptionListRequest) (result.Result[Page[SubscriptionDTO]], error) {
	q := Query[domain.TenantSubscription]{
		Match:       matchSubscription,
		Sorts:       subscriptionSorts,
		DefaultSort: newestFirst,
	}
	if id := strings.TrimSpace(req.TenantID); id != "" {
		q.Filters = append(q.Filters, func(sub domain.TenantSubscription) bool { return sub.TenantID == id })
	}
	if id := strings.TrimSpace(req.BundleID); id != "" {
		q.Filters = append(q.Filters, func(sub domain.TenantSubscription) bool { return sub.BundleID == id })
	}
	if req.IsActive != nil {
		now, want := s.now(), *req.IsActive
		q.Filters = append(q.Filters, func(sub domain.TenantSubscription) bool {
			_, active := sub.Window(now)
			return active == want
		})
	}
	return s.page(ctx, q, req.ListRequest)
}

func matchSubscription(sub domain.TenantSubscription, term string) bool {
	if n, err := strconv.Atoi(term); err == nil {
		return sub.Duration == n
	}
	return MatchAny(
		func(s domain.TenantSubscription) string { return s.TenantID },
		func(s domain.TenantSubscription) string { return s.BundleID },
	)(sub, term)
}

// Create grants an existing bundle to an existing tenant.
func (s *SubscriptionService) Create(ctx context.Context, req CreateSubscriptionRequest) (result.Result[SubscriptionDTO], error) {
	if st := s.validate(s.createV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[SubscriptionDTO](st), nil
	}
	if st, err := s.checkRefs(ctx, req.TenantID, req.BundleID); err != nil || !st.IsSuccess() {
		return result.Propagate[SubscriptionDTO](st), err
	}
	return s.insert(ctx, s.mapper.FromCreate(req))
}

func (s *SubscriptionService) Update(ctx context.Context, req UpdateSubscriptionRequest) (result.Result[SubscriptionDTO], error) {
	if st := s.validate(s.updateV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[SubscriptionDTO](st), nil
	}
	existing, st, err := s.load(ctx, req.ID)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[SubscriptionDTO](st), err
	}
	if st, err := s.checkRefs(ctx, req.TenantID, req.BundleID); err != nil || !st.IsSuccess() {
		return result.Propagate[SubscriptionDTO](st), err
	}
	return s.apply(ctx, existing, req)
}

// GetByTenantID returns every live subscription of a tenant.
func (s *SubscriptionService) GetByTenantID(ctx context.Context, tenantID string) (result.Result[[]SubscriptionDTO], error) {
	if st := requireKey("tenant id", tenantID); !st.IsSuccess() {
		return result.Propagate[[]SubscriptionDTO](st), nil
	}
	items, err := s.subscriptions.GetByTenantID(ctx, tenantID)
	if err != nil {
		return result.Result[[]SubscriptionDTO]{}, fmt.Errorf("listing subscriptions of tenant %s: %w", tenantID, err)
	}
	return result.Success(s.toDTOs(items)), nil
}

// GetByBundleID returns every live subscription to a bundle.
func (s *SubscriptionService) GetByBundleID(ctx context.Context, bundleID string) (result.Result[[]SubscriptionDTO], error) {
	if st := requireKey("bundle id", bundleID); !st.IsSuccess() {
		return result.Propagate[[]SubscriptionDTO](st), nil
	}
	items, err := s.subscriptions.GetByBundleID(ctx, bundleID)
	if err != nil {
		return result.Result[[]SubscriptionDTO]{}, fmt.Errorf("listing subscriptions of bundle %s: %w", bundleID, err)
	}
	return result.Success(s.toDTOs(items)), nil
}

// GetActive returns the subscriptions active right now.
func (s *SubscriptionService) GetActive(ctx context.Context) (result.Result[[]SubscriptionDTO], error) {
	now := s.now()
	current, err := s.subscriptions.GetCurrent(ctx, now)
	if err != nil {
		return result.Result[[]SubscriptionDTO]{}, fmt.Errorf("listing current subscriptions: %w", err)
	}
	active := make([]domain.TenantSubscription, 0, len(current))
	for _, sub := range current {
		if _, ok := sub.Window(now); ok {
			active = append(active, sub)
		}
	}
	return result.Success(s.toDTOs(active)), nil
}

// HasActiveSubscription reports whether the tenant holds an active
// subscription to the bundle.
func (s *SubscriptionService) HasActiveSubscription(ctx context.Context, tenantID, bundleID string) (result.Result[bool], error) {
	if st := requireKey("tenant id", tenantID); !st.IsSuccess() {
		return result.Propagate[bool](st), nil
	}
	if st := requireKey("bundle id", bundleID); !st.IsSuccess() {
		return result.Propagate[bool](st), nil
	}
	items, err := s.subscriptions.GetByTenantID(ctx, tenantID)
	if err != nil {
		return result.Result[bool]{}, fmt.Errorf("listing subscriptions of tenant %s: %w", tenantID, err)
	}
	now := s.now()
	for _, sub := range items {
		if sub.BundleID != bundleID {
			continue
		}
		if _, ok := sub.Window(now); ok {
			return result.Success(true), nil
		}
	}
	return result.Success(false), nil
}

// IsSubscriptionActive reports whether one subscription is active now.
func (s *SubscriptionService) IsSubscriptionActive(ctx context.Context, id string) (result.Result[bool], error) {
	sub, st, err := s.load(ctx, id)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[bool](st), err
	}
	_, active := sub.Window(s.now())
	return result.Success(active), nil
}

func (s *SubscriptionService) checkRefs(ctx context.Context, tenantID, bundleID string) (result.Status, error) {
	ok, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking tenant %s: %w", tenantID, err)
	}
	if !ok {
		return tenantNotFound(tenantID), nil
	}
	ok, err = s.bundles.Exists(ctx, bundleID)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking bundle %s: %w", bundleID, err)
	}
	if !ok {
		return result.Failed(result.KindNotFound, fmt.Sprintf("Bundle with ID %s not found", bundleID)), nil
	}
	return result.OK(), nil
}
