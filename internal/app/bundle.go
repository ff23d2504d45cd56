package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/result"
)

// BundleDTO is the external representation of a bundle.
type BundleDTO struct {
	ID          string
	Name        string
	Key         string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   *string
	UpdatedBy   *string
}

type CreateBundleRequest struct {
	Name        string  `validate:"required,max=100"`
	Key         string  `validate:"required,max=50"`
	Description *string `validate:"omitempty,max=500"`
}

type UpdateBundleRequest struct {
	ID          string  `validate:"required,uuid"`
	Name        string  `validate:"required,max=100"`
	Key         string  `validate:"required,max=50"`
	Description *string `validate:"omitempty,max=500"`
}

// BundleListRequest narrows a bundle listing by name and key substrings.
type BundleListRequest struct {
	ListRequest
	Name string
	Key  string
}

var bundleMapper = Mapper[domain.Bundle, BundleDTO, CreateBundleRequest, UpdateBundleRequest]{
	Base: func(b *domain.Bundle) *domain.Base { return &b.Base },
	ToDTO: func(b domain.Bundle) BundleDTO {
		return BundleDTO{
			ID:          b.ID,
			Name:        b.Name,
			Key:         b.Key,
			Description: b.Description,
			CreatedAt:   b.CreatedAt,
			UpdatedAt:   b.UpdatedAt,
			CreatedBy:   b.CreatedBy,
			UpdatedBy:   b.UpdatedBy,
		}
	},
	FromCreate: func(r CreateBundleRequest) domain.Bundle {
		return domain.Bundle{Name: r.Name, Key: r.Key, Description: r.Description}
	},
	Overlay: func(b *domain.Bundle, r UpdateBundleRequest) {
		b.Name = r.Name
		b.Key = r.Key
		b.Description = r.Description
	},
	TargetID: func(r UpdateBundleRequest) string { return r.ID },
}

var bundleSorts = map[string]Comparator[domain.Bundle]{
	"name":      ByFold(func(b domain.Bundle) string { return b.Name }),
	"key":       ByFold(func(b domain.Bundle) string { return b.Key }),
	"createdat": ByTime(func(b domain.Bundle) time.Time { return b.CreatedAt }),
}

// BundleService manages bundles. Keys and names are unique among live bundles.
type BundleService struct {
	*Service[domain.Bundle, BundleDTO, CreateBundleRequest, UpdateBundleRequest]
	bundles       domain.BundleRepository
	subscriptions domain.TenantSubscriptionRepository
}

// BundleServiceDeps lists the collaborators of a BundleService.
type BundleServiceDeps struct {
	Bundles         domain.BundleRepository
	Subscriptions   domain.TenantSubscriptionRepository
	CreateValidator domain.Validator[CreateBundleRequest]
	UpdateValidator domain.Validator[UpdateBundleRequest]
	Clock           func() time.Time
	NewID           func() string
	Logger          *zap.Logger
}

func NewBundleService(deps BundleServiceDeps) *BundleService {
	return &BundleService{
		Service: NewService(ServiceConfig[domain.Bundle, BundleDTO, CreateBundleRequest, UpdateBundleRequest]{
			Entity:          "Bundle",
			Repo:            deps.Bundles,
			Mapper:          bundleMapper,
			CreateValidator: deps.CreateValidator,
			UpdateValidator: deps.UpdateValidator,
			Clock:           deps.Clock,
			NewID:           deps.NewID,
			Logger:          deps.Logger,
		}),
		bundles:       deps.Bundles,
		subscriptions: deps.Subscriptions,
	}
}

// List returns a page of bundles. Free text matches name, key or description.
func (s *BundleService) List(ctx context.Context, req BundleListRequest) (result.Result[Page[BundleDTO]], error) {
	q := Query[domain.Bundle]{
		Match: MatchAny(
			func(b domain.Bundle) string { return b.Name },
			func(b domain.Bundle) string { return b.Key },
			func(b domain.Bundle) string { return deref(b.Description) },
		),
		Sorts:       bundleSorts,
		DefaultSort: bundleSorts["name"],
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		q.Filters = append(q.Filters, containsFold(func(b domain.Bundle) string { return b.Name }, name))
	}
	if key := strings.TrimSpace(req.Key); key != "" {
		q.Filters = append(q.Filters, containsFold(func(b domain.Bundle) string { return b.Key }, key))
	}
	return s.page(ctx, q, req.ListRequest)
}

// Create rejects keys and names already used by a live bundle.
func (s *BundleService) Create(ctx context.Context, req CreateBundleRequest) (result.Result[BundleDTO], error) {
	if st := s.validate(s.createV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), nil
	}
	st, err := s.checkUnique(ctx, "", req.Key, req.Name)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), err
	}
	return s.insert(ctx, s.mapper.FromCreate(req))
}

// Update rejects keys and names used by another live bundle.
func (s *BundleService) Update(ctx context.Context, req UpdateBundleRequest) (result.Result[BundleDTO], error) {
	if st := s.validate(s.updateV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), nil
	}
	existing, st, err := s.load(ctx, req.ID)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), err
	}
	st, err = s.checkUnique(ctx, existing.ID, req.Key, req.Name)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), err
	}
	return s.apply(ctx, existing, req)
}

// Delete refuses to remove a bundle that live subscriptions still reference.
func (s *BundleService) Delete(ctx context.Context, id string) (result.Status, error) {
	if st := requireKey("id", id); !st.IsSuccess() {
		return st, nil
	}
	subs, err := s.subscriptions.GetByBundleID(ctx, id)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking subscriptions of bundle %s: %w", id, err)
	}
	if len(subs) > 0 {
		return result.Failed(result.KindConflict,
			fmt.Sprintf("Bundle with ID %s is referenced by %d subscription(s)", id, len(subs))), nil
	}
	return s.Service.Delete(ctx, id)
}

// GetByKey returns the live bundle with the given key.
func (s *BundleService) GetByKey(ctx context.Context, key string) (result.Result[BundleDTO], error) {
	if st := requireKey("key", key); !st.IsSuccess() {
		return result.Propagate[BundleDTO](st), nil
	}
	b, ok, err := s.bundles.GetByKey(ctx, key)
	if err != nil {
		return result.Result[BundleDTO]{}, fmt.Errorf("loading bundle by key: %w", err)
	}
	if !ok {
		return result.Fail[BundleDTO](result.KindNotFound, fmt.Sprintf("Bundle with key %q not found", key)), nil
	}
	return result.Success(s.toDTO(b)), nil
}

// KeyExists reports whether a live bundle uses key.
func (s *BundleService) KeyExists(ctx context.Context, key string) (result.Result[bool], error) {
	if st := requireKey("key", key); !st.IsSuccess() {
		return result.Propagate[bool](st), nil
	}
	ok, err := s.bundles.KeyExists(ctx, key)
	if err != nil {
		return result.Result[bool]{}, fmt.Errorf("checking bundle key: %w", err)
	}
	return result.Success(ok), nil
}

func (s *BundleService) checkUnique(ctx context.Context, selfID, key, name string) (result.Status, error) {
	byKey, ok, err := s.bundles.GetByKey(ctx, key)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking bundle key: %w", err)
	}
	if ok && byKey.ID != selfID {
		return conflictStatus("Bundle", "key", key), nil
	}

	others, err := s.bundles.Find(ctx, func(b domain.Bundle) bool {
		return b.ID != selfID && b.Name == name
	})
	if err != nil {
		return result.Status{}, fmt.Errorf("checking bundle name: %w", err)
	}
	if len(others) > 0 {
		return conflictStatus("Bundle", "name", name), nil
	}
	return result.OK(), nil
}

func containsFold[E any](field func(E) string, term string) domain.Predicate[E] {
	term = strings.ToLower(term)
	return func(e E) bool {
		return strings.Contains(strings.ToLower(field(e)), term)
	}
}
