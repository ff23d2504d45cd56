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

// TenantDomainDTO is the external representation of a tenant domain.
type TenantDomainDTO struct {
	ID         string
	TenantID   string
	Name       string
	TenantName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CreatedBy  *string
	UpdatedBy  *string
}

type CreateTenantDomainRequest struct {
	TenantID string `validate:"required,uuid"`
	Name     string `validate:"required,max=100"`
}

type UpdateTenantDomainRequest struct {
	ID       string `validate:"required,uuid"`
	TenantID string `validate:"required,uuid"`
	Name     string `validate:"required,max=100"`
}

// TenantDomainListRequest optionally restricts a listing to one tenant.
type TenantDomainListRequest struct {
	ListRequest
	TenantID string
}

var tenantDomainMapper = Mapper[domain.TenantDomain, TenantDomainDTO, CreateTenantDomainRequest, UpdateTenantDomainRequest]{
	Base:  func(d *domain.TenantDomain) *domain.Base { return &d.Base },
	ToDTO: tenantDomainDTO,
	FromCreate: func(r CreateTenantDomainRequest) domain.TenantDomain {
		return domain.TenantDomain{TenantID: r.TenantID, Name: r.Name}
	},
	Overlay: func(d *domain.TenantDomain, r UpdateTenantDomainRequest) {
		d.TenantID = r.TenantID
		d.Name = r.Name
	},
	TargetID: func(r UpdateTenantDomainRequest) string { return r.ID },
}

func tenantDomainDTO(d domain.TenantDomain) TenantDomainDTO {
	return TenantDomainDTO{
		ID:         d.ID,
		TenantID:   d.TenantID,
		Name:       d.Name,
		TenantName: d.TenantName,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		CreatedBy:  d.CreatedBy,
		UpdatedBy:  d.UpdatedBy,
	}
}

var tenantDomainSorts = map[string]Comparator[domain.TenantDomain]{
	"name":      ByFold(func(d domain.TenantDomain) string { return d.Name }),
	"tenantid":  By(func(d domain.TenantDomain) string { return d.TenantID }),
	"createdat": ByTime(func(d domain.TenantDomain) time.Time { return d.CreatedAt }),
}

// TenantDomainService manages the domain names owned by tenants. A name is
// unique among live domains.
type TenantDomainService struct {
	*Service[domain.TenantDomain, TenantDomainDTO, CreateTenantDomainRequest, UpdateTenantDomainRequest]
	domains domain.TenantDomainRepository
	tenants domain.TenantRepository
}

type TenantDomainServiceDeps struct {
	Domains         domain.TenantDomainRepository
	Tenants         domain.TenantRepository
	CreateValidator domain.Validator[CreateTenantDomainRequest]
	UpdateValidator domain.Validator[UpdateTenantDomainRequest]
	Clock           func() time.Time
	NewID           func() string
	Logger          *zap.Logger
}

func NewTenantDomainService(deps TenantDomainServiceDeps) *TenantDomainService {
	return &TenantDomainService{
		Service: NewService(ServiceConfig[domain.TenantDomain, TenantDomainDTO, CreateTenantDomainRequest, UpdateTenantDomainRequest]{
			Entity:          "TenantDomain",
			Repo:            deps.Domains,
			Mapper:          tenantDomainMapper,
			CreateValidator: deps.CreateValidator,
			UpdateValidator: deps.UpdateValidator,
			Clock:           deps.Clock,
			NewID:           deps.NewID,
			Logger:          deps.Logger,
		}),
		domains: deps.Domains,
		tenants: deps.Tenants,
	}
}

// List returns a page of domains, searched by name.
func (s *TenantDomainService) List(ctx context.Context, req TenantDomainListRequest) (result.Result[Page[TenantDomainDTO]], error) {
	q := Query[domain.TenantDomain]{
		Match:       MatchAny(func(d domain.TenantDomain) string { return d.Name }),
		Sorts:       tenantDomainSorts,
		DefaultSort: tenantDomainSorts["name"],
	}
	if tenantID := strings.TrimSpace(req.TenantID); tenantID != "" {
		q.Filters = append(q.Filters, func(d domain.TenantDomain) bool { return d.TenantID == tenantID })
	}
	return s.page(ctx, q, req.ListRequest)
}

// Create attaches a new domain to an existing tenant.
func (s *TenantDomainService) Create(ctx context.Context, req CreateTenantDomainRequest) (result.Result[TenantDomainDTO], error) {
	if st := s.validate(s.createV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), nil
	}
	if st, err := s.checkRefs(ctx, "", req.TenantID, req.Name); err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), err
	}
	return s.insert(ctx, s.mapper.FromCreate(req))
}

// Update renames a domain or moves it to another existing tenant.
func (s *TenantDomainService) Update(ctx context.Context, req UpdateTenantDomainRequest) (result.Result[TenantDomainDTO], error) {
	if st := s.validate(s.updateV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), nil
	}
	existing, st, err := s.load(ctx, req.ID)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), err
	}
	if st, err := s.checkRefs(ctx, existing.ID, req.TenantID, req.Name); err != nil || !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), err
	}
	return s.apply(ctx, existing, req)
}

// GetByName returns the live domain with the given name.
func (s *TenantDomainService) GetByName(ctx context.Context, name string) (result.Result[TenantDomainDTO], error) {
	if st := requireKey("name", name); !st.IsSuccess() {
		return result.Propagate[TenantDomainDTO](st), nil
	}
	d, ok, err := s.domains.GetByName(ctx, name)
	if err != nil {
		return result.Result[TenantDomainDTO]{}, fmt.Errorf("loading domain by name: %w", err)
	}
	if !ok {
		return result.Fail[TenantDomainDTO](result.KindNotFound, fmt.Sprintf("TenantDomain with name %q not found", name)), nil
	}
	return result.Success(s.toDTO(d)), nil
}

// GetByTenantID returns every live domain of a tenant.
func (s *TenantDomainService) GetByTenantID(ctx context.Context, tenantID string) (result.Result[[]TenantDomainDTO], error) {
	if st := requireKey("tenant id", tenantID); !st.IsSuccess() {
		return result.Propagate[[]TenantDomainDTO](st), nil
	}
	items, err := s.domains.GetByTenantID(ctx, tenantID)
	if err != nil {
		return result.Result[[]TenantDomainDTO]{}, fmt.Errorf("listing domains of tenant %s: %w", tenantID, err)
	}
	return result.Success(s.toDTOs(items)), nil
}

// NameExists reports whether a live domain uses name.
func (s *TenantDomainService) NameExists(ctx context.Context, name string) (result.Result[bool], error) {
	if st := requireKey("name", name); !st.IsSuccess() {
		return result.Propagate[bool](st), nil
	}
	ok, err := s.domains.NameExists(ctx, name)
	if err != nil {
		return result.Result[bool]{}, fmt.Errorf("checking domain name: %w", err)
	}
	return result.Success(ok), nil
}

func (s *TenantDomainService) checkRefs(ctx context.Context, selfID, tenantID, name string) (result.Status, error) {
	ok, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking tenant %s: %w", tenantID, err)
	}
	if !ok {
		return tenantNotFound(tenantID), nil
	}

	d, taken, err := s.domains.GetByName(ctx, name)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking domain name: %w", err)
	}
	if taken && d.ID != selfID {
		return conflictStatus("TenantDomain", "name", name), nil
	}
	return result.OK(), nil
}

func tenantNotFound(id string) result.Status {
	return result.Failed(result.KindNotFound, fmt.Sprintf("Tenant with ID %s not found", id))
}
