package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/central/internal/app"
)

// TenantDomainResponse is the API representation of a tenant domain.
type TenantDomainResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Name       string    `json:"name"`
	TenantName string    `json:"tenantName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toTenantDomainResponse(d app.TenantDomainDTO) TenantDomainResponse {
	return TenantDomainResponse{
		ID:         d.ID,
		TenantID:   d.TenantID,
		Name:       d.Name,
		TenantName: d.TenantName,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type TenantDomainBody struct {
	ID       string `json:"id,omitempty" doc:"Required on update; must match the path"`
	TenantID string `json:"tenantId,omitempty"`
	Name     string `json:"name,omitempty"`
}

type ListTenantDomainsInput struct {
	ListParams
	TenantID string `query:"tenantId" doc:"Only domains of this tenant"`
}

type TenantDomainPageOutput struct {
	Body PageResponse[TenantDomainResponse]
}

type TenantDomainOutput struct {
	Body TenantDomainResponse
}

type TenantDomainsOutput struct {
	Body []TenantDomainResponse
}

type DomainNameInput struct {
	Name string `path:"name" doc:"Domain name"`
}

type TenantIDInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID"`
}

type CreateTenantDomainInput struct {
	Body TenantDomainBody
}

type UpdateTenantDomainInput struct {
	ID   string `path:"id" doc:"Domain ID"`
	Body TenantDomainBody
}

func registerDomains(api huma.API, svc *app.TenantDomainService) {
	tags := []string{"Tenant Domains"}
	base := prefix + "/tenant-domains"

	huma.Register(api, huma.Operation{
		OperationID: "list-tenant-domains",
		Method:      http.MethodGet,
		Path:        base,
		Summary:     "List tenant domains",
		Tags:        tags,
	}, func(ctx context.Context, in *ListTenantDomainsInput) (*TenantDomainPageOutput, error) {
		res, err := svc.List(ctx, app.TenantDomainListRequest{ListRequest: in.request(), TenantID: in.TenantID})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainPageOutput{Body: toPageResponse(res.Value(), toTenantDomainResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-domain",
		Method:      http.MethodGet,
		Path:        base + "/{id}",
		Summary:     "Get a tenant domain by ID",
		Tags:        tags,
	}, func(ctx context.Context, in *IDInput) (*TenantDomainOutput, error) {
		res, err := svc.GetByID(ctx, in.ID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainOutput{Body: toTenantDomainResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-domain-by-name",
		Method:      http.MethodGet,
		Path:        base + "/name/{name}",
		Summary:     "Get a tenant domain by name",
		Tags:        tags,
	}, func(ctx context.Context, in *DomainNameInput) (*TenantDomainOutput, error) {
		res, err := svc.GetByName(ctx, in.Name)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainOutput{Body: toTenantDomainResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-domains-by-tenant",
		Method:      http.MethodGet,
		Path:        base + "/tenant/{tenantId}",
		Summary:     "List the domains of a tenant",
		Tags:        tags,
	}, func(ctx context.Context, in *TenantIDInput) (*TenantDomainsOutput, error) {
		res, err := svc.GetByTenantID(ctx, in.TenantID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainsOutput{Body: mapAll(res.Value(), toTenantDomainResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tenant-domain-name-exists",
		Method:      http.MethodGet,
		Path:        base + "/name-exists/{name}",
		Summary:     "Check whether a domain name is taken",
		Tags:        tags,
	}, func(ctx context.Context, in *DomainNameInput) (*BoolOutput, error) {
		res, err := svc.NameExists(ctx, in.Name)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BoolOutput{Body: res.Value()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant-domain",
		Method:        http.MethodPost,
		Path:          base,
		Summary:       "Add a domain to a tenant",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *CreateTenantDomainInput) (*TenantDomainOutput, error) {
		res, err := svc.Create(ctx, app.CreateTenantDomainRequest{TenantID: in.Body.TenantID, Name: in.Body.Name})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainOutput{Body: toTenantDomainResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant-domain",
		Method:      http.MethodPut,
		Path:        base + "/{id}",
		Summary:     "Update a tenant domain",
		Tags:        tags,
	}, func(ctx context.Context, in *UpdateTenantDomainInput) (*TenantDomainOutput, error) {
		if err := mismatch(in.ID, in.Body.ID); err != nil {
			return nil, err
		}
		res, err := svc.Update(ctx, app.UpdateTenantDomainRequest{
			ID:       in.Body.ID,
			TenantID: in.Body.TenantID,
			Name:     in.Body.Name,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantDomainOutput{Body: toTenantDomainResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant-domain",
		Method:        http.MethodDelete,
		Path:          base + "/{id}",
		Summary:       "Delete a tenant domain",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Delete(ctx, in.ID)
		return nil, check(ctx, st, err)
	})
}
