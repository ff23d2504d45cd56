package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/central/internal/app"
)

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID             string                 `json:"id" doc:"Unique identifier"`
	Name           string                 `json:"name" doc:"Display name"`
	Email          string                 `json:"email" doc:"Contact email, unique among tenants"`
	IsActive       bool                   `json:"isActive"`
	LogoURL        *string                `json:"logoUrl,omitempty"`
	PhoneNumber    *string                `json:"phoneNumber,omitempty"`
	PrimaryColor   *string                `json:"primaryColor,omitempty"`
	SecondaryColor *string                `json:"secondaryColor,omitempty"`
	Domains        []TenantDomainResponse `json:"domains"`
	Subscriptions  []SubscriptionResponse `json:"subscriptions"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func toTenantResponse(t app.TenantDTO) TenantResponse {
	return TenantResponse{
		ID:             t.ID,
		Name:           t.Name,
		Email:          t.Email,
		IsActive:       t.IsActive,
		LogoURL:        t.LogoURL,
		PhoneNumber:    t.PhoneNumber,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		Domains:        mapAll(t.Domains, toTenantDomainResponse),
		Subscriptions:  mapAll(t.Subscriptions, toSubscriptionResponse),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type CreateTenantBody struct {
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	LogoURL        *string  `json:"logoUrl,omitempty"`
	PhoneNumber    *string  `json:"phoneNumber,omitempty"`
	PrimaryColor   *string  `json:"primaryColor,omitempty" doc:"Hex color, e.g. #1a2b3c"`
	SecondaryColor *string  `json:"secondaryColor,omitempty"`
	DomainNames    []string `json:"domainNames,omitempty" doc:"Domains created together with the tenant"`
}

type UpdateTenantBody struct {
	ID             string  `json:"id,omitempty" doc:"Must match the path"`
	Name           string  `json:"name,omitempty"`
	Email          string  `json:"email,omitempty"`
	IsActive       bool    `json:"isActive,omitempty"`
	LogoURL        *string `json:"logoUrl,omitempty"`
	PhoneNumber    *string `json:"phoneNumber,omitempty"`
	PrimaryColor   *string `json:"primaryColor,omitempty"`
	SecondaryColor *string `json:"secondaryColor,omitempty"`
}

type ListTenantsInput struct {
	ListParams
	Name     string `query:"name" doc:"Name contains (case-insensitive)"`
	Email    string `query:"email" doc:"Email contains (case-insensitive)"`
	IsActive string `query:"isActive" doc:"true or false"`
}

type TenantPageOutput struct {
	Body PageResponse[TenantResponse]
}

type TenantOutput struct {
	Body TenantResponse
}

type TenantEmailInput struct {
	Email string `path:"email" doc:"Tenant email"`
}

type TenantPhoneInput struct {
	Phone string `path:"phone" doc:"Tenant phone number"`
}

type CreateTenantInput struct {
	Body CreateTenantBody
}

type UpdateTenantInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body UpdateTenantBody
}

func registerTenants(api huma.API, svc *app.TenantService) {
	tags := []string{"Tenants"}

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        prefix + "/tenants",
		Summary:     "List tenants",
		Tags:        tags,
	}, func(ctx context.Context, in *ListTenantsInput) (*TenantPageOutput, error) {
		active, err := parseBool("isActive", in.IsActive)
		if err != nil {
			return nil, err
		}
		res, err := svc.List(ctx, app.TenantListRequest{
			ListRequest: in.request(),
			Name:        in.Name,
			Email:       in.Email,
			IsActive:    active,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantPageOutput{Body: toPageResponse(res.Value(), toTenantResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        prefix + "/tenants/{id}",
		Summary:     "Get a tenant with its domains and subscriptions",
		Tags:        tags,
	}, func(ctx context.Context, in *IDInput) (*TenantOutput, error) {
		res, err := svc.GetByID(ctx, in.ID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantOutput{Body: toTenantResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-by-email",
		Method:      http.MethodGet,
		Path:        prefix + "/tenants/email/{email}",
		Summary:     "Get a tenant by email",
		Tags:        tags,
	}, func(ctx context.Context, in *TenantEmailInput) (*TenantOutput, error) {
		res, err := svc.GetByEmail(ctx, in.Email)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantOutput{Body: toTenantResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-by-phone",
		Method:      http.MethodGet,
		Path:        prefix + "/tenants/phone/{phone}",
		Summary:     "Get a tenant by phone number",
		Tags:        tags,
	}, func(ctx context.Context, in *TenantPhoneInput) (*TenantOutput, error) {
		res, err := svc.GetByPhoneNumber(ctx, in.Phone)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantOutput{Body: toTenantResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          prefix + "/tenants",
		Summary:       "Create a tenant and its initial domains",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *CreateTenantInput) (*TenantOutput, error) {
		res, err := svc.Create(ctx, app.CreateTenantRequest{
			Name:           in.Body.Name,
			Email:          in.Body.Email,
			LogoURL:        in.Body.LogoURL,
			PhoneNumber:    in.Body.PhoneNumber,
			PrimaryColor:   in.Body.PrimaryColor,
			SecondaryColor: in.Body.SecondaryColor,
			DomainNames:    in.Body.DomainNames,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantOutput{Body: toTenantResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant",
		Method:      http.MethodPut,
		Path:        prefix + "/tenants/{id}",
		Summary:     "Update a tenant",
		Tags:        tags,
	}, func(ctx context.Context, in *UpdateTenantInput) (*TenantOutput, error) {
		if err := mismatch(in.ID, in.Body.ID); err != nil {
			return nil, err
		}
		res, err := svc.Update(ctx, app.UpdateTenantRequest{
			ID:             in.Body.ID,
			Name:           in.Body.Name,
			Email:          in.Body.Email,
			IsActive:       in.Body.IsActive,
			LogoURL:        in.Body.LogoURL,
			PhoneNumber:    in.Body.PhoneNumber,
			PrimaryColor:   in.Body.PrimaryColor,
			SecondaryColor: in.Body.SecondaryColor,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &TenantOutput{Body: toTenantResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant",
		Method:        http.MethodDelete,
		Path:          prefix + "/tenants/{id}",
		Summary:       "Delete a tenant with its domains and subscriptions",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Delete(ctx, in.ID)
		return nil, check(ctx, st, err)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "activate-tenant",
		Method:        http.MethodPost,
		Path:          prefix + "/tenants/{id}/activate",
		Summary:       "Activate a tenant",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Activate(ctx, in.ID)
		return nil, check(ctx, st, err)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deactivate-tenant",
		Method:        http.MethodPost,
		Path:          prefix + "/tenants/{id}/deactivate",
		Summary:       "Deactivate a tenant",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Deactivate(ctx, in.ID)
		return nil, check(ctx, st, err)
	})
}
