package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/central/internal/app"
)

// SubscriptionResponse is the API representation of a tenant subscription.
// EndDate and IsActive are computed at request time.
type SubscriptionResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	BundleID   string    `json:"bundleId"`
	Duration   int       `json:"duration" doc:"Length in days"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	IsActive   bool      `json:"isActive"`
	TenantName string    `json:"tenantName"`
	BundleName string    `json:"bundleName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toSubscriptionResponse(s app.SubscriptionDTO) SubscriptionResponse {
	return SubscriptionResponse{
		ID:         s.ID,
		TenantID:   s.TenantID,
		BundleID:   s.BundleID,
		Duration:   s.Duration,
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
		IsActive:   s.IsActive,
		TenantName: s.TenantName,
		BundleName: s.BundleName,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

type SubscriptionBody struct {
	ID        string    `json:"id,omitempty" doc:"Required on update; must match the path"`
	TenantID  string    `json:"tenantId,omitempty"`
	BundleID  string    `json:"bundleId,omitempty"`
	Duration  int       `json:"duration,omitempty" doc:"Length in days"`
	StartDate time.Time `json:"startDate,omitempty"`
}

type ListSubscriptionsInput struct {
	ListParams
	TenantID string `query:"tenantId"`
	BundleID string `query:"bundleId"`
	IsActive string `query:"isActive" doc:"true or false"`
}

type SubscriptionPageOutput struct {
	Body PageResponse[SubscriptionResponse]
}

type SubscriptionOutput struct {
	Body SubscriptionResponse
}

type SubscriptionsOutput struct {
	Body []SubscriptionResponse
}

type BundleIDInput struct {
	BundleID string `path:"bundleId" doc:"Bundle ID"`
}

type CheckActiveInput struct {
	TenantID string `path:"tenantId"`
	BundleID string `path:"bundleId"`
}

type CreateSubscriptionInput struct {
	Body SubscriptionBody
}

type UpdateSubscriptionInput struct {
	ID   string `path:"id" doc:"Subscription ID"`
	Body SubscriptionBody
}

func registerSubscriptions(api huma.API, svc *app.SubscriptionService) {
	tags := []string{"Tenant Subscriptions"}
	base := prefix + "/tenant-subscriptions"

	huma.Register(api, huma.Operation{
		OperationID: "list-tenant-subscriptions",
		Method:      http.MethodGet,
		Path:        base,
		Summary:     "List tenant subscriptions",
		Tags:        tags,
	}, func(ctx context.Context, in *ListSubscriptionsInput) (*SubscriptionPageOutput, error) {
		active, err := parseBool("isActive", in.IsActive)
		if err != nil {
			return nil, err
		}
		res, err := svc.List(ctx, app.SubscriptionListRequest{
			ListRequest: in.request(),
			TenantID:    in.TenantID,
			BundleID:    in.BundleID,
			IsActive:    active,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionPageOutput{Body: toPageResponse(res.Value(), toSubscriptionResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-subscription",
		Method:      http.MethodGet,
		Path:        base + "/{id}",
		Summary:     "Get a tenant subscription by ID",
		Tags:        tags,
	}, func(ctx context.Context, in *IDInput) (*SubscriptionOutput, error) {
		res, err := svc.GetByID(ctx, in.ID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subscriptions-by-tenant",
		Method:      http.MethodGet,
		Path:        base + "/tenant/{tenantId}",
		Summary:     "List the subscriptions of a tenant",
		Tags:        tags,
	}, func(ctx context.Context, in *TenantIDInput) (*SubscriptionsOutput, error) {
		res, err := svc.GetByTenantID(ctx, in.TenantID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionsOutput{Body: mapAll(res.Value(), toSubscriptionResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subscriptions-by-bundle",
		Method:      http.MethodGet,
		Path:        base + "/bundle/{bundleId}",
		Summary:     "List the subscriptions to a bundle",
		Tags:        tags,
	}, func(ctx context.Context, in *BundleIDInput) (*SubscriptionsOutput, error) {
		res, err := svc.GetByBundleID(ctx, in.BundleID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionsOutput{Body: mapAll(res.Value(), toSubscriptionResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-active-subscriptions",
		Method:      http.MethodGet,
		Path:        base + "/active",
		Summary:     "List the subscriptions active right now",
		Tags:        tags,
	}, func(ctx context.Context, _ *struct{}) (*SubscriptionsOutput, error) {
		res, err := svc.GetActive(ctx)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionsOutput{Body: mapAll(res.Value(), toSubscriptionResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-active-subscription",
		Method:      http.MethodGet,
		Path:        base + "/check-active/{tenantId}/{bundleId}",
		Summary:     "Check whether a tenant holds an active subscription to a bundle",
		Tags:        tags,
	}, func(ctx context.Context, in *CheckActiveInput) (*BoolOutput, error) {
		res, err := svc.HasActiveSubscription(ctx, in.TenantID, in.BundleID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BoolOutput{Body: res.Value()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "is-subscription-active",
		Method:      http.MethodGet,
		Path:        base + "/{id}/is-active",
		Summary:     "Check whether a subscription is active",
		Tags:        tags,
	}, func(ctx context.Context, in *IDInput) (*BoolOutput, error) {
		res, err := svc.IsSubscriptionActive(ctx, in.ID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BoolOutput{Body: res.Value()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant-subscription",
		Method:        http.MethodPost,
		Path:          base,
		Summary:       "Subscribe a tenant to a bundle",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *CreateSubscriptionInput) (*SubscriptionOutput, error) {
		res, err := svc.Create(ctx, app.CreateSubscriptionRequest{
			TenantID:  in.Body.TenantID,
			BundleID:  in.Body.BundleID,
			Duration:  in.Body.Duration,
			StartDate: in.Body.StartDate,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant-subscription",
		Method:      http.MethodPut,
		Path:        base + "/{id}",
		Summary:     "Update a tenant subscription",
		Tags:        tags,
	}, func(ctx context.Context, in *UpdateSubscriptionInput) (*SubscriptionOutput, error) {
		if err := mismatch(in.ID, in.Body.ID); err != nil {
			return nil, err
		}
		res, err := svc.Update(ctx, app.UpdateSubscriptionRequest{
			ID:        in.Body.ID,
			TenantID:  in.Body.TenantID,
			BundleID:  in.Body.BundleID,
			Duration:  in.Body.Duration,
			StartDate: in.Body.StartDate,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant-subscription",
		Method:        http.MethodDelete,
		Path:          base + "/{id}",
		Summary:       "Delete a tenant subscription",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Delete(ctx, in.ID)
		return nil, check(ctx, st, err)
	})
}
