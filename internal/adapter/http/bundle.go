package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/central/internal/app"
)

// BundleResponse is the API representation of a bundle.
type BundleResponse struct {
	ID          string    `json:"id" doc:"Unique identifier"`
	Name        string    `json:"name" doc:"Display name"`
	Key         string    `json:"key" doc:"Unique lookup key"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toBundleResponse(b app.BundleDTO) BundleResponse {
	return BundleResponse{
		ID:          b.ID,
		Name:        b.Name,
		Key:         b.Key,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// BundleBody is accepted on create and update. Field rules are enforced by
// the service so that every violation is reported at once.
type BundleBody struct {
	ID          string  `json:"id,omitempty" doc:"Required on update; must match the path"`
	Name        string  `json:"name,omitempty"`
	Key         string  `json:"key,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ListBundlesInput struct {
	ListParams
	Name string `query:"name" doc:"Name contains (case-insensitive)"`
	Key  string `query:"key" doc:"Key contains (case-insensitive)"`
}

type BundlePageOutput struct {
	Body PageResponse[BundleResponse]
}

type BundleOutput struct {
	Body BundleResponse
}

type BundleKeyInput struct {
	Key string `path:"key" doc:"Bundle key"`
}

type CreateBundleInput struct {
	Body BundleBody
}

type UpdateBundleInput struct {
	ID   string `path:"id" doc:"Bundle ID"`
	Body BundleBody
}

func registerBundles(api huma.API, svc *app.BundleService) {
	tags := []string{"Bundles"}

	huma.Register(api, huma.Operation{
		OperationID: "list-bundles",
		Method:      http.MethodGet,
		Path:        prefix + "/bundles",
		Summary:     "List bundles",
		Tags:        tags,
	}, func(ctx context.Context, in *ListBundlesInput) (*BundlePageOutput, error) {
		res, err := svc.List(ctx, app.BundleListRequest{ListRequest: in.request(), Name: in.Name, Key: in.Key})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BundlePageOutput{Body: toPageResponse(res.Value(), toBundleResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-bundle",
		Method:      http.MethodGet,
		Path:        prefix + "/bundles/{id}",
		Summary:     "Get a bundle by ID",
		Tags:        tags,
	}, func(ctx context.Context, in *IDInput) (*BundleOutput, error) {
		res, err := svc.GetByID(ctx, in.ID)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BundleOutput{Body: toBundleResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-bundle-by-key",
		Method:      http.MethodGet,
		Path:        prefix + "/bundles/key/{key}",
		Summary:     "Get a bundle by key",
		Tags:        tags,
	}, func(ctx context.Context, in *BundleKeyInput) (*BundleOutput, error) {
		res, err := svc.GetByKey(ctx, in.Key)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BundleOutput{Body: toBundleResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bundle-key-exists",
		Method:      http.MethodGet,
		Path:        prefix + "/bundles/key-exists/{key}",
		Summary:     "Check whether a bundle key is taken",
		Tags:        tags,
	}, func(ctx context.Context, in *BundleKeyInput) (*BoolOutput, error) {
		res, err := svc.KeyExists(ctx, in.Key)
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BoolOutput{Body: res.Value()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-bundle",
		Method:        http.MethodPost,
		Path:          prefix + "/bundles",
		Summary:       "Create a bundle",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *CreateBundleInput) (*BundleOutput, error) {
		res, err := svc.Create(ctx, app.CreateBundleRequest{
			Name:        in.Body.Name,
			Key:         in.Body.Key,
			Description: in.Body.Description,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BundleOutput{Body: toBundleResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-bundle",
		Method:      http.MethodPut,
		Path:        prefix + "/bundles/{id}",
		Summary:     "Update a bundle",
		Tags:        tags,
	}, func(ctx context.Context, in *UpdateBundleInput) (*BundleOutput, error) {
		if err := mismatch(in.ID, in.Body.ID); err != nil {
			return nil, err
		}
		res, err := svc.Update(ctx, app.UpdateBundleRequest{
			ID:          in.Body.ID,
			Name:        in.Body.Name,
			Key:         in.Body.Key,
			Description: in.Body.Description,
		})
		if err := check(ctx, res.Status, err); err != nil {
			return nil, err
		}
		return &BundleOutput{Body: toBundleResponse(res.Value())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-bundle",
		Method:        http.MethodDelete,
		Path:          prefix + "/bundles/{id}",
		Summary:       "Delete a bundle",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *IDInput) (*struct{}, error) {
		st, err := svc.Delete(ctx, in.ID)
		return nil, check(ctx, st, err)
	})
}
