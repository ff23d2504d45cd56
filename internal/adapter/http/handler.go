// Package http exposes the application services as a JSON API under /api/v1.
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/app"
	"github.com/neomorfeo/central/internal/logging"
	"github.com/neomorfeo/central/internal/result"
)

const prefix = "/api/v1"

// Services groups the services served by the API.
type Services struct {
	Bundles       *app.BundleService
	Tenants       *app.TenantService
	Domains       *app.TenantDomainService
	Subscriptions *app.SubscriptionService
}

// Register adds every route to the Huma API.
func Register(api huma.API, svc Services) {
	registerBundles(api, svc.Bundles)
	registerTenants(api, svc.Tenants)
	registerDomains(api, svc.Domains)
	registerSubscriptions(api, svc.Subscriptions)
}

// --- shared inputs and outputs ---

// ListParams are the paging, sorting and search query parameters shared by
// every list route.
type ListParams struct {
	Page           int    `query:"page" default:"1" doc:"1-based page number"`
	PageSize       int    `query:"pageSize" default:"10" doc:"Items per page"`
	SortBy         string `query:"sortBy" doc:"Sort field; unknown fields fall back to the default order"`
	SortDescending bool   `query:"sortDescending" doc:"Reverse the requested sort"`
	Search         string `query:"search" doc:"Free-text search"`
}

func (p ListParams) request() app.ListRequest {
	return app.ListRequest{
		Page:           p.Page,
		PageSize:       p.PageSize,
		SortBy:         p.SortBy,
		SortDescending: p.SortDescending,
		Search:         p.Search,
	}
}

// PageResponse is one page of a listing.
type PageResponse[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"totalCount"`
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

func toPageResponse[T, R any](p app.Page[T], fn func(T) R) PageResponse[R] {
	items := make([]R, len(p.Items))
	for i, it := range p.Items {
		items[i] = fn(it)
	}
	return PageResponse[R]{
		Items:           items,
		TotalCount:      p.TotalCount,
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages(),
		HasNextPage:     p.HasNextPage(),
		HasPreviousPage: p.HasPreviousPage(),
	}
}

func mapAll[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}

type IDInput struct {
	ID string `path:"id" doc:"Entity ID"`
}

type BoolOutput struct {
	Body bool
}

// parseBool reads an optional boolean query parameter.
func parseBool(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid query parameter", &huma.ErrorDetail{
			Location: "query." + name,
			Message:  "must be true or false",
			Value:    raw,
		})
	}
	return &v, nil
}

func mismatch(pathID, bodyID string) error {
	if pathID == bodyID {
		return nil
	}
	return huma.Error400BadRequest("ID mismatch", &huma.ErrorDetail{
		Location: "body.id",
		Message:  "must match the id in the path",
		Value:    bodyID,
	})
}

// check turns a service outcome into an HTTP error, or nil on success.
// Infrastructure faults are logged and hidden behind a 500.
func check(ctx context.Context, st result.Status, err error) error {
	if err != nil {
		logging.FromContext(ctx, nil).Error("request failed", zap.Error(err))
		return huma.Error500InternalServerError("internal server error")
	}
	if st.IsSuccess() {
		return nil
	}
	return toHumaError(st)
}

// toHumaError translates a failed outcome to a Huma HTTP error.
func toHumaError(st result.Status) error {
	switch st.Kind() {
	case result.KindNotFound:
		return huma.Error404NotFound(st.Message())
	case result.KindValidation:
		fields := st.FieldErrors()
		details := make([]error, 0, len(fields))
		for _, f := range fields {
			d := &huma.ErrorDetail{Message: f.Message}
			if f.Field != "" {
				d.Location = "body." + f.Field
			}
			details = append(details, d)
		}
		return huma.Error400BadRequest(st.Message(), details...)
	case result.KindConflict:
		return huma.Error409Conflict(st.Message())
	case result.KindDomainRule:
		return huma.Error422UnprocessableEntity(st.Message())
	default:
		return huma.NewError(http.StatusInternalServerError, st.Message())
	}
}
