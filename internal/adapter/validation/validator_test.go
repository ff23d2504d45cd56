package validation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/central/internal/adapter/validation"
	"github.com/neomorfeo/central/internal/app"
	"github.com/neomorfeo/central/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestStruct_Valid(t *testing.T) {
	v := validation.For[app.CreateTenantRequest](validation.NewEngine())

	errs := v.Validate(context.Background(), app.CreateTenantRequest{
		Name:         "Acme",
		Email:        "ops@acme.test",
		PrimaryColor: ptr("#ff8800"),
		DomainNames:  []string{"acme.test"},
	})
	assert.Empty(t, errs)
}

func TestStruct_ReportsEveryViolation(t *testing.T) {
	v := validation.For[app.CreateBundleRequest](validation.NewEngine())

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'k'
	}
	errs := v.Validate(context.Background(), app.CreateBundleRequest{Key: string(long)})

	assert.ElementsMatch(t, []domain.FieldError{
		{Field: "name", Message: "is required"},
		{Field: "key", Message: "must be at most 50 characters"},
	}, errs)
}

func TestStruct_TenantRules(t *testing.T) {
	v := validation.For[app.CreateTenantRequest](validation.NewEngine())

	errs := v.Validate(context.Background(), app.CreateTenantRequest{
		Name:         "Acme",
		Email:        "not-an-email",
		PrimaryColor: ptr("orange"),
		DomainNames:  []string{"a.test", "a.test"},
	})

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be a hex color such as #1a2b3c", fields["primaryColor"])
	assert.Equal(t, "must not contain duplicates", fields["domainNames"])
}

func TestStruct_SubscriptionRules(t *testing.T) {
	v := validation.For[app.UpdateSubscriptionRequest](validation.NewEngine())

	errs := v.Validate(context.Background(), app.UpdateSubscriptionRequest{
		ID:        "not-a-uuid",
		TenantID:  "0b6f7c1e-8d0e-4b8e-9a53-3f1c3c1d2e4f",
		BundleID:  "5c0e2b7a-1f6d-4f1e-8c2a-9d7b6e5f4a3b",
		Duration:  0,
		StartDate: time.Time{},
	})

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	require.Len(t, fields, 3)
	assert.Equal(t, "must be a valid UUID", fields["id"])
	assert.Equal(t, "must be greater than 0", fields["duration"])
	assert.Equal(t, "is required", fields["startDate"])
}

func TestStruct_FieldNamesMatchJSON(t *testing.T) {
	v := validation.For[app.CreateSubscriptionRequest](validation.NewEngine())

	errs := v.Validate(context.Background(), app.CreateSubscriptionRequest{
		Duration:  7,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"tenantId", "bundleId"}, fields)
}

func TestStruct_InitialismsAndTags(t *testing.T) {
	type request struct {
		LogoURL    string `validate:"required"`
		URLPath    string `validate:"required"`
		ID         string `validate:"required"`
		Renamed    string `json:"display_name,omitempty" validate:"required"`
	}
	v := validation.For[request](validation.NewEngine())

	errs := v.Validate(context.Background(), request{})

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"logoUrl", "urlPath", "id", "display_name"}, fields)
}
