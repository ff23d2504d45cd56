package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/neomorfeo/central/internal/adapter/fsm"
	adapter "github.com/neomorfeo/central/internal/adapter/http"
	"github.com/neomorfeo/central/internal/adapter/sqlite"
	"github.com/neomorfeo/central/internal/adapter/validation"
	"github.com/neomorfeo/central/internal/app"
	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/event"
)

// recorder collects the events handed to the dispatcher.
type recorder struct {
	mu    sync.Mutex
	kinds []string
	fail  error
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

func (r *recorder) register(reg *event.Registry) {
	record := func(kind string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.kinds = append(r.kinds, kind)
		return r.fail
	}
	event.Subscribe[domain.TenantCreated](reg, "record-created", func(_ context.Context, e domain.TenantCreated) error {
		return record(e.Kind())
	})
	event.Subscribe[domain.TenantDeleted](reg, "record-deleted", func(_ context.Context, e domain.TenantDeleted) error {
		return record(e.Kind())
	})
}

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
func newTestServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()

	store, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := zaptest.NewLogger(t)
	rec := &recorder{}
	registry := event.NewRegistry()
	rec.register(registry)

	engine := validation.NewEngine()
	svc := adapter.Services{
		Bundles: app.NewBundleService(app.BundleServiceDeps{
			Bundles:         store.Bundles(),
			Subscriptions:   store.Subscriptions(),
			CreateValidator: validation.For[app.CreateBundleRequest](engine),
			UpdateValidator: validation.For[app.UpdateBundleRequest](engine),
			Logger:          logger,
		}),
		Tenants: app.NewTenantService(app.TenantServiceDeps{
			Tenants:         store.Tenants(),
			Domains:         store.Domains(),
			Subscriptions:   store.Subscriptions(),
			Dispatcher:      event.NewDispatcher(registry, logger),
			Transitions:     fsm.New(),
			CreateValidator: validation.For[app.CreateTenantRequest](engine),
			UpdateValidator: validation.For[app.UpdateTenantRequest](engine),
			Logger:          logger,
		}),
		Domains: app.NewTenantDomainService(app.TenantDomainServiceDeps{
			Domains:         store.Domains(),
			Tenants:         store.Tenants(),
			CreateValidator: validation.For[app.CreateTenantDomainRequest](engine),
			UpdateValidator: validation.For[app.UpdateTenantDomainRequest](engine),
			Logger:          logger,
		}),
		Subscriptions: app.NewSubscriptionService(app.SubscriptionServiceDeps{
			Subscriptions:   store.Subscriptions(),
			Tenants:         store.Tenants(),
			Bundles:         store.Bundles(),
			CreateValidator: validation.For[app.CreateSubscriptionRequest](engine),
			UpdateValidator: validation.For[app.UpdateSubscriptionRequest](engine),
			Logger:          logger,
		}),
	}

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("central", "0.1.0"))
	adapter.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, rec
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

// expect checks the status code and decodes the body into out when non-nil.
func expect(t *testing.T, resp *http.Response, status int, out any) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, status, b)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func mustCreateBundle(t *testing.T, srv *httptest.Server, name, key string) adapter.BundleResponse {
	t.Helper()
	var b adapter.BundleResponse
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/bundles", fmt.Sprintf(`{"name":%q,"key":%q}`, name, key))
	expect(t, resp, http.StatusCreated, &b)
	return b
}

func mustCreateTenant(t *testing.T, srv *httptest.Server, name, email string, domains ...string) adapter.TenantResponse {
	t.Helper()
	names, _ := json.Marshal(domains)
	body := fmt.Sprintf(`{"name":%q,"email":%q,"domainNames":%s}`, name, email, names)

	var tenant adapter.TenantResponse
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants", body), http.StatusCreated, &tenant)
	return tenant
}

// problem is the subset of an RFC 9457 body the tests look at.
type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

// --- Bundles ---

func TestBundle_CreateAndGet(t *testing.T) {
	srv, _ := newTestServer(t)
	created := mustCreateBundle(t, srv, "Premium", "premium")

	if created.ID == "" {
		t.Error("ID should not be empty")
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}

	var got adapter.BundleResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles/"+created.ID, ""), http.StatusOK, &got)
	if got.Key != "premium" {
		t.Errorf("Key = %q, want %q", got.Key, "premium")
	}

	var byKey adapter.BundleResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles/key/premium", ""), http.StatusOK, &byKey)
	if byKey.ID != created.ID {
		t.Errorf("by key ID = %q, want %q", byKey.ID, created.ID)
	}

	var exists bool
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles/key-exists/premium", ""), http.StatusOK, &exists)
	if !exists {
		t.Error("key-exists = false, want true")
	}
}

func TestBundle_ValidationFailureListsFields(t *testing.T) {
	srv, _ := newTestServer(t)

	var p problem
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/bundles", `{"description":"no name, no key"}`), http.StatusBadRequest, &p)

	locations := map[string]bool{}
	for _, e := range p.Errors {
		locations[e.Location] = true
	}
	if !locations["body.name"] || !locations["body.key"] {
		t.Errorf("error locations = %v, want body.name and body.key", locations)
	}
}

func TestBundle_DuplicateKey(t *testing.T) {
	srv, _ := newTestServer(t)
	mustCreateBundle(t, srv, "Premium", "premium")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/bundles", `{"name":"Other","key":"premium"}`)
	expect(t, resp, http.StatusConflict, nil)
}

func TestBundle_GetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles/3f1c2a8e-0000-4000-8000-000000000000", "")
	expect(t, resp, http.StatusNotFound, nil)
}

func TestBundle_UpdateIDMismatch(t *testing.T) {
	srv, _ := newTestServer(t)
	created := mustCreateBundle(t, srv, "Premium", "premium")

	body := `{"id":"3f1c2a8e-0000-4000-8000-000000000000","name":"Premium","key":"premium"}`
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/bundles/"+created.ID, body)
	expect(t, resp, http.StatusBadRequest, nil)
}

func TestBundle_Update(t *testing.T) {
	srv, _ := newTestServer(t)
	created := mustCreateBundle(t, srv, "Premium", "premium")

	body := fmt.Sprintf(`{"id":%q,"name":"Premium Plus","key":"premium-plus"}`, created.ID)
	var got adapter.BundleResponse
	expect(t, doRequest(t, http.MethodPut, srv.URL+"/api/v1/bundles/"+created.ID, body), http.StatusOK, &got)

	if got.Name != "Premium Plus" || got.Key != "premium-plus" {
		t.Errorf("got %q/%q, want Premium Plus/premium-plus", got.Name, got.Key)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, got.CreatedAt)
	}
}

func TestBundle_ListPaging(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, k := range []string{"delta", "alpha", "charlie", "bravo", "echo"} {
		mustCreateBundle(t, srv, strings.ToUpper(k[:1])+k[1:], k)
	}

	var page adapter.PageResponse[adapter.BundleResponse]
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles?page=2&pageSize=2", ""), http.StatusOK, &page)

	if page.TotalCount != 5 || page.TotalPages != 3 {
		t.Errorf("total = %d/%d pages, want 5/3", page.TotalCount, page.TotalPages)
	}
	if !page.HasNextPage || !page.HasPreviousPage {
		t.Errorf("hasNext/hasPrevious = %v/%v, want true/true", page.HasNextPage, page.HasPreviousPage)
	}
	if len(page.Items) != 2 || page.Items[0].Key != "charlie" || page.Items[1].Key != "delta" {
		t.Errorf("items = %+v, want charlie, delta", page.Items)
	}
}

func TestBundle_DeleteThenGone(t *testing.T) {
	srv, _ := newTestServer(t)
	created := mustCreateBundle(t, srv, "Premium", "premium")

	expect(t, doRequest(t, http.MethodDelete, srv.URL+"/api/v1/bundles/"+created.ID, ""), http.StatusNoContent, nil)
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/bundles/"+created.ID, ""), http.StatusNotFound, nil)
	expect(t, doRequest(t, http.MethodDelete, srv.URL+"/api/v1/bundles/"+created.ID, ""), http.StatusNotFound, nil)
}

// --- Tenants ---

func TestTenant_CreateWithDomains(t *testing.T) {
	srv, rec := newTestServer(t)
	created := mustCreateTenant(t, srv, "Acme", "ops@acme.test", "acme.test", "acme.example")

	if !created.IsActive {
		t.Error("new tenant should be active")
	}
	if len(created.Domains) != 2 {
		t.Fatalf("got %d domains, want 2", len(created.Domains))
	}

	var got adapter.TenantResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenants/"+created.ID, ""), http.StatusOK, &got)
	if len(got.Domains) != 2 {
		t.Errorf("GET returned %d domains, want 2", len(got.Domains))
	}
	if got.Domains[0].TenantName != "Acme" {
		t.Errorf("TenantName = %q, want Acme", got.Domains[0].TenantName)
	}

	if kinds := rec.seen(); len(kinds) != 1 || kinds[0] != domain.KindTenantCreated {
		t.Errorf("events = %v, want [%s]", kinds, domain.KindTenantCreated)
	}
}

func TestTenant_DuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	mustCreateTenant(t, srv, "Acme", "ops@acme.test")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants", `{"name":"Other","email":"ops@acme.test"}`)
	expect(t, resp, http.StatusConflict, nil)
}

func TestTenant_ActivationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	created := mustCreateTenant(t, srv, "Acme", "ops@acme.test")
	url := srv.URL + "/api/v1/tenants/" + created.ID

	var p problem
	expect(t, doRequest(t, http.MethodPost, url+"/activate", ""), http.StatusUnprocessableEntity, &p)
	if !strings.Contains(p.Detail, "already active") {
		t.Errorf("detail = %q, want it to mention already active", p.Detail)
	}

	expect(t, doRequest(t, http.MethodPost, url+"/deactivate", ""), http.StatusNoContent, nil)

	var got adapter.TenantResponse
	expect(t, doRequest(t, http.MethodGet, url, ""), http.StatusOK, &got)
	if got.IsActive {
		t.Error("tenant still active after deactivate")
	}

	var page adapter.PageResponse[adapter.TenantResponse]
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenants?isActive=false", ""), http.StatusOK, &page)
	if page.TotalCount != 1 {
		t.Errorf("inactive tenants = %d, want 1", page.TotalCount)
	}
}

func TestTenant_InvalidBoolFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenants?isActive=maybe", ""), http.StatusBadRequest, nil)
}

func TestTenant_DeleteCascades(t *testing.T) {
	srv, rec := newTestServer(t)
	bundle := mustCreateBundle(t, srv, "Premium", "premium")
	tenant := mustCreateTenant(t, srv, "Acme", "ops@acme.test", "acme.test")

	sub := fmt.Sprintf(`{"tenantId":%q,"bundleId":%q,"duration":30,"startDate":%q}`,
		tenant.ID, bundle.ID, time.Now().UTC().Format(time.RFC3339))
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-subscriptions", sub), http.StatusCreated, nil)

	expect(t, doRequest(t, http.MethodDelete, srv.URL+"/api/v1/tenants/"+tenant.ID, ""), http.StatusNoContent, nil)

	var domains []adapter.TenantDomainResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-domains/tenant/"+tenant.ID, ""), http.StatusOK, &domains)
	if len(domains) != 0 {
		t.Errorf("domains after delete = %d, want 0", len(domains))
	}

	var subs []adapter.SubscriptionResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-subscriptions/tenant/"+tenant.ID, ""), http.StatusOK, &subs)
	if len(subs) != 0 {
		t.Errorf("subscriptions after delete = %d, want 0", len(subs))
	}

	kinds := rec.seen()
	if len(kinds) != 2 || kinds[1] != domain.KindTenantDeleted {
		t.Errorf("events = %v, want created then deleted", kinds)
	}
}

func TestTenant_FailedHandlerReturns500AfterCommit(t *testing.T) {
	srv, rec := newTestServer(t)
	rec.mu.Lock()
	rec.fail = errors.New("mailer down")
	rec.mu.Unlock()

	body := `{"name":"Acme","email":"ops@acme.test","domainNames":["acme.test"]}`
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants", body), http.StatusInternalServerError, nil)

	var domains []adapter.TenantDomainResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-domains", ""), http.StatusOK, &domains)
	if len(domains) != 1 || domains[0].Name != "acme.test" {
		t.Errorf("domains = %+v, want the committed acme.test", domains)
	}
}

// --- Tenant domains ---

func TestTenantDomain_UnknownTenant(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"tenantId":"3f1c2a8e-0000-4000-8000-000000000000","name":"ghost.test"}`
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-domains", body), http.StatusNotFound, nil)
}

func TestTenantDomain_CreateAndLookup(t *testing.T) {
	srv, _ := newTestServer(t)
	tenant := mustCreateTenant(t, srv, "Acme", "ops@acme.test")

	body := fmt.Sprintf(`{"tenantId":%q,"name":"shop.acme.test"}`, tenant.ID)
	var created adapter.TenantDomainResponse
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-domains", body), http.StatusCreated, &created)

	var byName adapter.TenantDomainResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-domains/name/shop.acme.test", ""), http.StatusOK, &byName)
	if byName.ID != created.ID {
		t.Errorf("by name ID = %q, want %q", byName.ID, created.ID)
	}

	var exists bool
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-domains/name-exists/shop.acme.test", ""), http.StatusOK, &exists)
	if !exists {
		t.Error("name-exists = false, want true")
	}

	// Duplicate names conflict.
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-domains", body), http.StatusConflict, nil)
}

// --- Tenant subscriptions ---

func TestSubscription_WindowIsComputed(t *testing.T) {
	srv, _ := newTestServer(t)
	bundle := mustCreateBundle(t, srv, "Premium", "premium")
	tenant := mustCreateTenant(t, srv, "Acme", "ops@acme.test")

	start := time.Now().UTC().AddDate(0, 0, -5).Truncate(time.Second)
	body := fmt.Sprintf(`{"tenantId":%q,"bundleId":%q,"duration":30,"startDate":%q}`,
		tenant.ID, bundle.ID, start.Format(time.RFC3339))

	var created adapter.SubscriptionResponse
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-subscriptions", body), http.StatusCreated, &created)

	if !created.EndDate.Equal(start.AddDate(0, 0, 30)) {
		t.Errorf("EndDate = %v, want %v", created.EndDate, start.AddDate(0, 0, 30))
	}
	if !created.IsActive {
		t.Error("IsActive = false, want true")
	}
	if created.TenantName != "Acme" || created.BundleName != "Premium" {
		t.Errorf("names = %q/%q, want Acme/Premium", created.TenantName, created.BundleName)
	}

	var active []adapter.SubscriptionResponse
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-subscriptions/active", ""), http.StatusOK, &active)
	if len(active) != 1 {
		t.Errorf("active = %d, want 1", len(active))
	}

	var ok bool
	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-subscriptions/check-active/"+tenant.ID+"/"+bundle.ID, ""), http.StatusOK, &ok)
	if !ok {
		t.Error("check-active = false, want true")
	}

	expect(t, doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenant-subscriptions/"+created.ID+"/is-active", ""), http.StatusOK, &ok)
	if !ok {
		t.Error("is-active = false, want true")
	}

	// The bundle is now in use and cannot be deleted.
	expect(t, doRequest(t, http.MethodDelete, srv.URL+"/api/v1/bundles/"+bundle.ID, ""), http.StatusConflict, nil)
}

func TestSubscription_MissingIDsPointAtJSONFields(t *testing.T) {
	srv, _ := newTestServer(t)

	var p problem
	body := `{"duration":30,"startDate":"2024-01-01T00:00:00Z"}`
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-subscriptions", body), http.StatusBadRequest, &p)

	locations := map[string]bool{}
	for _, e := range p.Errors {
		locations[e.Location] = true
	}
	if !locations["body.tenantId"] || !locations["body.bundleId"] {
		t.Errorf("error locations = %v, want body.tenantId and body.bundleId", locations)
	}
}

func TestSubscription_InvalidDuration(t *testing.T) {
	srv, _ := newTestServer(t)
	bundle := mustCreateBundle(t, srv, "Premium", "premium")
	tenant := mustCreateTenant(t, srv, "Acme", "ops@acme.test")

	body := fmt.Sprintf(`{"tenantId":%q,"bundleId":%q,"duration":0,"startDate":"2024-01-01T00:00:00Z"}`, tenant.ID, bundle.ID)

	var p problem
	expect(t, doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenant-subscriptions", body), http.StatusBadRequest, &p)
	if len(p.Errors) != 1 || p.Errors[0].Location != "body.duration" {
		t.Errorf("errors = %+v, want a single body.duration error", p.Errors)
	}
}
