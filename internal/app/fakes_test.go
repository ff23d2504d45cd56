package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neomorfeo/central/internal/domain"
)

var errStore = errors.New("store unavailable")

// memRepo is an in-memory domain.Repository honoring soft deletes.
type memRepo[T any] struct {
	mu     sync.Mutex
	rows   []T
	base   func(*T) *domain.Base
	now    func() time.Time
	writes int
	fail   error
}

func newMemRepo[T any](base func(*T) *domain.Base) *memRepo[T] {
	return &memRepo[T]{base: base, now: time.Now}
}

func (m *memRepo[T]) live() []T {
	out := make([]T, 0, len(m.rows))
	for i := range m.rows {
		if !m.base(&m.rows[i]).IsDeleted() {
			out = append(out, m.rows[i])
		}
	}
	return out
}

func (m *memRepo[T]) seed(items ...T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, items...)
}

func (m *memRepo[T]) GetByID(_ context.Context, id string) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if m.fail != nil {
		return zero, false, m.fail
	}
	for _, r := range m.live() {
		if m.base(&r).ID == id {
			return r, true, nil
		}
	}
	return zero, false, nil
}

func (m *memRepo[T]) GetAll(_ context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.live(), nil
}

func (m *memRepo[T]) Find(_ context.Context, pred domain.Predicate[T]) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for _, r := range m.live() {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo[T]) SingleOrDefault(ctx context.Context, pred domain.Predicate[T]) (T, bool, error) {
	var zero T
	found, _ := m.Find(ctx, pred)
	switch len(found) {
	case 0:
		return zero, false, nil
	case 1:
		return found[0], true, nil
	default:
		return zero, false, fmt.Errorf("%d matches", len(found))
	}
}

func (m *memRepo[T]) Add(_ context.Context, e T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return e, m.fail
	}
	m.writes++
	m.rows = append(m.rows, e)
	return e, nil
}

func (m *memRepo[T]) AddMany(ctx context.Context, es []T) ([]T, error) {
	for _, e := range es {
		if _, err := m.Add(ctx, e); err != nil {
			return nil, err
		}
	}
	return es, nil
}

func (m *memRepo[T]) Update(_ context.Context, e T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return e, m.fail
	}
	id := m.base(&e).ID
	for i := range m.rows {
		if m.base(&m.rows[i]).ID == id {
			m.writes++
			m.rows[i] = e
			return e, nil
		}
	}
	return e, fmt.Errorf("no row %s", id)
}

func (m *memRepo[T]) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		b := m.base(&m.rows[i])
		if b.ID == id && !b.IsDeleted() {
			now := m.now()
			b.DeletedAt = &now
			m.writes++
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := m.GetByID(ctx, id)
	return ok, err
}

func (m *memRepo[T]) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live()), nil
}

func (m *memRepo[T]) CountWhere(ctx context.Context, pred domain.Predicate[T]) (int, error) {
	found, err := m.Find(ctx, pred)
	return len(found), err
}

func (m *memRepo[T]) first(ctx context.Context, pred domain.Predicate[T]) (T, bool, error) {
	var zero T
	found, err := m.Find(ctx, pred)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// --- entity repositories ---

type bundleRepo struct{ *memRepo[domain.Bundle] }

func newBundleRepo() *bundleRepo {
	return &bundleRepo{newMemRepo(func(b *domain.Bundle) *domain.Base { return &b.Base })}
}

func (r *bundleRepo) GetByKey(ctx context.Context, key string) (domain.Bundle, bool, error) {
	return r.first(ctx, func(b domain.Bundle) bool { return b.Key == key })
}

func (r *bundleRepo) KeyExists(ctx context.Context, key string) (bool, error) {
	_, ok, err := r.GetByKey(ctx, key)
	return ok, err
}

func (r *bundleRepo) NameExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.first(ctx, func(b domain.Bundle) bool { return b.Name == name })
	return ok, err
}

type tenantRepo struct {
	*memRepo[domain.Tenant]
	domains       *domainRepo
	subscriptions *subscriptionRepo
}

func newTenantRepo(domains *domainRepo, subs *subscriptionRepo) *tenantRepo {
	return &tenantRepo{
		memRepo:       newMemRepo(func(t *domain.Tenant) *domain.Base { return &t.Base }),
		domains:       domains,
		subscriptions: subs,
	}
}

func (r *tenantRepo) GetByEmail(ctx context.Context, email string) (domain.Tenant, bool, error) {
	return r.first(ctx, func(t domain.Tenant) bool { return strings.EqualFold(t.Email, email) })
}

func (r *tenantRepo) GetByPhoneNumber(ctx context.Context, phone string) (domain.Tenant, bool, error) {
	return r.first(ctx, func(t domain.Tenant) bool { return t.PhoneNumber != nil && *t.PhoneNumber == phone })
}

func (r *tenantRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok, err := r.GetByEmail(ctx, email)
	return ok, err
}

// AddWithDomains rejects names already live or repeated in ds, storing nothing.
func (r *tenantRepo) AddWithDomains(ctx context.Context, t domain.Tenant, ds []domain.TenantDomain) (domain.Tenant, []domain.TenantDomain, error) {
	seen := make(map[string]bool, len(ds))
	for _, d := range ds {
		taken, _ := r.domains.NameExists(ctx, d.Name)
		if taken || seen[d.Name] {
			return t, nil, &domain.ConflictError{Entity: "TenantDomain", Field: "name", Value: d.Name}
		}
		seen[d.Name] = true
	}
	stored, err := r.Add(ctx, t)
	if err != nil {
		return t, nil, err
	}
	added, err := r.domains.AddMany(ctx, ds)
	return stored, added, err
}

func (r *tenantRepo) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.memRepo.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if r.domains != nil {
		ds, _ := r.domains.GetByTenantID(ctx, id)
		for _, d := range ds {
			_, _ = r.domains.Delete(ctx, d.ID)
		}
	}
	if r.subscriptions != nil {
		ss, _ := r.subscriptions.GetByTenantID(ctx, id)
		for _, s := range ss {
			_, _ = r.subscriptions.Delete(ctx, s.ID)
		}
	}
	return true, nil
}

type domainRepo struct{ *memRepo[domain.TenantDomain] }

func newDomainRepo() *domainRepo {
	return &domainRepo{newMemRepo(func(d *domain.TenantDomain) *domain.Base { return &d.Base })}
}

func (r *domainRepo) GetByName(ctx context.Context, name string) (domain.TenantDomain, bool, error) {
	return r.first(ctx, func(d domain.TenantDomain) bool { return d.Name == name })
}

func (r *domainRepo) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantDomain, error) {
	return r.Find(ctx, func(d domain.TenantDomain) bool { return d.TenantID == tenantID })
}

func (r *domainRepo) NameExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.GetByName(ctx, name)
	return ok, err
}

type subscriptionRepo struct {
	*memRepo[domain.TenantSubscription]
}

func newSubscriptionRepo() *subscriptionRepo {
	return &subscriptionRepo{newMemRepo(func(s *domain.TenantSubscription) *domain.Base { return &s.Base })}
}

func (r *subscriptionRepo) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantSubscription, error) {
	return r.Find(ctx, func(s domain.TenantSubscription) bool { return s.TenantID == tenantID })
}

func (r *subscriptionRepo) GetByBundleID(ctx context.Context, bundleID string) ([]domain.TenantSubscription, error) {
	return r.Find(ctx, func(s domain.TenantSubscription) bool { return s.BundleID == bundleID })
}

func (r *subscriptionRepo) GetCurrent(ctx context.Context, now time.Time) ([]domain.TenantSubscription, error) {
	return r.Find(ctx, func(s domain.TenantSubscription) bool {
		end, _ := s.Window(now)
		return !now.After(end)
	})
}

// --- collaborators ---

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e domain.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return d.err
}

type tableTransitions struct{}

func (tableTransitions) Apply(_ context.Context, current domain.ActivationStatus, event domain.ActivationEvent) (domain.ActivationStatus, error) {
	for _, t := range domain.ActivationTransitions {
		if t.Event == event && t.Src == current {
			return t.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

type funcValidator[T any] func(T) []domain.FieldError

func (f funcValidator[T]) Validate(_ context.Context, v T) []domain.FieldError { return f(v) }

// sequence returns deterministic ids id-1, id-2, ...
func sequence() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }
