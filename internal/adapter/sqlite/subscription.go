package sqlite

import (
	"context"
	"time"

	"github.com/neomorfeo/central/internal/domain"
)

var _ domain.TenantSubscriptionRepository = (*TenantSubscriptionRepository)(nil)

var subscriptionSchema = schema[domain.TenantSubscription]{
	entity: "TenantSubscription",
	table:  "tenant_subscriptions",
	alias:  "s",
	joins: "JOIN tenants t ON t.id = s.tenant_id " +
		"JOIN bundles b ON b.id = s.bundle_id",
	columns:  []string{"s.tenant_id", "s.bundle_id", "s.duration", "s.start_date", "t.name", "b.name"},
	writable: []string{"tenant_id", "bundle_id", "duration", "start_date"},
	values: func(s domain.TenantSubscription) []any {
		return []any{s.TenantID, s.BundleID, s.Duration, formatTime(s.StartDate)}
	},
	scan: func(sc scanner, base *baseRow) (domain.TenantSubscription, error) {
		var (
			s     domain.TenantSubscription
			start string
		)
		if err := sc.Scan(base.dest(&s.TenantID, &s.BundleID, &s.Duration, &start, &s.TenantName, &s.BundleName)...); err != nil {
			return s, err
		}
		var err error
		s.StartDate, err = parseTime(start)
		return s, err
	},
	base: func(s *domain.TenantSubscription) *domain.Base { return &s.Base },
}

// TenantSubscriptionRepository stores tenant subscriptions.
type TenantSubscriptionRepository struct {
	*table[domain.TenantSubscription]
}

func (r *TenantSubscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantSubscription, error) {
	return r.query(ctx, "s.tenant_id = ?", tenantID)
}

func (r *TenantSubscriptionRepository) GetByBundleID(ctx context.Context, bundleID string) ([]domain.TenantSubscription, error) {
	return r.query(ctx, "s.bundle_id = ?", bundleID)
}

// GetCurrent returns subscriptions whose period has not ended at now.
// Periods that start later are included.
func (r *TenantSubscriptionRepository) GetCurrent(ctx context.Context, now time.Time) ([]domain.TenantSubscription, error) {
	return r.Find(ctx, func(s domain.TenantSubscription) bool {
		end, _ := s.Window(now)
		return !now.After(end)
	})
}
