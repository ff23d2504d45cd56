package sqlite

import (
	"context"

	"github.com/neomorfeo/central/internal/domain"
)

var _ domain.TenantDomainRepository = (*TenantDomainRepository)(nil)

var tenantDomainSchema = schema[domain.TenantDomain]{
	entity:   "TenantDomain",
	table:    "tenant_domains",
	alias:    "d",
	joins:    "JOIN tenants t ON t.id = d.tenant_id",
	columns:  []string{"d.tenant_id", "d.name", "t.name"},
	writable: []string{"tenant_id", "name"},
	values: func(d domain.TenantDomain) []any {
		return []any{d.TenantID, d.Name}
	},
	scan: func(s scanner, base *baseRow) (domain.TenantDomain, error) {
		var d domain.TenantDomain
		err := s.Scan(base.dest(&d.TenantID, &d.Name, &d.TenantName)...)
		return d, err
	},
	base: func(d *domain.TenantDomain) *domain.Base { return &d.Base },
	uniques: map[string]func(domain.TenantDomain) (string, string){
		"name": func(d domain.TenantDomain) (string, string) { return "name", d.Name },
	},
}

// TenantDomainRepository stores tenant domains.
type TenantDomainRepository struct {
	*table[domain.TenantDomain]
}

func (r *TenantDomainRepository) GetByName(ctx context.Context, name string) (domain.TenantDomain, bool, error) {
	return r.first(ctx, "d.name = ?", name)
}

func (r *TenantDomainRepository) GetByTenantID(ctx context.Context, tenantID string) ([]domain.TenantDomain, error) {
	return r.query(ctx, "d.tenant_id = ?", tenantID)
}

func (r *TenantDomainRepository) NameExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, "name = ?", name)
}
