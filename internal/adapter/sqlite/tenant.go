package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/central/internal/domain"
)

var _ domain.TenantRepository = (*TenantRepository)(nil)

var tenantSchema = schema[domain.Tenant]{
	entity: "Tenant",
	table:  "tenants",
	alias:  "t",
	columns: []string{
		"t.name", "t.email", "t.is_active", "t.logo_url", "t.phone_number",
		"t.primary_color", "t.secondary_color", "t.connection_string",
	},
	writable: []string{
		"name", "email", "is_active", "logo_url", "phone_number",
		"primary_color", "secondary_color", "connection_string",
	},
	values: func(t domain.Tenant) []any {
		return []any{
			t.Name, t.Email, t.IsActive, t.LogoURL, t.PhoneNumber,
			t.PrimaryColor, t.SecondaryColor, t.ConnectionString,
		}
	},
	scan: func(s scanner, base *baseRow) (domain.Tenant, error) {
		var (
			t                            domain.Tenant
			logo, phone, primary, second sql.NullString
			conn                         sql.NullString
		)
		err := s.Scan(base.dest(&t.Name, &t.Email, &t.IsActive, &logo, &phone, &primary, &second, &conn)...)
		t.LogoURL = nullable(logo)
		t.PhoneNumber = nullable(phone)
		t.PrimaryColor = nullable(primary)
		t.SecondaryColor = nullable(second)
		t.ConnectionString = nullable(conn)
		return t, err
	},
	base: func(t *domain.Tenant) *domain.Base { return &t.Base },
	uniques: map[string]func(domain.Tenant) (string, string){
		"email": func(t domain.Tenant) (string, string) { return "email", t.Email },
	},
}

// TenantRepository stores tenants. Domains and subscriptions are not loaded
// with the tenant; they have their own repositories.
type TenantRepository struct {
	*table[domain.Tenant]
	domains *table[domain.TenantDomain]
}

func (r *TenantRepository) GetByEmail(ctx context.Context, email string) (domain.Tenant, bool, error) {
	return r.first(ctx, "t.email = ?", email)
}

func (r *TenantRepository) GetByPhoneNumber(ctx context.Context, phone string) (domain.Tenant, bool, error) {
	found, err := r.query(ctx, "t.phone_number = ?", phone)
	if err != nil || len(found) == 0 {
		return domain.Tenant{}, false, err
	}
	return found[0], true, nil
}

func (r *TenantRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *TenantRepository) AddWithDomains(ctx context.Context, t domain.Tenant, ds []domain.TenantDomain) (domain.Tenant, []domain.TenantDomain, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return t, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.insert(ctx, tx, t); err != nil {
		return t, nil, err
	}
	for _, d := range ds {
		if err := r.domains.insert(ctx, tx, d); err != nil {
			return t, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return t, nil, fmt.Errorf("committing tenant %s: %w", t.ID, err)
	}

	stored, err := r.reload(ctx, t)
	if err != nil {
		return t, nil, err
	}
	added := make([]domain.TenantDomain, 0, len(ds))
	for _, d := range ds {
		got, err := r.domains.reload(ctx, d)
		if err != nil {
			return stored, nil, err
		}
		added = append(added, got)
	}
	return stored, added, nil
}

// Delete soft-deletes the tenant together with its live domains and
// subscriptions.
func (r *TenantRepository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := r.softDelete(ctx, tx, "id = ?", id)
	if err != nil || !deleted {
		return false, err
	}

	now := formatTime(r.now())
	for _, child := range []string{"tenant_domains", "tenant_subscriptions"} {
		q := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE tenant_id = ? AND deleted_at IS NULL", child)
		if _, err := tx.ExecContext(ctx, q, now, id); err != nil {
			return false, fmt.Errorf("soft-deleting %s of tenant %s: %w", child, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing tenant delete: %w", err)
	}
	return true, nil
}
