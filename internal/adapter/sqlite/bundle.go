package sqlite

import (
	"context"
	"database/sql"

	"github.com/neomorfeo/central/internal/domain"
)

var _ domain.BundleRepository = (*BundleRepository)(nil)

var bundleSchema = schema[domain.Bundle]{
	entity:   "Bundle",
	table:    "bundles",
	alias:    "b",
	columns:  []string{"b.name", `b."key"`, "b.description"},
	writable: []string{"name", `"key"`, "description"},
	values: func(b domain.Bundle) []any {
		return []any{b.Name, b.Key, b.Description}
	},
	scan: func(s scanner, base *baseRow) (domain.Bundle, error) {
		var (
			b    domain.Bundle
			desc sql.NullString
		)
		err := s.Scan(base.dest(&b.Name, &b.Key, &desc)...)
		b.Description = nullable(desc)
		return b, err
	},
	base: func(b *domain.Bundle) *domain.Base { return &b.Base },
	uniques: map[string]func(domain.Bundle) (string, string){
		"key":  func(b domain.Bundle) (string, string) { return "key", b.Key },
		"name": func(b domain.Bundle) (string, string) { return "name", b.Name },
	},
}

// BundleRepository stores bundles.
type BundleRepository struct {
	*table[domain.Bundle]
}

func (r *BundleRepository) GetByKey(ctx context.Context, key string) (domain.Bundle, bool, error) {
	return r.first(ctx, `b."key" = ?`, key)
}

func (r *BundleRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	return r.exists(ctx, `"key" = ?`, key)
}

func (r *BundleRepository) NameExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, "name = ?", name)
}
