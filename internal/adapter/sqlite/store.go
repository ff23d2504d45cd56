// Package sqlite persists central's entities in SQLite. Every read filters
// out soft-deleted rows; uniqueness is enforced among live rows only.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store owns the database handle and hands out one repository per entity.
type Store struct {
	db  *sql.DB
	now func() time.Time

	bundles       *BundleRepository
	tenants       *TenantRepository
	domains       *TenantDomainRepository
	subscriptions *TenantSubscriptionRepository
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp deletions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens a plain SQLite database and migrates it. Prefer NewFromDB with
// an instrumented handle outside tests.
func Open(ctx context.Context, dataSourceName string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// ":memory:" databases live per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s, err := NewFromDB(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB migrates a pre-configured handle and returns a ready Store.
func NewFromDB(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	s.bundles = &BundleRepository{table: newTable(db, s.now, bundleSchema)}
	domains := newTable(db, s.now, tenantDomainSchema)
	s.tenants = &TenantRepository{table: newTable(db, s.now, tenantSchema), domains: domains}
	s.domains = &TenantDomainRepository{table: domains}
	s.subscriptions = &TenantSubscriptionRepository{table: newTable(db, s.now, subscriptionSchema)}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle so the job queue can share it.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Bundles() *BundleRepository                   { return s.bundles }
func (s *Store) Tenants() *TenantRepository                   { return s.tenants }
func (s *Store) Domains() *TenantDomainRepository             { return s.domains }
func (s *Store) Subscriptions() *TenantSubscriptionRepository { return s.subscriptions }
