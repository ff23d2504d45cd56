package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/neomorfeo/central/internal/domain"
)

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// schema describes how one entity maps onto its table.
type schema[T any] struct {
	entity string // name used in conflict errors
	table  string
	alias  string
	// joins extends the FROM clause with read-only projections.
	joins string
	// columns are selected after the base columns, in scan order.
	columns []string
	// writable columns and their values, excluding the base columns.
	writable []string
	values   func(T) []any
	scan     func(s scanner, base *baseRow) (T, error)
	base     func(*T) *domain.Base
	// uniques maps a unique column to the entity field it guards.
	uniques map[string]func(T) (field, value string)
}

// table implements domain.Repository[T] over a schema.
type table[T any] struct {
	db  *sql.DB
	now func() time.Time
	s   schema[T]

	selectSQL string
	insertSQL string
	updateSQL string
}

func newTable[T any](db *sql.DB, now func() time.Time, s schema[T]) *table[T] {
	cols := append(baseColumns(s.alias), s.columns...)

	insertCols := append([]string{"id", "created_at", "updated_at", "created_by", "updated_by"}, s.writable...)
	sets := []string{"updated_at = ?", "updated_by = ?"}
	for _, c := range s.writable {
		sets = append(sets, c+" = ?")
	}

	return &table[T]{
		db:  db,
		now: now,
		s:   s,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s %s %s WHERE %s.deleted_at IS NULL",
			strings.Join(cols, ", "), s.table, s.alias, s.joins, s.alias),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			s.table, strings.Join(insertCols, ", "), placeholders(len(insertCols))),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND deleted_at IS NULL",
			s.table, strings.Join(sets, ", ")),
	}
}

// query returns live rows matching an optional extra condition.
func (t *table[T]) query(ctx context.Context, where string, args ...any) ([]T, error) {
	q := t.selectSQL
	if where != "" {
		q += " AND " + where
	}
	q += fmt.Sprintf(" ORDER BY %s.created_at, %s.id", t.s.alias, t.s.alias)

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.s.table, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var base baseRow
		e, err := t.s.scan(rows, &base)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t.s.table, err)
		}
		if err := base.into(t.s.base(&e)); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t.s.table, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *table[T]) first(ctx context.Context, where string, args ...any) (T, bool, error) {
	var zero T
	found, err := t.query(ctx, where, args...)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

func (t *table[T]) exists(ctx context.Context, where string, args ...any) (bool, error) {
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE deleted_at IS NULL AND %s)", t.s.table, where)
	var ok bool
	if err := t.db.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking %s: %w", t.s.table, err)
	}
	return ok, nil
}

func (t *table[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	return t.first(ctx, t.s.alias+".id = ?", id)
}

func (t *table[T]) GetAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, "")
}

func (t *table[T]) Find(ctx context.Context, pred domain.Predicate[T]) ([]T, error) {
	all, err := t.query(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, e := range all {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *table[T]) SingleOrDefault(ctx context.Context, pred domain.Predicate[T]) (T, bool, error) {
	var zero T
	found, err := t.Find(ctx, pred)
	if err != nil {
		return zero, false, err
	}
	switch len(found) {
	case 0:
		return zero, false, nil
	case 1:
		return found[0], true, nil
	default:
		return zero, false, fmt.Errorf("%s: %d rows match, want at most one", t.s.table, len(found))
	}
}

func (t *table[T]) Add(ctx context.Context, e T) (T, error) {
	if err := t.insert(ctx, t.db, e); err != nil {
		return e, err
	}
	return t.reload(ctx, e)
}

func (t *table[T]) AddMany(ctx context.Context, es []T) ([]T, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range es {
		if err := t.insert(ctx, tx, e); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", t.s.table, err)
	}

	out := make([]T, 0, len(es))
	for _, e := range es {
		stored, err := t.reload(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (t *table[T]) insert(ctx context.Context, x execer, e T) error {
	b := t.s.base(&e)
	args := append([]any{
		b.ID,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		b.CreatedBy,
		b.UpdatedBy,
	}, t.s.values(e)...)

	if _, err := x.ExecContext(ctx, t.insertSQL, args...); err != nil {
		if ce := t.conflict(err, e); ce != nil {
			return ce
		}
		return fmt.Errorf("inserting into %s: %w", t.s.table, err)
	}
	return nil
}

func (t *table[T]) Update(ctx context.Context, e T) (T, error) {
	b := t.s.base(&e)
	args := append([]any{formatTime(b.UpdatedAt), b.UpdatedBy}, t.s.values(e)...)
	args = append(args, b.ID)

	res, err := t.db.ExecContext(ctx, t.updateSQL, args...)
	if err != nil {
		if ce := t.conflict(err, e); ce != nil {
			return e, ce
		}
		return e, fmt.Errorf("updating %s: %w", t.s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return e, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return e, fmt.Errorf("updating %s: no live row with id %s", t.s.table, b.ID)
	}
	return t.reload(ctx, e)
}

func (t *table[T]) Delete(ctx context.Context, id string) (bool, error) {
	return t.softDelete(ctx, t.db, "id = ?", id)
}

// softDelete marks the live rows matching where as deleted. Only deleted_at
// changes.
func (t *table[T]) softDelete(ctx context.Context, x execer, where string, args ...any) (bool, error) {
	now := formatTime(t.now())
	q := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE deleted_at IS NULL AND %s", t.s.table, where)

	res, err := x.ExecContext(ctx, q, append([]any{now}, args...)...)
	if err != nil {
		return false, fmt.Errorf("soft-deleting from %s: %w", t.s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (t *table[T]) Exists(ctx context.Context, id string) (bool, error) {
	return t.exists(ctx, "id = ?", id)
}

func (t *table[T]) Count(ctx context.Context) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL", t.s.table)
	if err := t.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.s.table, err)
	}
	return n, nil
}

func (t *table[T]) CountWhere(ctx context.Context, pred domain.Predicate[T]) (int, error) {
	found, err := t.Find(ctx, pred)
	return len(found), err
}

func (t *table[T]) reload(ctx context.Context, e T) (T, error) {
	id := t.s.base(&e).ID
	stored, ok, err := t.GetByID(ctx, id)
	if err != nil {
		return e, err
	}
	if !ok {
		return e, fmt.Errorf("%s %s vanished after write", t.s.table, id)
	}
	return stored, nil
}

// conflict converts a unique-index violation into a *domain.ConflictError.
// It returns nil for any other error.
func (t *table[T]) conflict(err error, e T) *domain.ConflictError {
	column, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	ce := &domain.ConflictError{Entity: t.s.entity, Field: column}
	if guard, ok := t.s.uniques[column]; ok {
		ce.Field, ce.Value = guard(e)
	}
	return ce
}

const uniquePrefix = "UNIQUE constraint failed: "

// uniqueViolation reports whether err is a UNIQUE failure and on which column.
func uniqueViolation(err error) (string, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}

	msg := err.Error()
	i := strings.Index(msg, uniquePrefix)
	if i < 0 {
		return "", false
	}
	target := msg[i+len(uniquePrefix):]
	if j := strings.IndexAny(target, ", )"); j >= 0 {
		target = target[:j]
	}
	if k := strings.LastIndexByte(target, '.'); k >= 0 {
		target = target[k+1:]
	}
	return target, true
}

func baseColumns(alias string) []string {
	cols := []string{"id", "created_at", "updated_at", "deleted_at", "created_by", "updated_by", "deleted_by"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return cols
}

// baseRow receives the base columns of a row.
type baseRow struct {
	id                              string
	createdAt, updatedAt            string
	deletedAt                       sql.NullString
	createdBy, updatedBy, deletedBy sql.NullString
}

// dest returns scan targets for the base columns followed by rest.
func (r *baseRow) dest(rest ...any) []any {
	return append([]any{
		&r.id, &r.createdAt, &r.updatedAt, &r.deletedAt,
		&r.createdBy, &r.updatedBy, &r.deletedBy,
	}, rest...)
}

func (r *baseRow) into(b *domain.Base) error {
	var err error
	b.ID = r.id
	if b.CreatedAt, err = parseTime(r.createdAt); err != nil {
		return err
	}
	if b.UpdatedAt, err = parseTime(r.updatedAt); err != nil {
		return err
	}
	if r.deletedAt.Valid {
		at, err := parseTime(r.deletedAt.String)
		if err != nil {
			return err
		}
		b.DeletedAt = &at
	}
	b.CreatedBy = nullable(r.createdBy)
	b.UpdatedBy = nullable(r.updatedBy)
	b.DeletedBy = nullable(r.deletedBy)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
