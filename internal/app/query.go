package app

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/neomorfeo/central/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// ListRequest carries the paging, sorting and search options shared by every
// list operation. Entity-specific filters live in the entity request types.
type ListRequest struct {
	Page           int
	PageSize       int
	SortBy         string
	SortDescending bool
	Search         string
}

func (r ListRequest) normalize() ListRequest {
	if r.Page < 1 {
		r.Page = defaultPage
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	r.SortBy = strings.ToLower(strings.TrimSpace(r.SortBy))
	r.Search = strings.TrimSpace(r.Search)
	return r
}

// Page is one slice of a filtered, sorted collection.
type Page[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PageSize   int
}

// TotalPages is ceil(TotalCount / PageSize).
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 || p.TotalCount <= 0 {
		return 0
	}
	return (p.TotalCount-1)/p.PageSize + 1
}

func (p Page[T]) HasNextPage() bool     { return p.Page < p.TotalPages() }
func (p Page[T]) HasPreviousPage() bool { return p.Page > 1 }

// MapPage converts the items of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, it := range p.Items {
		items[i] = fn(it)
	}
	return Page[U]{Items: items, TotalCount: p.TotalCount, Page: p.Page, PageSize: p.PageSize}
}

// Comparator orders two entities the way cmp.Compare does.
type Comparator[E any] func(a, b E) int

// Query describes how one entity type is searched, filtered and sorted.
type Query[E any] struct {
	// Match reports whether e matches a non-empty search term. Nil disables search.
	Match func(e E, term string) bool
	// Filters narrow the result with AND semantics.
	Filters []domain.Predicate[E]
	// Sorts maps lowercase field names to their ascending order.
	Sorts map[string]Comparator[E]
	// DefaultSort applies to empty or unknown sort fields, regardless of the
	// descending flag. Nil keeps the stored order.
	DefaultSort Comparator[E]
}

// Compose applies search, then filters, then sort, then pagination.
func Compose[E any](items []E, q Query[E], req ListRequest) Page[E] {
	req = req.normalize()

	matched := make([]E, 0, len(items))
	for _, it := range items {
		if req.Search != "" && q.Match != nil && !q.Match(it, req.Search) {
			continue
		}
		if !all(q.Filters, it) {
			continue
		}
		matched = append(matched, it)
	}

	if order, ok := q.Sorts[req.SortBy]; ok && req.SortBy != "" {
		if req.SortDescending {
			asc := order
			order = func(a, b E) int { return asc(b, a) }
		}
		slices.SortStableFunc(matched, order)
	} else if q.DefaultSort != nil {
		slices.SortStableFunc(matched, q.DefaultSort)
	}

	total := len(matched)
	start := total
	// Comparing by division keeps huge page numbers from overflowing.
	if req.Page-1 <= (total-1)/req.PageSize {
		start = (req.Page - 1) * req.PageSize
	}
	end := start + min(req.PageSize, total-start)

	return Page[E]{
		Items:      matched[start:end:end],
		TotalCount: total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
}

func all[E any](preds []domain.Predicate[E], e E) bool {
	for _, p := range preds {
		if p != nil && !p(e) {
			return false
		}
	}
	return true
}

// MatchAny builds a case-insensitive substring matcher over the given fields.
func MatchAny[E any](fields ...func(E) string) func(E, string) bool {
	return func(e E, term string) bool {
		term = strings.ToLower(term)
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(e)), term) {
				return true
			}
		}
		return false
	}
}

// By returns an ascending comparator on a single key.
func By[E any, K cmp.Ordered](key func(E) K) Comparator[E] {
	return func(a, b E) int {
		return cmp.Compare(key(a), key(b))
	}
}

// ByFold orders strings case-insensitively.
func ByFold[E any](key func(E) string) Comparator[E] {
	return func(a, b E) int {
		return strings.Compare(strings.ToLower(key(a)), strings.ToLower(key(b)))
	}
}

// ByTime orders chronologically.
func ByTime[E any](key func(E) time.Time) Comparator[E] {
	return func(a, b E) int {
		return key(a).Compare(key(b))
	}
}

// ByBool orders false before true.
func ByBool[E any](key func(E) bool) Comparator[E] {
	return func(a, b E) int {
		ka, kb := key(a), key(b)
		switch {
		case ka == kb:
			return 0
		case !ka:
			return -1
		default:
			return 1
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
