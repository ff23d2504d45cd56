// Package validation implements domain.Validator with struct tags checked by
// go-playground/validator.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/neomorfeo/central/internal/domain"
)

// NewEngine returns a validator that reports fields by their JSON names:
// the json tag when present, lowerCamel of the Go name otherwise.
func NewEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return lowerCamel(f.Name)
	default:
		return name
	}
}

// Struct validates request structs of type T.
type Struct[T any] struct {
	engine *validator.Validate
}

// Compile-time check against a representative instantiation.
var _ domain.Validator[struct{}] = Struct[struct{}]{}

// For returns a Validator for T sharing engine's cached struct metadata.
func For[T any](engine *validator.Validate) Struct[T] {
	return Struct[T]{engine: engine}
}

func (s Struct[T]) Validate(ctx context.Context, v T) []domain.FieldError {
	err := s.engine.StructCtx(ctx, v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.FieldError{{Message: err.Error()}}
	}

	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #1a2b3c"
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

// lowerCamel turns Go field names into JSON field names. Initialisms count as
// one word: ID becomes id, TenantID becomes tenantId, LogoURL becomes logoUrl.
func lowerCamel(s string) string {
	var b strings.Builder
	for i, w := range words(s) {
		w = strings.ToLower(w)
		if i > 0 {
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			w = string(r)
		}
		b.WriteString(w)
	}
	return b.String()
}

// words splits a Go identifier at case changes, keeping runs of capitals
// together: "URLPath" is URL and Path.
func words(s string) []string {
	r := []rune(s)
	var out []string
	start := 0
	for i := 1; i < len(r); i++ {
		lowerToUpper := unicode.IsLower(r[i-1]) && unicode.IsUpper(r[i])
		acronymEnd := unicode.IsUpper(r[i-1]) && unicode.IsUpper(r[i]) && i+1 < len(r) && unicode.IsLower(r[i+1])
		if lowerToUpper || acronymEnd {
			out = append(out, string(r[start:i]))
			start = i
		}
	}
	if start < len(r) {
		out = append(out, string(r[start:]))
	}
	return out
}
