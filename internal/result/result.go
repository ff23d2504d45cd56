// Package result holds the outcome values returned by every service operation.
//
// Expected business failures (not found, validation, conflicts, domain rules)
// travel inside a Result or Status instead of an error, so a boundary layer can
// render them without knowing how they were produced. Infrastructure faults
// are plain Go errors and never end up here.
package result

import (
	"fmt"
	"strings"
)

// Kind classifies a failed outcome.
type Kind int

const (
	// KindNone marks a successful outcome.
	KindNone Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindDomainRule
	// KindFailure is any other failure reported by a collaborator.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindDomainRule:
		return "domain_rule"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldError is a single field-level rule violation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

const invalidMessage = "one or more validation errors occurred"

// Status is a valueless outcome.
type Status struct {
	ok     bool
	kind   Kind
	msg    string
	fields []FieldError
}

// OK returns a successful Status.
func OK() Status {
	return Status{ok: true}
}

// Failed returns a failed Status carrying a single message.
func Failed(kind Kind, msg string) Status {
	if kind == KindNone {
		kind = KindFailure
	}
	return Status{kind: kind, msg: msg}
}

// InvalidStatus returns a validation failure carrying field errors.
func InvalidStatus(fields []FieldError) Status {
	s := Status{kind: KindValidation, msg: invalidMessage}
	if len(fields) > 0 {
		s.fields = append([]FieldError(nil), fields...)
	}
	return s
}

// IsSuccess reports whether the outcome succeeded.
func (s Status) IsSuccess() bool { return s.ok }

// Kind returns the failure classification, KindNone on success.
func (s Status) Kind() Kind { return s.kind }

// Message returns the single failure message, empty on success.
func (s Status) Message() string { return s.msg }

// FieldErrors returns a copy of the field-level errors, if any.
func (s Status) FieldErrors() []FieldError {
	if len(s.fields) == 0 {
		return nil
	}
	return append([]FieldError(nil), s.fields...)
}

// Errors renders the field-level errors as "field: message" strings.
func (s Status) Errors() []string {
	out := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f.String())
	}
	return out
}

func (s Status) String() string {
	if s.ok {
		return "success"
	}
	if len(s.fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", s.kind, s.msg, strings.Join(s.Errors(), "; "))
	}
	return fmt.Sprintf("%s: %s", s.kind, s.msg)
}

// Result is an outcome that carries a value on success.
type Result[T any] struct {
	Status
	value T
}

// Success wraps a value in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{Status: OK(), value: v}
}

// Fail returns a failed Result carrying a single message.
func Fail[T any](kind Kind, msg string) Result[T] {
	return Result[T]{Status: Failed(kind, msg)}
}

// Invalid returns a validation failure carrying field errors.
func Invalid[T any](fields []FieldError) Result[T] {
	return Result[T]{Status: InvalidStatus(fields)}
}

// Propagate re-types a failed Status. Passing a successful Status yields a
// successful Result holding the zero value.
func Propagate[T any](s Status) Result[T] {
	return Result[T]{Status: s}
}

// Value returns the wrapped value. It is the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Map converts the value of a successful Result, passing failures through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Propagate[U](r.Status)
	}
	return Success(fn(r.value))
}
