package domain

import "fmt"

// ConflictError is returned when a write would break a uniqueness constraint
// among live rows.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// TransitionError is returned when an activation change is not allowed.
type TransitionError struct {
	Event   ActivationEvent
	Current ActivationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}
