package domain_test

import (
	"testing"

	"github.com/neomorfeo/central/internal/domain"
)

func TestConflictError_Error(t *testing.T) {
	err := &domain.ConflictError{Entity: "Bundle", Field: "key", Value: "pro"}
	want := `Bundle with key "pro" already exists`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventActivate,
		Current: domain.StatusActive,
	}
	want := `event "activate" is not valid from state "active"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
