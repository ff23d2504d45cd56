// Package fsm checks tenant activation changes with looplab/fsm.
package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/central/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator answers "may this event fire from that state" for a fixed table
// of transitions. looplab/fsm machines are stateful, so Apply builds a
// throwaway machine seeded with the caller's current state.
type Validator struct {
	events []loopfsm.EventDesc
}

// New returns a validator for domain.ActivationTransitions.
func New() *Validator {
	return NewFromTable(domain.ActivationTransitions)
}

// NewFromTable returns a validator for an arbitrary transition table.
// Transitions sharing an event and destination collapse into one event with
// several sources.
func NewFromTable(table []domain.Transition) *Validator {
	type key struct{ event, dst string }

	sources := make(map[key][]string)
	var order []key
	for _, t := range table {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, seen := sources[k]; !seen {
			order = append(order, k)
		}
		sources[k] = append(sources[k], string(t.Src))
	}

	events := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		events = append(events, loopfsm.EventDesc{Name: k.event, Src: sources[k], Dst: k.dst})
	}
	return &Validator{events: events}
}

// Apply returns the state event leads to from current, or a
// *domain.TransitionError when the table has no such edge.
func (v *Validator) Apply(ctx context.Context, current domain.ActivationStatus, event domain.ActivationEvent) (domain.ActivationStatus, error) {
	machine := loopfsm.NewFSM(string(current), v.events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{Event: event, Current: current}
		}
		return "", err
	}

	return domain.ActivationStatus(machine.Current()), nil
}
