// Package event routes domain events to the handlers registered for them.
package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/central/internal/domain"
)

// Compile-time check: Dispatcher implements domain.EventDispatcher.
var _ domain.EventDispatcher = (*Dispatcher)(nil)

// HandlerFunc consumes exactly one event type.
type HandlerFunc[E domain.Event] func(ctx context.Context, event E) error

type handler struct {
	name string
	fn   func(ctx context.Context, event domain.Event) error
}

// Registry maps event kinds to their handlers. Build it once at startup and
// hand it to NewDispatcher; it is not safe for concurrent registration.
type Registry struct {
	handlers map[string][]handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]handler)}
}

// Subscribe registers fn for events of type E. The name shows up in logs and
// wrapped errors.
func Subscribe[E domain.Event](r *Registry, name string, fn HandlerFunc[E]) {
	var zero E
	kind := zero.Kind()

	r.handlers[kind] = append(r.handlers[kind], handler{
		name: name,
		fn: func(ctx context.Context, event domain.Event) error {
			typed, ok := event.(E)
			if !ok {
				return fmt.Errorf("handler %q: unexpected %T for kind %q", name, event, kind)
			}
			return fn(ctx, typed)
		},
	})
}

// Len returns the number of handlers registered for kind.
func (r *Registry) Len(kind string) int {
	return len(r.handlers[kind])
}

// Dispatcher fans an event out to its handlers and waits for all of them.
type Dispatcher struct {
	handlers map[string][]handler
	logger   *zap.Logger
}

// NewDispatcher snapshots the registry. Later registrations are not seen.
func NewDispatcher(r *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := make(map[string][]handler, len(r.handlers))
	for kind, hs := range r.handlers {
		handlers[kind] = append([]handler(nil), hs...)
	}
	return &Dispatcher{handlers: handlers, logger: logger}
}

// Dispatch runs every handler registered for the event's kind concurrently
// and returns once all have finished. The first handler error is returned;
// sibling handlers are not cancelled. An event nobody listens to is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	log := d.logger.With(
		zap.String("event_kind", event.Kind()),
		zap.String("event_id", event.EventID()),
	)

	handlers := d.handlers[event.Kind()]
	if len(handlers) == 0 {
		log.Warn("no handlers registered for event")
		return nil
	}

	log.Info("dispatching domain event", zap.Int("handlers", len(handlers)))

	var g errgroup.Group
	for _, h := range handlers {
		g.Go(func() error {
			if err := h.fn(ctx, event); err != nil {
				return fmt.Errorf("handler %q: %w", h.name, err)
			}
			log.Debug("handler processed event", zap.String("handler", h.name))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("domain event dispatch failed", zap.Error(err))
		return fmt.Errorf("dispatching %s: %w", event.Kind(), err)
	}

	log.Info("dispatched domain event")
	return nil
}
