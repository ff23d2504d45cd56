package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/central/internal/domain"
)

// TracingDispatcher wraps a domain.EventDispatcher with OpenTelemetry tracing.
type TracingDispatcher struct {
	next   domain.EventDispatcher
	tracer trace.Tracer
}

var _ domain.EventDispatcher = (*TracingDispatcher)(nil)

// NewTracingDispatcher creates a tracing decorator around the given dispatcher.
func NewTracingDispatcher(next domain.EventDispatcher) *TracingDispatcher {
	return &TracingDispatcher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (d *TracingDispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	ctx, span := d.tracer.Start(ctx, "EventDispatcher.Dispatch",
		trace.WithAttributes(
			attribute.String("event.kind", event.Kind()),
			attribute.String("event.id", event.EventID()),
		),
	)
	err := d.next.Dispatch(ctx, event)
	finish(span, err)
	return err
}
