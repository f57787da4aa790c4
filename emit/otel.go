package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an
// OpenTelemetry span, immediately ended (events are instants, not
// durations).
//
// Usage:
//
//	tracer := otel.Tracer("pnmlcore")
//	emitter := emit.NewOTelEmitter(tracer)
//	eng := engine.New(net, engine.WithEmitter(emitter))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an Emitter that records spans via tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span named event.Msg, carrying the
// event's fields and meta as span attributes. Sets the span status to
// error when event.Meta["error"] is present.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("pnml.run_id", event.RunID),
		attribute.Int("pnml.step", event.Step),
		attribute.String("pnml.transition_id", event.TransitionID),
	)
	for k, v := range event.Meta {
		span.SetAttributes(attribute.String("pnml.meta."+k, fmt.Sprintf("%v", v)))
	}
	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, fmt.Sprintf("%v", errVal))
	}
}

// EmitBatch emits every event as its own span, in order.
func (o *OTelEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		o.Emit(event)
	}
	return nil
}

// Flush is a no-op: spans are ended synchronously by Emit. Configure
// flushing at the TracerProvider/exporter level instead.
func (o *OTelEmitter) Flush(context.Context) error { return nil }
