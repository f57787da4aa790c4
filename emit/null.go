package emit

import "context"

// NullEmitter implements Emitter by discarding every event. Safe for
// concurrent use and zero overhead; the default when no emitter is
// configured.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards all events.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit discards event.
func (n *NullEmitter) Emit(Event) {}

// EmitBatch discards events and always succeeds.
func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

// Flush is a no-op; NullEmitter never buffers.
func (n *NullEmitter) Flush(context.Context) error { return nil }
