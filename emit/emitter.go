package emit

import "context"

// Emitter receives observability events from the engine. The debug
// driver emits no events of its own.
//
// Implementations should be:
//   - Non-blocking: never slow down firing or stepping.
//   - Thread-safe: the engine may emit from goroutines invoking async
//     completion callbacks as well as from the engine's own mutex-held
//     code path.
//   - Resilient: Emit must never panic; a failing backend should log and
//     drop, not propagate.
type Emitter interface {
	// Emit sends a single observability event to the configured backend.
	Emit(event Event)

	// EmitBatch sends multiple events in one call. Implementations should
	// preserve order. Returns an error only for catastrophic, non-per-event
	// failures (e.g. a misconfigured backend); individual event failures
	// should be logged and skipped.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events have been delivered, or the
	// context is cancelled.
	Flush(ctx context.Context) error
}
