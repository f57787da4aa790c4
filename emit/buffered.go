package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, grouped
// by RunID. A host can use it to answer "what happened on this run so
// far" from the engine's emitted events, without re-deriving it from the
// engine's own history log. dap.Shim's "History" variables scope reads
// debug.Driver.History instead, and no pnmlctl command uses it.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter's results. Empty fields are
// not applied. Non-empty fields combine with AND logic.
type HistoryFilter struct {
	TransitionID string
	Msg          string
	MinStep      *int
	MaxStep      *int
}

// NewBufferedEmitter returns an Emitter that stores every event in memory.
// Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends event to its run's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// EmitBatch appends events in order.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range events {
		b.events[event.RunID] = append(b.events[event.RunID], event)
	}
	return nil
}

// Flush is a no-op: BufferedEmitter has no downstream to drain.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of every event recorded for runID, in emission
// order. Returns an empty, non-nil slice if runID has no events.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns a copy of runID's events matching filter,
// in emission order.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	result := make([]Event, 0, len(events))
	for _, event := range events {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.TransitionID != "" && event.TransitionID != filter.TransitionID {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear drops stored events. If runID is empty, every run's history is
// cleared.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}
