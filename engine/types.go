// Package engine implements the firing engine (spec component C3) and
// the async pending-operation table (C4): it owns a net's marking,
// steps transitions one at a time, dispatches guard/expression
// inscriptions through a registry.Registry, and tracks operations
// awaiting an external submitAsync completion.
package engine

import (
	"sync"

	"github.com/evoflow/pnmlcore/token"
)

// HistoryEntry is an append-only record of one completed step.
type HistoryEntry struct {
	Step           int
	TransitionID   string
	Line           int
	HasLine        bool
	ProducedPlaces []string
}

// PendingOp is an async operation awaiting an external SubmitAsync
// completion. It is registered by ID, and additionally by ResumeToken
// when one is present.
type PendingOp struct {
	ID                    int64
	TransitionID          string
	InscriptionID         string
	TransitionName        string
	TransitionDescription string
	NetID                 string
	RunID                 string
	OperationType         string
	ResumeToken           string
	OutputPlaces          []string
	MovedTokens           []token.Value
	Metadata              map[string]any
	UIState               map[string]token.Value
	Result                token.Value
	Error                 string
	Completed             bool
}

// AsyncFuture is the handle an expression inscription returns to mean
// "this will complete later, off to the side" — mirrors a future/
// promise with a single completion callback. Create one with
// NewAsyncFuture; call SetResult or SetError exactly once.
type AsyncFuture struct {
	mu        sync.Mutex
	id        int64
	result    token.Value
	err       string
	done      bool
	callbacks []func(token.Value, string)
}

// NewAsyncFuture returns a new, incomplete future identified by id. The
// id becomes the PendingOp.ID the engine registers for it.
func NewAsyncFuture(id int64) *AsyncFuture {
	return &AsyncFuture{id: id}
}

// ID returns the future's identity.
func (f *AsyncFuture) ID() int64 { return f.id }

// SetResult completes f successfully with result, invoking any
// callbacks registered via AddDoneCallback.
func (f *AsyncFuture) SetResult(result token.Value) {
	f.complete(result, "")
}

// SetError completes f with a failure message.
func (f *AsyncFuture) SetError(msg string) {
	f.complete(token.Null, msg)
}

func (f *AsyncFuture) complete(result token.Value, errMsg string) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.result = result
	f.err = errMsg
	f.done = true
	callbacks := f.callbacks
	f.mu.Unlock()
	for _, cb := range callbacks {
		go cb(result, errMsg)
	}
}

// Done reports whether f has completed.
func (f *AsyncFuture) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Result returns f's result value (Null until Done).
func (f *AsyncFuture) Result() token.Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns f's error message ("" until Done, or on success).
func (f *AsyncFuture) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// AddDoneCallback registers cb to run once, with f's final
// (result, error) pair, the moment f completes. cb always runs on its
// own goroutine, even if f has already completed — the registering
// call site (the engine, holding its own mutex while wiring this up)
// must never be reentered synchronously.
func (f *AsyncFuture) AddDoneCallback(cb func(result token.Value, errMsg string)) {
	f.mu.Lock()
	if f.done {
		result, errMsg := f.result, f.err
		f.mu.Unlock()
		go cb(result, errMsg)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// AsyncRequest is the handle an expression inscription returns to ask
// the host to mediate an operation (e.g. a human approval step, a
// long-running external job): the engine registers a PendingOp and
// waits for the host to call Engine.SubmitAsync, there is no in-process
// future involved.
type AsyncRequest struct {
	OperationType   string
	OperationParams map[string]token.Value
	UIState         map[string]token.Value
	ResumeToken     string
	TimeoutMs       int64
	HasTimeout      bool
}
