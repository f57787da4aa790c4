// Package registry implements the inscription registry: the
// name→callable table that resolves a parsed guard or expression
// inscription to the Go function that actually runs it.
//
// Inscriptions in workflow text are data, not code — a "code: |" block
// is informational source for humans reading the file. The engine never
// evaluates it; it looks up Inscription.RegistryKey in a Registry
// supplied by the host application and calls whatever was registered
// under that key.
package registry

import (
	"fmt"
	"sync"

	"github.com/evoflow/pnmlcore/token"
)

// Callable is the fixed-arity shape every registered inscription must
// have. It is always invoked with an argument: token.Null when the
// inscription has no token to inspect (see SPEC_FULL.md "Supplemented
// features" for why this replaces the original's variable-arity
// calling convention).
//
// The return type is deliberately `any`, not token.Value: a guard
// callable returns something the caller treats as a truth value, but an
// expression callable running under an async inscription may instead
// return an *engine.AsyncFuture or *engine.AsyncRequest handle. Keeping
// Callable return-type-agnostic here (engine.go interprets the result)
// is what lets both call sites share one registry without an import
// cycle between registry and engine.
type Callable func(token.Value) any

// BuildKey derives the registry key for an inscription owned by
// ownerID (a transition or arc id) within netID, of the given kind
// ("guard" or "expression"). kind defaults to "inscription" when empty,
// matching an inscription block with no kind set.
func BuildKey(netID, ownerID, kind string) string {
	if kind == "" {
		kind = "inscription"
	}
	return fmt.Sprintf("%s_%s_%s", netID, ownerID, kind)
}

// Registry is a concurrency-safe name→Callable table. The zero value is
// not usable; construct one with New.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Callable
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]Callable)}
}

// Register binds key to fn, replacing any previous binding.
func (r *Registry) Register(key string, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[key] = fn
}

// Get looks up key, returning (fn, true) if bound.
func (r *Registry) Get(key string) (Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[key]
	return fn, ok
}

// Clear removes every binding. Intended for test isolation between
// runs that reuse a shared Registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs = make(map[string]Callable)
}
