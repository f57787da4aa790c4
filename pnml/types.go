// Package pnml implements the line-aware parser for the workflow text
// format: places, transitions, arcs and their inscriptions, plus the
// byte-accurate line index used by the debug driver to map breakpoints
// onto places.
//
// The format is whitespace-structured, not generic YAML: indentation
// defines nesting the same way YAML's does, but the parser tracks exact
// start/end line numbers per place (including inside block-scalar
// `code: |` bodies) that a general-purpose YAML library has no way to
// recover once it has built its value tree.
package pnml

import "github.com/evoflow/pnmlcore/token"

// Place is a token container identified by id.
type Place struct {
	ID     string
	Tokens []token.Value
}

// Inscription is a guard or expression attached to a transition or arc.
// Kind is "guard" or "expression"; Code holds the registry-callable
// source (informational — the engine resolves behavior through
// registry.Registry, never by evaluating Code itself).
type Inscription struct {
	ID          string
	Language    string
	Kind        string
	Source      string
	ExecMode    string
	Code        string
	OwnerID     string
	RegistryKey string
}

// Transition is a firing rule. Inscriptions holds its guard/expression
// inscriptions in file order.
type Transition struct {
	ID           string
	Inscriptions []*Inscription
}

// Arc connects a place and a transition. Inscriptions on an arc are
// parsed and indexed but never fired — spec.md scopes firing behavior
// to transitions only.
type Arc struct {
	ID           string
	Source       string
	Target       string
	Inscriptions []*Inscription
}

// Net is a parsed workflow: places, transitions, and arcs keyed by id,
// plus TransitionOrder recording insertion order for deterministic
// enabled-set iteration.
type Net struct {
	ID              string
	Places          map[string]*Place
	Transitions     map[string]*Transition
	Arcs            []*Arc
	TransitionOrder []string
}

// PlaceIndex records the line range a place's YAML block occupies in
// the source text: IDLine is the line holding "- id: <place>", StartLine
// equals IDLine, and EndLine is the last line still inside the place's
// block (inclusive) before the next sibling or dedent.
type PlaceIndex struct {
	ID        string
	IDLine    int
	StartLine int
	EndLine   int
}

func newNet() *Net {
	return &Net{
		Places:      make(map[string]*Place),
		Transitions: make(map[string]*Transition),
	}
}
