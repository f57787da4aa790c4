// Package token defines the opaque, dynamically typed value carried by
// Petri-net tokens. The engine never introspects a token's payload
// beyond moving, copying, and printing it; inscriptions are the only
// code that interprets a Value's Kind.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags which variant a Value holds.
type Kind int

// The token variants named in spec.md §9 "Dynamic-typed tokens".
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindMap
	KindList
)

// Value is a tagged-union scalar, map, or list. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	m    map[string]Value
	l    []Value
}

// Null is the empty token value, used wherever spec.md calls for "no
// token" (e.g. invoking a guard that takes no argument).
var Null = Value{kind: KindNull}

// Bool wraps b as a boolean token.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps i as an integer token.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps f as a floating-point token.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps s as a string token.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Map wraps m as a map token. m is not copied; callers should treat it
// as owned by the returned Value afterward.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// List wraps l as a list token. l is not copied; callers should treat
// it as owned by the returned Value afterward.
func List(l []Value) Value { return Value{kind: KindList, l: l} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns v's boolean payload (false if v is not KindBool).
func (v Value) Bool() bool { return v.b }

// Int returns v's integer payload (0 if v is not KindInt).
func (v Value) Int() int64 { return v.i }

// Float returns v's float payload (0 if v is not KindFloat).
func (v Value) Float() float64 { return v.f }

// String returns v's string payload for KindString, and a printable
// rendering for every other kind ("null", "true", "42", "{a: 1}",
// "[1, 2]").
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindMap:
		return mapRepr(v.m)
	case KindList:
		return listRepr(v.l)
	default:
		return ""
	}
}

// Map returns v's map payload (nil if v is not KindMap). The returned
// map must not be mutated by callers that don't own v.
func (v Value) Map() map[string]Value { return v.m }

// List returns v's list payload (nil if v is not KindList). The
// returned slice must not be mutated by callers that don't own v.
func (v Value) List() []Value { return v.l }

// Truthy implements the guard-result truthiness rule from spec.md §4.3:
// a guard returning Null is treated as true; a guard returning a falsy
// value aborts the fire. Falsy values are false, zero-valued numbers,
// and the empty string; Null, maps and lists are always truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

// FromError builds the `{"error": error}` token produced on async
// completion when PendingOp.Error is set (spec.md §4.3 "Finalization on
// resume").
func FromError(msg string) Value {
	return Map(map[string]Value{"error": String(msg)})
}

// FromTransition builds the synthetic `{"from": transitionId}` token
// produced when a structural fire has no moved tokens (spec.md §4.3).
func FromTransition(transitionID string) Value {
	return Map(map[string]Value{"from": String(transitionID)})
}

func mapRepr(m map[string]Value) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m[k].String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func listRepr(l []Value) string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
