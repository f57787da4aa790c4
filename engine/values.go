package engine

import "github.com/evoflow/pnmlcore/token"

// truthy interprets an inscription's raw return value (any, since a
// registry.Callable is duck-typed) the way a guard result is
// interpreted: nil is treated as true; a token.Value defers to its own
// Truthy rule; a bare bool/number/string coerces the obvious way;
// anything else (maps, structs, AsyncFuture/AsyncRequest handles) is
// truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case token.Value:
		return t.Truthy()
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// toToken coerces an inscription's raw return value into a token.Value,
// for the async_immediate case where a plain (non-Future, non-Request)
// value completes a pending op right away.
func toToken(v any) token.Value {
	switch t := v.(type) {
	case nil:
		return token.Null
	case token.Value:
		return t
	case bool:
		return token.Bool(t)
	case int:
		return token.Int(int64(t))
	case int64:
		return token.Int(t)
	case float64:
		return token.Float(t)
	case string:
		return token.String(t)
	case map[string]token.Value:
		return token.Map(t)
	case []token.Value:
		return token.List(t)
	default:
		return token.Null
	}
}
