package pnml

import (
	"strconv"
	"strings"

	"github.com/evoflow/pnmlcore/token"
)

// parseScalar converts a raw YAML-ish scalar into a token.Value,
// trying quoted strings, booleans, then numbers, and finally falling
// back to the trimmed raw text.
func parseScalar(value string) token.Value {
	raw := strings.TrimSpace(value)
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return token.String(raw[1 : len(raw)-1])
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return token.String(raw[1 : len(raw)-1])
	}
	switch strings.ToLower(raw) {
	case "true":
		return token.Bool(true)
	case "false":
		return token.Bool(false)
	}
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return token.Float(f)
		}
	} else if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return token.Int(i)
	}
	return token.String(raw)
}
