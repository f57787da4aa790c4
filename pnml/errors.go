package pnml

import "fmt"

// ValidationError reports a structurally parseable but semantically
// incomplete net, e.g. one with no places or no transitions.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pnml: validation failed: %s", e.Reason)
}

// Validate runs the cheap structural checks a caller should apply
// before handing a Net to an engine: it must have at least one place
// and one transition. Parse itself never fails on malformed or unknown
// input (per spec.md §4.1's error policy); Validate is the separate,
// explicit check a host calls when it wants a hard rejection.
func Validate(text string) error {
	net, _ := Parse(text)
	if len(net.Places) == 0 {
		return &ValidationError{Reason: "no places found"}
	}
	if len(net.Transitions) == 0 {
		return &ValidationError{Reason: "no transitions found"}
	}
	return nil
}
