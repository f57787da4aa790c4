// Package debug implements the debug driver (spec component C5): a
// breakpoint-aware wrapper around one engine.Engine that maps user line
// numbers to places, drains fires via ContinueRun or StepOnce, and
// keeps its own append-only history distinct from the engine's marking.
package debug

import (
	"context"

	"github.com/evoflow/pnmlcore/engine"
	"github.com/evoflow/pnmlcore/pnml"
)

// Driver owns a parsed net, its line index, an engine instance, and the
// debug session's own history and breakpoint set. The zero Driver is
// usable; call Load before anything else.
type Driver struct {
	opts []engine.Option

	net          *pnml.Net
	placeIndex   []*pnml.PlaceIndex
	placeLineMap map[string]int

	eng *engine.Engine

	breakpoints map[string]struct{}
	history     []engine.HistoryEntry
	stepCounter int
}

// New returns a Driver that constructs its engine with opts whenever
// Load is called.
func New(opts ...engine.Option) *Driver {
	return &Driver{opts: opts}
}

// Load parses text, constructs a fresh engine over the result, and
// resets history, breakpoints, and the step counter.
func (d *Driver) Load(text string) error {
	net, places := pnml.Parse(text)
	d.net = net
	d.placeIndex = places
	d.placeLineMap = make(map[string]int, len(places))
	for _, p := range places {
		if p.ID != "" {
			d.placeLineMap[p.ID] = p.IDLine
		}
	}
	d.eng = engine.New(net, d.opts...)
	d.breakpoints = make(map[string]struct{})
	d.history = nil
	d.stepCounter = 0
	return nil
}

// Engine returns the driver's underlying engine, or nil before Load.
func (d *Driver) Engine() *engine.Engine { return d.eng }

// History returns every history entry recorded so far.
func (d *Driver) History() []engine.HistoryEntry {
	out := make([]engine.HistoryEntry, len(d.history))
	copy(out, d.history)
	return out
}

// SetBreakpoints maps each line in lines to a place via
// pnml.FindPlaceForLine and replaces the breakpoint set with the
// resulting place ids. It returns lines back unchanged (the "verified"
// lines, in spec.md §4.6's DAP-shim vocabulary — this driver accepts
// every line it's given).
func (d *Driver) SetBreakpoints(lines []int) []int {
	d.breakpoints = make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if p := d.FindPlaceForLine(line); p != nil && p.ID != "" {
			d.breakpoints[p.ID] = struct{}{}
		}
	}
	return lines
}

// FindPlaceForLine delegates to pnml.FindPlaceForLine over this
// driver's current place index.
func (d *Driver) FindPlaceForLine(line int) *pnml.PlaceIndex {
	return pnml.FindPlaceForLine(d.placeIndex, line)
}

// Breakpoints returns the current set of breakpointed place ids.
func (d *Driver) Breakpoints() []string {
	out := make([]string, 0, len(d.breakpoints))
	for pid := range d.breakpoints {
		out = append(out, pid)
	}
	return out
}

// HasBreakpoint reports whether placeID currently carries a breakpoint.
func (d *Driver) HasBreakpoint(placeID string) bool {
	_, ok := d.breakpoints[placeID]
	return ok
}

// PlaceLine returns the id_line recorded for placeID, and whether one
// was found.
func (d *Driver) PlaceLine(placeID string) (int, bool) {
	line, ok := d.placeLineMap[placeID]
	return line, ok
}

// PlaceIndex returns the driver's current line index, in file order.
func (d *Driver) PlaceIndex() []*pnml.PlaceIndex {
	out := make([]*pnml.PlaceIndex, len(d.placeIndex))
	copy(out, d.placeIndex)
	return out
}

// ContinueRun repeatedly steps the engine until it stops: on a
// newly-registered (uncompleted) pending op, on an immediate-async
// completion (continuing past it), on a breakpointed produced place, or
// on nothing left to do (returns nil). It returns the HistoryEntry that
// caused the stop, or nil if the engine had nothing enabled.
func (d *Driver) ContinueRun(ctx context.Context) (*engine.HistoryEntry, error) {
	if d.eng == nil {
		return nil, nil
	}
	for {
		tid, pending, err := d.eng.StepOnce(ctx)
		if err != nil {
			return nil, err
		}
		if tid == "" && pending == nil {
			return nil, nil
		}
		if pending != nil {
			if !pending.Completed {
				entry := engine.HistoryEntry{
					Step:         d.stepCounter,
					TransitionID: pending.TransitionID,
				}
				d.history = append(d.history, entry)
				return &d.history[len(d.history)-1], nil
			}
			d.stepCounter++
			entry := engine.HistoryEntry{
				Step:           d.stepCounter,
				TransitionID:   pending.TransitionID,
				ProducedPlaces: d.producedPlaces(pending.TransitionID),
			}
			d.history = append(d.history, entry)
			continue
		}

		d.stepCounter++
		produced := d.producedPlaces(tid)
		stopPlace := d.firstBreakpointed(produced)
		entry := engine.HistoryEntry{
			Step:           d.stepCounter,
			TransitionID:   tid,
			ProducedPlaces: produced,
		}
		if stopPlace != "" {
			if line, ok := d.placeLineMap[stopPlace]; ok {
				entry.Line = line
				entry.HasLine = true
			}
		}
		d.history = append(d.history, entry)
		if stopPlace != "" {
			return &d.history[len(d.history)-1], nil
		}
	}
}

// StepOnce fires the engine exactly once and appends one history entry,
// regardless of whether the result landed on a breakpoint.
func (d *Driver) StepOnce(ctx context.Context) (*engine.HistoryEntry, error) {
	if d.eng == nil {
		return nil, nil
	}
	tid, pending, err := d.eng.StepOnce(ctx)
	if err != nil {
		return nil, err
	}
	if tid == "" && pending == nil {
		return nil, nil
	}
	if pending != nil {
		entry := engine.HistoryEntry{Step: d.stepCounter, TransitionID: pending.TransitionID}
		d.history = append(d.history, entry)
		return &d.history[len(d.history)-1], nil
	}
	d.stepCounter++
	entry := engine.HistoryEntry{
		Step:           d.stepCounter,
		TransitionID:   tid,
		ProducedPlaces: d.producedPlaces(tid),
	}
	d.history = append(d.history, entry)
	return &d.history[len(d.history)-1], nil
}

func (d *Driver) firstBreakpointed(produced []string) string {
	for _, pid := range produced {
		if _, ok := d.breakpoints[pid]; ok {
			return pid
		}
	}
	return ""
}

func (d *Driver) producedPlaces(transitionID string) []string {
	if d.net == nil {
		return nil
	}
	var out []string
	for _, arc := range d.net.Arcs {
		if arc.Source != transitionID {
			continue
		}
		if _, isTransition := d.net.Transitions[arc.Source]; !isTransition {
			continue
		}
		if _, isPlace := d.net.Places[arc.Target]; isPlace {
			out = append(out, arc.Target)
		}
	}
	return out
}
