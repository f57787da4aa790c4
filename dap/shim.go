// Package dap implements the semantic layer of a Debug Adapter
// Protocol-shaped debug session (spec component C6a) over a
// debug.Driver. Per spec.md §1, wire framing (Content-Length headers,
// JSON transport) is explicitly out of scope: Shim operates on already-
// decoded request arguments and produces Event values a transport layer
// would serialize, never touching a socket or stdin/stdout itself.
package dap

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evoflow/pnmlcore/debug"
	"github.com/evoflow/pnmlcore/engine"
	"github.com/evoflow/pnmlcore/token"
	"github.com/google/uuid"
)

// Event is a DAP event the shim wants a transport to deliver:
// {"type": "event", "event": Name, "body": Body} in wire terms.
type Event struct {
	Name string
	Body map[string]any
}

// Capabilities is the body of the "initialize" response.
type Capabilities struct {
	SupportsConfigurationDoneRequest bool
	SupportsTerminateRequest         bool
}

// Frame is one synthesized stack frame.
type Frame struct {
	ID     int
	Name   string
	Line   int
	Column int
}

// Scope names the two fixed scopes this shim exposes.
type Scope struct {
	Name               string
	VariablesReference int
	PresentationHint   string
}

// Variable is one entry under a Scope.
type Variable struct {
	Name  string
	Value string
	Type  string
}

// Shim wraps one debug.Driver with DAP request/event semantics.
type Shim struct {
	driver  *debug.Driver
	onEvent func(Event)

	sessionID             string
	program               string
	noDebug               bool
	ignoreBreakpointsOnce bool
	stopped               bool
	lastStop              *engine.HistoryEntry

	customMu      sync.Mutex
	customPending map[int64]chan map[string]any
	customNextID  int64
}

// New returns a Shim over driver. onEvent is called for every DAP event
// the shim needs delivered to the client; pass nil to discard events.
func New(driver *debug.Driver, onEvent func(Event)) *Shim {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Shim{
		driver:        driver,
		onEvent:       onEvent,
		sessionID:     uuid.NewString(),
		customPending: make(map[int64]chan map[string]any),
	}
}

// Initialize returns this shim's capabilities and emits "initialized".
func (s *Shim) Initialize() Capabilities {
	s.onEvent(Event{Name: "initialized"})
	return Capabilities{SupportsConfigurationDoneRequest: true, SupportsTerminateRequest: true}
}

// Launch loads program's text into the driver. In noDebug mode it
// drains by stepping until nothing is enabled or an uncompleted pending
// op appears, then terminates — matching spec.md §4.6's launch rule.
func (s *Shim) Launch(ctx context.Context, program, text string, noDebug bool) error {
	s.program = program
	s.noDebug = noDebug
	if err := s.driver.Load(text); err != nil {
		return err
	}
	if noDebug {
		for {
			_, pending, err := s.driver.Engine().StepOnce(ctx)
			if err != nil {
				return err
			}
			if pending != nil && !pending.Completed {
				break
			}
			if len(s.driver.Engine().EnabledTransitions()) == 0 {
				break
			}
		}
		s.terminate()
	}
	return nil
}

// SetBreakpoints translates lines to places via the driver and returns
// the verified lines (this shim verifies every line it's given).
func (s *Shim) SetBreakpoints(lines []int) []int {
	return s.driver.SetBreakpoints(lines)
}

// ConfigurationDone runs the maybe_stop rule: if any breakpointed place
// already has a token and is an input of a currently enabled
// transition, stop immediately with reason "breakpoint".
func (s *Shim) ConfigurationDone(ctx context.Context) {
	if s.stopped {
		return
	}
	if s.maybeStopOnExistingMarking() {
		return
	}
	entry, err := s.driver.ContinueRun(ctx)
	if err != nil || entry == nil {
		s.terminate()
		return
	}
	s.lastStop = entry
	s.stopped = true
	reason := "pause"
	if entry.HasLine {
		reason = "breakpoint"
	}
	s.onEvent(Event{Name: "stopped", Body: map[string]any{"reason": reason, "threadId": 1}})
}

func (s *Shim) maybeStopOnExistingMarking() bool {
	eng := s.driver.Engine()
	if eng == nil {
		return false
	}
	enabled := make(map[string]struct{})
	for _, tid := range eng.EnabledTransitions() {
		enabled[tid] = struct{}{}
	}
	marking := eng.Marking()
	for _, pid := range s.driver.Breakpoints() {
		if len(marking[pid]) == 0 {
			continue
		}
		if placeFeedsAnEnabledTransition(eng, pid, enabled) {
			s.stopped = true
			s.onEvent(Event{Name: "stopped", Body: map[string]any{"reason": "breakpoint", "threadId": 1}})
			return true
		}
	}
	return false
}

func placeFeedsAnEnabledTransition(eng *engine.Engine, placeID string, enabled map[string]struct{}) bool {
	net := eng.Net()
	for _, arc := range net.Arcs {
		if arc.Source != placeID {
			continue
		}
		if _, ok := enabled[arc.Target]; ok {
			return true
		}
	}
	return false
}

// Continue invokes the driver's ContinueRun: if a pending op is now
// registered, emits stopped{reason:"pause"}; else if the run stopped on
// a breakpoint, emits stopped{reason:"breakpoint"}; otherwise
// terminates.
func (s *Shim) Continue(ctx context.Context) error {
	if s.driver.Engine() == nil {
		s.terminate()
		return nil
	}
	if s.ignoreBreakpointsOnce {
		s.ignoreBreakpointsOnce = false
		s.terminate()
		return nil
	}
	entry, err := s.driver.ContinueRun(ctx)
	if err != nil {
		return err
	}
	if s.driver.Engine().PendingCount() > 0 {
		s.lastStop = entry
		s.stopped = true
		s.onEvent(Event{Name: "stopped", Body: map[string]any{"reason": "pause", "threadId": 1}})
		return nil
	}
	if entry != nil && entry.HasLine {
		s.lastStop = entry
		s.stopped = true
		s.ignoreBreakpointsOnce = true
		s.onEvent(Event{Name: "stopped", Body: map[string]any{"reason": "breakpoint", "threadId": 1}})
		return nil
	}
	s.terminate()
	return nil
}

// Next fires exactly one step and emits stopped{reason:"step"} or
// terminates if nothing was enabled.
func (s *Shim) Next(ctx context.Context) error {
	if s.driver.Engine() == nil {
		s.terminate()
		return nil
	}
	entry, err := s.driver.StepOnce(ctx)
	if err != nil {
		return err
	}
	if entry == nil {
		s.terminate()
		return nil
	}
	s.lastStop = entry
	s.onEvent(Event{Name: "stopped", Body: map[string]any{"reason": "step", "threadId": 1}})
	return nil
}

// AsyncOperationSubmit resolves a pending op by opID or resumeToken,
// emits asyncOperationUpdated, and — if any of its output places is a
// breakpoint that now holds a token — emits stopped{reason:
// "asyncComplete", ...} per spec.md §4.6.
func (s *Shim) AsyncOperationSubmit(opID *int64, resumeToken string, result token.Value, errMsg string) {
	eng := s.driver.Engine()
	if eng == nil {
		return
	}
	var outputPlaces []string
	var transitionID string
	var op *engine.PendingOp
	if opID != nil {
		op = eng.PendingByID(*opID)
	} else if resumeToken != "" {
		op = eng.PendingByToken(resumeToken)
	}
	if op != nil {
		outputPlaces, transitionID = op.OutputPlaces, op.TransitionID
	}
	eng.SubmitAsync(opID, resumeToken, result, errMsg)

	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	s.onEvent(Event{Name: "asyncOperationUpdated", Body: map[string]any{
		"status": status,
		"result": result,
		"error":  errMsg,
	}})

	marking := eng.Marking()
	for _, pid := range outputPlaces {
		if !s.driver.HasBreakpoint(pid) || len(marking[pid]) == 0 {
			continue
		}
		line, _ := s.driver.PlaceLine(pid)
		s.stopped = true
		s.onEvent(Event{Name: "stopped", Body: map[string]any{
			"reason":       "asyncComplete",
			"threadId":     1,
			"place":        pid,
			"transitionId": transitionID,
			"resumeToken":  resumeToken,
			"line":         line,
		}})
		return
	}
}

// StackTrace synthesizes frames from the last stop, falling back to
// every place in the document when nothing has stopped yet.
func (s *Shim) StackTrace() []Frame {
	if s.lastStop != nil && s.lastStop.HasLine {
		return []Frame{{ID: 1, Name: s.lastStop.TransitionID, Line: s.lastStop.Line + 1, Column: 1}}
	}
	places := s.driver.PlaceIndex()
	frames := make([]Frame, 0, len(places))
	for i, p := range places {
		if p.ID == "" {
			continue
		}
		frames = append(frames, Frame{ID: i + 1, Name: fmt.Sprintf("Place %s", p.ID), Line: p.IDLine + 1, Column: 1})
	}
	return frames
}

// Scopes returns the two fixed scopes this shim exposes: "Marking" and
// "History".
func (s *Shim) Scopes() []Scope {
	return []Scope{
		{Name: "Marking", VariablesReference: 1, PresentationHint: "data"},
		{Name: "History", VariablesReference: 2, PresentationHint: "data"},
	}
}

// Variables returns the children of scope ref (1 = Marking,
// 2 = History).
func (s *Shim) Variables(ref int) []Variable {
	eng := s.driver.Engine()
	switch ref {
	case 1:
		if eng == nil {
			return nil
		}
		marking := eng.Marking()
		pids := make([]string, 0, len(marking))
		for pid := range marking {
			pids = append(pids, pid)
		}
		sort.Strings(pids)
		vars := make([]Variable, 0, len(pids))
		for _, pid := range pids {
			vars = append(vars, Variable{Name: pid, Value: tokensRepr(marking[pid]), Type: "list"})
		}
		return vars
	case 2:
		hist := s.driver.History()
		vars := make([]Variable, 0, len(hist))
		for _, entry := range hist {
			vars = append(vars, Variable{
				Name:  fmt.Sprintf("step %d", entry.Step),
				Value: fmt.Sprintf("transition %s", entry.TransitionID),
				Type:  "HistoryEntry",
			})
		}
		return vars
	default:
		return nil
	}
}

// Evaluate resolves expr against the current marking: a bare place id
// returns its token list; "marking.<id>" is equivalent; anything else
// returns "".
func (s *Shim) Evaluate(expr string) string {
	eng := s.driver.Engine()
	if eng == nil {
		return ""
	}
	marking := eng.Marking()
	if toks, ok := marking[expr]; ok {
		return tokensRepr(toks)
	}
	const prefix = "marking."
	if len(expr) > len(prefix) && expr[:len(prefix)] == prefix {
		return tokensRepr(marking[expr[len(prefix):]])
	}
	return ""
}

// Disconnect and Terminate both end the session the same way, by
// emitting a "terminated" event.
func (s *Shim) Disconnect() { s.terminate() }
func (s *Shim) Terminate()  { s.terminate() }

func (s *Shim) terminate() {
	s.onEvent(Event{Name: "terminated"})
}

func tokensRepr(toks []token.Value) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.String()
	}
	return fmt.Sprint(parts)
}

// CustomRequest sends a client-bound custom request and blocks for its
// response, up to timeout. This replaces the original's
// queue.Queue+threading.Lock bridge (_send_vscode_request_sync) with a
// buffered channel per outstanding request; onEvent is expected to wrap
// the returned Event in a "reverseRequest"-shaped message and forward
// HandleCustomResponse's result back here.
func (s *Shim) CustomRequest(reqType string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	s.customMu.Lock()
	s.customNextID++
	id := s.customNextID
	ch := make(chan map[string]any, 1)
	s.customPending[id] = ch
	s.customMu.Unlock()

	s.onEvent(Event{Name: "reverseRequest", Body: map[string]any{
		"requestId": id,
		"type":      reqType,
		"params":    params,
	}})

	select {
	case body := <-ch:
		return body, nil
	case <-time.After(timeout):
		s.customMu.Lock()
		delete(s.customPending, id)
		s.customMu.Unlock()
		return nil, fmt.Errorf("dap: custom request %q (id %d) timed out after %s", reqType, id, timeout)
	}
}

// HandleCustomResponse delivers a client's response to CustomRequest,
// identified by the requestId it was sent with. A response for an
// unknown or already-timed-out id is silently dropped.
func (s *Shim) HandleCustomResponse(requestID int64, body map[string]any) {
	s.customMu.Lock()
	ch, ok := s.customPending[requestID]
	if ok {
		delete(s.customPending, requestID)
	}
	s.customMu.Unlock()
	if !ok {
		return
	}
	ch <- body
}
