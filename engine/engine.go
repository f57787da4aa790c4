package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/evoflow/pnmlcore/emit"
	"github.com/evoflow/pnmlcore/pnml"
	"github.com/evoflow/pnmlcore/registry"
	"github.com/evoflow/pnmlcore/store"
	"github.com/evoflow/pnmlcore/token"
)

// Engine is the firing engine for one net instance: it owns a mutable
// marking, steps one enabled transition at a time, and tracks pending
// async operations. All public methods serialize on a single mutex —
// the model is explicitly single-threaded cooperative concurrency (see
// SPEC_FULL.md §5); concurrent StepOnce/SubmitAsync calls are safe but
// never run in parallel.
type Engine struct {
	net *pnml.Net
	cfg *engineConfig

	mu             sync.Mutex
	marking        map[string][]token.Value
	pendingByID    map[int64]*PendingOp
	pendingByToken map[string]*PendingOp
	resolved       map[string]registry.Callable
	runID          string
	auditStep      int

	inputs  map[string][]string // transitionID -> incoming place ids, in arc order
	outputs map[string][]string // transitionID -> outgoing place ids, in arc order
}

// New constructs an Engine over net, copying each place's initial
// tokens into a fresh marking.
func New(net *pnml.Net, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Engine{
		net:            net,
		cfg:            cfg,
		marking:        make(map[string][]token.Value),
		pendingByID:    make(map[int64]*PendingOp),
		pendingByToken: make(map[string]*PendingOp),
		resolved:       make(map[string]registry.Callable),
	}
	for pid, place := range net.Places {
		toks := make([]token.Value, len(place.Tokens))
		copy(toks, place.Tokens)
		e.marking[pid] = toks
	}
	if cfg.runID != "" {
		e.runID = cfg.runID
	} else {
		e.runID = fmt.Sprintf("run-%d", cfg.nowMs())
	}
	e.inputs, e.outputs = buildIOMaps(net)
	return e
}

// RunID returns the engine's run identifier, stamped at construction.
func (e *Engine) RunID() string { return e.runID }

// Net returns the read-only net this engine was built over.
func (e *Engine) Net() *pnml.Net { return e.net }

// Marking returns a snapshot of the current marking. Mutating the
// returned slices does not affect the engine's internal state.
func (e *Engine) Marking() map[string][]token.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]token.Value, len(e.marking))
	for pid, toks := range e.marking {
		cp := make([]token.Value, len(toks))
		copy(cp, toks)
		out[pid] = cp
	}
	return out
}

// PendingByID returns the pending op registered under id, or nil.
func (e *Engine) PendingByID(id int64) *PendingOp {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingByID[id]
}

// PendingByToken returns the pending op registered under resumeToken,
// or nil.
func (e *Engine) PendingByToken(resumeToken string) *PendingOp {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingByToken[resumeToken]
}

// PendingCount returns the number of outstanding (uncompleted) pending
// ops currently registered.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pendingByID)
}

// EnabledTransitions returns the ids of every transition whose incoming
// places all hold at least one token, in net.TransitionOrder. The
// result is forced empty while any pending op exists — execution is
// globally paused during async waits.
func (e *Engine) EnabledTransitions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabledLocked()
}

func (e *Engine) enabledLocked() []string {
	if len(e.pendingByID) > 0 {
		return nil
	}
	var enabled []string
	for _, tid := range e.net.TransitionOrder {
		inPlaces := e.inputs[tid]
		ok := true
		for _, pid := range inPlaces {
			if len(e.marking[pid]) == 0 {
				ok = false
				break
			}
		}
		if ok {
			enabled = append(enabled, tid)
		}
	}
	return enabled
}

// StepOnce fires at most one transition. It returns (transitionID, nil)
// on a synchronous structural/expression fire, ("", pending) when a
// pending op exists (either just registered or already outstanding from
// a prior step) or an async_immediate op has just completed (returned
// with Completed set, never registered), and ("", nil) when nothing is
// enabled.
func (e *Engine) StepOnce(ctx context.Context) (string, *PendingOp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.cfg.tracer.Start(ctx, "pnml.step_once")
	defer span.End()

	if len(e.pendingByID) > 0 {
		return "", e.oldestPendingLocked(), nil
	}

	enabled := e.enabledLocked()
	if len(enabled) == 0 {
		return "", nil, nil
	}
	tid := e.selectLocked(enabled)
	transition := e.net.Transitions[tid]

	if transition != nil && len(transition.Inscriptions) > 0 {
		ok, err := e.evaluateGuardsLocked(transition)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			e.cfg.metrics.recordGuardReject()
			e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: tid, Msg: "guard_reject"})
			return "", nil, nil
		}
	}

	var moved []token.Value
	for _, pid := range e.inputs[tid] {
		if len(e.marking[pid]) > 0 {
			moved = append(moved, e.marking[pid][0])
			e.marking[pid] = e.marking[pid][1:]
		}
	}
	outputPlaces := e.outputs[tid]

	if transition != nil && len(transition.Inscriptions) > 0 {
		pending, err := e.executeExpressionsLocked(transition, moved, tid, outputPlaces)
		if err != nil {
			return "", nil, err
		}
		if pending != nil {
			// executeExpressionsLocked already registered the op (for the
			// AsyncFuture/AsyncRequest cases) or finalized it directly (for
			// the already-Completed async_immediate case); registering it
			// again here would double-count the pending-ops gauge and fire
			// a duplicate asyncOperationStarted event.
			return "", pending, nil
		}
	}

	produced := moved
	if len(produced) == 0 {
		produced = []token.Value{token.FromTransition(tid)}
	}
	for _, pid := range outputPlaces {
		e.marking[pid] = append(e.marking[pid], produced...)
	}
	e.cfg.metrics.recordStep()
	e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: tid, Msg: "fire"})
	e.appendHistoryLocked(ctx, tid, outputPlaces)
	return tid, nil, nil
}

// selectLocked picks which enabled transition fires next. With no
// SelectionPolicy configured, or one that returns an id outside enabled,
// the first transition in net.TransitionOrder (enabled[0]) fires.
func (e *Engine) selectLocked(enabled []string) string {
	if e.cfg.selectionPolicy == nil {
		return enabled[0]
	}
	chosen := e.cfg.selectionPolicy(enabled)
	for _, tid := range enabled {
		if tid == chosen {
			return chosen
		}
	}
	return enabled[0]
}

// appendHistoryLocked records one fired transition to the configured
// AuditStore, if any. Audit failures are logged via the emitter and never
// propagate — an audit-trail write must never fail a run.
func (e *Engine) appendHistoryLocked(ctx context.Context, tid string, producedPlaces []string) {
	if e.cfg.auditStore == nil {
		return
	}
	e.auditStep++
	rec := store.HistoryRecord{
		RunID:          e.runID,
		Step:           e.auditStep,
		TransitionID:   tid,
		ProducedPlaces: producedPlaces,
	}
	if err := e.cfg.auditStore.AppendHistory(ctx, rec); err != nil {
		e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: tid, Msg: "audit_error", Meta: map[string]any{"error": err.Error()}})
	}
}

func (e *Engine) oldestPendingLocked() *PendingOp {
	for _, tid := range e.pendingOrderLocked() {
		return e.pendingByID[tid]
	}
	return nil
}

// pendingOrderLocked returns pending op ids in ascending order, a
// deterministic stand-in for Python dict's insertion-order iteration
// (Go maps have none).
func (e *Engine) pendingOrderLocked() []int64 {
	ids := make([]int64, 0, len(e.pendingByID))
	for id := range e.pendingByID {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func (e *Engine) evaluateGuardsLocked(t *pnml.Transition) (bool, error) {
	for _, ins := range t.Inscriptions {
		if ins.Kind != "guard" {
			continue
		}
		fn, ok := e.resolveLocked(ins)
		if !ok {
			continue
		}
		result := fn(token.Null)
		if !truthy(result) {
			return false, nil
		}
	}
	return true, nil
}

// executeExpressionsLocked mirrors the original's loop: only the first
// inscription whose exec_mode is "async" short-circuits with a pending
// op. Sync-mode expressions run for their side effects; their return
// value never affects the produced tokens.
func (e *Engine) executeExpressionsLocked(t *pnml.Transition, moved []token.Value, tid string, outputPlaces []string) (*PendingOp, error) {
	for _, ins := range t.Inscriptions {
		if ins.Kind != "expression" {
			continue
		}
		fn, ok := e.resolveLocked(ins)
		if !ok {
			continue
		}
		arg := token.Null
		if len(moved) > 0 {
			arg = moved[0]
		}
		execMode := ins.ExecMode
		if execMode == "" {
			execMode = "sync"
		}
		result := fn(arg)
		if execMode != "async" {
			continue
		}

		switch v := result.(type) {
		case *AsyncFuture:
			pending := e.buildPendingOp(v.ID(), tid, ins.ID, "async_result", "", outputPlaces, moved, nil, nil)
			e.registerPendingLocked(pending)
			v.AddDoneCallback(func(res token.Value, errMsg string) {
				e.SubmitAsync(&pending.ID, "", res, errMsg)
			})
			return pending, nil
		case *AsyncRequest:
			resumeToken := v.ResumeToken
			if resumeToken == "" {
				resumeToken = e.generateResumeToken()
			}
			metadata := map[string]any{"operationParams": v.OperationParams}
			if v.HasTimeout {
				metadata["timeout_ms"] = v.TimeoutMs
			}
			pending := e.buildPendingOp(e.nextFallbackID(), tid, ins.ID, v.OperationType, resumeToken, outputPlaces, moved, metadata, v.UIState)
			e.registerPendingLocked(pending)
			return pending, nil
		default:
			pending := &PendingOp{
				ID:             e.nextFallbackID(),
				TransitionID:   tid,
				InscriptionID:  ins.ID,
				TransitionName: tid,
				NetID:          e.net.ID,
				RunID:          e.runID,
				OperationType:  "async_immediate",
				OutputPlaces:   outputPlaces,
				MovedTokens:    moved,
				Result:         toToken(result),
				Completed:      true,
			}
			// Unlike async_result completion (finalizeLocked, which produces
			// only [result]), async_immediate keeps the moved tokens and
			// appends the result after them.
			produced := append([]token.Value(nil), moved...)
			if !pending.Result.IsNull() {
				produced = append(produced, pending.Result)
			}
			if len(produced) == 0 {
				produced = []token.Value{token.FromTransition(tid)}
			}
			for _, pid := range outputPlaces {
				e.marking[pid] = append(e.marking[pid], produced...)
			}
			e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: tid, Msg: "pending_complete"})
			return pending, nil
		}
	}
	return nil, nil
}

func (e *Engine) buildPendingOp(id int64, tid, inscriptionID, operationType, resumeToken string, outputPlaces []string, moved []token.Value, metadata map[string]any, uiState map[string]token.Value) *PendingOp {
	return &PendingOp{
		ID:             id,
		TransitionID:   tid,
		InscriptionID:  inscriptionID,
		TransitionName: tid,
		NetID:          e.net.ID,
		RunID:          e.runID,
		OperationType:  operationType,
		ResumeToken:    resumeToken,
		OutputPlaces:   outputPlaces,
		MovedTokens:    moved,
		Metadata:       metadata,
		UIState:        uiState,
	}
}

// SubmitAsync finalizes a pending op found by opID (preferred) or
// resumeToken. An unknown id/token is silently ignored (late or
// duplicate submission, per spec.md §7 PendingUnknown) — already
// completing and removing a matched op is also idempotent, since the op
// is unregistered at the end of this call.
func (e *Engine) SubmitAsync(opID *int64, resumeToken string, result token.Value, errMsg string) {
	ctx, span := e.cfg.tracer.Start(context.Background(), "pnml.submit_async")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var pending *PendingOp
	if opID != nil {
		pending = e.pendingByID[*opID]
	} else if resumeToken != "" {
		pending = e.pendingByToken[resumeToken]
	}
	if pending == nil {
		return
	}
	pending.Result = result
	pending.Error = errMsg
	pending.Completed = true
	e.finalizeLocked(pending)
	e.unregisterPendingLocked(pending)
	e.appendPendingOpLocked(ctx, pending)
}

// appendPendingOpLocked records one completed pending op to the
// configured AuditStore, if any, mirroring appendHistoryLocked.
func (e *Engine) appendPendingOpLocked(ctx context.Context, pending *PendingOp) {
	if e.cfg.auditStore == nil {
		return
	}
	result := ""
	if !pending.Result.IsNull() {
		result = pending.Result.String()
	}
	rec := store.PendingOpRecord{
		RunID:         e.runID,
		ID:            pending.ID,
		TransitionID:  pending.TransitionID,
		OperationType: pending.OperationType,
		ResumeToken:   pending.ResumeToken,
		Result:        result,
		Error:         pending.Error,
	}
	if err := e.cfg.auditStore.AppendPendingOp(ctx, rec); err != nil {
		e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: pending.TransitionID, Msg: "audit_error", Meta: map[string]any{"error": err.Error()}})
	}
}

func (e *Engine) finalizeLocked(pending *PendingOp) {
	var tokens []token.Value
	switch {
	case !pending.Result.IsNull():
		tokens = []token.Value{pending.Result}
	case pending.Error != "":
		tokens = []token.Value{token.FromError(pending.Error)}
	case len(pending.MovedTokens) > 0:
		tokens = append(tokens, pending.MovedTokens...)
	}
	if len(tokens) == 0 {
		tokens = []token.Value{token.FromTransition(pending.TransitionID)}
	}
	for _, pid := range pending.OutputPlaces {
		e.marking[pid] = append(e.marking[pid], tokens...)
	}
	e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: pending.TransitionID, Msg: "pending_complete"})
}

func (e *Engine) registerPendingLocked(pending *PendingOp) {
	e.pendingByID[pending.ID] = pending
	if pending.ResumeToken != "" {
		e.pendingByToken[pending.ResumeToken] = pending
	}
	e.cfg.metrics.recordPendingDelta(1)
	e.cfg.metrics.recordAsyncOp(pending.OperationType)
	// Registration side effect: notify a listening shim. Per spec.md
	// §4.3, a notification failure must never fail the engine, so the
	// emitter call is fire-and-forget and its result discarded.
	e.cfg.emitter.Emit(emit.Event{RunID: e.runID, TransitionID: pending.TransitionID, Msg: "asyncOperationStarted", Meta: map[string]any{
		"pendingId":   pending.ID,
		"resumeToken": pending.ResumeToken,
	}})
}

func (e *Engine) unregisterPendingLocked(pending *PendingOp) {
	delete(e.pendingByID, pending.ID)
	if pending.ResumeToken != "" {
		delete(e.pendingByToken, pending.ResumeToken)
	}
	e.cfg.metrics.recordPendingDelta(-1)
}

func (e *Engine) generateResumeToken() string {
	return fmt.Sprintf("evo_async_%d", e.cfg.nowMs())
}

// nextFallbackID mints an id for pending ops with no natural identity
// of their own (AsyncRequest and async_immediate cases), mirroring the
// original's millisecond-clock-derived id.
func (e *Engine) nextFallbackID() int64 {
	return e.cfg.nowMs() % 1_000_000_000
}

func (e *Engine) resolveLocked(ins *pnml.Inscription) (registry.Callable, bool) {
	if fn, ok := e.resolved[ins.RegistryKey]; ok {
		return fn, true
	}
	fn, ok := e.cfg.registry.Get(ins.RegistryKey)
	if !ok {
		return nil, false
	}
	e.resolved[ins.RegistryKey] = fn
	return fn, true
}

func buildIOMaps(net *pnml.Net) (inputs, outputs map[string][]string) {
	inputs = make(map[string][]string)
	outputs = make(map[string][]string)
	for _, arc := range net.Arcs {
		if arc.Source == "" || arc.Target == "" {
			continue
		}
		_, srcIsPlace := net.Places[arc.Source]
		_, tgtIsTransition := net.Transitions[arc.Target]
		if srcIsPlace && tgtIsTransition {
			inputs[arc.Target] = append(inputs[arc.Target], arc.Source)
			continue
		}
		_, srcIsTransition := net.Transitions[arc.Source]
		_, tgtIsPlace := net.Places[arc.Target]
		if srcIsTransition && tgtIsPlace {
			outputs[arc.Source] = append(outputs[arc.Source], arc.Target)
		}
	}
	return inputs, outputs
}
