package engine

import (
	"context"
	"testing"
	"time"

	"github.com/evoflow/pnmlcore/emit"
	"github.com/evoflow/pnmlcore/pnml"
	"github.com/evoflow/pnmlcore/registry"
	"github.com/evoflow/pnmlcore/store"
	"github.com/evoflow/pnmlcore/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEmitter counts emitted events by Msg, for asserting an engine
// side effect fires exactly once rather than inspecting a Prometheus
// gauge directly.
type recordingEmitter struct {
	counts map[string]int
}

func newRecordingEmitter() *recordingEmitter { return &recordingEmitter{counts: make(map[string]int)} }

func (r *recordingEmitter) Emit(e emit.Event) { r.counts[e.Msg]++ }
func (r *recordingEmitter) EmitBatch(_ context.Context, events []emit.Event) error {
	for _, e := range events {
		r.Emit(e)
	}
	return nil
}
func (r *recordingEmitter) Flush(context.Context) error { return nil }

const twoPlaceNet = `pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: "seed"
            - id: p2
          transition:
            - id: t1
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`

func TestEngine_StructuralFire(t *testing.T) {
	net, _ := pnml.Parse(twoPlaceNet)
	e := New(net, WithRunID("run-test"))

	enabled := e.EnabledTransitions()
	assert.Equal(t, []string{"t1"}, enabled)

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Equal(t, "t1", tid)

	m := e.Marking()
	assert.Empty(t, m["p1"])
	require.Len(t, m["p2"], 1)
	assert.Equal(t, "seed", m["p2"][0].String())

	assert.Empty(t, e.EnabledTransitions())
}

func TestEngine_GuardRejectBlocksFire(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: g1
                    kind: guard
          arc:
            - id: a1
              source: p1
              target: t1
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "guard"), func(token.Value) any { return false })
	e := New(net, WithRegistry(r))

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Equal(t, "", tid)

	m := e.Marking()
	require.Len(t, m["p1"], 1, "guard reject must not consume tokens")
}

func TestEngine_AsyncImmediate(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any { return "done-now" })
	e := New(net, WithRegistry(r))

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", tid)
	require.NotNil(t, pending)
	assert.True(t, pending.Completed)
	assert.Equal(t, "async_immediate", pending.OperationType)

	m := e.Marking()
	require.Len(t, m["p2"], 2)
	assert.Equal(t, "1", m["p2"][0].String())
	assert.Equal(t, "done-now", m["p2"][1].String())
}

func TestEngine_AsyncRequestRequiresSubmit(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any {
		return &AsyncRequest{OperationType: "human_approval", ResumeToken: "evo_async_fixed"}
	})
	e := New(net, WithRegistry(r))

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", tid)
	require.NotNil(t, pending)
	assert.False(t, pending.Completed)
	assert.Equal(t, "evo_async_fixed", pending.ResumeToken)

	assert.Empty(t, e.EnabledTransitions(), "enabled set forced empty while a pending op exists")

	e.SubmitAsync(nil, "evo_async_fixed", token.String("approved"), "")

	m := e.Marking()
	require.Len(t, m["p2"], 1)
	assert.Equal(t, "approved", m["p2"][0].String())
}

func TestEngine_SubmitAsyncUnknownIsIgnored(t *testing.T) {
	net, _ := pnml.Parse(twoPlaceNet)
	e := New(net)
	e.SubmitAsync(nil, "no-such-token", token.String("x"), "")
}

func TestEngine_SubmitAsyncIdempotent(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any {
		return &AsyncRequest{ResumeToken: "tok1"}
	})
	e := New(net, WithRegistry(r))
	_, _, _ = e.StepOnce(context.Background())

	e.SubmitAsync(nil, "tok1", token.Int(1), "")
	m1 := e.Marking()
	e.SubmitAsync(nil, "tok1", token.Int(2), "")
	m2 := e.Marking()
	assert.Equal(t, m1, m2, "second submit for a completed op must be a no-op")
}

func TestEngine_AsyncFutureCallbackCompletesAsynchronously(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	future := NewAsyncFuture(42)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any { return future })
	e := New(net, WithRegistry(r))

	_, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.False(t, pending.Completed)

	future.SetResult(token.String("async-value"))

	require.Eventually(t, func() bool {
		return len(e.Marking()["p2"]) == 1
	}, time.Second, time.Millisecond)
}

func TestEngine_ExpressionMissingStillFiresStructurally(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: "tok"
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	e := New(net)
	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Equal(t, "t1", tid)
	assert.Len(t, e.Marking()["p2"], 1)
}

func TestEngine_AsyncRequestRegistersExactlyOnce(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any {
		return &AsyncRequest{OperationType: "human_approval", ResumeToken: "evo_async_fixed"}
	})
	rec := newRecordingEmitter()
	e := New(net, WithRegistry(r), WithEmitter(rec))

	_, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pending)

	assert.Equal(t, 1, rec.counts["asyncOperationStarted"], "registration notification must fire exactly once")
	assert.Equal(t, 1, e.PendingCount())

	e.SubmitAsync(nil, "evo_async_fixed", token.String("approved"), "")
	assert.Equal(t, 0, e.PendingCount(), "completion must fully unregister the op")
}

func TestEngine_WithSelectionPolicyChoosesAmongEnabled(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
          transition:
            - id: t1
            - id: t2
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: p1
              target: t2
`)
	policy := func(enabled []string) string {
		for _, tid := range enabled {
			if tid == "t2" {
				return tid
			}
		}
		return ""
	}
	e := New(net, WithSelectionPolicy(policy))

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Equal(t, "t2", tid, "policy picks t2 over t1's default TransitionOrder position")
}

func TestEngine_WithSelectionPolicyFallsBackOnUnknownChoice(t *testing.T) {
	net, _ := pnml.Parse(twoPlaceNet)
	policy := func([]string) string { return "no-such-transition" }
	e := New(net, WithSelectionPolicy(policy))

	tid, _, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tid, "an unknown policy choice falls back to the first enabled transition")
}

func TestEngine_WithAuditStoreRecordsHistoryAndPendingOps(t *testing.T) {
	net, _ := pnml.Parse(twoPlaceNet)
	audit := store.NewMemoryAuditStore()
	e := New(net, WithRunID("run-audit"), WithAuditStore(audit))

	tid, pending, err := e.StepOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pending)
	assert.Equal(t, "t1", tid)

	history, err := audit.History(context.Background(), "run-audit")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "t1", history[0].TransitionID)
	assert.Equal(t, []string{"p2"}, history[0].ProducedPlaces)
}

func TestEngine_WithAuditStoreRecordsAsyncCompletion(t *testing.T) {
	net, _ := pnml.Parse(`pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: 1
            - id: p2
          transition:
            - id: t1
              evolve:
                inscriptions:
                  - id: e1
                    kind: expression
                    execMode: async
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
`)
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any {
		return &AsyncRequest{OperationType: "human_approval", ResumeToken: "evo_async_fixed"}
	})
	audit := store.NewMemoryAuditStore()
	e := New(net, WithRegistry(r), WithRunID("run-audit-2"), WithAuditStore(audit))

	_, _, err := e.StepOnce(context.Background())
	require.NoError(t, err)

	e.SubmitAsync(nil, "evo_async_fixed", token.String("approved"), "")

	ops, err := audit.PendingOps(context.Background(), "run-audit-2")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "human_approval", ops[0].OperationType)
	assert.Equal(t, "approved", ops[0].Result)
}
