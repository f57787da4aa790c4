package dap

import (
	"context"
	"testing"
	"time"

	"github.com/evoflow/pnmlcore/debug"
	"github.com/evoflow/pnmlcore/engine"
	"github.com/evoflow/pnmlcore/registry"
	"github.com/evoflow/pnmlcore/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainNet = `pnml:
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
            - id: p3
          transition:
            - id: t1
            - id: t2
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
            - id: a3
              source: p2
              target: t2
            - id: a4
              source: t2
              target: p3
`

func collectEvents() (*[]Event, func(Event)) {
	var events []Event
	return &events, func(e Event) { events = append(events, e) }
}

func TestShim_InitializeEmitsInitialized(t *testing.T) {
	events, onEvent := collectEvents()
	s := New(debug.New(), onEvent)
	caps := s.Initialize()
	assert.True(t, caps.SupportsConfigurationDoneRequest)
	require.Len(t, *events, 1)
	assert.Equal(t, "initialized", (*events)[0].Name)
}

func TestShim_LaunchNoDebugDrainsAndTerminates(t *testing.T) {
	events, onEvent := collectEvents()
	s := New(debug.New(), onEvent)
	err := s.Launch(context.Background(), "net.yaml", chainNet, true)
	require.NoError(t, err)

	var sawTerminated bool
	for _, e := range *events {
		if e.Name == "terminated" {
			sawTerminated = true
		}
	}
	assert.True(t, sawTerminated)

	m := s.driver.Engine().Marking()
	assert.Len(t, m["p3"], 1)
}

func TestShim_ConfigurationDoneStopsAtBreakpoint(t *testing.T) {
	_, onEvent := collectEvents()
	s := New(debug.New(), onEvent)
	require.NoError(t, s.Launch(context.Background(), "net.yaml", chainNet, false))

	var p2Line int
	for _, p := range s.driver.PlaceIndex() {
		if p.ID == "p2" {
			p2Line = p.IDLine
		}
	}
	s.SetBreakpoints([]int{p2Line})

	var stoppedReason string
	s.onEvent = func(e Event) {
		if e.Name == "stopped" {
			stoppedReason, _ = e.Body["reason"].(string)
		}
	}
	s.ConfigurationDone(context.Background())
	assert.Equal(t, "breakpoint", stoppedReason)
	assert.True(t, s.stopped)
}

func TestShim_ConfigurationDoneNoBreakpointsDrainsToTermination(t *testing.T) {
	var terminated bool
	s := New(debug.New(), func(e Event) {
		if e.Name == "terminated" {
			terminated = true
		}
	})
	require.NoError(t, s.Launch(context.Background(), "net.yaml", chainNet, false))
	s.ConfigurationDone(context.Background())
	assert.True(t, terminated)
}

func TestShim_NextEmitsStepThenTerminates(t *testing.T) {
	var reasons []string
	var terminated bool
	s := New(debug.New(), func(e Event) {
		if e.Name == "stopped" {
			reasons = append(reasons, e.Body["reason"].(string))
		}
		if e.Name == "terminated" {
			terminated = true
		}
	})
	require.NoError(t, s.Launch(context.Background(), "net.yaml", chainNet, false))

	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Next(context.Background()))
	assert.Equal(t, []string{"step", "step"}, reasons)
	assert.False(t, terminated)

	require.NoError(t, s.Next(context.Background()))
	assert.Equal(t, []string{"step", "step"}, reasons)
	assert.True(t, terminated)
}

func TestShim_AsyncOperationSubmitStopsWhenOutputIsBreakpointed(t *testing.T) {
	net := `pnml:
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
`
	r := registry.New()
	r.Register(registry.BuildKey("n", "t1", "expression"), func(token.Value) any {
		return &engine.AsyncRequest{OperationType: "human_approval", ResumeToken: "evo_async_fixed"}
	})

	var stoppedReason string
	d := debug.New(engine.WithRegistry(r))
	s := New(d, func(e Event) {
		if e.Name == "stopped" {
			stoppedReason, _ = e.Body["reason"].(string)
		}
	})
	require.NoError(t, s.Launch(context.Background(), "net.yaml", net, false))

	var p2Line int
	for _, p := range s.driver.PlaceIndex() {
		if p.ID == "p2" {
			p2Line = p.IDLine
		}
	}
	s.SetBreakpoints([]int{p2Line})

	s.ConfigurationDone(context.Background())
	require.Equal(t, 1, s.driver.Engine().PendingCount())

	s.AsyncOperationSubmit(nil, "evo_async_fixed", token.String("approved"), "")
	assert.Equal(t, "asyncComplete", stoppedReason)
}

func TestShim_EvaluateReadsMarking(t *testing.T) {
	s := New(debug.New(), nil)
	require.NoError(t, s.Launch(context.Background(), "net.yaml", chainNet, true))
	assert.Equal(t, "[]", s.Evaluate("p1"))
	assert.Equal(t, "[]", s.Evaluate("marking.p1"))
	assert.Equal(t, "", s.Evaluate("nonsense"))
}

func TestShim_ScopesAndVariables(t *testing.T) {
	s := New(debug.New(), nil)
	require.NoError(t, s.Launch(context.Background(), "net.yaml", chainNet, false))
	scopes := s.Scopes()
	require.Len(t, scopes, 2)

	require.NoError(t, s.Next(context.Background()))
	vars := s.Variables(1)
	require.NotEmpty(t, vars)
	hist := s.Variables(2)
	require.NotEmpty(t, hist)
	assert.Nil(t, s.Variables(99))
}

func TestShim_CustomRequestRoundTrips(t *testing.T) {
	s := New(debug.New(), func(Event) {})
	go func() {
		// Simulate a client responding shortly after the reverse request
		// is sent, by scanning for the id synchronously via a tiny sleep.
		time.Sleep(5 * time.Millisecond)
		s.customMu.Lock()
		var id int64
		for k := range s.customPending {
			id = k
		}
		s.customMu.Unlock()
		s.HandleCustomResponse(id, map[string]any{"ok": true})
	}()
	body, err := s.CustomRequest("generateProject", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, body["ok"])
}

func TestShim_CustomRequestTimesOut(t *testing.T) {
	s := New(debug.New(), func(Event) {})
	_, err := s.CustomRequest("noReply", nil, 5*time.Millisecond)
	assert.Error(t, err)
}

func TestShim_DisconnectAndTerminateEmitTerminated(t *testing.T) {
	var count int
	s := New(debug.New(), func(e Event) {
		if e.Name == "terminated" {
			count++
		}
	})
	s.Disconnect()
	s.Terminate()
	assert.Equal(t, 2, count)
}
