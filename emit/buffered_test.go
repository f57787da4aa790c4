package emit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedEmitter_GetHistoryReturnsInOrder(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Step: 1, Msg: "fired", TransitionID: "t1"})
	b.Emit(Event{RunID: "run-1", Step: 2, Msg: "fired", TransitionID: "t2"})
	b.Emit(Event{RunID: "run-2", Step: 1, Msg: "fired", TransitionID: "t1"})

	history := b.GetHistory("run-1")
	require.Len(t, history, 2)
	assert.Equal(t, "t1", history[0].TransitionID)
	assert.Equal(t, "t2", history[1].TransitionID)
}

func TestBufferedEmitter_GetHistoryUnknownRunIsEmptyNotNil(t *testing.T) {
	b := NewBufferedEmitter()
	history := b.GetHistory("no-such-run")
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestBufferedEmitter_EmitBatchPreservesOrder(t *testing.T) {
	b := NewBufferedEmitter()
	err := b.EmitBatch(context.Background(), []Event{
		{RunID: "run-1", Step: 1, Msg: "fired"},
		{RunID: "run-1", Step: 2, Msg: "guard_rejected"},
	})
	require.NoError(t, err)

	history := b.GetHistory("run-1")
	require.Len(t, history, 2)
	assert.Equal(t, "fired", history[0].Msg)
	assert.Equal(t, "guard_rejected", history[1].Msg)
}

func TestBufferedEmitter_GetHistoryWithFilterByMsg(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Step: 1, Msg: "fired"})
	b.Emit(Event{RunID: "run-1", Step: 2, Msg: "guard_rejected"})

	filtered := b.GetHistoryWithFilter("run-1", HistoryFilter{Msg: "guard_rejected"})
	require.Len(t, filtered, 1)
	assert.Equal(t, 2, filtered[0].Step)
}

func TestBufferedEmitter_GetHistoryWithFilterByStepRange(t *testing.T) {
	b := NewBufferedEmitter()
	for step := 1; step <= 5; step++ {
		b.Emit(Event{RunID: "run-1", Step: step, Msg: "fired"})
	}

	min, max := 2, 3
	filtered := b.GetHistoryWithFilter("run-1", HistoryFilter{MinStep: &min, MaxStep: &max})
	require.Len(t, filtered, 2)
	assert.Equal(t, 2, filtered[0].Step)
	assert.Equal(t, 3, filtered[1].Step)
}

func TestBufferedEmitter_ClearSingleRun(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Msg: "fired"})
	b.Emit(Event{RunID: "run-2", Msg: "fired"})

	b.Clear("run-1")
	assert.Empty(t, b.GetHistory("run-1"))
	assert.Len(t, b.GetHistory("run-2"), 1)
}

func TestBufferedEmitter_ClearAllRuns(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Msg: "fired"})
	b.Emit(Event{RunID: "run-2", Msg: "fired"})

	b.Clear("")
	assert.Empty(t, b.GetHistory("run-1"))
	assert.Empty(t, b.GetHistory("run-2"))
}
