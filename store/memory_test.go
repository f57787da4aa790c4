package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAuditStore_HistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAuditStore()

	require.NoError(t, s.AppendHistory(ctx, HistoryRecord{RunID: "run-1", Step: 1, TransitionID: "t1", ProducedPlaces: []string{"p2"}}))
	require.NoError(t, s.AppendHistory(ctx, HistoryRecord{RunID: "run-1", Step: 2, TransitionID: "t2", Line: 5, HasLine: true, ProducedPlaces: []string{"p3"}}))

	rows, err := s.History(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "t1", rows[0].TransitionID)
	assert.False(t, rows[0].HasLine)
	assert.Equal(t, "t2", rows[1].TransitionID)
	assert.True(t, rows[1].HasLine)
	assert.Equal(t, 5, rows[1].Line)
}

func TestMemoryAuditStore_HistoryNotFound(t *testing.T) {
	s := NewMemoryAuditStore()
	_, err := s.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAuditStore_PendingOpsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAuditStore()

	require.NoError(t, s.AppendPendingOp(ctx, PendingOpRecord{
		RunID: "run-1", ID: 42, TransitionID: "t1", OperationType: "async_result", Result: `"done"`,
	}))

	rows, err := s.PendingOps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 42, rows[0].ID)
	assert.Equal(t, "async_result", rows[0].OperationType)
}

func TestMemoryAuditStore_Close(t *testing.T) {
	s := NewMemoryAuditStore()
	assert.NoError(t, s.Close())
}
