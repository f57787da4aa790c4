package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteAuditStore_HistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteAuditStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.AppendHistory(ctx, HistoryRecord{
		RunID: "run-1", Step: 1, TransitionID: "t1", Line: 3, HasLine: true, ProducedPlaces: []string{"p2", "p3"},
	}))

	rows, err := s.History(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TransitionID)
	assert.Equal(t, []string{"p2", "p3"}, rows[0].ProducedPlaces)
	assert.True(t, rows[0].HasLine)
}

func TestSQLiteAuditStore_HistoryNotFound(t *testing.T) {
	s, err := NewSQLiteAuditStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteAuditStore_PendingOpsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteAuditStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.AppendPendingOp(ctx, PendingOpRecord{
		RunID: "run-1", ID: 7, TransitionID: "t1", OperationType: "async_request", ResumeToken: "evo_async_1",
	}))

	rows, err := s.PendingOps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "evo_async_1", rows[0].ResumeToken)
}
