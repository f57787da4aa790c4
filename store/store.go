// Package store provides optional audit persistence for fired
// transitions and completed pending operations, recorded by an
// engine.Engine configured with engine.WithAuditStore (directly, via
// debug.Driver, or via the pnmlctl --audit-db flag).
//
// It is deliberately not a marking store: nothing in this package is
// consulted by the firing engine to reconstruct a Marking, and no
// Store implementation here supports resuming a live run from disk.
// That is an explicit engine Non-goal (see SPEC_FULL.md). AuditStore
// exists purely so a host tool can record and later inspect what a
// run did — useful for crash forensics and golden-file test fixtures,
// not for restarting execution.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested run ID has no audit trail.
var ErrNotFound = errors.New("store: run not found")

// HistoryRecord is the audit-store's own shape for a transition fired
// by the engine, decoupled from the engine's HistoryEntry so this
// package never imports the engine package.
type HistoryRecord struct {
	RunID           string
	Step            int
	TransitionID    string
	Line            int
	HasLine         bool
	ProducedPlaces  []string
}

// PendingOpRecord is the audit-store's own shape for a completed
// pending operation.
type PendingOpRecord struct {
	RunID         string
	ID            int64
	TransitionID  string
	OperationType string
	ResumeToken   string
	Result        string // token.Value.String() rendering, empty if absent
	Error         string
}

// AuditStore persists HistoryRecord and PendingOpRecord rows for later
// inspection. Implementations must be safe for concurrent use.
type AuditStore interface {
	// AppendHistory records one fired transition.
	AppendHistory(ctx context.Context, rec HistoryRecord) error

	// History returns every recorded step for runID, in append order.
	// Returns ErrNotFound if no rows exist for runID.
	History(ctx context.Context, runID string) ([]HistoryRecord, error)

	// AppendPendingOp records one completed (or failed) pending
	// operation.
	AppendPendingOp(ctx context.Context, rec PendingOpRecord) error

	// PendingOps returns every recorded pending-op completion for
	// runID, in append order. Returns ErrNotFound if no rows exist.
	PendingOps(ctx context.Context, runID string) ([]PendingOpRecord, error)

	// Close releases any underlying resources (database handles).
	Close() error
}
