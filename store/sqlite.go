package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore is a SQLite-backed AuditStore. Good fit for a local
// debug session recorded to a single file for later inspection.
//
// Schema:
//   - debug_history: one row per recorded HistoryRecord
//   - debug_pending_ops: one row per recorded PendingOpRecord
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore opens (creating if necessary) a SQLite database at
// path and ensures the audit schema exists. Pass ":memory:" for a
// throwaway store, e.g. in tests.
func NewSQLiteAuditStore(path string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite supports one writer at a time

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	s := &SQLiteAuditStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS debug_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			transition_id TEXT NOT NULL,
			line INTEGER NOT NULL,
			has_line INTEGER NOT NULL,
			produced_places TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS debug_pending_ops (
			row_id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			op_id INTEGER NOT NULL,
			transition_id TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			resume_token TEXT NOT NULL,
			result TEXT NOT NULL,
			error TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

// AppendHistory inserts rec into debug_history.
func (s *SQLiteAuditStore) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_history (run_id, step, transition_id, line, has_line, produced_places)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Step, rec.TransitionID, rec.Line, boolToInt(rec.HasLine), joinPlaces(rec.ProducedPlaces))
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}

// History returns every row recorded for runID, ordered by insertion.
func (s *SQLiteAuditStore) History(ctx context.Context, runID string) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, transition_id, line, has_line, produced_places
		 FROM debug_history WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var hasLine int
		var places string
		if err := rows.Scan(&rec.Step, &rec.TransitionID, &rec.Line, &hasLine, &places); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		rec.RunID = runID
		rec.HasLine = hasLine != 0
		rec.ProducedPlaces = splitPlaces(places)
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, rows.Err()
}

// AppendPendingOp inserts rec into debug_pending_ops.
func (s *SQLiteAuditStore) AppendPendingOp(ctx context.Context, rec PendingOpRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_pending_ops (run_id, op_id, transition_id, operation_type, resume_token, result, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.ID, rec.TransitionID, rec.OperationType, rec.ResumeToken, rec.Result, rec.Error)
	if err != nil {
		return fmt.Errorf("store: append pending op: %w", err)
	}
	return nil
}

// PendingOps returns every row recorded for runID, ordered by insertion.
func (s *SQLiteAuditStore) PendingOps(ctx context.Context, runID string) ([]PendingOpRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op_id, transition_id, operation_type, resume_token, result, error
		 FROM debug_pending_ops WHERE run_id = ? ORDER BY row_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query pending ops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PendingOpRecord
	for rows.Next() {
		var rec PendingOpRecord
		if err := rows.Scan(&rec.ID, &rec.TransitionID, &rec.OperationType, &rec.ResumeToken, &rec.Result, &rec.Error); err != nil {
			return nil, fmt.Errorf("store: scan pending op: %w", err)
		}
		rec.RunID = runID
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteAuditStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
