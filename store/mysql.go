package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLAuditStore is a MySQL-backed AuditStore for recording debug
// sessions to a shared, networked database, e.g. when several hosts
// debug against the same workflow and want a combined audit trail.
//
// dsn follows github.com/go-sql-driver/mysql's DSN format, e.g.
// "user:pass@tcp(127.0.0.1:3306)/dbname?parseTime=true".
type MySQLAuditStore struct {
	db *sql.DB
}

// NewMySQLAuditStore opens dsn and ensures the audit schema exists.
func NewMySQLAuditStore(dsn string) (*MySQLAuditStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	s := &MySQLAuditStore{db: db}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLAuditStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS debug_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			transition_id VARCHAR(255) NOT NULL,
			line INT NOT NULL,
			has_line TINYINT NOT NULL,
			produced_places TEXT NOT NULL,
			INDEX idx_run_id (run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS debug_pending_ops (
			row_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			op_id BIGINT NOT NULL,
			transition_id VARCHAR(255) NOT NULL,
			operation_type VARCHAR(255) NOT NULL,
			resume_token VARCHAR(255) NOT NULL,
			result TEXT NOT NULL,
			error TEXT NOT NULL,
			INDEX idx_run_id (run_id)
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
func (s *MySQLAuditStore) AppendHistory(ctx context.Context, rec HistoryRecord) error {
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
func (s *MySQLAuditStore) History(ctx context.Context, runID string) ([]HistoryRecord, error) {
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
func (s *MySQLAuditStore) AppendPendingOp(ctx context.Context, rec PendingOpRecord) error {
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
func (s *MySQLAuditStore) PendingOps(ctx context.Context, runID string) ([]PendingOpRecord, error) {
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
func (s *MySQLAuditStore) Close() error { return s.db.Close() }
