// Package tracestore records per-tick scheduler snapshots to SQLite so
// a development session can be replayed after the fact. It has nothing
// to do with the scheduler's own correctness; it is purely an
// introspection aid for the CLI's `trace` command.
package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/me/cosched/pkg/sched"
)

// Store records and replays dispatch-tick snapshots.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) a SQLite database at dbPath. Use ":memory:"
// for an ephemeral database, as in tests.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &Store{db: db, logger: logger.With("component", "tracestore")}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		program    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS ticks (
		session_id TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		recorded_at TEXT NOT NULL,
		snapshot   TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_session_id ON ticks(session_id)`,
}

// Migrate creates all required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate[%d]: %w", i, err)
		}
	}
	return nil
}

// NewSession starts a recording session for the given program name and
// returns its id.
func (s *Store) NewSession(ctx context.Context, program string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, program) VALUES (?, ?, ?)`,
		id, time.Now().Format(time.RFC3339Nano), program,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// RecordTick stores the snapshot as dispatch sequence number seq of the
// named session.
func (s *Store) RecordTick(ctx context.Context, sessionID string, seq int, snapshot []sched.TaskSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ticks (session_id, seq, recorded_at, snapshot) VALUES (?, ?, ?, ?)`,
		sessionID, seq, time.Now().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

// TickRecord is one replayed row.
type TickRecord struct {
	Seq        int
	RecordedAt time.Time
	Snapshot   []sched.TaskSnapshot
}

// Replay returns every recorded tick for sessionID, in sequence order.
func (s *Store) Replay(ctx context.Context, sessionID string) ([]TickRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, recorded_at, snapshot FROM ticks WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []TickRecord
	for rows.Next() {
		var rec TickRecord
		var recordedAt, snapshotJSON string
		if err := rows.Scan(&rec.Seq, &recordedAt, &snapshotJSON); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		rec.RecordedAt = ts
		if err := json.Unmarshal([]byte(snapshotJSON), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return out, nil
}
