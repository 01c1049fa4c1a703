// Package store is the durable, append-only persistence layer for the
// context condensation engine: messages, summaries, summary edges, and
// file references, backed by an embedded SQLite database with a
// full-text index over message content.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	schemaVersion1 = 1
	schemaLatest   = schemaVersion1
)

// Store wraps a single SQLite connection. The connection pool is capped at
// one open connection: WAL mode tolerates concurrent readers but this
// module assumes a single writer, matching the teacher's own
// single-connection serialization strategy.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies any pending schema migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.configurePragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for diagnostics and tooling.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) configurePragmas(ctx context.Context) error {
	for _, q := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("store: set pragma %q: %w", q, err)
		}
	}
	return nil
}

// migrate applies every migration strictly greater than the recorded
// schema_version, each inside a single transaction, then bumps the
// recorded version. There is one migration today; the ledger shape
// supports adding more without touching existing rows.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version;`).Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	if current > schemaLatest {
		return fmt.Errorf("store: db schema version %d is newer than supported %d", current, schemaLatest)
	}

	for v := current + 1; v <= schemaLatest; v++ {
		if err := applyMigration(ctx, tx, v); err != nil {
			return fmt.Errorf("store: apply migration %d: %w", v, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?);`, v, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("store: record migration %d: %w", v, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migration tx: %w", err)
	}
	return nil
}

func applyMigration(ctx context.Context, tx *sql.Tx, version int) error {
	switch version {
	case schemaVersion1:
		return applyMigration1(ctx, tx)
	default:
		return fmt.Errorf("unknown migration version %d", version)
	}
}

func applyMigration1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			token_estimate INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			metadata TEXT
		);`,
		`CREATE INDEX idx_messages_session_id ON messages(session_id, id);`,
		`CREATE VIRTUAL TABLE messages_fts USING fts5(
			content,
			content='messages',
			content_rowid='id',
			tokenize='porter unicode61'
		);`,
		`CREATE TRIGGER messages_ai AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
		END;`,
		`CREATE TRIGGER messages_ad AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
		END;`,
		`CREATE TABLE summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			content TEXT NOT NULL,
			token_estimate INTEGER NOT NULL,
			mode TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			msg_start_id INTEGER,
			msg_end_id INTEGER
		);`,
		`CREATE INDEX idx_summaries_session_range ON summaries(session_id, msg_start_id, msg_end_id);`,
		`CREATE INDEX idx_summaries_session_level ON summaries(session_id, level);`,
		`CREATE TABLE summary_edges (
			parent_id INTEGER NOT NULL,
			child_id INTEGER NOT NULL,
			UNIQUE(parent_id, child_id)
		);`,
		`CREATE INDEX idx_summary_edges_parent ON summary_edges(parent_id);`,
		`CREATE INDEX idx_summary_edges_child ON summary_edges(child_id);`,
		`CREATE TABLE file_refs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_type TEXT,
			size_bytes INTEGER,
			exploration_summary TEXT,
			token_estimate INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX idx_file_refs_session ON file_refs(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// retryOnBusy retries f while it returns a SQLITE_BUSY/SQLITE_LOCKED error,
// using bounded exponential backoff with jitter. The driver's own
// busy_timeout already absorbs short contention; this covers writers that
// still collide once that timeout is exhausted.
func retryOnBusy(ctx context.Context, maxRetries int, f func() error) error {
	const baseDelay = 25 * time.Millisecond
	const maxDelay = 250 * time.Millisecond

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = f()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if attempt == maxRetries {
			return err
		}
		delay := baseDelay << uint(attempt)
		if delay > maxDelay {
			delay = maxDelay
		}
		jitter := time.Duration(rand.IntN(int(delay/2) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - delay/4 + jitter):
		}
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "(5)") ||
		strings.Contains(msg, "(6)")
}

func isFTSSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5: syntax error") || strings.Contains(msg, "malformed match")
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
