// Package store keeps the bundle history ledger: one row per bundle that
// reached a terminal state, in a local SQLite database.
package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"sentinel/internal/logging"
)

// Terminal bundle states recorded in the ledger.
const (
	StateSucceeded     = "succeeded"
	StateFailed        = "failed"
	StateDeclined      = "declined"
	StateRejected      = "rejected"
	StateMalformed     = "malformed"
	StateMissingHeader = "missing_header"
	StateExtractFailed = "extract_failed"
)

// Entry is one ledger row.
type Entry struct {
	ID         int64
	Channel    string // local or remote
	Identifier string // absolute path or remote document id
	ProjectID  string
	Label      string
	State      string
	Detail     string
	Digest     string // blake3 of the script, empty if none was extracted
	CreatedAt  time.Time
}

// HistoryStore is the SQLite-backed ledger.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open opens (creating if needed) the ledger at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*HistoryStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "history.Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("history ledger ready at %s", path)
	return s, nil
}

func (s *HistoryStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS bundle_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		identifier TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bundle_events_identifier ON bundle_events(identifier);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create bundle_events table: %w", err)
	}
	return RunMigrations(s.db)
}

// Record appends an entry. A zero CreatedAt is set to now.
func (s *HistoryStore) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO bundle_events (channel, identifier, project_id, label, state, detail, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Channel, e.Identifier, e.ProjectID, e.Label, e.State, e.Detail, e.Digest,
		e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record bundle event: %w", err)
	}
	logging.StoreDebug("recorded %s %s -> %s", e.Channel, e.Identifier, e.State)
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *HistoryStore) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, channel, identifier, project_id, label, state, detail, digest, created_at
		FROM bundle_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Channel, &e.Identifier, &e.ProjectID, &e.Label,
			&e.State, &e.Detail, &e.Digest, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Digest returns the blake3 digest of a script, prefixed with the algorithm.
func Digest(script string) string {
	sum := blake3.Sum256([]byte(script))
	return "blake3:" + hex.EncodeToString(sum[:])
}
