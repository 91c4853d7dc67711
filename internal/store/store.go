// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists hypotheses, validation results, and academic works
// in SQLite. Works double as the summary cache: a summary generated once for
// an external id is reused by later runs.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps failures of the underlying database.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS hypotheses (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			content TEXT NOT NULL,
			status TEXT NOT NULL,
			query_type TEXT NOT NULL,
			topics TEXT,
			keywords TEXT,
			entities TEXT,
			result TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hypotheses_user_id ON hypotheses(user_id)`,
		`CREATE TABLE IF NOT EXISTS validation_results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			hypothesis_id TEXT NOT NULL REFERENCES hypotheses(id) ON DELETE CASCADE,
			classification TEXT NOT NULL,
			motivation TEXT,
			sources TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_hypothesis_id ON validation_results(hypothesis_id)`,
		`CREATE TABLE IF NOT EXISTS academic_works (
			id TEXT PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			source TEXT,
			title TEXT,
			abstract TEXT,
			full_text TEXT,
			authors TEXT,
			citation TEXT,
			url TEXT,
			summary TEXT,
			phrase TEXT,
			summary_topics TEXT,
			extended_summary TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// newID returns prefix followed by a dashless UUID.
func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// unavailable marks a driver error so callers can classify it.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v []string
	_ = json.Unmarshal([]byte(s.String), &v)
	if len(v) == 0 {
		return nil
	}
	return v
}
