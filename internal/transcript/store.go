// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcript persists the generation transcript: one row per
// synthesis attempt, grouped by run. The transcript is diagnostics only
// and is never read back to serve an implementation; the in-memory cache
// in the synthesis engine is the sole source of reuse within a run.
// Implements: docs/ARCHITECTURE § Transcript Store.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/drizzle/internal/synth"
)

// Store writes synthesis attempts to a SQLite database. It satisfies
// synth.Recorder.
type Store struct {
	db    *sql.DB
	runID int64
}

// Open opens or creates the transcript database at path and registers a
// new run labeled with the script name. The schema is created on first
// use.
func Open(path, script string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating transcript directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening transcript database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	res, err := db.Exec(
		`INSERT INTO runs (script, started_at) VALUES (?, ?)`,
		script, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}
	s.runID, err = res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return s, nil
}

// Inspect opens an existing transcript database for reading without
// registering a run.
func Inspect(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening transcript database: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening transcript database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID identifies the run this store records into.
func (s *Store) RunID() int64 {
	return s.runID
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			script TEXT NOT NULL,
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			stub TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			fault TEXT,
			accepted INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_stub ON attempts(stub)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordAttempt appends one attempt to the current run.
func (s *Store) RecordAttempt(ctx context.Context, a synth.Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, stub, attempt, prompt, response, fault, accepted, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, a.Stub, a.Attempt, a.Prompt, a.Response, a.Fault,
		a.Accepted, a.Duration.Milliseconds(),
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// Entry is one transcript row as read back for inspection.
type Entry struct {
	RunID      int64  `yaml:"run_id"`
	Script     string `yaml:"script"`
	Stub       string `yaml:"stub"`
	Attempt    int    `yaml:"attempt"`
	Prompt     string `yaml:"prompt,omitempty"`
	Response   string `yaml:"response,omitempty"`
	Fault      string `yaml:"fault,omitempty"`
	Accepted   bool   `yaml:"accepted"`
	DurationMS int64  `yaml:"duration_ms"`
	CreatedAt  string `yaml:"created_at"`
}

// Query selects transcript rows for inspection.
type Query struct {
	// RunID restricts to one run; zero selects every run.
	RunID int64
	// Stub restricts to one stub name; empty selects every stub.
	Stub string
	// Limit caps the number of rows; zero selects the default of 100.
	Limit int
}

// Attempts returns transcript rows matching the query, newest first.
func (s *Store) Attempts(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT a.run_id, r.script, a.stub, a.attempt, a.prompt, a.response,
		a.fault, a.accepted, a.duration_ms, a.created_at
		FROM attempts a JOIN runs r ON r.id = a.run_id WHERE 1=1`
	var args []any
	if q.RunID != 0 {
		query += ` AND a.run_id = ?`
		args = append(args, q.RunID)
	}
	if q.Stub != "" {
		query += ` AND a.stub = ?`
		args = append(args, q.Stub)
	}
	query += ` ORDER BY a.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fault sql.NullString
		if err := rows.Scan(&e.RunID, &e.Script, &e.Stub, &e.Attempt,
			&e.Prompt, &e.Response, &fault, &e.Accepted,
			&e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		e.Fault = fault.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading attempts: %w", err)
	}
	return entries, nil
}

// ExportYAML writes the matching transcript rows to w as a YAML document.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, q Query) error {
	entries, err := s.Attempts(ctx, q)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	return nil
}
