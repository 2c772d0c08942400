package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Entry records one session. File contents and credentials are never stored.
type Entry struct {
	ID          string
	Timestamp   time.Time
	File        string
	Instruction string
	Provider    string
	Model       string
	State       string
	ErrorKind   string
	Error       string
	Attempts    int
	Added       int
	Deleted     int
	BackupPath  string
	Duration    time.Duration
}

// NewEntry creates a new history entry
func NewEntry(file, instruction string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		File:        file,
		Instruction: instruction,
	}
}

// Store is the session log backed by SQLite
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		file TEXT NOT NULL,
		instruction TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		state TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 0,
		added INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		backup_path TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_ts ON sessions(ts);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO metadata (key, value) VALUES ('version', ?)`, schemaVersion)
	return err
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Add records an entry
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, ts, file, instruction, provider, model, state,
			error_kind, error, attempts, added, deleted, backup_path, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.UnixNano(), e.File, e.Instruction, e.Provider, e.Model, e.State,
		e.ErrorKind, e.Error, e.Attempts, e.Added, e.Deleted, e.BackupPath, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, file, instruction, provider, model, state,
			error_kind, error, attempts, added, deleted, backup_path, duration_ms
		FROM sessions
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			ts         int64
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.File, &e.Instruction, &e.Provider, &e.Model, &e.State,
			&e.ErrorKind, &e.Error, &e.Attempts, &e.Added, &e.Deleted, &e.BackupPath, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to read history entry: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
