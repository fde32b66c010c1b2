package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store holds the database handle and provides access to repositories.
type Store struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection keeps pragmas consistent.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionRepo returns a SessionRepo backed by this store.
func (s *Store) SessionRepo() SessionRepo {
	return &sessionRepo{db: s.db, seq: s.seq}
}

// applyPragmas configures SQLite for single-user performance.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	id                 TEXT PRIMARY KEY,
	user_name          TEXT NOT NULL DEFAULT '',
	adaptation_mode    TEXT NOT NULL DEFAULT '',
	initial_difficulty TEXT NOT NULL,
	final_difficulty   TEXT NOT NULL,
	started_at         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS records (
	sequence        INTEGER NOT NULL UNIQUE,
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	question_number INTEGER NOT NULL,
	question        TEXT NOT NULL DEFAULT '',
	operand1        REAL NOT NULL,
	operand2        REAL NOT NULL,
	operation       TEXT NOT NULL,
	answer          REAL NOT NULL,
	difficulty      TEXT NOT NULL,
	user_answer     REAL NOT NULL,
	is_correct      INTEGER NOT NULL,
	response_time   REAL NOT NULL CHECK (response_time >= 0),
	timestamp       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, question_number)
);

CREATE INDEX IF NOT EXISTS idx_records_sequence ON records(sequence);
`

func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, ddl := range []string{schemaDDL, trainingRunsDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MATHADAPT_DB environment variable
// 2. $XDG_DATA_HOME/mathadapt/mathadapt.db
// 3. ~/.local/share/mathadapt/mathadapt.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MATHADAPT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mathadapt", "mathadapt.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
