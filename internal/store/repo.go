package store

import (
	"context"
	"errors"

	"github.com/abhisek/mathadapt/internal/sessionlog"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures session listing.
type QueryOpts struct {
	Limit    int    // max sessions (0 = unlimited)
	UserName string // exact match when non-empty
}

// SessionSummary is a lightweight listing row.
type SessionSummary struct {
	ID                string  `db:"id"`
	UserName          string  `db:"user_name"`
	AdaptationMode    string  `db:"adaptation_mode"`
	InitialDifficulty string  `db:"initial_difficulty"`
	FinalDifficulty   string  `db:"final_difficulty"`
	StartedAt         string  `db:"started_at"`
	Questions         int     `db:"questions"`
	Correct           int     `db:"correct"`
	MeanLatency       float64 `db:"mean_latency"`
}

// SessionRepo is the append-only session log collection.
type SessionRepo interface {
	// CreateSession registers a session header. Records are appended separately.
	CreateSession(ctx context.Context, s *sessionlog.Session) error

	// AppendRecord appends the next record of a session and updates its final level.
	AppendRecord(ctx context.Context, sessionID string, r sessionlog.Record) error

	// SaveSession stores a complete session (header and records) in one transaction.
	SaveSession(ctx context.Context, s *sessionlog.Session) error

	// Session loads one session with its records in question order.
	Session(ctx context.Context, id string) (*sessionlog.Session, error)

	// Sessions loads every session with records, oldest first.
	Sessions(ctx context.Context, opts QueryOpts) ([]sessionlog.Session, error)

	// Summaries lists sessions with aggregate counts, newest first.
	Summaries(ctx context.Context, opts QueryOpts) ([]SessionSummary, error)

	// Delete removes a session and its records.
	Delete(ctx context.Context, id string) error

	// DeleteMany removes several sessions in one transaction. Duplicate IDs
	// are deleted once. If any ID is unknown nothing is deleted.
	DeleteMany(ctx context.Context, ids []string) (int, error)
}
