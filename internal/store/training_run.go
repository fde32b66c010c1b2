package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TrainingRun is a point-in-time record of one training run and the model
// artifact it produced.
type TrainingRun struct {
	ID              int64     `db:"id"`
	Sequence        int64     `db:"sequence"`
	Timestamp       time.Time `db:"-"`
	Published       bool      `db:"published"`
	Sessions        int       `db:"sessions"`
	Samples         int       `db:"samples"`
	HeldOutAccuracy float64   `db:"held_out_accuracy"`
	HeldOutF1       float64   `db:"held_out_f1"`
	Converged       bool      `db:"converged"`
	Warnings        int       `db:"warnings"`
	Artifact        []byte    `db:"artifact"` // model artifact JSON
}

// TrainingRunRepo keeps the history of training runs.
type TrainingRunRepo interface {
	// Save stores a new run and assigns its ID and sequence.
	Save(ctx context.Context, run *TrainingRun) error

	// Latest returns the most recent run, or nil if none exist.
	Latest(ctx context.Context) (*TrainingRun, error)

	// List returns runs newest first.
	List(ctx context.Context, opts QueryOpts) ([]TrainingRun, error)

	// Prune deletes all but the keep most recent runs.
	Prune(ctx context.Context, keep int) error
}

// TrainingRunRepo returns a TrainingRunRepo backed by this store.
func (s *Store) TrainingRunRepo() TrainingRunRepo {
	return &trainingRunRepo{db: s.db, seq: s.seq}
}

const trainingRunsDDL = `
CREATE TABLE IF NOT EXISTS training_runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence          INTEGER NOT NULL UNIQUE,
	timestamp         TEXT NOT NULL,
	published         INTEGER NOT NULL,
	sessions          INTEGER NOT NULL,
	samples           INTEGER NOT NULL,
	held_out_accuracy REAL NOT NULL,
	held_out_f1       REAL NOT NULL,
	converged         INTEGER NOT NULL,
	warnings          INTEGER NOT NULL,
	artifact          BLOB NOT NULL
);
`

type trainingRunRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

type trainingRunRow struct {
	TrainingRun
	TimestampText string `db:"timestamp"`
}

func (r *trainingRunRepo) Save(ctx context.Context, run *TrainingRun) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO training_runs
		(sequence, timestamp, published, sessions, samples, held_out_accuracy,
		 held_out_f1, converged, warnings, artifact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, run.Timestamp.UTC().Format(time.RFC3339Nano), run.Published, run.Sessions,
		run.Samples, run.HeldOutAccuracy, run.HeldOutF1, run.Converged, run.Warnings,
		run.Artifact)
	if err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	run.ID, run.Sequence = id, seq
	return nil
}

const trainingRunColumns = `id, sequence, timestamp, published, sessions, samples,
	held_out_accuracy, held_out_f1, converged, warnings, artifact`

func (r *trainingRunRepo) Latest(ctx context.Context) (*TrainingRun, error) {
	var row trainingRunRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+trainingRunColumns+` FROM training_runs ORDER BY sequence DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest training run: %w", err)
	}
	return row.toRun()
}

func (r *trainingRunRepo) List(ctx context.Context, opts QueryOpts) ([]TrainingRun, error) {
	query := `SELECT ` + trainingRunColumns + ` FROM training_runs ORDER BY sequence DESC`
	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []trainingRunRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}
	out := make([]TrainingRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, nil
}

func (r *trainingRunRepo) Prune(ctx context.Context, keep int) error {
	// Find the sequence threshold: the keep-th most recent run.
	var threshold int64
	err := r.db.GetContext(ctx, &threshold,
		`SELECT sequence FROM training_runs ORDER BY sequence DESC LIMIT 1 OFFSET ?`, keep)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fewer than keep runs exist
	}
	if err != nil {
		return fmt.Errorf("query training runs for prune: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM training_runs WHERE sequence <= ?`, threshold); err != nil {
		return fmt.Errorf("prune training runs: %w", err)
	}
	return nil
}

func (row trainingRunRow) toRun() (*TrainingRun, error) {
	ts, err := time.Parse(time.RFC3339Nano, row.TimestampText)
	if err != nil {
		return nil, fmt.Errorf("training run %d: %w", row.ID, err)
	}
	run := row.TrainingRun
	run.Timestamp = ts
	return &run, nil
}
