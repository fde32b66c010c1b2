package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/sessionlog"
)

type sessionRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

type sessionRow struct {
	ID                string `db:"id"`
	UserName          string `db:"user_name"`
	AdaptationMode    string `db:"adaptation_mode"`
	InitialDifficulty string `db:"initial_difficulty"`
	FinalDifficulty   string `db:"final_difficulty"`
	StartedAt         string `db:"started_at"`
}

type recordRow struct {
	SessionID      string  `db:"session_id"`
	QuestionNumber int     `db:"question_number"`
	Question       string  `db:"question"`
	Operand1       float64 `db:"operand1"`
	Operand2       float64 `db:"operand2"`
	Operation      string  `db:"operation"`
	Answer         float64 `db:"answer"`
	Difficulty     string  `db:"difficulty"`
	UserAnswer     float64 `db:"user_answer"`
	IsCorrect      bool    `db:"is_correct"`
	ResponseTime   float64 `db:"response_time"`
	Timestamp      string  `db:"timestamp"`
}

func (r *sessionRepo) CreateSession(ctx context.Context, s *sessionlog.Session) error {
	s.Normalize()
	return insertSession(ctx, r.db, s)
}

func (r *sessionRepo) AppendRecord(ctx context.Context, sessionID string, rec sessionlog.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM records WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	var exists int
	if err := tx.GetContext(ctx, &exists,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	rec.QuestionNumber = count + 1
	if err := r.insertRecord(ctx, tx, sessionID, rec); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET final_difficulty = ? WHERE id = ?`,
		rec.Puzzle.Difficulty.String(), sessionID); err != nil {
		return fmt.Errorf("update final difficulty: %w", err)
	}
	return tx.Commit()
}

func (r *sessionRepo) SaveSession(ctx context.Context, s *sessionlog.Session) error {
	s.Normalize()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertSession(ctx, tx, s); err != nil {
		return err
	}
	for _, rec := range s.Responses {
		if err := r.insertRecord(ctx, tx, s.ID, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSession(ctx context.Context, ex sqlx.ExecerContext, s *sessionlog.Session) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO sessions
		(id, user_name, adaptation_mode, initial_difficulty, final_difficulty, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserName, s.AdaptationMode,
		s.InitialDifficulty.String(), s.FinalDifficulty.String(), s.Timestamp.String())
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *sessionRepo) insertRecord(ctx context.Context, tx *sqlx.Tx, sessionID string, rec sessionlog.Record) error {
	if !rec.Puzzle.Difficulty.Valid() {
		return fmt.Errorf("session %s question %d: invalid difficulty", sessionID, rec.QuestionNumber)
	}
	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO records
		(sequence, session_id, question_number, question, operand1, operand2, operation,
		 answer, difficulty, user_answer, is_correct, response_time, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, sessionID, rec.QuestionNumber, rec.Puzzle.Question,
		rec.Puzzle.Operand1, rec.Puzzle.Operand2, rec.Puzzle.Operation, rec.Puzzle.Answer,
		rec.Puzzle.Difficulty.String(), rec.UserAnswer, rec.IsCorrect, rec.ResponseTime,
		rec.Timestamp.String())
	if err != nil {
		return fmt.Errorf("save record %s/%d: %w", sessionID, rec.QuestionNumber, err)
	}
	return nil
}

func (r *sessionRepo) Session(ctx context.Context, id string) (*sessionlog.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT id, user_name, adaptation_mode,
		initial_difficulty, final_difficulty, started_at FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var recs []recordRow
	if err := r.db.SelectContext(ctx, &recs, `SELECT session_id, question_number, question,
		operand1, operand2, operation, answer, difficulty, user_answer, is_correct,
		response_time, timestamp FROM records WHERE session_id = ? ORDER BY question_number`, id); err != nil {
		return nil, fmt.Errorf("load records %s: %w", id, err)
	}

	s, err := row.toSession()
	if err != nil {
		return nil, err
	}
	if err := s.attach(recs); err != nil {
		return nil, err
	}
	return &s.Session, nil
}

func (r *sessionRepo) Sessions(ctx context.Context, opts QueryOpts) ([]sessionlog.Session, error) {
	query := `SELECT s.id, s.user_name, s.adaptation_mode, s.initial_difficulty,
		s.final_difficulty, s.started_at
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id`
	var args []any
	if opts.UserName != "" {
		query += ` WHERE s.user_name = ?`
		args = append(args, opts.UserName)
	}
	query += ` GROUP BY s.id ORDER BY COALESCE(MIN(r.sequence), 0), s.started_at`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var recs []recordRow
	if err := r.db.SelectContext(ctx, &recs, `SELECT session_id, question_number, question,
		operand1, operand2, operation, answer, difficulty, user_answer, is_correct,
		response_time, timestamp FROM records ORDER BY session_id, question_number`); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	bySession := make(map[string][]recordRow)
	for _, rec := range recs {
		bySession[rec.SessionID] = append(bySession[rec.SessionID], rec)
	}

	out := make([]sessionlog.Session, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSession()
		if err != nil {
			return nil, err
		}
		if err := s.attach(bySession[row.ID]); err != nil {
			return nil, err
		}
		out = append(out, s.Session)
	}
	return out, nil
}

func (r *sessionRepo) Summaries(ctx context.Context, opts QueryOpts) ([]SessionSummary, error) {
	query := `SELECT s.id, s.user_name, s.adaptation_mode, s.initial_difficulty,
		s.final_difficulty, s.started_at,
		COUNT(r.question_number) AS questions,
		COALESCE(SUM(r.is_correct), 0) AS correct,
		COALESCE(AVG(r.response_time), 0) AS mean_latency
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id`
	var args []any
	if opts.UserName != "" {
		query += ` WHERE s.user_name = ?`
		args = append(args, opts.UserName)
	}
	query += ` GROUP BY s.id ORDER BY COALESCE(MIN(r.sequence), 0) DESC, s.started_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var out []SessionSummary
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("session summaries: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return deleteSession(ctx, r.db, id)
}

func (r *sessionRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := deleteSession(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(seen), nil
}

func deleteSession(ctx context.Context, db sqlx.ExecerContext, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

type loadedSession struct {
	sessionlog.Session
}

func (row sessionRow) toSession() (loadedSession, error) {
	initial, err := difficulty.ParseLevel(row.InitialDifficulty)
	if err != nil {
		return loadedSession{}, fmt.Errorf("session %s: %w", row.ID, err)
	}
	final, err := difficulty.ParseLevel(row.FinalDifficulty)
	if err != nil {
		return loadedSession{}, fmt.Errorf("session %s: %w", row.ID, err)
	}
	ts, err := sessionlog.ParseTimestamp(row.StartedAt)
	if err != nil {
		return loadedSession{}, fmt.Errorf("session %s: %w", row.ID, err)
	}
	return loadedSession{Session: sessionlog.Session{
		ID:                row.ID,
		Timestamp:         ts,
		UserName:          row.UserName,
		AdaptationMode:    row.AdaptationMode,
		InitialDifficulty: initial,
		FinalDifficulty:   final,
	}}, nil
}

func (s *loadedSession) attach(recs []recordRow) error {
	s.Responses = make([]sessionlog.Record, 0, len(recs))
	for _, rec := range recs {
		level, err := difficulty.ParseLevel(rec.Difficulty)
		if err != nil {
			return fmt.Errorf("session %s question %d: %w", s.ID, rec.QuestionNumber, err)
		}
		ts, err := sessionlog.ParseTimestamp(rec.Timestamp)
		if err != nil {
			return fmt.Errorf("session %s question %d: %w", s.ID, rec.QuestionNumber, err)
		}
		s.Responses = append(s.Responses, sessionlog.Record{
			QuestionNumber: rec.QuestionNumber,
			Puzzle: sessionlog.Puzzle{
				Question:   rec.Question,
				Operand1:   rec.Operand1,
				Operand2:   rec.Operand2,
				Operation:  rec.Operation,
				Answer:     rec.Answer,
				Difficulty: level,
			},
			UserAnswer:   rec.UserAnswer,
			IsCorrect:    rec.IsCorrect,
			ResponseTime: rec.ResponseTime,
			Difficulty:   level,
			Timestamp:    ts,
		})
	}
	s.TotalQuestions = len(s.Responses)
	return nil
}
