package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/sessionlog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(user string, start time.Time, levels []difficulty.Level, correct []bool) *sessionlog.Session {
	s := sessionlog.NewSession(user, "rule", levels[0], start)
	for i, lvl := range levels {
		s.Append(sessionlog.Record{
			Puzzle: sessionlog.Puzzle{
				Question:   "2 + 3",
				Operand1:   2,
				Operand2:   3,
				Operation:  "+",
				Answer:     5,
				Difficulty: lvl,
			},
			UserAnswer:   5,
			IsCorrect:    correct[i],
			ResponseTime: 1.5 + float64(i),
			Timestamp:    sessionlog.NewTimestamp(start.Add(time.Duration(i) * time.Second)),
		})
	}
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	require.NotNil(t, s.DB())
	require.NoError(t, s.DB().Ping())
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := testSession("ada", start,
		[]difficulty.Level{difficulty.Easy, difficulty.Easy, difficulty.Medium},
		[]bool{true, true, false})
	require.NoError(t, repo.SaveSession(ctx, sess))

	got, err := repo.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "ada", got.UserName)
	assert.Equal(t, difficulty.Easy, got.InitialDifficulty)
	assert.Equal(t, difficulty.Medium, got.FinalDifficulty)
	assert.Equal(t, 3, got.TotalQuestions)
	require.Len(t, got.Responses, 3)
	assert.True(t, got.Timestamp.Equal(start))

	for i, r := range got.Responses {
		assert.Equal(t, i+1, r.QuestionNumber)
		assert.Equal(t, sess.Responses[i].Puzzle, r.Puzzle)
		assert.Equal(t, sess.Responses[i].IsCorrect, r.IsCorrect)
		assert.InDelta(t, sess.Responses[i].ResponseTime, r.ResponseTime, 1e-9)
		assert.True(t, sess.Responses[i].Timestamp.Equal(r.Timestamp.Time))
	}
}

func TestSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SessionRepo().Session(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRecord(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	sess := sessionlog.NewSession("bo", "statistical", difficulty.Easy, time.Now())
	require.NoError(t, repo.CreateSession(ctx, sess))

	levels := []difficulty.Level{difficulty.Easy, difficulty.Medium}
	for _, lvl := range levels {
		err := repo.AppendRecord(ctx, sess.ID, sessionlog.Record{
			Puzzle:       sessionlog.Puzzle{Operation: "*", Operand1: 3, Operand2: 4, Answer: 12, Difficulty: lvl},
			UserAnswer:   12,
			IsCorrect:    true,
			ResponseTime: 2,
		})
		require.NoError(t, err)
	}

	got, err := repo.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Responses, 2)
	assert.Equal(t, 1, got.Responses[0].QuestionNumber)
	assert.Equal(t, 2, got.Responses[1].QuestionNumber)
	assert.Equal(t, difficulty.Medium, got.FinalDifficulty)

	err = repo.AppendRecord(ctx, "nope", sessionlog.Record{
		Puzzle: sessionlog.Puzzle{Difficulty: difficulty.Easy},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRecordRejectsNegativeLatency(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	sess := sessionlog.NewSession("cy", "rule", difficulty.Easy, time.Now())
	require.NoError(t, repo.CreateSession(ctx, sess))

	err := repo.AppendRecord(ctx, sess.ID, sessionlog.Record{
		Puzzle:       sessionlog.Puzzle{Difficulty: difficulty.Easy},
		ResponseTime: -1,
	})
	require.Error(t, err)

	got, err := repo.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Responses)
}

func TestSessionsOrderedByAppend(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := testSession("ada", start, []difficulty.Level{difficulty.Easy}, []bool{true})
	second := testSession("bo", start.Add(-time.Hour), []difficulty.Level{difficulty.Hard, difficulty.Hard}, []bool{false, true})
	require.NoError(t, repo.SaveSession(ctx, first))
	require.NoError(t, repo.SaveSession(ctx, second))

	all, err := repo.Sessions(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Len(t, all[1].Responses, 2)

	onlyBo, err := repo.Sessions(ctx, QueryOpts{UserName: "bo"})
	require.NoError(t, err)
	require.Len(t, onlyBo, 1)
	assert.Equal(t, second.ID, onlyBo[0].ID)

	limited, err := repo.Sessions(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSessionsEmpty(t *testing.T) {
	s := openTestStore(t)
	all, err := s.SessionRepo().Sessions(context.Background(), QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSummaries(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := testSession("ada", start,
		[]difficulty.Level{difficulty.Easy, difficulty.Easy, difficulty.Medium},
		[]bool{true, false, true})
	second := testSession("bo", start, []difficulty.Level{difficulty.Hard}, []bool{false})
	require.NoError(t, repo.SaveSession(ctx, first))
	require.NoError(t, repo.SaveSession(ctx, second))

	sums, err := repo.Summaries(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, sums, 2)

	// Newest first.
	assert.Equal(t, second.ID, sums[0].ID)
	assert.Equal(t, 1, sums[0].Questions)
	assert.Equal(t, 0, sums[0].Correct)

	assert.Equal(t, first.ID, sums[1].ID)
	assert.Equal(t, 3, sums[1].Questions)
	assert.Equal(t, 2, sums[1].Correct)
	assert.InDelta(t, 2.5, sums[1].MeanLatency, 1e-9) // 1.5, 2.5, 3.5
	assert.Equal(t, "Easy", sums[1].InitialDifficulty)
	assert.Equal(t, "Medium", sums[1].FinalDifficulty)
}

func TestDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	sess := testSession("ada", time.Now(), []difficulty.Level{difficulty.Easy, difficulty.Easy}, []bool{true, true})
	require.NoError(t, repo.SaveSession(ctx, sess))
	require.NoError(t, repo.Delete(ctx, sess.ID))

	var n int
	require.NoError(t, s.DB().Get(&n, `SELECT COUNT(*) FROM records`))
	assert.Zero(t, n)

	assert.ErrorIs(t, repo.Delete(ctx, sess.ID), ErrNotFound)
}

func TestDeleteMany(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	start := time.Now()
	a := testSession("ada", start, []difficulty.Level{difficulty.Easy}, []bool{true})
	b := testSession("ada", start.Add(time.Minute), []difficulty.Level{difficulty.Easy}, []bool{false})
	require.NoError(t, repo.SaveSession(ctx, a))
	require.NoError(t, repo.SaveSession(ctx, b))

	n, err := repo.DeleteMany(ctx, []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sums, err := repo.Summaries(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestDeleteManyUnknownDeletesNothing(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	sess := testSession("ada", time.Now(), []difficulty.Level{difficulty.Easy}, []bool{true})
	require.NoError(t, repo.SaveSession(ctx, sess))

	_, err := repo.DeleteMany(ctx, []string{sess.ID, "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Session(ctx, sess.ID)
	assert.NoError(t, err)
}

func TestSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.DB().BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	var prev int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx, tx)
		require.NoError(t, err)
		assert.Greater(t, seq, prev)
		prev = seq
	}
}

func TestDefaultDBPathEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "sub", "x.db")
	t.Setenv("MATHADAPT_DB", want)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.DirExists(t, filepath.Dir(want))
}

func TestDefaultDBPathXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MATHADAPT_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mathadapt", "mathadapt.db"), got)
}

func TestTrainingRunSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.TrainingRunRepo()
	ctx := context.Background()

	// No run yet.
	run, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	first := &TrainingRun{Timestamp: now, Sessions: 3, Samples: 9, Artifact: []byte(`{"version":1}`)}
	require.NoError(t, repo.Save(ctx, first))
	assert.NotZero(t, first.ID)

	second := &TrainingRun{
		Timestamp:       now.Add(time.Hour),
		Published:       true,
		Sessions:        60,
		Samples:         240,
		HeldOutAccuracy: 0.7,
		HeldOutF1:       0.6,
		Converged:       true,
		Warnings:        1,
		Artifact:        []byte(`{"version":1,"bias":0.5}`),
	}
	require.NoError(t, repo.Save(ctx, second))
	assert.Greater(t, second.Sequence, first.Sequence)

	run, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second.ID, run.ID)
	assert.True(t, run.Published)
	assert.True(t, run.Converged)
	assert.Equal(t, 240, run.Samples)
	assert.InDelta(t, 0.7, run.HeldOutAccuracy, 1e-9)
	assert.True(t, run.Timestamp.Equal(now.Add(time.Hour)))
	assert.JSONEq(t, `{"version":1,"bias":0.5}`, string(run.Artifact))
}

func TestTrainingRunListAndPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.TrainingRunRepo()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, &TrainingRun{Samples: i, Artifact: []byte(`{}`)}))
	}

	runs, err := repo.List(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Samples)
	assert.Equal(t, 3, runs[1].Samples)

	require.NoError(t, repo.Prune(ctx, 3))
	runs, err = repo.List(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 2, runs[2].Samples)

	// Pruning with fewer runs than keep is a no-op.
	require.NoError(t, repo.Prune(ctx, 10))
	runs, err = repo.List(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
