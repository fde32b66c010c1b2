package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/replay"
	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/tracker"
	"github.com/abhisek/mathadapt/internal/training"
)

func TestTraining(t *testing.T) {
	r := &training.Report{
		Sessions:      3,
		Skipped:       []training.SkippedSession{{SessionID: "x", Reason: "negative response time"}},
		Samples:       12,
		Positives:     5,
		TrainSamples:  9,
		TestSamples:   3,
		TrainAccuracy: 0.777,
		HeldOut:       training.Scores{Accuracy: 0.667, Precision: 0.5, Recall: 1, F1: 0.667, Support: 3},
		Iterations:    120,
		Converged:     true,
		Warnings: []training.Warning{
			{Kind: training.WarnLowSampleCount, Message: "trained on 12 samples"},
		},
		Model: model.New([]float64{0.05, -0.3, 0.2, 0.01}, -1.5, model.Metadata{}),
	}

	var buf bytes.Buffer
	require.NoError(t, Training(&buf, r, "/tmp/model.json"))
	out := buf.String()

	for _, want := range []string{
		"Training report",
		"3 (1 skipped)",
		"12 (5 positive)",
		"9 train / 3 held out",
		"0.777",
		"0.667",
		"mean_latency",
		"-0.3000",
		"-1.5000",
		"low-sample-count",
		"trained on 12 samples",
		"/tmp/model.json",
	} {
		assert.Contains(t, out, want)
	}
}

func TestDecision(t *testing.T) {
	p := 0.72
	m := tracker.Metrics{Total: 4, Correct: 4, Accuracy: 100, MeanLatency: 2.5, Streak: 4, MaxStreak: 4, LatencyTrend: tracker.TrendStable}
	d := adapt.Decision{
		Transition: difficulty.Increase,
		Confidence: &p,
		Strategy:   adapt.KindStatistical,
		From:       difficulty.Easy,
	}

	var buf bytes.Buffer
	require.NoError(t, Decision(&buf, m, d))
	out := buf.String()

	assert.Contains(t, out, "statistical")
	assert.Contains(t, out, "increase")
	assert.Contains(t, out, "0.720")
	assert.Contains(t, out, "Easy")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "4 (4 correct)")
	assert.NotContains(t, out, "fallback")
}

func TestDecisionFallback(t *testing.T) {
	d := adapt.Decision{
		Transition: difficulty.Maintain,
		Strategy:   adapt.KindRule,
		From:       difficulty.Hard,
		Fallback:   true,
	}

	var buf bytes.Buffer
	require.NoError(t, Decision(&buf, tracker.Metrics{LatencyTrend: tracker.TrendStable}, d))
	assert.Contains(t, buf.String(), "fallback")
	assert.NotContains(t, buf.String(), "Success probability")
}

func TestSummary(t *testing.T) {
	tr := tracker.New()
	tr.Record(tracker.Outcome{Index: 1, Level: difficulty.Easy, Correct: true, Latency: 2})
	tr.Record(tracker.Outcome{Index: 2, Level: difficulty.Easy, Correct: true, Latency: 3})
	tr.Record(tracker.Outcome{Index: 3, Level: difficulty.Medium, Correct: false, Latency: 6})
	s := tr.Summarize([]difficulty.Level{difficulty.Easy, difficulty.Easy, difficulty.Medium})

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "By difficulty")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "(1 changes)")
	assert.Contains(t, out, "keep practicing at this level") // 66.7% accuracy
}

func TestReplay(t *testing.T) {
	sess := sessionlog.NewSession("ada", "rule", difficulty.Easy, time.Now())
	for i := 0; i < 3; i++ {
		sess.Append(sessionlog.Record{
			Puzzle:       sessionlog.Puzzle{Operation: "+", Difficulty: difficulty.Easy},
			IsCorrect:    true,
			ResponseTime: 2,
		})
	}
	res, err := replay.New(adapt.DefaultRules()).Session(*sess)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Replay(&buf, []replay.Result{*res}))
	out := buf.String()

	assert.Contains(t, out, "ada")
	assert.Contains(t, out, sess.ID[:8])
	assert.Contains(t, out, "0/1")
	assert.Contains(t, out, "Easy>Medium>Hard")
}

func TestSessions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Sessions(&buf, nil))
	assert.Contains(t, buf.String(), "No sessions recorded.")

	buf.Reset()
	require.NoError(t, Sessions(&buf, []store.SessionSummary{{
		ID:                "0123456789abcdef",
		UserName:          "bo",
		AdaptationMode:    "statistical",
		InitialDifficulty: "Easy",
		FinalDifficulty:   "Hard",
		StartedAt:         "2025-01-01T09:00:00Z",
		Questions:         4,
		Correct:           3,
		MeanLatency:       2.25,
	}}))
	out := buf.String()
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "2.25s")
	assert.Contains(t, out, "Easy>Hard")
}

func TestTrainingRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TrainingRuns(&buf, nil))
	assert.Contains(t, buf.String(), "No training runs recorded.")

	buf.Reset()
	require.NoError(t, TrainingRuns(&buf, []store.TrainingRun{{
		ID:              7,
		Timestamp:       time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC),
		Sessions:        60,
		Samples:         240,
		HeldOutAccuracy: 0.6875,
		HeldOutF1:       0.5,
		Converged:       true,
		Published:       false,
	}}))
	out := buf.String()
	assert.Contains(t, out, "240")
	assert.Contains(t, out, "0.688")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
}
