package training

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/sessionlog"
)

type step struct {
	level   difficulty.Level
	correct bool
	latency float64
}

func makeSession(id string, steps ...step) sessionlog.Session {
	s := sessionlog.Session{ID: id}
	for _, st := range steps {
		s.Append(sessionlog.Record{
			Puzzle:       sessionlog.Puzzle{Difficulty: st.level},
			IsCorrect:    st.correct,
			ResponseTime: st.latency,
		})
	}
	return s
}

var (
	E = difficulty.Easy
	M = difficulty.Medium
	H = difficulty.Hard
)

func TestBuildDataset_WindowingAndLabels(t *testing.T) {
	s := makeSession("s1",
		step{E, true, 1},
		step{E, true, 2},
		step{E, true, 3},
		step{M, true, 4},  // increase after 3, succeeded
		step{H, false, 5}, // increase after 4, failed
		step{H, true, 6},  // no increase after 5
	)
	ds := BuildDataset([]sessionlog.Session{s})
	require.Equal(t, 1, ds.Sessions)
	require.Len(t, ds.Samples, 3)

	assert.Equal(t, 3, ds.Samples[0].Boundary)
	assert.True(t, ds.Samples[0].Label)
	assert.Equal(t, model.FeatureVector{Accuracy: 100, MeanLatency: 2, Streak: 3, RecentAccuracy: 100}, ds.Samples[0].Features)

	assert.Equal(t, 4, ds.Samples[1].Boundary)
	assert.False(t, ds.Samples[1].Label)

	assert.Equal(t, 5, ds.Samples[2].Boundary)
	assert.False(t, ds.Samples[2].Label)
	assert.Equal(t, 0.0, ds.Samples[2].Features.Streak)

	assert.Equal(t, 1, ds.Positives())
}

func TestBuildDataset_ExcludesLastBoundaryAndShortSessions(t *testing.T) {
	short := makeSession("short", step{E, true, 1}, step{E, true, 1}, step{M, true, 1})
	ds := BuildDataset([]sessionlog.Session{short})
	assert.Equal(t, 1, ds.Sessions)
	assert.Empty(t, ds.Samples)
}

func TestBuildDataset_SkipsInvalidSessions(t *testing.T) {
	bad := makeSession("bad", step{E, true, 1}, step{E, true, 1}, step{E, true, 1}, step{E, true, 1})
	bad.Responses[2].ResponseTime = -1
	good := makeSession("good", step{E, true, 1}, step{E, true, 1}, step{E, true, 1}, step{E, true, 1})

	ds := BuildDataset([]sessionlog.Session{bad, good})
	assert.Equal(t, 1, ds.Sessions)
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, "bad", ds.Skipped[0].SessionID)
	assert.Len(t, ds.Samples, 1)
}

func numbered(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Boundary: i}
	}
	return out
}

func TestSplit(t *testing.T) {
	train, test := Split(numbered(10), 0.2, 42)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	train2, test2 := Split(numbered(10), 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	seen := map[int]bool{}
	for _, s := range append(train, test...) {
		assert.False(t, seen[s.Boundary], "sample %d in both subsets", s.Boundary)
		seen[s.Boundary] = true
	}
	assert.Len(t, seen, 10)

	train, test = Split(numbered(11), 0.2, 7)
	assert.Len(t, test, 3)
	assert.Len(t, train, 8)

	train, test = Split(numbered(1), 0.2, 42)
	assert.Len(t, train, 1)
	assert.Empty(t, test)

	train, test = Split(nil, 0.2, 42)
	assert.Empty(t, train)
	assert.Empty(t, test)
}

// separable builds samples whose label depends only on accuracy.
func separable(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		acc := float64(i % 100)
		out[i] = Sample{
			Features: model.FeatureVector{Accuracy: acc, MeanLatency: 3, Streak: float64(i % 4), RecentAccuracy: 66},
			Label:    acc >= 50,
		}
	}
	return out
}

func TestFit_LearnsSeparableData(t *testing.T) {
	samples := separable(200)
	res := Fit(samples, DefaultFitConfig())
	require.Len(t, res.Weights, model.Dimensions)
	assert.Greater(t, res.Weights[0], 0.0, "accuracy weight should be positive")

	m := model.New(res.Weights, res.Bias, model.Metadata{})
	sc := Evaluate(m, samples)
	assert.GreaterOrEqual(t, sc.Accuracy, 0.9)

	low := m.Probability(model.FeatureVector{Accuracy: 10, MeanLatency: 3, RecentAccuracy: 66})
	high := m.Probability(model.FeatureVector{Accuracy: 90, MeanLatency: 3, RecentAccuracy: 66})
	assert.Less(t, low, 0.5)
	assert.Greater(t, high, 0.5)
}

func TestFit_IterationLimit(t *testing.T) {
	cfg := DefaultFitConfig()
	cfg.MaxIterations = 1
	res := Fit(separable(50), cfg)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
}

func TestFit_NoSamples(t *testing.T) {
	res := Fit(nil, DefaultFitConfig())
	assert.False(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, []float64{0, 0, 0, 0}, res.Weights)
	assert.Equal(t, 0.0, res.Bias)
}

func TestEvaluate(t *testing.T) {
	// p > 0.5 exactly when accuracy > 50.
	m := model.New([]float64{1, 0, 0, 0}, -50, model.Metadata{})
	samples := []Sample{
		{Features: model.FeatureVector{Accuracy: 90}, Label: true},  // tp
		{Features: model.FeatureVector{Accuracy: 80}, Label: false}, // fp
		{Features: model.FeatureVector{Accuracy: 10}, Label: true},  // fn
		{Features: model.FeatureVector{Accuracy: 20}, Label: false}, // tn
		{Features: model.FeatureVector{Accuracy: 70}, Label: true},  // tp
	}
	sc := Evaluate(m, samples)
	assert.Equal(t, 5, sc.Support)
	assert.InDelta(t, 0.6, sc.Accuracy, 1e-9)
	assert.InDelta(t, 2.0/3, sc.Precision, 1e-9)
	assert.InDelta(t, 2.0/3, sc.Recall, 1e-9)
	assert.InDelta(t, 2.0/3, sc.F1, 1e-9)
}

func TestEvaluate_NoPositivePredictions(t *testing.T) {
	m := model.New([]float64{0, 0, 0, 0}, -5, model.Metadata{})
	sc := Evaluate(m, []Sample{{Label: true}, {Label: false}})
	assert.Equal(t, 0.0, sc.Precision)
	assert.Equal(t, 0.0, sc.Recall)
	assert.Equal(t, 0.0, sc.F1)
	assert.InDelta(t, 0.5, sc.Accuracy, 1e-9)
}

type recordingObserver struct{ reports []*Report }

func (o *recordingObserver) ObserveTraining(r *Report) { o.reports = append(o.reports, r) }

func TestRun_ZeroSamples(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPipeline(DefaultConfig(), WithObserver(obs))

	r, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Samples)
	assert.Equal(t, Scores{}, r.HeldOut)
	assert.True(t, r.HasWarning(WarnLowSampleCount))
	require.NotNil(t, r.Model)
	assert.Contains(t, r.Model.Metadata().Warnings[0], string(WarnLowSampleCount))
	assert.True(t, r.HasWarning(WarnNotConverged))
	assert.False(t, r.Model.Metadata().Converged)
	assert.Len(t, obs.reports, 1)
}

// corpus builds sessions where learners who answer quickly and correctly are
// promoted and keep succeeding, and struggling learners stay put.
func corpus(n int) []sessionlog.Session {
	var sessions []sessionlog.Session
	for i := 0; i < n; i++ {
		var steps []step
		if i%2 == 0 {
			steps = []step{{E, true, 1.5}, {E, true, 2}, {E, true, 1.8}, {M, true, 2.2}, {M, true, 2.5}, {H, true, 3}, {H, true, 3.1}}
		} else {
			steps = []step{{E, false, 7}, {E, true, 6}, {E, false, 9}, {E, false, 8}, {E, true, 7.5}, {E, false, 9}, {E, false, 8.2}}
		}
		sessions = append(sessions, makeSession("s", steps...))
	}
	return sessions
}

func TestRun_Corpus(t *testing.T) {
	fixed := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p := NewPipeline(DefaultConfig(), WithClock(func() time.Time { return fixed }))

	r, err := p.Run(context.Background(), corpus(60))
	require.NoError(t, err)
	assert.Equal(t, 60, r.Sessions)
	assert.Equal(t, 240, r.Samples)
	assert.Equal(t, 48, r.TestSamples)
	assert.Equal(t, 192, r.TrainSamples)
	assert.False(t, r.HasWarning(WarnLowSampleCount))
	assert.Equal(t, fixed, r.Model.Metadata().TrainedAt)
	assert.Equal(t, 240, r.Model.Metadata().SampleCount)

	// Fast accurate learners carry the positive labels.
	strong := model.FeatureVector{Accuracy: 100, MeanLatency: 2, Streak: 4, RecentAccuracy: 100}
	weak := model.FeatureVector{Accuracy: 25, MeanLatency: 8, Streak: 0, RecentAccuracy: 0}
	assert.Greater(t, r.Model.Probability(strong), r.Model.Probability(weak))
}

func TestRun_SmallCorpusWarns(t *testing.T) {
	r, err := NewPipeline(DefaultConfig()).Run(context.Background(), corpus(4))
	require.NoError(t, err)
	assert.True(t, r.HasWarning(WarnLowSampleCount))
	assert.Equal(t, 16, r.Samples)
	assert.NotNil(t, r.Model)
}

func TestRun_NotConvergedStillPublishes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fit.MaxIterations = 2
	p := NewPipeline(cfg)

	r, err := p.Run(context.Background(), corpus(10))
	require.NoError(t, err)
	assert.True(t, r.HasWarning(WarnNotConverged))
	assert.False(t, r.Model.Metadata().Converged)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, p.Publish(path, r))
	loaded, err := model.Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Model.Weights(), loaded.Weights())
	assert.Len(t, loaded.Metadata().Warnings, len(r.Warnings))
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(DefaultConfig()).Run(ctx, corpus(2))
	assert.ErrorIs(t, err, context.Canceled)
}
