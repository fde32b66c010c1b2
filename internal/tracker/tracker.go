package tracker

import (
	"fmt"

	"github.com/abhisek/mathadapt/internal/difficulty"
)

// Trend thresholds: recent mean latency relative to the mean of older outcomes.
const (
	slowingRatio   = 1.2
	improvingRatio = 0.8
)

// Tracker maintains running session metrics from an append-only sequence of
// outcomes. It is not safe for concurrent use; callers serialize Record.
type Tracker struct {
	outcomes []Outcome

	correct      int
	totalLatency float64
	streak       int
	maxStreak    int
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Record appends an outcome and updates the running aggregates.
// It panics if the index is not the next in sequence, if the latency is
// negative, or if the level is invalid.
func (t *Tracker) Record(o Outcome) {
	if want := len(t.outcomes) + 1; o.Index != want {
		panic(fmt.Sprintf("tracker: outcome index %d out of order, want %d", o.Index, want))
	}
	if o.Latency < 0 {
		panic(fmt.Sprintf("tracker: negative latency %f for outcome %d", o.Latency, o.Index))
	}
	if !o.Level.Valid() {
		panic(fmt.Sprintf("tracker: invalid difficulty level %d for outcome %d", int(o.Level), o.Index))
	}

	t.outcomes = append(t.outcomes, o)
	t.totalLatency += o.Latency

	if o.Correct {
		t.correct++
		t.streak++
		if t.streak > t.maxStreak {
			t.maxStreak = t.streak
		}
	} else {
		t.streak = 0
	}
}

// Len returns the number of recorded outcomes.
func (t *Tracker) Len() int {
	return len(t.outcomes)
}

// Outcomes returns a copy of the recorded outcomes in order.
func (t *Tracker) Outcomes() []Outcome {
	out := make([]Outcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// Snapshot returns the current metrics. It never mutates the tracker and is
// valid before any outcome is recorded, when every field is zero and the trend
// is stable.
func (t *Tracker) Snapshot() Metrics {
	total := len(t.outcomes)
	m := Metrics{
		Total:        total,
		Correct:      t.correct,
		Incorrect:    total - t.correct,
		Streak:       t.streak,
		MaxStreak:    t.maxStreak,
		LatencyTrend: TrendStable,
	}
	if total == 0 {
		return m
	}

	m.Accuracy = percent(t.correct, total)
	m.MeanLatency = t.totalLatency / float64(total)

	recent := t.outcomes[total-min(RecentWindow, total):]
	recentCorrect := 0
	recentLatency := 0.0
	for _, o := range recent {
		if o.Correct {
			recentCorrect++
		}
		recentLatency += o.Latency
	}
	m.RecentCount = len(recent)
	m.RecentAccuracy = percent(recentCorrect, len(recent))
	m.RecentLatency = recentLatency / float64(len(recent))

	if older := total - len(recent); older > 0 && len(recent) == RecentWindow {
		olderMean := (t.totalLatency - recentLatency) / float64(older)
		switch {
		case m.RecentLatency > olderMean*slowingRatio:
			m.LatencyTrend = TrendSlowing
		case m.RecentLatency < olderMean*improvingRatio:
			m.LatencyTrend = TrendImproving
		}
	}

	return m
}

// Breakdown returns per-level statistics for the levels that have outcomes.
func (t *Tracker) Breakdown() map[difficulty.Level]LevelStats {
	type acc struct {
		count, correct int
		latency        float64
	}
	sums := make(map[difficulty.Level]*acc)
	for _, o := range t.outcomes {
		a := sums[o.Level]
		if a == nil {
			a = &acc{}
			sums[o.Level] = a
		}
		a.count++
		a.latency += o.Latency
		if o.Correct {
			a.correct++
		}
	}

	out := make(map[difficulty.Level]LevelStats, len(sums))
	for lvl, a := range sums {
		out[lvl] = LevelStats{
			Count:       a.count,
			Correct:     a.correct,
			Accuracy:    percent(a.correct, a.count),
			MeanLatency: a.latency / float64(a.count),
		}
	}
	return out
}

// Reset clears all state so the tracker can be reused for a new session.
func (t *Tracker) Reset() {
	*t = Tracker{outcomes: t.outcomes[:0]}
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
