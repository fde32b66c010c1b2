// Package training turns historical session logs into a trained difficulty
// model. It runs offline; the decision engine only ever sees the published
// model artifact.
package training

import (
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// MinWindow is the first boundary, counted in answered questions, at which a
// sample is taken.
const MinWindow = tracker.RecentWindow

// Sample is one labeled boundary.
type Sample struct {
	SessionID string
	// Boundary is the number of questions answered before the decision.
	Boundary int
	Features model.FeatureVector
	// Label is true when the level increased at this boundary and the next
	// answer was correct.
	Label bool
}

// SkippedSession records a session that could not be windowed.
type SkippedSession struct {
	SessionID string
	Reason    string
}

// Dataset is the windowed, labeled output of BuildDataset.
type Dataset struct {
	Samples  []Sample
	Sessions int
	Skipped  []SkippedSession
}

// Positives counts samples labeled true.
func (d Dataset) Positives() int {
	n := 0
	for _, s := range d.Samples {
		if s.Label {
			n++
		}
	}
	return n
}

// BuildDataset windows every session: for each boundary after the third
// answer that is followed by another answer, it captures the metrics as they
// stood before the decision and labels whether an increase happened there and
// then succeeded. Sessions with invalid records are skipped and reported.
func BuildDataset(sessions []sessionlog.Session) Dataset {
	var ds Dataset
	for i := range sessions {
		s := &sessions[i]
		outcomes, err := s.Outcomes()
		if err != nil {
			ds.Skipped = append(ds.Skipped, SkippedSession{SessionID: s.ID, Reason: err.Error()})
			continue
		}
		ds.Sessions++
		ds.Samples = append(ds.Samples, windowSession(s.ID, outcomes)...)
	}
	return ds
}

func windowSession(sessionID string, outcomes []tracker.Outcome) []Sample {
	var samples []Sample
	tr := tracker.New()
	for i, o := range outcomes {
		tr.Record(o)
		answered := i + 1
		if answered < MinWindow || answered == len(outcomes) {
			continue
		}
		next := outcomes[i+1]
		increased := next.Level > o.Level
		samples = append(samples, Sample{
			SessionID: sessionID,
			Boundary:  answered,
			Features:  model.FromMetrics(tr.Snapshot()),
			Label:     increased && next.Correct,
		})
	}
	return samples
}
