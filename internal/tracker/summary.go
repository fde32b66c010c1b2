package tracker

import "github.com/abhisek/mathadapt/internal/difficulty"

// Recommendation is the end-of-session guidance band.
type Recommendation string

const (
	RecommendExcellent Recommendation = "excellent"
	RecommendGood      Recommendation = "good"
	RecommendPractice  Recommendation = "keep-practicing"
)

// Summary is the end-of-session view of a tracker plus the level path the
// session driver walked.
type Summary struct {
	Metrics        Metrics
	Breakdown      map[difficulty.Level]LevelStats
	Path           []difficulty.Level
	Changes        int
	Recommendation Recommendation
}

// Start returns the first level on the path, or 0 if the path is empty.
func (s Summary) Start() difficulty.Level {
	if len(s.Path) == 0 {
		return 0
	}
	return s.Path[0]
}

// Final returns the last level on the path, or 0 if the path is empty.
func (s Summary) Final() difficulty.Level {
	if len(s.Path) == 0 {
		return 0
	}
	return s.Path[len(s.Path)-1]
}

// Summarize builds a Summary. path is the sequence of levels the session
// moved through, starting with the initial level; consecutive duplicates are
// collapsed.
func (t *Tracker) Summarize(path []difficulty.Level) Summary {
	var collapsed []difficulty.Level
	for _, l := range path {
		if len(collapsed) == 0 || collapsed[len(collapsed)-1] != l {
			collapsed = append(collapsed, l)
		}
	}

	m := t.Snapshot()
	s := Summary{
		Metrics:   m,
		Breakdown: t.Breakdown(),
		Path:      collapsed,
	}
	if len(collapsed) > 0 {
		s.Changes = len(collapsed) - 1
	}

	switch {
	case m.Accuracy >= 80:
		s.Recommendation = RecommendExcellent
	case m.Accuracy >= 60:
		s.Recommendation = RecommendGood
	default:
		s.Recommendation = RecommendPractice
	}
	return s
}
