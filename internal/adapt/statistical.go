package adapt

import (
	"fmt"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// Probability thresholds. Both comparisons are strict, so p == 0.6 and
// p == 0.4 map to Maintain.
const (
	DefaultIncreaseAbove = 0.6
	DefaultDecreaseBelow = 0.4

	// MinStatisticalOutcomes is the number of outcomes needed before the
	// recent-accuracy feature is defined.
	MinStatisticalOutcomes = tracker.RecentWindow
)

// Statistical decides from a trained model's success probability.
type Statistical struct {
	model         *model.Model
	IncreaseAbove float64
	DecreaseBelow float64
}

// NewStatistical returns a statistical strategy over mdl with default
// thresholds. mdl may be nil.
func NewStatistical(mdl *model.Model) Statistical {
	return Statistical{
		model:         mdl,
		IncreaseAbove: DefaultIncreaseAbove,
		DecreaseBelow: DefaultDecreaseBelow,
	}
}

func (Statistical) Kind() Kind { return KindStatistical }

// Classify maps a success probability to a transition.
func (s Statistical) Classify(p float64) difficulty.Transition {
	switch {
	case p > s.IncreaseAbove:
		return difficulty.Increase
	case p < s.DecreaseBelow:
		return difficulty.Decrease
	default:
		return difficulty.Maintain
	}
}

func (s Statistical) decide(m tracker.Metrics) (Decision, error) {
	if s.model == nil {
		return Decision{}, fmt.Errorf("%w: no model loaded", ErrModelUnavailable)
	}
	if m.Total < MinStatisticalOutcomes {
		return Decision{}, fmt.Errorf("%w: %d outcomes recorded, need %d", ErrModelUnavailable, m.Total, MinStatisticalOutcomes)
	}

	p := s.model.Probability(model.FromMetrics(m))
	return Decision{Transition: s.Classify(p), Confidence: &p}, nil
}
