package adapt

import (
	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// RuleBased decides by fixed thresholds on accuracy, mean latency and streak.
// Accuracies are percentages; latencies are seconds.
type RuleBased struct {
	MinOutcomes int

	IncreaseMinAccuracy float64 // accuracy >= this
	IncreaseMaxLatency  float64 // mean latency <= this
	IncreaseMinStreak   int     // streak >= this

	DecreaseBelowAccuracy float64 // accuracy < this
	DecreaseMinLatency    float64 // mean latency >= this
}

// DefaultRules returns the standard thresholds.
func DefaultRules() RuleBased {
	return RuleBased{
		MinOutcomes:           2,
		IncreaseMinAccuracy:   80,
		IncreaseMaxLatency:    5.0,
		IncreaseMinStreak:     2,
		DecreaseBelowAccuracy: 60,
		DecreaseMinLatency:    8.0,
	}
}

func (RuleBased) Kind() Kind { return KindRule }

// Evaluate returns the transition for m. It is a pure function of
// (total, accuracy, mean latency, streak).
func (r RuleBased) Evaluate(m tracker.Metrics) difficulty.Transition {
	if m.Total < r.MinOutcomes {
		return difficulty.Maintain
	}

	// Increase is checked before decrease. The two conditions cannot both
	// hold, but the order is part of the contract.
	if m.Accuracy >= r.IncreaseMinAccuracy &&
		m.MeanLatency <= r.IncreaseMaxLatency &&
		m.Streak >= r.IncreaseMinStreak {
		return difficulty.Increase
	}

	if m.Accuracy < r.DecreaseBelowAccuracy || m.MeanLatency >= r.DecreaseMinLatency {
		return difficulty.Decrease
	}

	return difficulty.Maintain
}

func (r RuleBased) decide(m tracker.Metrics) (Decision, error) {
	return Decision{Transition: r.Evaluate(m)}, nil
}
