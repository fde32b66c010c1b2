// Package adapt decides difficulty transitions from session metrics.
//
// Two strategies exist: RuleBased thresholds and Statistical prediction from a
// trained model. Decide is stateless; which strategy to use is a caller policy.
package adapt

import (
	"errors"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// ErrModelUnavailable is returned by the statistical strategy when no model
// is loaded or too few outcomes have been recorded. Callers fall back to the
// rule-based strategy.
var ErrModelUnavailable = errors.New("statistical model unavailable")

// Kind names a strategy.
type Kind string

const (
	KindRule        Kind = "rule"
	KindStatistical Kind = "statistical"
)

// Strategy is implemented by RuleBased and Statistical only.
type Strategy interface {
	Kind() Kind
	decide(m tracker.Metrics) (Decision, error)
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Transition difficulty.Transition
	// Confidence is the predicted success probability, set only by the
	// statistical strategy.
	Confidence *float64
	// Strategy is the strategy that produced the decision.
	Strategy Kind
	// From is the level the decision was made at. Decide never clamps;
	// From.Apply(Transition) gives the clamped next level.
	From difficulty.Level
	// Fallback is set when a statistical request was answered by the rule-based strategy.
	Fallback bool
}

// Next returns the clamped level reached by applying the decision.
func (d Decision) Next() difficulty.Level {
	return d.From.Apply(d.Transition)
}

// Decide evaluates s against m at the current level.
func Decide(m tracker.Metrics, current difficulty.Level, s Strategy) (Decision, error) {
	d, err := s.decide(m)
	if err != nil {
		return Decision{}, err
	}
	d.Strategy = s.Kind()
	d.From = current
	return d, nil
}

// DecideWithFallback evaluates s and, if it reports ErrModelUnavailable,
// answers with rules instead. Any other error is returned unchanged.
func DecideWithFallback(m tracker.Metrics, current difficulty.Level, s Strategy, rules RuleBased) (Decision, error) {
	d, err := Decide(m, current, s)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrModelUnavailable) {
		return Decision{}, err
	}
	d, err = Decide(m, current, rules)
	if err != nil {
		return Decision{}, err
	}
	d.Fallback = true
	return d, nil
}

// ForKind returns the strategy named by k. A statistical strategy is returned
// even when mdl is nil; it then reports ErrModelUnavailable on every call.
func ForKind(k Kind, mdl *model.Model) (Strategy, error) {
	switch k {
	case KindRule:
		return DefaultRules(), nil
	case KindStatistical:
		return NewStatistical(mdl), nil
	}
	return nil, errors.New("unknown strategy " + string(k))
}
