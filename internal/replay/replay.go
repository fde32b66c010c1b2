// Package replay re-runs recorded sessions through the tracker and a
// difficulty strategy, acting as an offline session driver.
//
// Recorded answers are fed to the tracker in order. After question 2, and
// every Cadence questions thereafter, the strategy is asked for a decision and
// the clamped result becomes the simulated level for the next question.
package replay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// FirstBoundary is the question after which the first decision is made.
const FirstBoundary = 2

// Observer is notified of every decision made during a replay.
type Observer interface {
	ObserveDecision(d adapt.Decision)
}

// Step is one evaluation boundary.
type Step struct {
	// Question is the number of the last answered question.
	Question int
	Metrics  tracker.Metrics
	Decision adapt.Decision
	// Recorded is the level the session actually used for the next
	// question, or 0 after the final question.
	Recorded difficulty.Level
}

// Agrees reports whether the simulated next level matches the recorded one.
func (s Step) Agrees() bool {
	return s.Recorded.Valid() && s.Decision.Next() == s.Recorded
}

// Result is the replay of one session.
type Result struct {
	SessionID string
	UserName  string
	Steps     []Step
	// Path holds the simulated level for every question, followed by the
	// level after the final decision.
	Path    []difficulty.Level
	Summary tracker.Summary
	// Undecided counts boundaries where the strategy had no model and no
	// fallback was configured; the level is kept.
	Undecided int
}

// Fallbacks counts decisions answered by the rule-based fallback.
func (r Result) Fallbacks() int {
	n := 0
	for _, s := range r.Steps {
		if s.Decision.Fallback {
			n++
		}
	}
	return n
}

// Agreement returns how many comparable steps agreed with the recorded path,
// and how many were comparable.
func (r Result) Agreement() (agree, comparable int) {
	for _, s := range r.Steps {
		if !s.Recorded.Valid() {
			continue
		}
		comparable++
		if s.Agrees() {
			agree++
		}
	}
	return agree, comparable
}

// Replayer replays sessions with a fixed strategy and cadence.
type Replayer struct {
	strategy adapt.Strategy
	rules    adapt.RuleBased
	fallback bool
	cadence  int
	logger   *zap.Logger
	observer Observer
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithCadence sets the number of questions between decisions.
func WithCadence(n int) Option {
	return func(r *Replayer) {
		if n > 0 {
			r.cadence = n
		}
	}
}

// WithFallback answers with rules when the strategy reports no model.
func WithFallback(rules adapt.RuleBased) Option {
	return func(r *Replayer) {
		r.fallback = true
		r.rules = rules
	}
}

// WithLogger sets the replay logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers a decision observer.
func WithObserver(o Observer) Option {
	return func(r *Replayer) { r.observer = o }
}

// New creates a Replayer for s. The default cadence is 1.
func New(s adapt.Strategy, opts ...Option) *Replayer {
	r := &Replayer{
		strategy: s,
		cadence:  1,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// isBoundary reports whether a decision is due after question q.
func (r *Replayer) isBoundary(q int) bool {
	return q >= FirstBoundary && (q-FirstBoundary)%r.cadence == 0
}

// Session replays one session.
func (r *Replayer) Session(s sessionlog.Session) (*Result, error) {
	outcomes, err := s.Outcomes()
	if err != nil {
		return nil, err
	}

	level := s.InitialDifficulty
	if !level.Valid() {
		level = difficulty.Easy
	}

	t := tracker.New()
	res := &Result{SessionID: s.ID, UserName: s.UserName}
	for i, o := range outcomes {
		res.Path = append(res.Path, level)
		t.Record(o)

		if !r.isBoundary(o.Index) {
			continue
		}
		m := t.Snapshot()
		d, err := r.decide(m, level)
		if errors.Is(err, adapt.ErrModelUnavailable) {
			res.Undecided++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("session %s question %d: %w", s.ID, o.Index, err)
		}
		if d.Fallback {
			r.logger.Debug("statistical strategy unavailable, using rules",
				zap.String("session", s.ID),
				zap.Int("question", o.Index))
		}
		if r.observer != nil {
			r.observer.ObserveDecision(d)
		}

		step := Step{Question: o.Index, Metrics: m, Decision: d}
		if i+1 < len(outcomes) {
			step.Recorded = outcomes[i+1].Level
		}
		res.Steps = append(res.Steps, step)
		level = d.Next()
	}
	if len(outcomes) > 0 {
		res.Path = append(res.Path, level)
	}
	res.Summary = t.Summarize(res.Path)
	return res, nil
}

func (r *Replayer) decide(m tracker.Metrics, level difficulty.Level) (adapt.Decision, error) {
	if r.fallback {
		return adapt.DecideWithFallback(m, level, r.strategy, r.rules)
	}
	return adapt.Decide(m, level, r.strategy)
}

// Sessions replays every session in order. Sessions with invalid records are
// logged and skipped.
func (r *Replayer) Sessions(ctx context.Context, sessions []sessionlog.Session) ([]Result, error) {
	var out []Result
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := r.Session(s)
		if err != nil {
			r.logger.Warn("session skipped", zap.String("session", s.ID), zap.Error(err))
			continue
		}
		agree, comparable := res.Agreement()
		r.logger.Debug("session replayed",
			zap.String("session", s.ID),
			zap.Int("decisions", len(res.Steps)),
			zap.Int("agree", agree),
			zap.Int("comparable", comparable),
			zap.Int("fallbacks", res.Fallbacks()))
		out = append(out, *res)
	}
	return out, nil
}
