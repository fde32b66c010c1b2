package training

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/sessionlog"
)

// Config controls a training run.
type Config struct {
	Seed         int64
	TestFraction float64
	Fit          FitConfig

	// MinSessions and MinSamples are the practical reliability thresholds.
	// Smaller corpora still train, with a warning.
	MinSessions int
	MinSamples  int
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		Seed:         42,
		TestFraction: 0.2,
		Fit:          DefaultFitConfig(),
		MinSessions:  50,
		MinSamples:   150,
	}
}

// WarningKind classifies an advisory training warning.
type WarningKind string

const (
	WarnNotConverged   WarningKind = "not-converged"
	WarnLowSampleCount WarningKind = "low-sample-count"
	WarnSkippedSession WarningKind = "skipped-sessions"
)

// Warning is advisory; the model is still published.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Report is the result of a training run.
type Report struct {
	Sessions     int
	Skipped      []SkippedSession
	Samples      int
	Positives    int
	TrainSamples int
	TestSamples  int

	TrainAccuracy float64
	HeldOut       Scores

	Iterations int
	Converged  bool
	Warnings   []Warning

	Model *model.Model
}

// HasWarning reports whether the run raised a warning of kind k.
func (r *Report) HasWarning(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Observer is notified after each completed run.
type Observer interface {
	ObserveTraining(r *Report)
}

// Pipeline runs windowing, labeling, split, fit and evaluation.
type Pipeline struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers an observer for completed runs.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithClock overrides the clock used for the model's training timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run trains a model from sessions. It never refuses a small corpus; quality
// problems are reported as warnings on the Report and in the model metadata.
func (p *Pipeline) Run(ctx context.Context, sessions []sessionlog.Session) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := BuildDataset(sessions)
	r := &Report{
		Sessions:  ds.Sessions,
		Skipped:   ds.Skipped,
		Samples:   len(ds.Samples),
		Positives: ds.Positives(),
	}
	p.logger.Info("dataset built",
		zap.Int("sessions", r.Sessions),
		zap.Int("samples", r.Samples),
		zap.Int("positives", r.Positives),
		zap.Int("skipped_sessions", len(r.Skipped)))

	if len(ds.Skipped) > 0 {
		r.addWarning(WarnSkippedSession, fmt.Sprintf("%d sessions had invalid records and were skipped", len(ds.Skipped)))
	}
	if r.Sessions < p.cfg.MinSessions || r.Samples < p.cfg.MinSamples {
		r.addWarning(WarnLowSampleCount, fmt.Sprintf(
			"trained on %d samples from %d sessions; reliable fits need about %d samples from %d sessions",
			r.Samples, r.Sessions, p.cfg.MinSamples, p.cfg.MinSessions))
	}

	train, test := Split(ds.Samples, p.cfg.TestFraction, p.cfg.Seed)
	r.TrainSamples, r.TestSamples = len(train), len(test)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fit := Fit(train, p.cfg.Fit)
	r.Iterations, r.Converged = fit.Iterations, fit.Converged
	if !fit.Converged {
		r.addWarning(WarnNotConverged, fmt.Sprintf("optimizer stopped after %d iterations without converging; using last iterate", fit.Iterations))
	}

	warnings := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		warnings[i] = w.String()
	}
	r.Model = model.New(fit.Weights, fit.Bias, model.Metadata{
		TrainedAt:   p.now().UTC(),
		SampleCount: r.Samples,
		Sessions:    r.Sessions,
		Converged:   fit.Converged,
		Warnings:    warnings,
	})

	r.TrainAccuracy = Evaluate(r.Model, train).Accuracy
	r.HeldOut = Evaluate(r.Model, test)

	for _, w := range r.Warnings {
		p.logger.Warn("training warning",
			zap.String("kind", string(w.Kind)),
			zap.String("detail", w.Message),
			zap.Int("samples", r.Samples))
	}
	p.logger.Info("model trained",
		zap.Int("iterations", r.Iterations),
		zap.Bool("converged", r.Converged),
		zap.Float64("train_accuracy", r.TrainAccuracy),
		zap.Float64("heldout_accuracy", r.HeldOut.Accuracy),
		zap.Float64("heldout_f1", r.HeldOut.F1))

	if p.observer != nil {
		p.observer.ObserveTraining(r)
	}
	return r, nil
}

// Publish writes the report's model artifact to path.
func (p *Pipeline) Publish(path string, r *Report) error {
	if r == nil || r.Model == nil {
		return fmt.Errorf("publish: no model in report")
	}
	if err := model.Save(path, r.Model); err != nil {
		return err
	}
	p.logger.Info("model published", zap.String("path", path), zap.Int("samples", r.Samples))
	return nil
}

func (r *Report) addWarning(k WarningKind, msg string) {
	r.Warnings = append(r.Warnings, Warning{Kind: k, Message: msg})
}
