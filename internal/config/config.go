// Package config loads mathadapt settings from defaults, an optional YAML
// file and MATHADAPT_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/training"
)

// Config is the top-level configuration.
type Config struct {
	// Strategy selects the difficulty strategy: "rule" or "statistical".
	Strategy string `koanf:"strategy"`

	// Fallback answers statistical requests with the rule-based strategy
	// when no model is available.
	Fallback bool `koanf:"fallback"`

	Model    ModelConfig    `koanf:"model"`
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Replay   ReplayConfig   `koanf:"replay"`
	Training TrainingConfig `koanf:"training"`
}

// ModelConfig locates the published model artifact.
type ModelConfig struct {
	Path string `koanf:"path"` // Default: $XDG_DATA_HOME/mathadapt/difficulty_model.json
}

// StoreConfig locates the SQLite session store.
type StoreConfig struct {
	DB string `koanf:"db"` // Default: $XDG_DATA_HOME/mathadapt/mathadapt.db
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// ReplayConfig configures offline session replay.
type ReplayConfig struct {
	// Cadence is the number of questions between decisions.
	Cadence int `koanf:"cadence"`
}

// TrainingConfig configures the training pipeline.
type TrainingConfig struct {
	Seed          int64   `koanf:"seed"`
	TestFraction  float64 `koanf:"test_fraction"`
	MaxIterations int     `koanf:"max_iterations"`
	LearningRate  float64 `koanf:"learning_rate"`
	Tolerance     float64 `koanf:"tolerance"`
	L2            float64 `koanf:"l2"`
	MinSessions   int     `koanf:"min_sessions"`
	MinSamples    int     `koanf:"min_samples"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	tc := training.DefaultConfig()
	return Config{
		Strategy: string(adapt.KindRule),
		Fallback: true,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Replay: ReplayConfig{Cadence: 1},
		Training: TrainingConfig{
			Seed:          tc.Seed,
			TestFraction:  tc.TestFraction,
			MaxIterations: tc.Fit.MaxIterations,
			LearningRate:  tc.Fit.LearningRate,
			Tolerance:     tc.Fit.Tolerance,
			L2:            tc.Fit.L2,
			MinSessions:   tc.MinSessions,
			MinSamples:    tc.MinSamples,
		},
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	switch adapt.Kind(c.Strategy) {
	case adapt.KindRule, adapt.KindStatistical:
	default:
		errs = append(errs, fmt.Errorf("strategy: unknown %q (want rule or statistical)", c.Strategy))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown %q", c.Log.Format))
	}

	if c.Replay.Cadence < 1 {
		errs = append(errs, fmt.Errorf("replay.cadence: must be at least 1, got %d", c.Replay.Cadence))
	}

	t := c.Training
	if t.TestFraction <= 0 || t.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("training.test_fraction: must be in (0, 1), got %g", t.TestFraction))
	}
	if t.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("training.max_iterations: must be positive, got %d", t.MaxIterations))
	}
	if t.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("training.learning_rate: must be positive, got %g", t.LearningRate))
	}
	if t.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("training.tolerance: must be positive, got %g", t.Tolerance))
	}
	if t.L2 < 0 {
		errs = append(errs, fmt.Errorf("training.l2: must not be negative, got %g", t.L2))
	}
	if t.MinSessions < 0 || t.MinSamples < 0 {
		errs = append(errs, errors.New("training.min_sessions and training.min_samples must not be negative"))
	}

	return errors.Join(errs...)
}

// StrategyKind returns the configured strategy kind.
func (c Config) StrategyKind() adapt.Kind {
	return adapt.Kind(c.Strategy)
}

// Pipeline converts the training section to a pipeline configuration.
func (t TrainingConfig) Pipeline() training.Config {
	return training.Config{
		Seed:         t.Seed,
		TestFraction: t.TestFraction,
		Fit: training.FitConfig{
			MaxIterations: t.MaxIterations,
			LearningRate:  t.LearningRate,
			Tolerance:     t.Tolerance,
			L2:            t.L2,
		},
		MinSessions: t.MinSessions,
		MinSamples:  t.MinSamples,
	}
}
