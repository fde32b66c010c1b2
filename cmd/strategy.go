package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/model"
)

// addStrategyFlags registers strategy selection flags.
func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "Decision strategy: rule or statistical (overrides strategy)")
	cmd.Flags().String("model", "", "Model artifact path (overrides model.path)")
	cmd.Flags().Bool("no-fallback", false, "Do not fall back to rules when no model is available")
}

// strategyChoice is the resolved strategy and fallback policy.
type strategyChoice struct {
	strategy adapt.Strategy
	fallback bool
}

// resolveStrategy builds the strategy from flags and config. A missing model
// artifact is not an error: the statistical strategy then reports
// adapt.ErrModelUnavailable and callers fall back or fail.
func resolveStrategy(cmd *cobra.Command) (strategyChoice, error) {
	kind := rt.cfg.StrategyKind()
	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		kind = adapt.Kind(s)
	}
	fallback := rt.cfg.Fallback
	if noFallback, _ := cmd.Flags().GetBool("no-fallback"); noFallback {
		fallback = false
	}

	var mdl *model.Model
	if kind == adapt.KindStatistical {
		path, err := resolveModelPath(cmd)
		if err != nil {
			return strategyChoice{}, err
		}
		mdl, err = model.Load(path)
		switch {
		case errors.Is(err, model.ErrNoArtifact):
			rt.logger.Warn("no model artifact, statistical strategy unavailable", zap.String("path", path))
		case err != nil:
			return strategyChoice{}, fmt.Errorf("load model: %w", err)
		default:
			meta := mdl.Metadata()
			rt.logger.Debug("model loaded",
				zap.String("path", path),
				zap.Int("samples", meta.SampleCount),
				zap.Time("trained_at", meta.TrainedAt))
		}
	}

	s, err := adapt.ForKind(kind, mdl)
	if err != nil {
		return strategyChoice{}, err
	}
	return strategyChoice{strategy: s, fallback: fallback}, nil
}
