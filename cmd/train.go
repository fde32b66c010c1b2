package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/report"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the statistical difficulty model from session logs",
	Long: "Train fits a new model from every stored session (or a JSON session log) and\n" +
		"publishes it. Small or unconverged fits are published with warnings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg := rt.cfg.Training.Pipeline()
		if cmd.Flags().Changed("seed") {
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")
		}

		sessions, err := loadSessions(cmd)
		if err != nil {
			return err
		}

		p := training.NewPipeline(cfg,
			training.WithLogger(rt.logger.Named("training")),
			training.WithObserver(rt.metrics))

		r, err := p.Run(cmd.Context(), sessions)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}

		var published string
		if !dryRun {
			path, err := resolveModelPath(cmd)
			if err != nil {
				return err
			}
			if err := p.Publish(path, r); err != nil {
				return fmt.Errorf("publish model: %w", err)
			}
			published = path
		} else {
			rt.logger.Info("dry run, model not published", zap.Int("samples", r.Samples))
		}

		if err := recordRun(cmd, r, published != ""); err != nil {
			return err
		}

		return report.Training(os.Stdout, r, published)
	},
}

// recordRun stores the run in the training history and prunes old runs.
func recordRun(cmd *cobra.Command, r *training.Report, published bool) error {
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		return nil
	}
	keep, _ := cmd.Flags().GetInt("keep")

	artifact, err := model.Marshal(r.Model)
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	repo := st.TrainingRunRepo()

	run := &store.TrainingRun{
		Timestamp:       r.Model.Metadata().TrainedAt,
		Published:       published,
		Sessions:        r.Sessions,
		Samples:         r.Samples,
		HeldOutAccuracy: r.HeldOut.Accuracy,
		HeldOutF1:       r.HeldOut.F1,
		Converged:       r.Converged,
		Warnings:        len(r.Warnings),
		Artifact:        artifact,
	}
	if err := repo.Save(cmd.Context(), run); err != nil {
		return err
	}
	if keep > 0 {
		if err := repo.Prune(cmd.Context(), keep); err != nil {
			return err
		}
	}
	rt.logger.Debug("training run recorded", zap.Int64("run", run.ID), zap.Int("keep", keep))
	return nil
}

func init() {
	addSourceFlags(trainCmd)
	trainCmd.Flags().String("model", "", "Output path for the model artifact (overrides model.path)")
	trainCmd.Flags().Int64("seed", 0, "Split seed (overrides training.seed)")
	trainCmd.Flags().Bool("dry-run", false, "Train and report without publishing the model")
	trainCmd.Flags().Int("keep", 20, "Training runs to keep in the history (0 = all)")
	trainCmd.Flags().Bool("no-history", false, "Do not record the run in the training history")
}
