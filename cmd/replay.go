package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/replay"
	"github.com/abhisek/mathadapt/internal/report"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded sessions through a difficulty strategy",
	Long: "Replay feeds each recorded session's answers to the tracker and asks the\n" +
		"strategy for a decision after question 2 and every --cadence questions after\n" +
		"that, comparing the simulated level path with the recorded one.",
	RunE: func(cmd *cobra.Command, args []string) error {
		choice, err := resolveStrategy(cmd)
		if err != nil {
			return err
		}

		cadence := rt.cfg.Replay.Cadence
		if cmd.Flags().Changed("cadence") {
			cadence, _ = cmd.Flags().GetInt("cadence")
		}
		if cadence < 1 {
			return fmt.Errorf("--cadence must be at least 1")
		}

		sessions, err := loadSessions(cmd)
		if err != nil {
			return err
		}

		opts := []replay.Option{
			replay.WithCadence(cadence),
			replay.WithLogger(rt.logger.Named("replay")),
			replay.WithObserver(rt.metrics),
		}
		if choice.fallback {
			opts = append(opts, replay.WithFallback(adapt.DefaultRules()))
		}

		results, err := replay.New(choice.strategy, opts...).Sessions(cmd.Context(), sessions)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		rt.logger.Info("replay finished",
			zap.String("strategy", string(choice.strategy.Kind())),
			zap.Int("sessions", len(results)),
			zap.Int("cadence", cadence))

		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			for _, r := range results {
				if r.SessionID == sessionID {
					return report.Summary(os.Stdout, r.Summary)
				}
			}
			return fmt.Errorf("session %s not found", sessionID)
		}
		return report.Replay(os.Stdout, results)
	},
}

func init() {
	addSourceFlags(replayCmd)
	addStrategyFlags(replayCmd)
	replayCmd.Flags().Int("cadence", 1, "Questions between decisions (overrides replay.cadence)")
	replayCmd.Flags().String("session", "", "Show the replayed summary of one session")
}
