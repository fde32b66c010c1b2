package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/report"
	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/tracker"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide the next difficulty for a session or a metrics snapshot",
	Long: "Decide evaluates one boundary. With --session (or --log) it rebuilds the\n" +
		"session's metrics and decides at its final level; with --total it decides\n" +
		"from the metrics given on the command line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		choice, err := resolveStrategy(cmd)
		if err != nil {
			return err
		}

		var (
			m     tracker.Metrics
			level difficulty.Level
		)
		if cmd.Flags().Changed("total") {
			m, level, err = metricsFromFlags(cmd)
		} else {
			m, level, err = metricsFromSession(cmd)
		}
		if err != nil {
			return err
		}

		var d adapt.Decision
		if choice.fallback {
			d, err = adapt.DecideWithFallback(m, level, choice.strategy, adapt.DefaultRules())
		} else {
			d, err = adapt.Decide(m, level, choice.strategy)
		}
		if err != nil {
			return fmt.Errorf("decide: %w", err)
		}
		if d.Fallback {
			rt.logger.Debug("statistical strategy unavailable, using rules", zap.Int("total", m.Total))
		}
		rt.metrics.ObserveDecision(d)

		return report.Decision(os.Stdout, m, d)
	},
}

func init() {
	addStrategyFlags(decideCmd)
	decideCmd.Flags().String("session", "", "Session ID (default: the most recent session)")
	decideCmd.Flags().String("log", "", "Read the session from a JSON session log file")

	decideCmd.Flags().String("level", "Easy", "Current level when deciding from flags")
	decideCmd.Flags().Int("total", 0, "Questions answered")
	decideCmd.Flags().Int("correct", 0, "Questions answered correctly")
	decideCmd.Flags().Float64("latency", 0, "Mean response time in seconds")
	decideCmd.Flags().Int("streak", 0, "Current run of correct answers")
	decideCmd.Flags().Float64("recent-accuracy", 0, "Accuracy over the last 3 answers, in percent")
}

func metricsFromFlags(cmd *cobra.Command) (tracker.Metrics, difficulty.Level, error) {
	levelName, _ := cmd.Flags().GetString("level")
	level, err := difficulty.ParseLevel(levelName)
	if err != nil {
		return tracker.Metrics{}, 0, err
	}

	total, _ := cmd.Flags().GetInt("total")
	correct, _ := cmd.Flags().GetInt("correct")
	latency, _ := cmd.Flags().GetFloat64("latency")
	streak, _ := cmd.Flags().GetInt("streak")
	recent, _ := cmd.Flags().GetFloat64("recent-accuracy")

	switch {
	case total < 0 || correct < 0 || correct > total:
		return tracker.Metrics{}, 0, fmt.Errorf("--correct must be between 0 and --total")
	case streak < 0 || streak > correct:
		return tracker.Metrics{}, 0, fmt.Errorf("--streak must be between 0 and --correct")
	case math.IsNaN(latency) || math.IsInf(latency, 0) || latency < 0:
		return tracker.Metrics{}, 0, fmt.Errorf("--latency must be a finite, non-negative number of seconds")
	case math.IsNaN(recent) || recent < 0 || recent > 100:
		return tracker.Metrics{}, 0, fmt.Errorf("--recent-accuracy must be between 0 and 100")
	}

	m := tracker.Metrics{
		Total:          total,
		Correct:        correct,
		Incorrect:      total - correct,
		MeanLatency:    latency,
		Streak:         streak,
		MaxStreak:      streak,
		RecentCount:    min(tracker.RecentWindow, total),
		RecentAccuracy: recent,
		RecentLatency:  latency,
		LatencyTrend:   tracker.TrendStable,
	}
	if total > 0 {
		m.Accuracy = 100 * float64(correct) / float64(total)
	}
	return m, level, nil
}

func metricsFromSession(cmd *cobra.Command) (tracker.Metrics, difficulty.Level, error) {
	sess, err := findSession(cmd)
	if err != nil {
		return tracker.Metrics{}, 0, err
	}
	outcomes, err := sess.Outcomes()
	if err != nil {
		return tracker.Metrics{}, 0, err
	}

	t := tracker.New()
	for _, o := range outcomes {
		t.Record(o)
	}
	rt.logger.Debug("session metrics rebuilt", zap.String("session", sess.ID), zap.Int("outcomes", t.Len()))
	return t.Snapshot(), sess.FinalDifficulty, nil
}

// findSession returns the session named by --session, or the most recent one,
// from --log or the store.
func findSession(cmd *cobra.Command) (*sessionlog.Session, error) {
	id, _ := cmd.Flags().GetString("session")
	logPath, _ := cmd.Flags().GetString("log")

	if logPath != "" {
		sessions, err := sessionlog.ReadFile(logPath)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, fmt.Errorf("%s has no sessions", logPath)
		}
		if id == "" {
			return &sessions[len(sessions)-1], nil
		}
		for i := range sessions {
			if sessions[i].ID == id {
				return &sessions[i], nil
			}
		}
		return nil, fmt.Errorf("session %s not found in %s", id, logPath)
	}

	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	repo := st.SessionRepo()

	if id == "" {
		sums, err := repo.Summaries(cmd.Context(), store.QueryOpts{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(sums) == 0 {
			return nil, fmt.Errorf("no sessions recorded")
		}
		id = sums[0].ID
	}
	return repo.Session(cmd.Context(), id)
}
