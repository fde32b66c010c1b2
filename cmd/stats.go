package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathadapt/internal/report"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/tracker"
)

var statsCmd = &cobra.Command{
	Use:   "stats [session-id]",
	Short: "Show recorded sessions, one session's summary, or the training history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		user, _ := cmd.Flags().GetString("user")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		repo := st.SessionRepo()

		if runs, _ := cmd.Flags().GetBool("runs"); runs {
			history, err := st.TrainingRunRepo().List(cmd.Context(), store.QueryOpts{Limit: limit})
			if err != nil {
				return err
			}
			return report.TrainingRuns(os.Stdout, history)
		}

		if len(args) == 0 {
			sums, err := repo.Summaries(cmd.Context(), store.QueryOpts{Limit: limit, UserName: user})
			if err != nil {
				return fmt.Errorf("query sessions: %w", err)
			}
			return report.Sessions(os.Stdout, sums)
		}

		sess, err := repo.Session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		outcomes, err := sess.Outcomes()
		if err != nil {
			return err
		}
		t := tracker.New()
		for _, o := range outcomes {
			t.Record(o)
		}
		return report.Summary(os.Stdout, t.Summarize(sess.History()))
	},
}

func init() {
	statsCmd.Flags().Int("limit", 20, "Maximum number of sessions to list (0 = all)")
	statsCmd.Flags().String("user", "", "Only sessions of this user")
	statsCmd.Flags().Bool("runs", false, "List the training run history instead of sessions")
}
