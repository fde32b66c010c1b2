package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset [session-id]...",
	Short: "Delete recorded sessions",
	Long:  "Reset deletes the named sessions, or every session of --user, from the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		if len(args) == 0 && user == "" {
			return fmt.Errorf("name sessions to delete or pass --user")
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		repo := st.SessionRepo()
		ctx := cmd.Context()

		ids := append([]string(nil), args...)
		if user != "" {
			sums, err := repo.Summaries(ctx, store.QueryOpts{UserName: user})
			if err != nil {
				return fmt.Errorf("query sessions: %w", err)
			}
			for _, s := range sums {
				ids = append(ids, s.ID)
			}
		}

		n, err := repo.DeleteMany(ctx, ids)
		if err != nil {
			return err
		}
		rt.logger.Info("sessions deleted", zap.Int("count", n), zap.Strings("sessions", ids))
		fmt.Printf("Deleted %d sessions.\n", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("user", "", "Delete every session of this user")
}
