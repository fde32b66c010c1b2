package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <log.json>...",
	Short: "Import JSON session logs into the database",
	Long: "Import validates each session log file against the log schema and appends\n" +
		"its sessions to the database. Sessions already present are skipped.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		repo := st.SessionRepo()
		ctx := cmd.Context()

		var imported, skipped int
		for _, path := range args {
			if _, err := os.Stat(path); err != nil {
				return err
			}
			sessions, err := sessionlog.ReadFile(path)
			if err != nil {
				return err
			}
			for i := range sessions {
				s := &sessions[i]
				_, err := repo.Session(ctx, s.ID)
				switch {
				case err == nil:
					skipped++
					rt.logger.Debug("session already imported", zap.String("session", s.ID))
					continue
				case !errors.Is(err, store.ErrNotFound):
					return err
				}
				if err := repo.SaveSession(ctx, s); err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				imported++
			}
			rt.logger.Info("log imported", zap.String("path", path), zap.Int("sessions", len(sessions)))
		}

		fmt.Printf("Imported %d sessions (%d already present).\n", imported, skipped)
		return nil
	},
}
