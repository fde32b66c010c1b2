package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/sessionlog"
	"github.com/abhisek/mathadapt/internal/store"
)

// addSourceFlags registers the flags that select which sessions a command reads.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("log", "", "Read sessions from a JSON session log file instead of the database")
	cmd.Flags().String("user", "", "Only sessions of this user")
	cmd.Flags().Int("limit", 0, "Maximum number of sessions (0 = all)")
}

// loadSessions reads sessions from --log when set, otherwise from the store.
func loadSessions(cmd *cobra.Command) ([]sessionlog.Session, error) {
	logPath, _ := cmd.Flags().GetString("log")
	user, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	if logPath != "" {
		sessions, err := sessionlog.ReadFile(logPath)
		if err != nil {
			return nil, err
		}
		var out []sessionlog.Session
		for _, s := range sessions {
			if user != "" && s.UserName != user {
				continue
			}
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		rt.logger.Debug("sessions loaded", zap.String("source", logPath), zap.Int("count", len(out)))
		return out, nil
	}

	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	sessions, err := st.SessionRepo().Sessions(cmd.Context(), store.QueryOpts{Limit: limit, UserName: user})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	rt.logger.Debug("sessions loaded", zap.String("source", "database"), zap.Int("count", len(sessions)))
	return sessions, nil
}
