package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathadapt/internal/config"
	"github.com/abhisek/mathadapt/internal/logging"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/telemetry"
)

// cliState is the state shared by every command, built before it runs.
type cliState struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Collector
}

var rt cliState

var rootCmd = &cobra.Command{
	Use:   "mathadapt",
	Short: "Adaptive difficulty for arithmetic practice",
	Long: "mathadapt decides when an arithmetic practice session should get easier or harder.\n" +
		"It keeps session logs, trains the statistical difficulty model and replays sessions offline.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown(cmd)
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/mathadapt/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides store.db and MATHADAPT_DB)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-out", "", "Write Prometheus metrics in text format to this file after a successful command")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rt = cliState{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  telemetry.NewCollector(reg),
	}
	return nil
}

func teardown(cmd *cobra.Command) error {
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}

	out, _ := cmd.Flags().GetString("metrics-out")
	if out == "" || rt.registry == nil {
		return nil
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()
	if err := telemetry.WriteText(f, rt.registry); err != nil {
		return err
	}
	return f.Close()
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then store.db from config, then MATHADAPT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if rt.cfg != nil && rt.cfg.Store.DB != "" {
		return rt.cfg.Store.DB, store.EnsureDir(rt.cfg.Store.DB)
	}
	return store.DefaultDBPath()
}

// resolveModelPath returns the --model flag, then model.path from config,
// then the default artifact path.
func resolveModelPath(cmd *cobra.Command) (string, error) {
	if f := cmd.Flags().Lookup("model"); f != nil && f.Value.String() != "" {
		return f.Value.String(), nil
	}
	if rt.cfg != nil && rt.cfg.Model.Path != "" {
		return rt.cfg.Model.Path, nil
	}
	return model.DefaultPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
