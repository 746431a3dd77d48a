// Package cmd implements the adapt command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rand/adapt/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "adapt",
	Short: "Adaptive learning orchestration",
	Long: `adapt manages a set of self-learning modules: it collects behavior
samples, schedules periodic training, and serves rule-based predictions.

Modules learn independently; one module failing never affects the others.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.DefaultPath()
		}

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.LogLevel = "debug"
		}
		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			cfg.DataDir = dataDir
		}

		setupLogging(cfg.LogLevel)
		loadedConfig = cfg
		return nil
	},
}

// loadedConfig is the effective configuration resolved by the root
// PersistentPreRunE; subcommands read it through currentConfig.
var loadedConfig config.Config

func currentConfig() config.Config {
	return loadedConfig
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Override data directory")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		statusCmd,
		trainCmd,
		exportCmd,
		importCmd,
		reportCmd,
	)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
