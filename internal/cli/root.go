// Package cli implements the benchforge command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/probelab/benchforge/bench/cachebench"
	"github.com/probelab/benchforge/internal/domain/config"
	"github.com/probelab/benchforge/internal/domain/suite"
)

var version = "0.1.0"

var (
	cfgPath  string
	logLevel string

	cfg      *config.Config
	registry = suite.NewRegistry()
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:     "benchforge",
	Short:   "Micro-benchmark orchestration with per-benchmark process isolation",
	Version: version,
	Long: `Benchforge discovers registered benchmark suites, synthesizes a harness
per suite, and runs every benchmark in its own child process so one
crashing or hanging benchmark never takes down the run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg = config.Default()
		}
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		setupLogging(cfg.Log.Level)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a benchforge.yaml configuration file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(historyCmd)

	// Built-in suites shipped with this module.
	if err := registry.Register(cachebench.Definition(), cachebench.MapCacheRef()); err != nil {
		panic(err)
	}
}
