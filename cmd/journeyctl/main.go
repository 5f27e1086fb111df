// Package main implements journeyctl, the command-line entry point for the
// browsing agent.
//
// This file serves as the entry point and command registration hub. The
// actual subcommand implementations are split across multiple cmd_*.go
// files for maintainability.
//
// # File Index
//
// Entry Point & Global State:
//   - main.go       - Entry point, rootCmd, global flags, init()
//
// Serving:
//   - cmd_serve.go  - serveCmd, runServe(): boots config/persona/store/httpapi
//
// One-shot Runs:
//   - cmd_run.go    - runCmd, runOneShot(): drives a Run without the HTTP layer
//
// Live Viewing:
//   - cmd_watch.go  - watchCmd, runWatch(): bubbletea TUI over the websocket feed
//
// Replay:
//   - cmd_replay.go - replayCmd, runReplay(): re-drives a saved trace JSON's steps
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"journeyagent/internal/logging"
)

var (
	verbose    bool
	configPath string
	serverAddr string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "journeyctl",
	Short: "journeyctl drives the persona-guided browsing agent",
	Long: `journeyctl starts and controls Runs of the browsing agent: a headed or
headless Chrome session that perceives a page through labeled marks, decides
its next action via a vision model (or a deterministic Monkey/Bare mode),
and narrates and records what it did.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws, _ := os.Getwd()
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: journeyctl.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "", "Override the configured server address")

	rootCmd.AddCommand(serveCmd, runCmd, watchCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
