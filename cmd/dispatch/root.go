package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Agent task orchestration core",
	Long: `Dispatch tracks delegated agent tasks from launch to completion.

It admits tasks through per-model concurrency limits, watches their
execution contexts for progress and completion, routes finished work
through quality gates with bounded automatic rewrites, and accumulates
structured artifacts so later tasks build on earlier ones.

Core capabilities:
- Keyed admission control with FIFO slot handoff
- Lifecycle tracking with staleness reaping
- Quality-score routing: pass, polish, rewrite, escalate
- Per-session shared artifact context`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
