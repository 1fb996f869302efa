package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ccrelay",
	Short: "ccrelay - local reverse proxy for chat-completion APIs",
	Long: `ccrelay is a local HTTP reverse proxy that sits in front of chat-completion
APIs. It provides:
  - A switchable set of providers, selected via a management API or WebSocket RPC
  - Anthropic <-> OpenAI request/response translation
  - Per-route bounded concurrency with queueing
  - Pluggable request/response logging
  - Multi-process leader election, so only one instance ever binds the port`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Disable default completion command (we'll add our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
