package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ccrelay/pkg/cli"
	"mercator-hq/ccrelay/pkg/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ccrelay proxy",
	Long: `Start the ccrelay proxy: the dataplane reverse proxy, the management
API, and the WebSocket fan-out channel all share one listener, coordinated
with any sibling ccrelay processes via leader election.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv, err := server.New(cfgFile, Version, BuildDate, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("ccrelay starting", "version", Version, "config", cfgFile)

	ctx := cli.SetupSignalHandler()
	if err := srv.Run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("ccrelay stopped")
	return nil
}
