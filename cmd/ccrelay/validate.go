package main

import (
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ccrelay/pkg/cli"
	"mercator-hq/ccrelay/pkg/config"
)

var validateFlags struct {
	format string
}

type validateSummary struct {
	Path            string `json:"path"`
	Valid           bool   `json:"valid"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Providers       int    `json:"providers"`
	DefaultProvider string `json:"defaultProvider"`
	RouteQueues     int    `json:"routeQueues"`
	LoggingEnabled  bool   `json:"loggingEnabled"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, expand environment variable references,
apply defaults, and run the same validation run performs at startup,
without binding a port or starting any background process.`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	summary := validateSummary{
		Path:            cfgFile,
		Valid:           true,
		Host:            cfg.Host,
		Port:            cfg.Port,
		Providers:       len(cfg.Providers),
		DefaultProvider: cfg.DefaultProvider,
		RouteQueues:     len(cfg.RouteQueues),
		LoggingEnabled:  cfg.Logging.Enabled,
	}

	formatter := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
	return formatter.FormatTo(os.Stdout, summary)
}
