/*
Package cli provides command-line interface utilities for ccrelay.

The cli package includes output formatters and common CLI helpers used by
the ccrelay command.

Output Formatting:

The cli package formats command results as text or JSON. A CSVFormatter
type exists but returns an error for every call; any format other than
json or csv falls back to text:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
