/*
Package cli provides command-line interface utilities for Redveil.

The cli package includes output formatters, progress reporters, and common CLI
helpers used by the redveil command.

Output Formatting:

The cli package supports text and JSON output for displaying command
results, e.g. the connectivity report of redveil check:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

For long-running operations such as redveil bench, use the progress
reporter:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalItems)
	for i := 0; i < totalItems; i++ {
		// Do work
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
