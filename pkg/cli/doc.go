/*
Package cli holds the helpers shared by the ajala commands: output
formatters, a batch progress reporter, error types that map to exit codes
and signal handling.

Output Formatting:

Commands print results as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Values implementing Table render as rows in the text and CSV formats.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
