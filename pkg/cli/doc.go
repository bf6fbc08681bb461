/*
Package cli provides command-line helpers for the gemrelay command.

Output Formatting:

Inspection commands (credentials list, state show) build a Table and print it
in the format chosen by --output:

	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"index", "fingerprint"}}
	table.Rows = append(table.Rows, []string{"0", "3f9a1c2b"})
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)

Signal Handling:

	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()
	return srv.Start(ctx) // returns after SIGINT/SIGTERM and graceful shutdown

A second signal during shutdown exits immediately.

Errors:

ConfigError and CommandError carry the failing field or command. ExitCode
maps them to the process exit status.
*/
package cli
