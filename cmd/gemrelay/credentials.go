package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/gemrelay/pkg/cli"
	"mercator-hq/gemrelay/pkg/credentials"
)

var credentialsFlags struct {
	output string
}

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"keys"},
	Short:   "Inspect the configured API keys",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys by rotation index",
	Long: `List the configured API keys in rotation order. Keys are masked; the
fingerprint matches the one used in logs.`,
	Args: cobra.NoArgs,
	RunE: runCredentialsList,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsListCmd)

	credentialsListCmd.Flags().StringVarP(&credentialsFlags.output, "output", "o", "text", "output format (text, json, csv)")
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(credentialsFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	creds := cfg.Credentials.Set()
	if creds.Empty() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no API keys configured")
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), credentialsTable(creds))
}

func credentialsTable(creds *credentials.Set) *cli.Table {
	table := &cli.Table{Headers: []string{"index", "credential", "fingerprint"}}
	for i, key := range creds.Values() {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(i),
			credentials.Mask(key),
			credentials.Fingerprint(key),
		})
	}
	return table
}
