package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/gemrelay/pkg/cli"
	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/credentials"
	"mercator-hq/gemrelay/pkg/rotation"
	"mercator-hq/gemrelay/pkg/rotation/storage"
)

var stateFlags struct {
	output string
	index  int
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or change the shared rotation state",
	Long: `Inspect or change the rotation counter kept in the configured store.

The memory backend lives inside a running proxy, so these commands need a
persistent backend (sqlite, postgres or mysql).`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the next index to serve and the store version",
	Example: `  gemrelay state show --config /etc/gemrelay/config.yaml
  gemrelay state show --output json`,
	Args: cobra.NoArgs,
	RunE: runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set the next index to serve",
	Long: `Set the next index to serve with a compare-and-swap write, so running
proxies sharing the store pick it up on their next request.`,
	Example: `  # Start the rotation over from the first key
  gemrelay state reset

  # Serve the third key next
  gemrelay state reset --index 2`,
	Args: cobra.NoArgs,
	RunE: runStateReset,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateResetCmd)

	stateShowCmd.Flags().StringVarP(&stateFlags.output, "output", "o", "text", "output format (text, json, csv)")
	stateResetCmd.Flags().IntVar(&stateFlags.index, "index", 0, "index to serve next")
}

// openPersistentStore loads the configuration and opens its rotation store.
func openPersistentStore(ctx context.Context) (*config.Config, storage.Backend, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Rotation.Backend == config.BackendMemory {
		return nil, nil, cli.NewConfigError("rotation.backend",
			"the memory backend is process-local; state commands need sqlite, postgres or mysql")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(stateFlags.output)
	if err != nil {
		return err
	}

	cfg, store, err := openPersistentStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Load(cmd.Context(), cfg.Rotation.Key)
	if err != nil {
		return cli.NewCommandError("state show", err)
	}

	creds := cfg.Credentials.Set()
	table := &cli.Table{
		Headers: []string{"backend", "key", "next_index", "version", "updated_at", "next_credential"},
		Rows:    [][]string{stateRow(store.Name(), cfg.Rotation.Key, st, creds)},
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}

// stateRow renders one state snapshot. The next credential is resolved the
// way the rotator does, reducing an out-of-range index modulo the set size.
func stateRow(backend, key string, st storage.State, creds *credentials.Set) []string {
	updated := "never"
	if st.Exists() {
		updated = st.UpdatedAt.UTC().Format(time.RFC3339)
	}

	next := "-"
	if n := creds.Len(); n > 0 {
		next = credentials.Fingerprint(creds.At(st.NextIndex % n))
	}

	return []string{
		backend,
		key,
		strconv.Itoa(st.NextIndex),
		strconv.FormatInt(st.Version, 10),
		updated,
		next,
	}
}

func runStateReset(cmd *cobra.Command, args []string) error {
	cfg, store, err := openPersistentStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	n := cfg.Credentials.Set().Len()
	st, err := rotation.SetIndex(cmd.Context(), store, cfg.Rotation.Key, stateFlags.index, n, cfg.Rotation.MaxAttempts)
	if err != nil {
		return cli.NewCommandError("state reset", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Next index set to %d (version %d, %d API keys)\n", st.NextIndex, st.Version, n)
	return nil
}
