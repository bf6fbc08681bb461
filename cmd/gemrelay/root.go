package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/gemrelay/pkg/cli"
	"mercator-hq/gemrelay/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gemrelay",
	Short: "gemrelay - Gemini API reverse proxy with API key rotation",
	Long: `gemrelay forwards Gemini API requests upstream, attaching one API key per
request from a configured list in strict round-robin order.

The rotation counter is kept in a shared store and advanced by
compare-and-swap, so any number of gemrelay instances pointed at the same
database hand out keys fairly without coordinating.

Configuration comes from defaults, an optional YAML file (--config) and the
environment (API_KEYS, GEMRELAY_*), in that order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: defaults and environment only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}

// loadConfig loads the configuration named by --config, applies the
// environment and overlay, and stores it as the process configuration.
// overlay may be nil.
func loadConfig(overlay config.Overlay) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, overlay)
	if err != nil {
		return nil, cli.NewConfigError(configSource(), err.Error())
	}
	return cfg, nil
}

func configSource() string {
	if cfgFile == "" {
		return "environment"
	}
	return cfgFile
}
