package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/gemrelay/pkg/cli"
	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/credentials"
	"mercator-hq/gemrelay/pkg/proxy"
	"mercator-hq/gemrelay/pkg/rotation"
	"mercator-hq/gemrelay/pkg/server"
	"mercator-hq/gemrelay/pkg/telemetry"
	"mercator-hq/gemrelay/pkg/telemetry/health"
	"mercator-hq/gemrelay/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	backend       string
	watch         bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gemrelay proxy server",
	Long: `Start the gemrelay proxy server with the specified configuration.

Every request except "/" is forwarded to the upstream with one API key taken
from the configured list in round-robin order. Health, readiness and metrics
are served on the separate admin listener.

Examples:
  # Start with keys from the environment
  API_KEYS=key1,key2,key3 gemrelay run

  # Start with custom config and reload the log level on change
  gemrelay run --config /etc/gemrelay/config.yaml --watch

  # Share rotation state through SQLite
  gemrelay run --backend sqlite

  # Validate config without starting server
  gemrelay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.backend, "backend", "", "override rotation backend (memory, sqlite, postgres, mysql)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the log level when the config file changes")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// applyRunFlags is the config overlay for run. It is re-applied on every
// reload so flag values win over the file for the life of the process.
func applyRunFlags(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}
	if runFlags.backend != "" {
		cfg.Rotation.Backend = runFlags.backend
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyRunFlags)
	if err != nil {
		return err
	}

	creds := cfg.Credentials.Set()

	tel, err := telemetry.New(&cfg.Telemetry, creds.Values())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	logger := tel.Logger().Slog()
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		printSummary(cmd, cfg, creds)
		return nil
	}

	logCredentials(logger, creds)

	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()

	collector := tel.Metrics()
	collector.SetCredentials(creds.Len())

	store, err := rotationStore(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close rotation store", "error", err)
		}
	}()
	logger.Info("rotation store configured",
		"backend", store.Name(),
		"key", cfg.Rotation.Key,
		"lazy_init", cfg.Rotation.LazyInit,
		"max_attempts", cfg.Rotation.MaxAttempts,
	)

	rotator := rotation.New(creds, store, rotation.Config{
		Key:     cfg.Rotation.Key,
		Logger:  logger,
		Metrics: collector,
	})

	upstream, err := proxy.ParseUpstream(cfg.Upstream.BaseURL)
	if err != nil {
		return cli.NewConfigError("upstream.base_url", err.Error())
	}

	forwarder, err := proxy.NewForwarder(rotator, proxy.Config{
		Upstream:      upstream,
		MaxAttempts:   cfg.Rotation.MaxAttempts,
		FlushInterval: cfg.Upstream.FlushInterval,
		Transport:     proxy.NewTransport(&cfg.Upstream),
		Logger:        logger,
		Metrics:       collector,
		Tracer:        tel.Tracer(),
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("credentials", health.CredentialsCheck(creds.Len))
	checker.RegisterCheck("rotation_store", health.StoreCheck(store))

	prober := rotation.NewProber(store, cfg.Rotation.ProbeSchedule, collector, logger)
	if err := prober.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer prober.Stop()

	if runFlags.watch {
		stopWatch, err := startWatcher(ctx, tel.Logger(), logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer stopWatch()
	}

	srv, err := server.NewServer(cfg, server.Options{
		Handler: forwarder,
		Checker: checker,
		Metrics: collector,
		Logger:  logger,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintf(out, "gemrelay v%s\n", Version)
	fmt.Fprintf(out, "✓ Proxy listening on %s -> %s\n", cfg.Proxy.ListenAddress, upstream.Redacted())
	if addr := cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s/health\n", addr)
		if cfg.Telemetry.Metrics.Enabled {
			fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
		}
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// logCredentials reports the size of the credential set at startup. The
// keys themselves are never logged.
func logCredentials(logger *slog.Logger, creds *credentials.Set) {
	if creds.Empty() {
		logger.Warn("no API keys configured; every proxied request will fail with 500",
			"env", config.EnvLegacyCredentials,
		)
		return
	}
	logger.Info("loaded API keys", "count", creds.Len())
}

// startWatcher reloads the configuration file on change and applies the new
// log level. Other settings, including the credential list, need a restart.
func startWatcher(ctx context.Context, lg *logging.Logger, logger *slog.Logger) (func(), error) {
	if config.Source() == "" {
		logger.Warn("--watch ignored: no config file in use")
		return func() {}, nil
	}

	w, err := config.NewWatcher(0, func(prev, next *config.Config) {
		if prev == nil || next == nil {
			return
		}
		if next.Telemetry.Logging.Level != prev.Telemetry.Logging.Level {
			if err := lg.SetLevel(next.Telemetry.Logging.Level); err != nil {
				logger.Error("failed to apply log level", "error", err)
			} else {
				logger.Info("log level changed", "level", next.Telemetry.Logging.Level)
			}
		}
		if next.Credentials.APIKeys != prev.Credentials.APIKeys {
			logger.Warn("API key list changed in config file; restart to apply",
				"configured", next.Credentials.Set().Len(),
			)
		}
	}, logger)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := w.Watch(ctx); err != nil {
			logger.Error("config watcher stopped", "error", err)
		}
	}()

	return func() { _ = w.Stop() }, nil
}

func printSummary(cmd *cobra.Command, cfg *config.Config, creds *credentials.Set) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Listen address:  %s\n", cfg.Proxy.ListenAddress)
	fmt.Fprintf(out, "  Upstream:        %s\n", cfg.Upstream.BaseURL)
	fmt.Fprintf(out, "  API keys:        %d\n", creds.Len())
	fmt.Fprintf(out, "  Rotation store:  %s (key %q, lazy %t)\n", cfg.Rotation.Backend, cfg.Rotation.Key, cfg.Rotation.LazyInit)
	fmt.Fprintf(out, "  Max attempts:    %d\n", cfg.Rotation.MaxAttempts)
	if cfg.Telemetry.Metrics.ListenAddress != "" {
		fmt.Fprintf(out, "  Admin listener:  %s\n", cfg.Telemetry.Metrics.ListenAddress)
	}
	if creds.Empty() {
		fmt.Fprintln(out, "  Warning: no API keys configured")
	}
}
