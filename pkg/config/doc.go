// Package config provides configuration management for gemrelay.
//
// Configuration is loaded from an optional YAML file with environment
// variable overrides. Unknown keys in the file are rejected.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("gemrelay.yaml")
//
//  2. With environment variable overrides (path may be empty):
//     cfg, err := config.LoadConfigWithEnvOverrides("")
//
// # Environment Variables
//
// The credential list is read from API_KEYS or, taking precedence,
// GEMRELAY_CREDENTIALS_API_KEYS. Other fields follow the naming convention
// GEMRELAY_SECTION_FIELD:
//
//   - GEMRELAY_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - GEMRELAY_ROTATION_BACKEND overrides rotation.backend
//   - GEMRELAY_ROTATION_POSTGRES_DSN overrides rotation.postgres.dsn
//   - GEMRELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// PORT replaces only the port of proxy.listen_address.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Overlay (command-line flags)
//  5. Validation (fails fast if invalid)
//
// # Process Configuration
//
//	cfg, err := config.Load(path, applyFlags)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Reload rebuilds the configuration from the same file and re-applies the
// same overlay, so flag values survive a file change.
//
// # Hot Reload
//
// Watcher calls Reload when the file changes. Only the log level is applied to a
// running process; the credential list and store backend are fixed at
// startup.
//
// # Example Configuration
//
//	proxy:
//	  listen_address: "0.0.0.0:8000"
//
//	credentials:
//	  api_keys: "AIza...,AIza..."
//
//	rotation:
//	  backend: sqlite
//	  sqlite:
//	    path: /var/lib/gemrelay/state.db
//
//	telemetry:
//	  logging:
//	    level: info
package config
