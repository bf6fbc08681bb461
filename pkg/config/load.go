package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential environment variables. EnvCredentials takes precedence over
// EnvLegacyCredentials when both are set.
const (
	EnvLegacyCredentials = "API_KEYS"
	EnvCredentials       = "GEMRELAY_CREDENTIALS_API_KEYS"
	EnvPort              = "PORT"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides. An empty path means defaults plus environment only,
// which is how the proxy runs on platforms that configure it purely through
// the environment.
//
// The loading sequence is:
// 1. Default values
// 2. YAML file, if path is set
// 3. Environment variable overrides
// 4. Validation
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format GEMRELAY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) error {
	o := envOverrider{}

	// Credentials
	o.str(EnvLegacyCredentials, &cfg.Credentials.APIKeys)
	o.str(EnvCredentials, &cfg.Credentials.APIKeys)

	// Proxy overrides
	o.str("GEMRELAY_PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	o.duration("GEMRELAY_PROXY_READ_HEADER_TIMEOUT", &cfg.Proxy.ReadHeaderTimeout)
	o.duration("GEMRELAY_PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	o.duration("GEMRELAY_PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	o.integer("GEMRELAY_PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	if port := os.Getenv(EnvPort); port != "" {
		host, _, err := net.SplitHostPort(cfg.Proxy.ListenAddress)
		if err != nil {
			host = ""
		}
		cfg.Proxy.ListenAddress = net.JoinHostPort(host, port)
	}

	// Upstream overrides
	o.str("GEMRELAY_UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	o.duration("GEMRELAY_UPSTREAM_RESPONSE_HEADER_TIMEOUT", &cfg.Upstream.ResponseHeaderTimeout)
	o.duration("GEMRELAY_UPSTREAM_DIAL_TIMEOUT", &cfg.Upstream.DialTimeout)
	o.duration("GEMRELAY_UPSTREAM_TLS_HANDSHAKE_TIMEOUT", &cfg.Upstream.TLSHandshakeTimeout)
	o.duration("GEMRELAY_UPSTREAM_FLUSH_INTERVAL", &cfg.Upstream.FlushInterval)
	o.integer("GEMRELAY_UPSTREAM_MAX_IDLE_CONNS_PER_HOST", &cfg.Upstream.MaxIdleConnsPerHost)

	// Rotation overrides
	o.str("GEMRELAY_ROTATION_BACKEND", &cfg.Rotation.Backend)
	o.str("GEMRELAY_ROTATION_KEY", &cfg.Rotation.Key)
	o.integer("GEMRELAY_ROTATION_MAX_ATTEMPTS", &cfg.Rotation.MaxAttempts)
	o.boolean("GEMRELAY_ROTATION_LAZY_INIT", &cfg.Rotation.LazyInit)
	o.duration("GEMRELAY_ROTATION_INIT_TIMEOUT", &cfg.Rotation.InitTimeout)
	o.str("GEMRELAY_ROTATION_PROBE_SCHEDULE", &cfg.Rotation.ProbeSchedule)
	o.str("GEMRELAY_ROTATION_SQLITE_PATH", &cfg.Rotation.SQLite.Path)
	o.str("GEMRELAY_ROTATION_SQLITE_DRIVER", &cfg.Rotation.SQLite.Driver)
	o.duration("GEMRELAY_ROTATION_SQLITE_BUSY_TIMEOUT", &cfg.Rotation.SQLite.BusyTimeout)
	o.str("GEMRELAY_ROTATION_POSTGRES_DSN", &cfg.Rotation.Postgres.DSN)
	o.str("GEMRELAY_ROTATION_MYSQL_DSN", &cfg.Rotation.MySQL.DSN)
	o.integer("GEMRELAY_ROTATION_SQL_MAX_OPEN_CONNS", &cfg.Rotation.SQL.MaxOpenConns)
	o.integer("GEMRELAY_ROTATION_SQL_MAX_IDLE_CONNS", &cfg.Rotation.SQL.MaxIdleConns)
	o.duration("GEMRELAY_ROTATION_SQL_CONN_MAX_LIFETIME", &cfg.Rotation.SQL.ConnMaxLifetime)

	// Telemetry overrides
	o.str("GEMRELAY_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("GEMRELAY_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.boolean("GEMRELAY_TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	o.boolean("GEMRELAY_TELEMETRY_LOGGING_REDACT_CREDENTIALS", &cfg.Telemetry.Logging.RedactCredentials)
	o.boolean("GEMRELAY_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.str("GEMRELAY_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	o.str("GEMRELAY_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.boolean("GEMRELAY_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.str("GEMRELAY_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.boolean("GEMRELAY_TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	o.float("GEMRELAY_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	o.str("GEMRELAY_TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

// envOverrider reads typed environment variables. Unset or empty variables
// leave the target untouched; unparsable values are collected as errors.
type envOverrider struct {
	errs []FieldError
}

func (o *envOverrider) str(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func (o *envOverrider) duration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.fail(name, "invalid duration %q", val)
			return
		}
		*dst = d
	}
}

func (o *envOverrider) integer(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			o.fail(name, "invalid integer %q", val)
			return
		}
		*dst = i
	}
}

func (o *envOverrider) boolean(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(name, "invalid boolean %q", val)
			return
		}
		*dst = b
	}
}

func (o *envOverrider) float(name string, dst *float64) {
	if val := os.Getenv(name); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(name, "invalid number %q", val)
			return
		}
		*dst = f
	}
}

func (o *envOverrider) fail(name, format string, args ...any) {
	o.errs = append(o.errs, FieldError{Field: name, Message: fmt.Sprintf(format, args...)})
}
