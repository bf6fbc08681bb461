package config

import (
	"strings"
	"time"

	"mercator-hq/gemrelay/pkg/credentials"
)

// Config is the root configuration structure for gemrelay.
type Config struct {
	// Proxy contains the inbound HTTP listener configuration.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream contains the target API host and outbound transport settings.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Credentials contains the credential list to rotate over.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Rotation contains the rotation state store and retry settings.
	Rotation RotationConfig `yaml:"rotation"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the inbound HTTP listener.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadHeaderTimeout bounds reading request headers. Request bodies are
	// streamed and never time-bounded by the proxy.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// UpstreamConfig contains configuration for the upstream API.
type UpstreamConfig struct {
	// BaseURL is the scheme and host of the upstream API. A path component,
	// if any, is prepended to every forwarded path.
	// Default: "https://generativelanguage.googleapis.com"
	BaseURL string `yaml:"base_url"`

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// Zero waits indefinitely. Response bodies are never time-bounded.
	// Default: 0
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`

	// DialTimeout bounds establishing the upstream TCP connection.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// TLSHandshakeTimeout bounds the upstream TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout"`

	// FlushInterval is how often response bodies are flushed to the client.
	// A negative value flushes after every write.
	// Default: -1ms
	FlushInterval time.Duration `yaml:"flush_interval"`

	// MaxIdleConnsPerHost is the size of the upstream keep-alive pool.
	// Default: 64
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`
}

// CredentialsConfig holds the upstream credential list.
type CredentialsConfig struct {
	// APIKeys is a comma-separated credential list. Entries are trimmed and
	// blank entries are dropped. An empty list is valid: the proxy starts
	// but every forwarded request fails with a configuration error.
	APIKeys string `yaml:"api_keys"`
}

// Set parses the configured list into a credential set.
func (c CredentialsConfig) Set() *credentials.Set {
	return credentials.Parse(c.APIKeys)
}

// RotationConfig contains configuration for credential rotation.
type RotationConfig struct {
	// Backend selects the rotation state store.
	// Options: "memory", "sqlite", "postgres", "mysql"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Key is the store key holding the next index to serve.
	// Default: "current_key_index"
	Key string `yaml:"key"`

	// MaxAttempts is the number of selection attempts per request before
	// the request fails with 503.
	// Default: 8
	MaxAttempts int `yaml:"max_attempts"`

	// LazyInit opens the store on the first forwarded request instead of
	// at startup.
	// Default: true
	LazyInit bool `yaml:"lazy_init"`

	// InitTimeout bounds each attempt to open the store.
	// Default: 5s
	InitTimeout time.Duration `yaml:"init_timeout"`

	// ProbeSchedule is a cron expression for store reachability probes.
	// Empty disables probing.
	// Example: "@every 30s"
	ProbeSchedule string `yaml:"probe_schedule"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the postgres backend.
	Postgres DSNConfig `yaml:"postgres"`

	// MySQL configures the mysql backend.
	MySQL DSNConfig `yaml:"mysql"`

	// SQL tunes the connection pool of the networked SQL backends.
	SQL SQLPoolConfig `yaml:"sql"`
}

// SQLiteConfig contains SQLite store configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "gemrelay.db"
	Path string `yaml:"path"`

	// Driver selects the SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait for database locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DSNConfig holds a database connection string.
type DSNConfig struct {
	DSN string `yaml:"dsn"`
}

// SQLPoolConfig tunes a database/sql connection pool.
type SQLPoolConfig struct {
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Default: 5m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns the connection string for the configured networked backend.
func (r RotationConfig) DSN() string {
	switch r.Backend {
	case BackendPostgres:
		return r.Postgres.DSN
	case BackendMySQL:
		return r.MySQL.DSN
	default:
		return ""
	}
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics and admin endpoint configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactCredentials masks API keys in log output.
	// Default: true
	RedactCredentials bool `yaml:"redact_credentials"`
}

// MetricsConfig contains metrics collection and admin listener configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the admin listener serving /health, /ready and the
	// metrics path. Empty disables the admin listener.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "gemrelay"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name. Optional.
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for proxied request
	// duration in seconds.
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "gemrelay"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// Redacted returns a copy of the configuration that is safe to print.
// Credentials are masked and database connection strings are hidden.
func (c *Config) Redacted() *Config {
	out := *c

	if keys := c.Credentials.Set(); !keys.Empty() {
		masked := make([]string, 0, keys.Len())
		for _, k := range keys.Values() {
			masked = append(masked, credentials.Mask(k))
		}
		out.Credentials.APIKeys = strings.Join(masked, ",")
	}
	if out.Rotation.Postgres.DSN != "" {
		out.Rotation.Postgres.DSN = redactedValue
	}
	if out.Rotation.MySQL.DSN != "" {
		out.Rotation.MySQL.DSN = redactedValue
	}
	if len(c.Telemetry.Metrics.RequestDurationBuckets) > 0 {
		out.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), c.Telemetry.Metrics.RequestDurationBuckets...)
	}

	return &out
}

const redactedValue = "[REDACTED]"
