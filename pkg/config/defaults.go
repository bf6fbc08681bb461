package config

import "time"

// Rotation backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// SQLite drivers.
const (
	SQLiteDriverModernc = "sqlite"
	SQLiteDriverMattn   = "sqlite3"
)

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress     = "0.0.0.0:8000"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB

	// Upstream defaults
	DefaultUpstreamBaseURL             = "https://generativelanguage.googleapis.com"
	DefaultUpstreamDialTimeout         = 10 * time.Second
	DefaultUpstreamTLSHandshakeTimeout = 10 * time.Second
	DefaultUpstreamFlushInterval       = -1 * time.Millisecond
	DefaultUpstreamMaxIdleConnsPerHost = 64

	// Rotation defaults
	DefaultRotationBackend     = BackendMemory
	DefaultRotationKey         = "current_key_index"
	DefaultRotationMaxAttempts = 8
	DefaultRotationLazyInit    = true
	DefaultRotationInitTimeout = 5 * time.Second
	DefaultSQLitePath          = "gemrelay.db"
	DefaultSQLiteDriver        = SQLiteDriverModernc
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultSQLMaxOpenConns     = 10
	DefaultSQLMaxIdleConns     = 2
	DefaultSQLConnMaxLifetime  = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultRedactCredentials  = true
	DefaultMetricsEnabled     = true
	DefaultAdminListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "gemrelay"
	DefaultTracingEnabled     = false
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingInsecure    = true
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "gemrelay"
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultRequestDurationBuckets covers short unary calls through long
// streamed generations.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Defaults returns a configuration with every field set to its default.
// Files are decoded on top of it, so boolean fields that default to true
// keep their default unless the file sets them.
func Defaults() *Config {
	cfg := &Config{
		Rotation: RotationConfig{
			LazyInit: DefaultRotationLazyInit,
		},
		Upstream: UpstreamConfig{
			FlushInterval: DefaultUpstreamFlushInterval,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactCredentials: DefaultRedactCredentials,
			},
			Metrics: MetricsConfig{
				Enabled:       DefaultMetricsEnabled,
				ListenAddress: DefaultAdminListenAddress,
			},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				Insecure:    DefaultTracingInsecure,
				SampleRatio: DefaultTracingSampleRatio,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Fields whose zero value is meaningful (flush interval, response header
// timeout, admin listen address, boolean switches) are only defaulted by
// Defaults.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadHeaderTimeout == 0 {
		cfg.Proxy.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.DialTimeout == 0 {
		cfg.Upstream.DialTimeout = DefaultUpstreamDialTimeout
	}
	if cfg.Upstream.TLSHandshakeTimeout == 0 {
		cfg.Upstream.TLSHandshakeTimeout = DefaultUpstreamTLSHandshakeTimeout
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultUpstreamMaxIdleConnsPerHost
	}

	// Rotation defaults
	if cfg.Rotation.Backend == "" {
		cfg.Rotation.Backend = DefaultRotationBackend
	}
	if cfg.Rotation.Key == "" {
		cfg.Rotation.Key = DefaultRotationKey
	}
	if cfg.Rotation.MaxAttempts == 0 {
		cfg.Rotation.MaxAttempts = DefaultRotationMaxAttempts
	}
	if cfg.Rotation.InitTimeout == 0 {
		cfg.Rotation.InitTimeout = DefaultRotationInitTimeout
	}
	if cfg.Rotation.SQLite.Path == "" {
		cfg.Rotation.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Rotation.SQLite.Driver == "" {
		cfg.Rotation.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Rotation.SQLite.BusyTimeout == 0 {
		cfg.Rotation.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Rotation.SQL.MaxOpenConns == 0 {
		cfg.Rotation.SQL.MaxOpenConns = DefaultSQLMaxOpenConns
	}
	if cfg.Rotation.SQL.MaxIdleConns == 0 {
		cfg.Rotation.SQL.MaxIdleConns = DefaultSQLMaxIdleConns
	}
	if cfg.Rotation.SQL.ConnMaxLifetime == 0 {
		cfg.Rotation.SQL.ConnMaxLifetime = DefaultSQLConnMaxLifetime
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}
