package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// An empty credential list is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateRotation(&cfg.Rotation)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Telemetry.Metrics.ListenAddress != "" &&
		cfg.Telemetry.Metrics.ListenAddress == cfg.Proxy.ListenAddress {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "admin listener must not share the proxy listen address",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateProxy validates proxy configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if err := validateListenAddress(cfg.ListenAddress); err != "" {
		errs = append(errs, FieldError{Field: "proxy.listen_address", Message: err})
	}

	if cfg.ReadHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_header_timeout",
			Message: "read header timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateUpstream validates the upstream target.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	switch {
	case cfg.BaseURL == "":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "base URL is required"})
	case err != nil:
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: fmt.Sprintf("invalid URL: %v", err)})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "scheme must be http or https"})
	case u.Host == "":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "host is required"})
	case u.RawQuery != "" || u.Fragment != "":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "must not contain a query or fragment"})
	}

	if cfg.ResponseHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.response_header_timeout",
			Message: "response header timeout must be non-negative",
		})
	}
	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.dial_timeout", Message: "dial timeout must be non-negative"})
	}
	if cfg.TLSHandshakeTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.tls_handshake_timeout",
			Message: "TLS handshake timeout must be non-negative",
		})
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.max_idle_conns_per_host",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateRotation validates rotation store configuration.
func validateRotation(cfg *RotationConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case BackendMemory:
	case BackendSQLite:
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "rotation.sqlite.path",
				Message: "SQLite path is required when backend is sqlite",
			})
		}
		if cfg.SQLite.Driver != SQLiteDriverModernc && cfg.SQLite.Driver != SQLiteDriverMattn {
			errs = append(errs, FieldError{
				Field:   "rotation.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be: %s, %s)", cfg.SQLite.Driver, SQLiteDriverModernc, SQLiteDriverMattn),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "rotation.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	case BackendPostgres, BackendMySQL:
		if cfg.DSN() == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("rotation.%s.dsn", cfg.Backend),
				Message: fmt.Sprintf("DSN is required when backend is %s", cfg.Backend),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field: "rotation.backend",
			Message: fmt.Sprintf("invalid backend %q (must be: %s, %s, %s, %s)",
				cfg.Backend, BackendMemory, BackendSQLite, BackendPostgres, BackendMySQL),
		})
	}

	if cfg.Key == "" {
		errs = append(errs, FieldError{Field: "rotation.key", Message: "key is required"})
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "rotation.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}
	if cfg.InitTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "rotation.init_timeout",
			Message: "init timeout must be non-negative",
		})
	}
	if cfg.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ProbeSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "rotation.probe_schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
	}

	if cfg.SQL.MaxOpenConns < 0 || cfg.SQL.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "rotation.sql",
			Message: "connection pool sizes must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.ListenAddress != "" {
		if err := validateListenAddress(cfg.Metrics.ListenAddress); err != "" {
			errs = append(errs, FieldError{Field: "telemetry.metrics.listen_address", Message: err})
		}
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	for i := 1; i < len(cfg.Metrics.RequestDurationBuckets); i++ {
		if cfg.Metrics.RequestDurationBuckets[i] <= cfg.Metrics.RequestDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.request_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	return errs
}

func validateListenAddress(addr string) string {
	if addr == "" {
		return "listen address is required"
	}
	if _, port, err := net.SplitHostPort(addr); err != nil {
		return fmt.Sprintf("invalid listen address %q: %v", addr, err)
	} else if port == "" {
		return fmt.Sprintf("listen address %q has no port", addr)
	}
	return ""
}
