package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks the variables that would otherwise leak in from the
// environment running the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvLegacyCredentials, EnvCredentials, EnvPort} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gemrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
proxy:
  listen_address: "127.0.0.1:8443"
  idle_timeout: 90s

upstream:
  base_url: "http://localhost:9999/base"
  flush_interval: 100ms

credentials:
  api_keys: " k1 , ,k2 "

rotation:
  backend: sqlite
  max_attempts: 3
  lazy_init: false
  probe_schedule: "@every 30s"
  sqlite:
    path: /tmp/state.db
    driver: sqlite3

telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:8443" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:8443", cfg.Proxy.ListenAddress)
	}
	if cfg.Proxy.IdleTimeout != 90*time.Second {
		t.Errorf("expected idle timeout 90s, got %v", cfg.Proxy.IdleTimeout)
	}
	if cfg.Upstream.BaseURL != "http://localhost:9999/base" {
		t.Errorf("unexpected base URL %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.FlushInterval != 100*time.Millisecond {
		t.Errorf("expected flush interval 100ms, got %v", cfg.Upstream.FlushInterval)
	}
	if got := cfg.Credentials.Set().Values(); len(got) != 2 || got[0] != "k1" || got[1] != "k2" {
		t.Errorf("unexpected credentials %v", got)
	}
	if cfg.Rotation.Backend != BackendSQLite || cfg.Rotation.SQLite.Driver != SQLiteDriverMattn {
		t.Errorf("unexpected rotation backend %q/%q", cfg.Rotation.Backend, cfg.Rotation.SQLite.Driver)
	}
	if cfg.Rotation.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", cfg.Rotation.MaxAttempts)
	}
	if cfg.Rotation.LazyInit {
		t.Error("expected lazy_init false")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}

	// Unset fields keep their defaults
	if cfg.Rotation.Key != DefaultRotationKey {
		t.Errorf("expected default key, got %q", cfg.Rotation.Key)
	}
	if cfg.Rotation.SQLite.BusyTimeout != DefaultSQLiteBusyTimeout {
		t.Errorf("expected default busy timeout, got %v", cfg.Rotation.SQLite.BusyTimeout)
	}
	if !cfg.Telemetry.Logging.RedactCredentials {
		t.Error("expected redaction enabled by default")
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to load empty config: %v", err)
	}
	if cfg.Proxy.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Upstream.FlushInterval != DefaultUpstreamFlushInterval {
		t.Errorf("expected default flush interval, got %v", cfg.Upstream.FlushInterval)
	}
	if !cfg.Rotation.LazyInit {
		t.Error("expected lazy init by default")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/gemrelay.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "proxy: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "rotation:\n  backnd: sqlite\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "rotation:\n  backend: postgres\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "rotation.postgres.dsn" {
		t.Errorf("unexpected field %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLegacyCredentials, "a,b,c")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if n := cfg.Credentials.Set().Len(); n != 3 {
		t.Errorf("expected 3 credentials, got %d", n)
	}
	if cfg.Rotation.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.Rotation.Backend)
	}
}

func TestLoadConfigWithEnvOverrides_EmptyCredentialsAllowed(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("empty credentials must load: %v", err)
	}
	if !cfg.Credentials.Set().Empty() {
		t.Error("expected empty credential set")
	}
}

func TestLoadConfigWithEnvOverrides_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
credentials:
  api_keys: "from-file"
rotation:
  backend: memory
`)

	t.Setenv(EnvLegacyCredentials, "legacy-1,legacy-2")
	t.Setenv(EnvCredentials, "new-1")
	t.Setenv("GEMRELAY_ROTATION_BACKEND", "mysql")
	t.Setenv("GEMRELAY_ROTATION_MYSQL_DSN", "user:pass@tcp(db:3306)/relay")
	t.Setenv("GEMRELAY_ROTATION_MAX_ATTEMPTS", "4")
	t.Setenv("GEMRELAY_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("GEMRELAY_UPSTREAM_RESPONSE_HEADER_TIMEOUT", "45s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Credentials.APIKeys != "new-1" {
		t.Errorf("expected GEMRELAY_CREDENTIALS_API_KEYS to win, got %q", cfg.Credentials.APIKeys)
	}
	if cfg.Rotation.Backend != BackendMySQL || cfg.Rotation.DSN() != "user:pass@tcp(db:3306)/relay" {
		t.Errorf("unexpected rotation backend %q dsn %q", cfg.Rotation.Backend, cfg.Rotation.DSN())
	}
	if cfg.Rotation.MaxAttempts != 4 {
		t.Errorf("expected max attempts 4, got %d", cfg.Rotation.MaxAttempts)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Upstream.ResponseHeaderTimeout != 45*time.Second {
		t.Errorf("expected response header timeout 45s, got %v", cfg.Upstream.ResponseHeaderTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_Port(t *testing.T) {
	tests := []struct {
		name   string
		listen string
		port   string
		want   string
	}{
		{"default host", "", "3000", "0.0.0.0:3000"},
		{"keeps host", "127.0.0.1:8000", "9000", "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvPort, tt.port)
			if tt.listen != "" {
				t.Setenv("GEMRELAY_PROXY_LISTEN_ADDRESS", tt.listen)
			}

			cfg, err := LoadConfigWithEnvOverrides("")
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}
			if cfg.Proxy.ListenAddress != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Proxy.ListenAddress)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMRELAY_ROTATION_MAX_ATTEMPTS", "many")
	t.Setenv("GEMRELAY_ROTATION_LAZY_INIT", "perhaps")

	_, err := LoadConfigWithEnvOverrides("")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Defaults()
	cfg.Credentials.APIKeys = "AIzaSyABCDEFGHIJKLMNOP,abc"
	cfg.Rotation.Postgres.DSN = "postgres://u:secret@db/relay"

	out := cfg.Redacted()

	if strings.Contains(out.Credentials.APIKeys, "ABCDEFGH") {
		t.Errorf("credential leaked: %q", out.Credentials.APIKeys)
	}
	if out.Credentials.APIKeys != "********MNOP,***" {
		t.Errorf("unexpected masked credentials %q", out.Credentials.APIKeys)
	}
	if out.Rotation.Postgres.DSN != redactedValue {
		t.Errorf("expected DSN redacted, got %q", out.Rotation.Postgres.DSN)
	}
	if cfg.Rotation.Postgres.DSN == redactedValue {
		t.Error("Redacted must not modify the original")
	}
}
