package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/telemetry/health"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Proxy.ListenAddress = "127.0.0.1:0"
	cfg.Proxy.ShutdownTimeout = 2 * time.Second
	cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:0"
	cfg.Telemetry.Metrics.Namespace = "srv"
	return cfg
}

func echoPath() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	})
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestNewServer_Errors(t *testing.T) {
	if _, err := NewServer(nil, Options{Handler: echoPath()}); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewServer(testConfig(), Options{}); err == nil {
		t.Error("Expected error for nil handler")
	}
}

func TestServer_HealthPathsAreProxied(t *testing.T) {
	srv, err := NewServer(testConfig(), Options{Handler: echoPath()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	for _, path := range []string{"/health", "/ready", "/metrics", "/v1/models"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Body.String() != path {
			t.Errorf("Expected %s to reach the proxy handler, got %q", path, rec.Body.String())
		}
	}
}

func TestServer_AdminHandler(t *testing.T) {
	cfg := testConfig()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	collector.SetCredentials(2)

	checker := health.New(time.Second)
	checker.RegisterCheck("credentials", health.CredentialsCheck(func() int { return 2 }))

	srv, err := NewServer(cfg, Options{
		Handler: echoPath(),
		Checker: checker,
		Metrics: collector,
		Build:   BuildInfo{Version: "1.2.3"},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	admin := srv.AdminHandler()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/health", http.StatusOK, "ok"},
		{"/ready", http.StatusOK, "ready"},
		{"/version", http.StatusOK, "1.2.3"},
		{"/metrics", http.StatusOK, "srv_rotation_credentials 2"},
		{"/v1/models", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("Body %q does not contain %q", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Metrics.Enabled = false

	srv, err := NewServer(cfg, Options{
		Handler: echoPath(),
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for /metrics when disabled, got %d", rec.Code)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv, err := NewServer(testConfig(), Options{Handler: echoPath()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	proxyLn, adminLn := listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, proxyLn, adminLn) }()

	deadline := time.Now().Add(2 * time.Second)
	for !srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Fatal("Server did not start")
	}

	if code, body := get(t, "http://"+proxyLn.Addr().String()+"/v1/models"); code != http.StatusOK || body != "/v1/models" {
		t.Errorf("Proxy listener returned %d %q", code, body)
	}
	if code, _ := get(t, "http://"+adminLn.Addr().String()+"/health"); code != http.StatusOK {
		t.Errorf("Admin listener returned %d", code)
	}

	if err := srv.Serve(ctx, listen(t), nil); err == nil {
		t.Error("Expected error when serving twice")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("Server still running after shutdown")
	}
}

func TestServer_ShutdownWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = io.WriteString(w, "done")
	})

	srv, err := NewServer(testConfig(), Options{Handler: handler})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, nil) }()

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			bodyCh <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		bodyCh <- string(b)
	}()

	<-started
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if body := <-bodyCh; body != "done" {
		t.Errorf("In-flight request got %q", body)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}
