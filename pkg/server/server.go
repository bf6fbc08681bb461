package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/proxy/middleware"
	"mercator-hq/gemrelay/pkg/telemetry/health"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
	"mercator-hq/gemrelay/pkg/telemetry/tracing"
)

// BuildInfo is reported on the admin /version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options holds the components the server wires together.
type Options struct {
	// Handler is the proxy handler, typically a *proxy.Forwarder. The server
	// wraps it in the middleware chain.
	Handler http.Handler

	// Checker backs /health and /ready on the admin listener.
	Checker *health.Checker

	Metrics *metrics.Collector
	Logger  *slog.Logger
	Build   BuildInfo
}

// Server runs the proxy listener and, when configured, the admin listener.
type Server struct {
	proxyConfig   config.ProxyConfig
	metricsConfig config.MetricsConfig
	opts          Options
	logger        *slog.Logger

	proxyServer *http.Server
	adminServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for cfg. Nothing listens until Start or Serve.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opts.Handler == nil {
		return nil, errors.New("proxy handler is nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}

	return &Server{
		proxyConfig:   cfg.Proxy,
		metricsConfig: cfg.Telemetry.Metrics,
		opts:          opts,
		logger:        opts.Logger.With("component", "server"),
	}, nil
}

// Start listens on the configured addresses and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	proxyLn, err := net.Listen("tcp", s.proxyConfig.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.proxyConfig.ListenAddress, err)
	}

	var adminLn net.Listener
	if s.metricsConfig.ListenAddress != "" {
		adminLn, err = net.Listen("tcp", s.metricsConfig.ListenAddress)
		if err != nil {
			_ = proxyLn.Close()
			return fmt.Errorf("failed to listen on admin address %s: %w", s.metricsConfig.ListenAddress, err)
		}
	}

	return s.Serve(ctx, proxyLn, adminLn)
}

// Serve serves on the given listeners until ctx is done or a listener fails.
// adminLn may be nil to run without the admin listener.
func (s *Server) Serve(ctx context.Context, proxyLn, adminLn net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true

	s.proxyServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.proxyConfig.ReadHeaderTimeout,
		IdleTimeout:       s.proxyConfig.IdleTimeout,
		MaxHeaderBytes:    s.proxyConfig.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	if adminLn != nil {
		s.adminServer = &http.Server{
			Handler:           s.AdminHandler(),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		}
	}
	s.mu.Unlock()

	errChan := make(chan error, 2)

	go func() {
		s.logger.Info("starting proxy server", "address", proxyLn.Addr().String())
		if err := s.proxyServer.Serve(proxyLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("proxy server error: %w", err)
		}
	}()

	if adminLn != nil {
		go func() {
			s.logger.Info("starting admin server",
				"address", adminLn.Addr().String(),
				"metrics", s.metricsConfig.Enabled,
			)
			if err := s.adminServer.Serve(adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("admin server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown gracefully stops both listeners, waiting up to the configured
// shutdown timeout for in-flight requests, including open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.proxyConfig.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error
		if err := s.proxyServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("proxy server shutdown: %w", err))
		}
		if s.adminServer != nil {
			if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
			}
		}
		shutdownErr = errors.Join(errs...)
		if shutdownErr != nil {
			s.logger.Error("error during server shutdown", "error", shutdownErr)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// Handler returns the proxy handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.opts.Handler,
		middleware.RequestIDMiddleware,
		tracing.HTTPMiddleware,
		middleware.LoggingMiddleware(s.opts.Logger),
		middleware.MetricsMiddleware(s.opts.Metrics),
		middleware.RecoveryMiddleware(s.opts.Logger, s.opts.Metrics),
	)
}

// AdminHandler returns the admin mux: health, readiness, version and, when
// metrics are enabled, the Prometheus endpoint.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	health.Register(mux, s.opts.Checker, s.opts.Build.Version, s.opts.Build.Commit, s.opts.Build.BuildTime)

	if s.metricsConfig.Enabled && s.opts.Metrics != nil {
		path := s.metricsConfig.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.opts.Metrics.Handler())
	}

	return middleware.RecoveryMiddleware(s.opts.Logger, nil)(mux)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
