package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/rotation"
	"mercator-hq/gemrelay/pkg/telemetry/logging"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
	"mercator-hq/gemrelay/pkg/telemetry/tracing"
)

// Selector hands out one credential per call. It is implemented by
// *rotation.Rotator.
type Selector interface {
	SelectNext(ctx context.Context) (rotation.Selection, error)
	Len() int
}

// Config configures a Forwarder.
type Config struct {
	// Upstream is the upstream base URL (scheme, host and optional base path).
	Upstream *url.URL

	// MaxAttempts bounds selection attempts per request. Default: 8
	MaxAttempts int

	// FlushInterval is passed to the reverse proxy. Negative flushes after
	// every write.
	FlushInterval time.Duration

	// Transport performs the upstream round trip. Default: NewTransport with
	// default upstream settings.
	Transport http.RoundTripper

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// Forwarder is the proxy handler. "/" serves a fixed page; every other path
// takes one credential from the selector and is relayed upstream.
type Forwarder struct {
	selector    Selector
	upstream    *url.URL
	maxAttempts int
	proxy       *httputil.ReverseProxy
	logger      *slog.Logger
	metrics     *metrics.Collector
	tracer      *tracing.Tracer
}

type selectionKey struct{}

// forwardedHeaders are removed by httputil.ReverseProxy before Rewrite runs.
// Inbound values are restored so the upstream sees the client's headers.
var forwardedHeaders = []string{
	"Forwarded",
	"X-Forwarded-For",
	"X-Forwarded-Host",
	"X-Forwarded-Proto",
}

// NewForwarder creates a Forwarder over selector.
func NewForwarder(selector Selector, cfg Config) (*Forwarder, error) {
	if selector == nil {
		return nil, errors.New("selector is nil")
	}
	if cfg.Upstream == nil {
		return nil, errors.New("upstream URL is nil")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = config.DefaultRotationMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transport == nil {
		cfg.Transport = NewTransport(nil)
	}

	f := &Forwarder{
		selector:    selector,
		upstream:    cfg.Upstream,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger.With("component", "proxy"),
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
	}

	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		Transport:      cfg.Transport,
		FlushInterval:  cfg.FlushInterval,
		ErrorHandler:   f.handleUpstreamError,
		ModifyResponse: f.observeResponse,
		ErrorLog:       slog.NewLogLogger(f.logger.Handler(), slog.LevelWarn),
	}

	return f, nil
}

// NewTransport builds the upstream transport. Response bodies are never
// time-bounded and never decompressed.
func NewTransport(cfg *config.UpstreamConfig) *http.Transport {
	if cfg == nil {
		cfg = &config.UpstreamConfig{
			DialTimeout:         config.DefaultUpstreamDialTimeout,
			TLSHandshakeTimeout: config.DefaultUpstreamTLSHandshakeTimeout,
			MaxIdleConnsPerHost: config.DefaultUpstreamMaxIdleConnsPerHost,
		}
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
}

// ServeHTTP implements http.Handler.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		WriteFixed(w, http.StatusOK, RootPageBody)
		return
	}

	ctx, span := f.tracer.Start(r.Context(), "proxy.forward")
	defer span.End()
	tracing.SetRequestAttributes(span, r.Method, RewritePath(r.URL.Path), logging.GetRequestID(ctx))

	sel, attempts, err := f.selectCredential(ctx)
	if err != nil {
		status, body, kind := coreError(err)
		f.metrics.RecordCoreError(kind)
		tracing.SetError(span, err)
		tracing.SetStatusCode(span, status)
		f.logCoreError(ctx, err, status, attempts)
		WriteFixed(w, status, body)
		return
	}

	tracing.SetSelectionAttributes(span, sel.Index, sel.Version, attempts)

	ctx = logging.WithCredentialIndex(ctx, sel.Index)
	ctx = context.WithValue(ctx, selectionKey{}, sel)
	f.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// selectCredential runs the conflict retry loop. It returns the number of
// attempts made alongside the selection or the terminal error.
func (f *Forwarder) selectCredential(ctx context.Context) (rotation.Selection, int, error) {
	if f.selector.Len() == 0 {
		return rotation.Selection{}, 0, rotation.ErrNoCredentials
	}

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		sel, err := f.selector.SelectNext(ctx)
		switch {
		case err == nil:
			f.metrics.RecordAttempts(attempt, false)
			return sel, attempt, nil
		case errors.Is(err, rotation.ErrConflict):
			continue
		default:
			return rotation.Selection{}, attempt, err
		}
	}

	f.metrics.RecordAttempts(f.maxAttempts, true)
	return rotation.Selection{}, f.maxAttempts, fmt.Errorf("%w after %d attempts", rotation.ErrRetriesExhausted, f.maxAttempts)
}

func (f *Forwarder) logCoreError(ctx context.Context, err error, status, attempts int) {
	switch {
	case errors.Is(err, rotation.ErrNoCredentials):
		f.logger.ErrorContext(ctx, "request rejected, no API keys configured", "status", status)
	case ctx.Err() != nil:
		f.logger.DebugContext(ctx, "client went away during credential selection", "error", err)
	case errors.Is(err, rotation.ErrRetriesExhausted):
		f.logger.ErrorContext(ctx, "credential rotation retries exhausted",
			"attempts", attempts,
			"status", status,
		)
	default:
		f.logger.ErrorContext(ctx, "credential rotation store failed",
			"error", err,
			"attempts", attempts,
			"status", status,
		)
	}
}

// rewrite builds the outbound request. It runs after the reverse proxy has
// cloned the inbound request and removed hop-by-hop headers.
func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	sel, _ := pr.In.Context().Value(selectionKey{}).(rotation.Selection)

	pr.Out.URL = OutboundURL(f.upstream, pr.In.URL, sel.Credential)
	pr.Out.Host = f.upstream.Host
	pr.Out.Header.Del("Authorization")

	for _, h := range forwardedHeaders {
		if v, ok := pr.In.Header[h]; ok {
			pr.Out.Header[h] = v
		}
	}
}

func (f *Forwarder) observeResponse(resp *http.Response) error {
	f.logger.DebugContext(resp.Request.Context(), "upstream responded",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)
	return nil
}

// handleUpstreamError runs when the round trip failed without a response.
func (f *Forwarder) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		f.metrics.RecordUpstreamError("canceled")
		f.logger.DebugContext(ctx, "client canceled request before upstream responded", "error", err)
		w.WriteHeader(StatusClientClosedRequest)
		return
	}

	reason := "transport"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = "timeout"
	}

	f.metrics.RecordUpstreamError(reason)
	f.metrics.RecordCoreError(metrics.CoreErrorUpstream)
	f.logger.ErrorContext(ctx, "upstream request failed",
		"reason", reason,
		"error", err,
	)
	WriteFixed(w, http.StatusBadGateway, UpstreamFailedBody)
}
