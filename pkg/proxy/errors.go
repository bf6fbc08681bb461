package proxy

import (
	"errors"
	"net/http"

	"mercator-hq/gemrelay/pkg/rotation"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
)

// Fixed response bodies. They never contain upstream content.
const (
	RootPageBody = "This is an API endpoint and cannot be accessed directly. " +
		"Configure this address as the API URL in your client."

	NoCredentialsBody = "Server configuration error: no API keys are configured. " +
		"Contact the administrator to check the environment."

	RotationBusyBody = "Server busy, please retry later (credential rotation could not commit)."

	UpstreamFailedBody = "Upstream request failed before a response was received."

	InternalErrorBody = "Internal server error."
)

// StatusClientClosedRequest is recorded when the client went away before the
// upstream answered. No response reaches the client.
const StatusClientClosedRequest = 499

const fixedContentType = "text/html; charset=utf-8"

// WriteFixed writes one of the fixed bodies.
func WriteFixed(w http.ResponseWriter, status int, body string) {
	h := w.Header()
	h.Set("Content-Type", fixedContentType)
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// coreError maps a selection failure to its status, fixed body and metric
// label.
func coreError(err error) (status int, body, kind string) {
	switch {
	case errors.Is(err, rotation.ErrNoCredentials):
		return http.StatusInternalServerError, NoCredentialsBody, metrics.CoreErrorNoCredentials
	case errors.Is(err, rotation.ErrRetriesExhausted):
		return http.StatusServiceUnavailable, RotationBusyBody, metrics.CoreErrorRetriesExhausted
	case errors.Is(err, rotation.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, RotationBusyBody, metrics.CoreErrorStoreUnavailable
	default:
		return http.StatusServiceUnavailable, RotationBusyBody, metrics.CoreErrorStoreUnavailable
	}
}
