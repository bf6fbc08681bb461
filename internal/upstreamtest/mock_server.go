// Package upstreamtest provides a mock Gemini upstream for tests.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// CredentialParam is the query parameter the proxy injects.
const CredentialParam = "key"

// MockServer records every request it receives and answers from a table of
// canned responses keyed by path.
type MockServer struct {
	server    *httptest.Server
	responses map[string]MockResponse
	requests  []Request
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode   int
	Body         any
	Delay        time.Duration
	Headers      map[string]string
	StreamChunks []string // sent as server-sent events, one flush per chunk
}

// Request is what the upstream saw.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Key      string
	Header   http.Header
	Body     string
}

// NewMockServer creates and starts a mock upstream.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a specific path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response
}

// Requests returns a copy of the recorded requests in arrival order.
func (ms *MockServer) Requests() []Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]Request(nil), ms.requests...)
}

// Keys returns the credential of every recorded request in arrival order.
func (ms *MockServer) Keys() []string {
	reqs := ms.Requests()
	keys := make([]string, len(reqs))
	for i, r := range reqs {
		keys[i] = r.Key
	}
	return keys
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Key:      r.URL.Query().Get(CredentialParam),
		Header:   r.Header.Clone(),
		Body:     string(body),
	})
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		response = MockResponse{
			StatusCode: http.StatusOK,
			Body:       GenerateContentResponse("ok"),
		}
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamChunks) > 0 {
		ms.handleStream(w, response)
		return
	}

	if _, isJSON := response.Body.(map[string]any); isJSON && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, v)
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// handleStream writes server-sent events the way streamGenerateContent with
// alt=sse does.
func (ms *MockServer) handleStream(w http.ResponseWriter, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\r\n\r\n", chunk)
		flusher.Flush()
		time.Sleep(10 * time.Millisecond)
	}
}

// GenerateContentResponse builds a minimal generateContent response body.
func GenerateContentResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
				"index":        0,
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     4,
			"candidatesTokenCount": 1,
			"totalTokenCount":      5,
		},
	}
}

// StreamChunk builds one streamGenerateContent SSE payload.
func StreamChunk(text string) string {
	b, _ := json.Marshal(GenerateContentResponse(text))
	return string(b)
}

// ErrorResponse builds a Google API error body such as the one returned for
// an exhausted key (429 RESOURCE_EXHAUSTED).
func ErrorResponse(code int, status, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"status":  strings.ToUpper(status),
		},
	}
}
