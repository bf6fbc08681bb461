package logging

import (
	"strings"
	"testing"

	"mercator-hq/gemrelay/pkg/credentials"
)

func TestRedactor_RedactString(t *testing.T) {
	googleKey := "AIza" + strings.Repeat("x", 35)
	configured := "my-configured-secret-1"

	redactor := NewRedactor([]string{configured, " ", ""})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "plain text",
			input: "credential selected",
			want:  "credential selected",
		},
		{
			name:  "configured credential",
			input: "using " + configured + " now",
			want:  "using [credential:" + credentials.Fingerprint(configured) + "] now",
		},
		{
			name:  "google api key",
			input: "key is " + googleKey,
			want:  "key is " + Redacted,
		},
		{
			name:  "key query parameter",
			input: "GET /v1beta/models?alt=sse&key=abc123&x=1",
			want:  "GET /v1beta/models?alt=sse&key=" + Redacted + "&x=1",
		},
		{
			name:  "key as first parameter",
			input: "https://host/v1beta/models?key=abc123",
			want:  "https://host/v1beta/models?key=" + Redacted,
		},
		{
			name:  "other parameter ending in key",
			input: "/path?monkey=banana",
			want:  "/path?monkey=banana",
		},
		{
			name:  "bearer token",
			input: "Authorization: Bearer abc.def.ghi",
			want:  "Authorization: Bearer " + Redacted,
		},
		{
			name:  "password",
			input: "password=hunter2 user=bob",
			want:  "password=" + Redacted + " user=bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_LongestSecretFirst(t *testing.T) {
	short := "abcdef"
	long := "abcdef-extended"
	redactor := NewRedactor([]string{short, long})

	got := redactor.RedactString("value=" + long)
	want := "value=[credential:" + credentials.Fingerprint(long) + "]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"key", true},
		{"KEY", true},
		{"api_key", true},
		{"Authorization", true},
		{"postgres_dsn", true},
		{"session_token", true},
		{"index", false},
		{"fingerprint", false},
		{"credential_index", false},
		{"monkey", false},
		{"backend", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
