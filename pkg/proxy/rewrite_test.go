package proxy

import "testing"

func TestRewritePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/v1/models/gemini-pro/chat/completions", "/v1beta/models/gemini-pro:generateContent"},
		{"/v1/models/gemini-pro", "/v1beta/models/gemini-pro"},
		{"/v1beta/models/x", "/v1beta/models/x"},
		{"/v1/chat/completions", "/v1beta:generateContent"},
		{"/v1beta/models/x/chat/completions", "/v1beta/models/x/chat/completions"},
		{"/v1/", "/v1beta/"},
		{"/v1", "/v1"},
		{"/v2/models", "/v2/models"},
		{"/other/v1/models", "/other/v1/models"},
		{"/v1/models/chat/completions/extra", "/v1beta/models/chat/completions/extra"},
		{"/", "/"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RewritePath(tt.in); got != tt.want {
				t.Errorf("RewritePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRewritePath_Idempotent(t *testing.T) {
	paths := []string{
		"/v1/models/gemini-pro/chat/completions",
		"/v1/models/gemini-pro",
		"/v1beta/models/x",
		"/v1/",
		"/upload/v1beta/files",
	}

	for _, p := range paths {
		once := RewritePath(p)
		if twice := RewritePath(once); twice != once {
			t.Errorf("RewritePath not idempotent for %q: %q then %q", p, once, twice)
		}
	}
}
