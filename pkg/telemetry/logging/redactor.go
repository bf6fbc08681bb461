package logging

import (
	"regexp"
	"sort"
	"strings"

	"mercator-hq/gemrelay/pkg/credentials"
)

// Redactor masks credentials in log messages and attribute values.
//
// Configured credentials are replaced by a fingerprint so that log lines can
// still be correlated with a rotation slot. Anything else shaped like an API
// key is replaced with a fixed marker.
type Redactor struct {
	patterns []*redactPattern
	secrets  *strings.Replacer
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternGoogleAPIKey = "google_api_key"
	PatternKeyParam     = "key_param"
	PatternBearerToken  = "bearer_token"
	PatternPassword     = "password"
)

// Redacted is the marker written in place of an unknown secret.
const Redacted = "[REDACTED]"

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternGoogleAPIKey, `AIza[0-9A-Za-z_\-]{35}`, Redacted},
	{PatternKeyParam, `([?&]key=)[^&\s"]+`, "${1}" + Redacted},
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer " + Redacted},
	{PatternPassword, `(?i)(password|passwd|pwd)([:=])\s*[^\s@&]+`, "${1}${2}" + Redacted},
}

// sensitiveKeys are attribute names whose values are never logged as-is.
var sensitiveKeys = []string{
	"api_key", "apikey", "api_keys",
	"authorization", "password", "secret", "token", "dsn",
}

// NewRedactor creates a redactor for the given credentials. Blank entries are
// ignored.
func NewRedactor(secrets []string) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	var pairs []string
	uniq := make(map[string]struct{})
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := uniq[s]; ok {
			continue
		}
		uniq[s] = struct{}{}
		pairs = append(pairs, s)
	}
	// Longest first so a credential that contains another is replaced whole.
	sort.Slice(pairs, func(i, j int) bool { return len(pairs[i]) > len(pairs[j]) })

	if len(pairs) > 0 {
		oldnew := make([]string, 0, 2*len(pairs))
		for _, s := range pairs {
			oldnew = append(oldnew, s, "[credential:"+credentials.Fingerprint(s)+"]")
		}
		r.secrets = strings.NewReplacer(oldnew...)
	}

	return r
}

// RedactString redacts credentials from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	if r.secrets != nil {
		value = r.secrets.Replace(value)
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// IsSensitiveKey reports whether an attribute name indicates secret data.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if lower == "key" {
		return true
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
