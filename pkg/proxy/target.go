package proxy

import (
	"fmt"
	"net/url"
	"strings"
)

// CredentialParam is the query parameter carrying the credential upstream.
const CredentialParam = "key"

// ParseUpstream validates and parses the upstream base URL.
func ParseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream URL %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u, nil
}

// OutboundURL builds the upstream URL for an inbound request URL: the
// upstream scheme and host, the upstream base path followed by the rewritten
// inbound path, and the inbound query with the credential parameter set.
func OutboundURL(upstream, in *url.URL, credential string) *url.URL {
	out := &url.URL{
		Scheme:   upstream.Scheme,
		Host:     upstream.Host,
		Path:     upstream.Path + RewritePath(in.Path),
		RawQuery: SetQueryParam(in.RawQuery, CredentialParam, credential),
	}
	if in.RawPath != "" {
		out.RawPath = upstream.EscapedPath() + RewritePath(in.RawPath)
	}
	return out
}

// SetQueryParam sets name=value in a raw query string. The first existing
// occurrence of name is replaced in place and later ones are dropped; if name
// is absent the pair is appended. The order and encoding of other pairs are
// left untouched.
func SetQueryParam(rawQuery, name, value string) string {
	pair := url.QueryEscape(name) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}

	parts := strings.Split(rawQuery, "&")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, part := range parts {
		k, _, _ := strings.Cut(part, "=")
		if unescaped, err := url.QueryUnescape(k); err == nil && unescaped == name {
			if !replaced {
				out = append(out, pair)
				replaced = true
			}
			continue
		}
		out = append(out, part)
	}
	if !replaced {
		out = append(out, pair)
	}
	return strings.Join(out, "&")
}
