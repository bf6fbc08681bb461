package proxy

import "strings"

const (
	legacyPrefix  = "/v1/"
	currentPrefix = "/v1beta/"

	chatCompletionsSuffix = "/chat/completions"
	generateContentSuffix = ":generateContent"
)

// RewritePath maps an inbound path onto the upstream's versioning scheme.
//
// A "/v1/" prefix becomes "/v1beta/", and only for such paths a trailing
// "/chat/completions" segment becomes ":generateContent". Every other path is
// returned unchanged. RewritePath is idempotent.
func RewritePath(p string) string {
	if !strings.HasPrefix(p, legacyPrefix) {
		return p
	}

	p = currentPrefix + strings.TrimPrefix(p, legacyPrefix)
	if strings.HasSuffix(p, chatCompletionsSuffix) {
		p = strings.TrimSuffix(p, chatCompletionsSuffix) + generateContentSuffix
	}
	return p
}
