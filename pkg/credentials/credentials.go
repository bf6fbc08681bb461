// Package credentials holds the ordered set of upstream API keys that the
// rotator hands out.
//
// A Set is built once at startup and never modified. Its order defines the
// rotation slot mapping: slot i always serves Set.At(i).
package credentials

import (
	"encoding/hex"
	"hash/fnv"
	"strings"
)

// Set is an ordered, immutable sequence of opaque credential strings.
type Set struct {
	keys []string
}

// Parse splits a comma-separated credential list. Entries are trimmed and
// blank entries are discarded. An empty result is valid.
func Parse(list string) *Set {
	parts := strings.Split(list, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return &Set{keys: keys}
}

// New creates a Set from already split keys. Blank keys are dropped.
func New(keys ...string) *Set {
	return Parse(strings.Join(keys, ","))
}

// Len returns the number of credentials.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Empty reports whether the set has no credentials.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// At returns the credential at slot i. It panics if i is out of range.
func (s *Set) At(i int) string {
	return s.keys[i]
}

// Values returns a copy of the credentials in slot order.
func (s *Set) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Fingerprint returns a short stable identifier for a credential, suitable for
// logs and metrics. It is not a security hash.
func Fingerprint(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// Mask hides all but the last four characters of a credential.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", min(len(key)-4, 8)) + key[len(key)-4:]
}
