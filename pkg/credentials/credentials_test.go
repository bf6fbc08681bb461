package credentials

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{}},
		{name: "whitespace only", in: "  ,  , ", want: []string{}},
		{name: "single", in: "k1", want: []string{"k1"}},
		{name: "trims and drops blanks", in: " k1 ,, k2,\tk3 ,", want: []string{"k1", "k2", "k3"}},
		{name: "keeps duplicates in order", in: "a,b,a", want: []string{"a", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in).Values()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSet_Accessors(t *testing.T) {
	s := New("a", " ", "b")
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.Empty() {
		t.Error("Empty() = true, want false")
	}
	if s.At(1) != "b" {
		t.Errorf("At(1) = %q, want b", s.At(1))
	}

	vals := s.Values()
	vals[0] = "mutated"
	if s.At(0) != "a" {
		t.Error("Values() must return a copy")
	}

	var nilSet *Set
	if !nilSet.Empty() || nilSet.Len() != 0 {
		t.Error("nil set should be empty")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("AIzaSyExampleKey1")
	if len(a) != 8 {
		t.Fatalf("fingerprint length = %d, want 8", len(a))
	}
	if a != Fingerprint("AIzaSyExampleKey1") {
		t.Error("fingerprint must be stable")
	}
	if a == Fingerprint("AIzaSyExampleKey2") {
		t.Error("different keys should have different fingerprints")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcdef", "**cdef"},
		{"AIzaSyABCDEFGHIJKLMNOP", "********MNOP"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
