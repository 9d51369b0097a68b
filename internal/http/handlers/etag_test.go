package handlers

import "testing"

type versioned string

func (v versioned) Version() string { return string(v) }

func TestETagFor(t *testing.T) {
	tag, err := etagFor(versioned("reg-1-abc"))
	if err != nil || tag != `W/"reg-1-abc"` {
		t.Fatalf("got %q %v", tag, err)
	}

	a, _ := etagFor(map[string]int{"n": 1})
	b, _ := etagFor(map[string]int{"n": 2})
	if a == b || a == "" {
		t.Fatalf("hashed tags should differ: %q %q", a, b)
	}
}

func TestIfNoneMatchMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"*", true},
		{`W/"v1"`, true},
		{`"v1"`, true},
		{`"v0", W/"v1"`, true},
		{`"v2"`, false},
	}

	for _, tt := range tests {
		if got := ifNoneMatchMatches(tt.header, `W/"v1"`); got != tt.want {
			t.Errorf("header %q: got %v, want %v", tt.header, got, tt.want)
		}
	}
}
