package clifmt

import (
	"bytes"
	"testing"
)

func TestStyler_Plain(t *testing.T) {
	s := For(&bytes.Buffer{})
	if s.Color {
		t.Fatal("a buffer is never a terminal")
	}
	if got := s.Headerf("backup %d", 1); got != "backup 1" {
		t.Fatalf("Headerf = %q", got)
	}
}

func TestStyler_Badge(t *testing.T) {
	s := Styler{}
	cases := []struct {
		allowed, sensitive bool
		want               string
	}{
		{true, false, "allowed"},
		{false, true, "sensitive"},
		{true, true, "allowed,sensitive"},
		{false, false, "unknown"},
	}
	for _, tc := range cases {
		if got := s.Badge(tc.allowed, tc.sensitive); got != tc.want {
			t.Fatalf("Badge(%v,%v) = %q, want %q", tc.allowed, tc.sensitive, got, tc.want)
		}
	}
}

func TestStyler_Color(t *testing.T) {
	s := Styler{Color: true}
	if got := s.Success("ok"); got != "\x1b[32mok\x1b[0m" {
		t.Fatalf("Success = %q", got)
	}
}
