package strutil

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnterminatedQuote is returned by SplitQuoted when a double quote is not closed.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// TruncateUTF8 returns the longest prefix of s that is at most maxBytes
// bytes and does not split a multi-byte UTF-8 character.
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// Ellipsize truncates s to maxBytes and marks the cut with "...".
func Ellipsize(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 3 {
		return TruncateUTF8(s, maxBytes)
	}
	return TruncateUTF8(s, maxBytes-3) + "..."
}

// SplitQuoted splits an Apache-style argument list on whitespace. Double
// quoted runs form a single argument with the quotes removed; a backslash
// inside quotes escapes the next character.
func SplitQuoted(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		started bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && unicode.IsSpace(r):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, ErrUnterminatedQuote
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}
