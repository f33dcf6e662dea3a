package clifmt

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Styler colors CLI output. The zero value prints plain text.
type Styler struct {
	Color bool
}

// For returns a Styler that colors only when w is a terminal and the
// environment does not opt out (NO_COLOR, TERM=dumb).
func For(w io.Writer) Styler {
	return Styler{Color: colorAllowed(w)}
}

func (s Styler) Headerf(format string, args ...any) string {
	return s.paint("1;36", fmt.Sprintf(format, args...))
}

func (s Styler) Success(text string) string { return s.paint("32", text) }
func (s Styler) Warn(text string) string    { return s.paint("33", text) }
func (s Styler) Error(text string) string   { return s.paint("31", text) }
func (s Styler) Dim(text string) string     { return s.paint("2", text) }
func (s Styler) Key(text string) string     { return s.paint("1;33", text) }

// Badge renders the classification of a directive.
func (s Styler) Badge(allowed, sensitive bool) string {
	switch {
	case allowed && sensitive:
		return s.Warn("allowed,sensitive")
	case allowed:
		return s.Success("allowed")
	case sensitive:
		return s.Warn("sensitive")
	default:
		return s.Error("unknown")
	}
}

func (s Styler) paint(code, text string) string {
	if !s.Color {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func colorAllowed(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
