package guardian

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/quailyquaily/apacheguard/internal/strutil"
)

// RedactedArg replaces the arguments of sensitive directives in rendered output.
const RedactedArg = "[redacted]"

// Directive is one directive or section opener found in a config file.
type Directive struct {
	Name    string   `json:"name"`
	Args    []string `json:"args,omitempty"`
	Line    int      `json:"line"`
	Section bool     `json:"section,omitempty"`
	Depth   int      `json:"depth"`
}

// ParseError reports malformed Apache syntax.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseDirectives reads Apache configuration syntax and returns every
// directive and section opener in file order. Section closers are consumed
// and checked against their openers; Include targets are not followed.
func ParseDirectives(r io.Reader) ([]Directive, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		out     []Directive
		stack   []string
		pending strings.Builder
		start   int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if pending.Len() == 0 {
			start = lineNo
		}
		trimmed := strings.TrimRight(raw, " \t\r")
		if strings.HasSuffix(trimmed, "\\") {
			pending.WriteString(strings.TrimSuffix(trimmed, "\\"))
			continue
		}
		pending.WriteString(trimmed)
		logical := strings.TrimSpace(pending.String())
		pending.Reset()

		if logical == "" || strings.HasPrefix(logical, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(logical, "</"):
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(logical, "</"), ">"))
			if len(stack) == 0 {
				return nil, &ParseError{Line: start, Msg: fmt.Sprintf("unexpected </%s>", name)}
			}
			open := stack[len(stack)-1]
			if !strings.EqualFold(open, name) {
				return nil, &ParseError{Line: start, Msg: fmt.Sprintf("</%s> closes <%s>", name, open)}
			}
			stack = stack[:len(stack)-1]

		case strings.HasPrefix(logical, "<"):
			if !strings.HasSuffix(logical, ">") {
				return nil, &ParseError{Line: start, Msg: "section opener missing '>'"}
			}
			body := strings.TrimSpace(logical[1 : len(logical)-1])
			name, rest := splitName(body)
			if name == "" {
				return nil, &ParseError{Line: start, Msg: "empty section name"}
			}
			args, err := strutil.SplitQuoted(rest)
			if err != nil {
				return nil, &ParseError{Line: start, Msg: err.Error()}
			}
			out = append(out, Directive{Name: name, Args: args, Line: start, Section: true, Depth: len(stack)})
			stack = append(stack, name)

		default:
			name, rest := splitName(logical)
			args, err := strutil.SplitQuoted(rest)
			if err != nil {
				return nil, &ParseError{Line: start, Msg: err.Error()}
			}
			out = append(out, Directive{Name: name, Args: args, Line: start, Depth: len(stack)})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending.Len() > 0 {
		return nil, &ParseError{Line: start, Msg: "line continuation at end of file"}
	}
	if len(stack) > 0 {
		return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unclosed <%s>", stack[len(stack)-1])}
	}
	return out, nil
}

func splitName(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// Finding is a directive occurrence together with its classification.
type Finding struct {
	Directive
	Classification
}

// DisplayArgs returns the arguments for output, hiding those of sensitive
// directives unless reveal is set.
func (f Finding) DisplayArgs(reveal bool) []string {
	if !f.Sensitive || reveal || len(f.Args) == 0 {
		return f.Args
	}
	out := make([]string, len(f.Args))
	for i := range out {
		out[i] = RedactedArg
	}
	return out
}

// Report summarizes a scan of the config file.
type Report struct {
	ConfigPath string    `json:"config_path"`
	Findings   []Finding `json:"findings"`
	Allowed    int       `json:"allowed"`
	Sensitive  int       `json:"sensitive"`
	Unknown    int       `json:"unknown"`
}

// UnknownNames returns the distinct directive names in neither set, in
// first-seen order.
func (r Report) UnknownNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range r.Findings {
		if f.Known() || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f.Name)
	}
	return out
}

// Redacted returns a copy of the report with sensitive arguments hidden.
func (r Report) Redacted() Report {
	out := r
	out.Findings = make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		f.Args = f.DisplayArgs(false)
		out.Findings[i] = f
	}
	return out
}

// Scan reads the config file and classifies every directive in it.
func (g *Guardian) Scan() (Report, error) {
	f, err := os.Open(g.profile.ConfigPath)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	ds, err := ParseDirectives(f)
	if err != nil {
		return Report{}, fmt.Errorf("parse %s: %w", g.profile.ConfigPath, err)
	}
	rep := Report{ConfigPath: g.profile.ConfigPath, Findings: make([]Finding, 0, len(ds))}
	for _, d := range ds {
		c := g.Classify(d.Name)
		rep.Findings = append(rep.Findings, Finding{Directive: d, Classification: c})
		if c.Allowed {
			rep.Allowed++
		}
		if c.Sensitive {
			rep.Sensitive++
		}
		if !c.Known() {
			rep.Unknown++
		}
	}
	g.log.Debug("scan_completed",
		"config_path", rep.ConfigPath,
		"directives", len(rep.Findings),
		"unknown", rep.Unknown,
	)
	return rep, nil
}
