// Package eventlog writes structured events as JSON records through log/slog.
//
// An event carries a type and a free-form data map:
//
//	{"time":"...","level":"INFO","msg":"backup_created","event_type":"backup_created","data":{"path":"..."}}
//
// The owning process builds one Logger and passes it to whatever needs it;
// there is no package-level registry.
package eventlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

type Logger struct {
	l *slog.Logger
}

// New wraps l. A nil l discards every event.
func New(l *slog.Logger) *Logger {
	if l == nil {
		l = Discard()
	}
	return &Logger{l: l}
}

// NewJSON returns a Logger writing JSON lines to w at the given minimum level.
func NewJSON(w io.Writer, level slog.Leveler) *Logger {
	return New(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// Slog exposes the underlying logger so it can be injected into components
// that log diagnostics rather than events.
func (e *Logger) Slog() *slog.Logger {
	if e == nil || e.l == nil {
		return Discard()
	}
	return e.l
}

// LogEvent emits one record for eventType. Data keys are written in sorted
// order under a "data" group.
func (e *Logger) LogEvent(ctx context.Context, level slog.Level, eventType string, data map[string]any) {
	if e == nil || e.l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !e.l.Enabled(ctx, level) {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "event"
	}
	attrs := []slog.Attr{slog.String("event_type", eventType)}
	if len(data) > 0 {
		attrs = append(attrs, slog.Attr{Key: "data", Value: slog.GroupValue(dataAttrs(data)...)})
	}
	e.l.LogAttrs(ctx, level, eventType, attrs...)
}

// Info, Warn and Error are shorthands for LogEvent.
func (e *Logger) Info(ctx context.Context, eventType string, data map[string]any) {
	e.LogEvent(ctx, slog.LevelInfo, eventType, data)
}

func (e *Logger) Warn(ctx context.Context, eventType string, data map[string]any) {
	e.LogEvent(ctx, slog.LevelWarn, eventType, data)
}

func (e *Logger) Error(ctx context.Context, eventType string, data map[string]any) {
	e.LogEvent(ctx, slog.LevelError, eventType, data)
}

func dataAttrs(data map[string]any) []slog.Attr {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := data[k]
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		out = append(out, slog.Any(k, v))
	}
	return out
}

// ParseLevel maps a level name to a slog level. ERROR and WARNING (or WARN)
// are recognized in any case, DEBUG too; anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return slog.LevelError
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "DEBUG":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds a slog handler for format "json" or "text" (blank means text).
func NewHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (want text or json)", format)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
