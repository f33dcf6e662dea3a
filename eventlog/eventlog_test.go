package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogEvent_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	lg := NewJSON(&buf, slog.LevelInfo)

	lg.LogEvent(context.Background(), slog.LevelWarn, "backup_created", map[string]any{
		"path":  "/var/backups/apache2/apache2.conf.20240309_070503",
		"bytes": 42,
		"error": errors.New("disk nearly full"),
	})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "backup_created", rec["msg"])
	assert.Equal(t, "backup_created", rec["event_type"])
	assert.Contains(t, rec, "time")

	data, ok := rec["data"].(map[string]any)
	require.True(t, ok, "data should be an object: %#v", rec["data"])
	assert.Equal(t, "/var/backups/apache2/apache2.conf.20240309_070503", data["path"])
	assert.EqualValues(t, 42, data["bytes"])
	assert.Equal(t, "disk nearly full", data["error"])
}

func TestLogEvent_LevelFilterAndDefaults(t *testing.T) {
	var buf bytes.Buffer
	lg := NewJSON(&buf, slog.LevelWarn)

	lg.Info(context.Background(), "directive_checked", map[string]any{"name": "Listen"})
	assert.Zero(t, buf.Len(), "info must be filtered at warn level")

	lg.Error(context.TODO(), "  ", nil)
	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "event", recs[0]["event_type"])
	assert.NotContains(t, recs[0], "data")
}

func TestLogger_NilSafe(t *testing.T) {
	var lg *Logger
	lg.Warn(context.Background(), "x", nil)
	assert.NotNil(t, lg.Slog())
	assert.NotNil(t, New(nil).Slog())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"ERROR":   slog.LevelError,
		"error":   slog.LevelError,
		"WARNING": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"", "text", "JSON"} {
		h, err := NewHandler(&buf, format, slog.LevelInfo)
		require.NoError(t, err, format)
		require.NotNil(t, h)
	}
	_, err := NewHandler(&buf, "xml", slog.LevelInfo)
	assert.Error(t, err)
}
