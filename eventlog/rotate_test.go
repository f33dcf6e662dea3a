package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "events.jsonl")

	rf, err := OpenFile(path, 32)
	require.NoError(t, err)
	rf.now = func() time.Time { return time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC) }

	line := []byte(strings.Repeat("a", 19) + "\n") // 20 bytes
	_, err = rf.Write(line)
	require.NoError(t, err)
	_, err = rf.Write(line) // 40 > 32: rotate first
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, cur)

	matches, err := filepath.Glob(path + ".20240309T070503*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	old, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, line, old)
}

func TestRotatingFile_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	rf, err := OpenFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultRotateMaxBytes), rf.MaxBytes)
	_, err = rf.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	require.NoError(t, rf.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(got))

	_, err = rf.Write([]byte("late\n"))
	assert.Error(t, err, "writes after close must fail")
}

func TestOpenFile_RequiresPath(t *testing.T) {
	_, err := OpenFile("  ", 10)
	assert.Error(t, err)
}
