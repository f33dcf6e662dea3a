package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "ledger.db"), SQLiteOptions{BusyTimeoutMs: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func writeBackup(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNewEntry(t *testing.T) {
	dir := t.TempDir()
	p := writeBackup(t, dir, "apache2.conf.20240309_070503", "Listen 80\n")
	ts := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)

	e, err := NewEntry("/etc/apache2/apache2.conf", p, ts)
	require.NoError(t, err)
	assert.Equal(t, int64(10), e.SizeBytes)
	// sha256("Listen 80\n")
	assert.Len(t, e.SHA256, 64)
	assert.Equal(t, ts, e.CreatedAt)

	_, err = NewEntry("/etc/apache2/apache2.conf", filepath.Join(dir, "missing"), ts)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSQLiteStore_RecordGetList(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	base := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := st.Record(ctx, Entry{
			ConfigPath: "/etc/apache2/apache2.conf",
			BackupPath: "/var/backups/apache2/apache2.conf." + base.Add(time.Duration(i)*time.Second).Format("20060102_150405"),
			SizeBytes:  int64(100 + i),
			SHA256:     strings.Repeat("a", 64),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "bkp_"), id)
		ids = append(ids, id)
	}

	got, err := st.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[1], got.ID)
	assert.Equal(t, int64(101), got.SizeBytes)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Second)))

	all, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := st.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.Equal(t, ids[2], two[0].ID)
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_, err := st.Get(ctx, "bkp_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Record(ctx, Entry{ConfigPath: "/etc/apache2/apache2.conf"})
	assert.Error(t, err)

	id, err := st.Record(ctx, Entry{ID: "fixed", BackupPath: "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
	_, err = st.Record(ctx, Entry{ID: "fixed", BackupPath: "/tmp/y"})
	assert.Error(t, err, "duplicate ids must be rejected")
}

func TestSQLiteStore_ReopensAfterClose(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	st, err := NewSQLiteStore(path, SQLiteOptions{})
	require.NoError(t, err)
	id, err := st.Record(ctx, Entry{BackupPath: "/tmp/a"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := NewSQLiteStore(path, SQLiteOptions{})
	require.NoError(t, err)
	defer st2.Close()
	got, err := st2.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a", got.BackupPath)
}

func TestResolveDSN(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ResolveDSN("~/.apacheguard/ledger.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".apacheguard", "ledger.db"), got)
	st, err := os.Stat(filepath.Join(home, ".apacheguard"))
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	for _, in := range []string{":memory:", "file:test.db?mode=memory"} {
		got, err := ResolveDSN(in)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
	_, err = ResolveDSN(" ")
	assert.Error(t, err)

	assert.Equal(t, "a.db?_pragma=busy_timeout%28500%29", withPragma("a.db", "busy_timeout(500)"))
	assert.Equal(t, "a.db?x=1&_pragma=foreign_keys%281%29", withPragma("a.db?x=1", "foreign_keys(1)"))
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	p := writeBackup(t, dir, "apache2.conf.20240309_070503", "ServerName example.com\n")
	e, err := NewEntry("/etc/apache2/apache2.conf", p, time.Now())
	require.NoError(t, err)

	res, err := Verify(e)
	require.NoError(t, err)
	assert.Equal(t, VerifyOK, res.Status)
	assert.Equal(t, e.SHA256, res.Actual)

	require.NoError(t, os.WriteFile(p, []byte("ServerName evil.example.com\n"), 0o644))
	res, err = Verify(e)
	require.NoError(t, err)
	assert.Equal(t, VerifyMismatch, res.Status)

	require.NoError(t, os.Remove(p))
	res, err = Verify(e)
	require.NoError(t, err)
	assert.Equal(t, VerifyMissing, res.Status)
}
