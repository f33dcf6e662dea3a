package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackuper struct {
	n   atomic.Int32
	err error
}

func (c *countingBackuper) Backup() (string, error) {
	n := c.n.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return filepath.Join("/backups", "apache2.conf."+string(rune('0'+n))), nil
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, Options{ConfigPath: "/etc/apache2/apache2.conf"})
	assert.Error(t, err)
	_, err = New(&countingBackuper{}, Options{})
	assert.Error(t, err)

	w, err := New(&countingBackuper{}, Options{ConfigPath: "/etc/apache2/apache2.conf"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.opts.Debounce)
}

func TestWatcher_DebouncedBackupOnWrite(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "apache2.conf")
	other := filepath.Join(dir, "ports.conf")
	require.NoError(t, os.WriteFile(conf, []byte("Listen 80\n"), 0o644))

	b := &countingBackuper{}
	results := make(chan error, 8)
	w, err := New(b, Options{
		ConfigPath: conf,
		Debounce:   100 * time.Millisecond,
		OnBackup:   func(_ string, err error) { results <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("Listen 443\n"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(conf, []byte("Listen 8080\n"), 0o644))
	}

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no backup after config change")
	}
	// The burst must collapse into one backup.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), b.n.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_BackupOnReplace(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "apache2.conf")
	tmp := conf + ".tmp"
	require.NoError(t, os.WriteFile(conf, []byte("Listen 80\n"), 0o644))

	b := &countingBackuper{}
	results := make(chan error, 8)
	w, err := New(b, Options{
		ConfigPath: conf,
		Debounce:   100 * time.Millisecond,
		OnBackup:   func(_ string, err error) { results <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(tmp, []byte("Listen 8443\n"), 0o644))
	require.NoError(t, os.Rename(tmp, conf))

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no backup after the config was replaced")
	}
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), b.n.Load())
}

func TestWatcher_ReportsBackupErrors(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "apache2.conf")
	require.NoError(t, os.WriteFile(conf, []byte("Listen 80\n"), 0o644))

	boom := errors.New("disk full")
	results := make(chan error, 8)
	w, err := New(&countingBackuper{err: boom}, Options{
		ConfigPath: conf,
		Debounce:   20 * time.Millisecond,
		OnBackup:   func(_ string, err error) { results <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(conf, []byte("Listen 81\n"), 0o644))

	select {
	case err := <-results:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("no backup attempt after config change")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(&countingBackuper{}, Options{ConfigPath: filepath.Join(t.TempDir(), "nope", "apache2.conf")})
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}
