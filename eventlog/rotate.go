package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultRotateMaxBytes is used when OpenFile is given a non-positive limit.
const DefaultRotateMaxBytes = 100 * 1024 * 1024

// RotatingFile is an append-only writer that renames the file to
// "<path>.<UTC timestamp>" before a write would push it past MaxBytes.
// Each Write is flushed before returning so records survive a crash.
type RotatingFile struct {
	Path     string
	MaxBytes int64

	now func() time.Time

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64
}

// OpenFile opens (or creates) path for appending, creating parent directories.
func OpenFile(path string, maxBytes int64) (*RotatingFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing log file path")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultRotateMaxBytes
	}
	rf := &RotatingFile{Path: path, MaxBytes: maxBytes, now: time.Now}
	if err := rf.openLocked(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if err := rf.rotateIfNeededLocked(int64(len(p))); err != nil {
		return 0, err
	}
	if rf.w == nil {
		return 0, fmt.Errorf("log file %s is closed", rf.Path)
	}
	n, err := rf.w.Write(p)
	rf.size += int64(n)
	if err != nil {
		return n, err
	}
	return n, rf.w.Flush()
}

func (rf *RotatingFile) Close() error {
	if rf == nil {
		return nil
	}
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.w != nil {
		_ = rf.w.Flush()
	}
	if rf.f == nil {
		return nil
	}
	err := rf.f.Close()
	rf.f = nil
	rf.w = nil
	rf.size = 0
	return err
}

func (rf *RotatingFile) openLocked() error {
	if dir := filepath.Dir(rf.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(rf.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	rf.size = 0
	if st, err := f.Stat(); err == nil {
		rf.size = st.Size()
	}
	rf.f = f
	rf.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

func (rf *RotatingFile) rotateIfNeededLocked(add int64) error {
	// An empty file always takes the write, however large.
	if rf.MaxBytes <= 0 || rf.size == 0 || rf.size+add <= rf.MaxBytes {
		return nil
	}
	if rf.w != nil {
		_ = rf.w.Flush()
	}
	if rf.f != nil {
		_ = rf.f.Close()
	}
	rf.f = nil
	rf.w = nil

	rotated := fmt.Sprintf("%s.%s", rf.Path, rf.now().UTC().Format("20060102T150405.000000000Z"))
	// If the rename fails keep appending to the current file.
	_ = os.Rename(rf.Path, rotated)
	return rf.openLocked()
}
