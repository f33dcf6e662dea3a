// Package watch takes a backup whenever the watched config file changes.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Backuper is the part of *guardian.Guardian the watcher needs.
type Backuper interface {
	Backup() (string, error)
}

type Options struct {
	// ConfigPath is the file to watch.
	ConfigPath string
	// Debounce collapses bursts of events (editors write in several steps).
	Debounce time.Duration
	// OnBackup is called after every attempt, from the watcher goroutine.
	OnBackup func(path string, err error)
	Logger   *slog.Logger
}

type Watcher struct {
	b    Backuper
	opts Options
	log  *slog.Logger
}

func New(b Backuper, opts Options) (*Watcher, error) {
	if b == nil {
		return nil, fmt.Errorf("nil backuper")
	}
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("missing config path")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{b: b, opts: opts, log: log}, nil
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file itself so that editors which replace the file are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.opts.ConfigPath)
	dir := filepath.Dir(target)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watch_started", "path", target, "debounce", w.opts.Debounce.String())

	var (
		timer *time.Timer
		fired = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch_stopped", "path", target)
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.log.Debug("watch_config_changed", "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.opts.Debounce, func() {
				select {
				case fired <- struct{}{}:
				default:
				}
			})

		case <-fired:
			w.backup()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch_error", "error", err.Error())
		}
	}
}

// backup runs on the Run goroutine, so backups never overlap.
func (w *Watcher) backup() {
	path, err := w.b.Backup()
	if err != nil {
		w.log.Warn("watch_backup_failed", "error", err.Error())
	}
	if w.opts.OnBackup != nil {
		w.opts.OnBackup(path, err)
	}
}
