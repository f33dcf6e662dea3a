// Package guardian validates, reads and backs up an Apache configuration file
// and classifies directive names against allow and sensitive lists.
package guardian

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/quailyquaily/apacheguard/internal/pathutil"
)

const (
	// BackupPrefix is the file name prefix of every backup.
	BackupPrefix = "apache2.conf."
	// TimestampLayout formats backup timestamps (YYYYMMDD_HHMMSS, local time).
	TimestampLayout = "20060102_150405"
)

var backupNameRe = regexp.MustCompile(`^apache2\.conf\.\d{8}_\d{6}$`)

var errBlankBackupPath = errors.New("backup path is not set")

// Guardian owns a Profile for its lifetime. It holds no other state, so its
// methods are safe to call from multiple goroutines; concurrent backups in
// the same second still overwrite each other.
type Guardian struct {
	profile Profile
	policy  BackupDirPolicy
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Guardian)

// WithBackupDirPolicy sets how a missing backup directory is handled.
func WithBackupDirPolicy(p BackupDirPolicy) Option {
	return func(g *Guardian) {
		if p != "" {
			g.policy = p
		}
	}
}

// WithLogger injects the logger used for diagnostics. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guardian) { g.log = l }
}

// WithClock replaces time.Now for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Guardian) {
		if now != nil {
			g.now = now
		}
	}
}

// New validates that the config file and log directory exist and returns a
// Guardian for p. Missing paths yield a *PathNotFoundError.
func New(p Profile, opts ...Option) (*Guardian, error) {
	g := &Guardian{
		profile: p,
		policy:  BackupDirLazy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pol, err := ParseBackupDirPolicy(string(g.policy))
	if err != nil {
		return nil, err
	}
	g.policy = pol

	required := []struct{ role, path string }{
		{"config", p.ConfigPath},
		{"log", p.LogPath},
	}
	if g.policy == BackupDirStrict {
		required = append(required, struct{ role, path string }{"backup", p.BackupPath})
	}
	for _, r := range required {
		ok, err := pathutil.Exists(r.path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &PathNotFoundError{Role: r.role, Path: r.path}
		}
	}
	if g.policy == BackupDirStrict && !pathutil.IsDir(p.BackupPath) {
		return nil, &PathNotFoundError{Role: "backup", Path: p.BackupPath, NotDir: true}
	}

	g.log.Debug("guardian_ready",
		"config_path", p.ConfigPath,
		"log_path", p.LogPath,
		"backup_path", p.BackupPath,
		"backup_dir_policy", string(g.policy),
		"allowed", p.Allowed.Len(),
		"sensitive", p.Sensitive.Len(),
	)
	return g, nil
}

// Profile returns the profile the Guardian was built with.
func (g *Guardian) Profile() Profile { return g.profile }

// BackupDirPolicy returns the policy in effect.
func (g *Guardian) BackupDirPolicy() BackupDirPolicy { return g.policy }

// Backup copies the config file byte for byte to
// {BackupPath}/apache2.conf.{YYYYMMDD_HHMMSS} and returns the new path.
// Read and write failures are returned as *BackupError. A blank BackupPath
// is a write failure; it never resolves to the working directory.
func (g *Guardian) Backup() (string, error) {
	src := g.profile.ConfigPath
	if strings.TrimSpace(g.profile.BackupPath) == "" {
		g.log.Warn("backup_write_failed", "path", "", "error", errBlankBackupPath.Error())
		return "", &BackupError{Op: "write", Path: "", Err: errBlankBackupPath}
	}
	dst := filepath.Join(g.profile.BackupPath, BackupFileName(g.now()))

	data, mode, err := readSource(src)
	if err != nil {
		g.log.Warn("backup_read_failed", "path", src, "error", err.Error())
		return "", &BackupError{Op: "read", Path: src, Err: err}
	}

	if g.policy == BackupDirCreate {
		if err := os.MkdirAll(g.profile.BackupPath, 0o755); err != nil {
			g.log.Warn("backup_mkdir_failed", "path", g.profile.BackupPath, "error", err.Error())
			return "", &BackupError{Op: "mkdir", Path: g.profile.BackupPath, Err: err}
		}
	}

	if err := renameio.WriteFile(dst, data, mode); err != nil {
		g.log.Warn("backup_write_failed", "path", dst, "error", err.Error())
		return "", &BackupError{Op: "write", Path: dst, Err: err}
	}

	g.log.Info("backup_created", "source", src, "path", dst, "bytes", len(data))
	return dst, nil
}

func readSource(path string) ([]byte, os.FileMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	mode := os.FileMode(0o644)
	if st, err := f.Stat(); err == nil {
		mode = st.Mode().Perm()
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}
	return data, mode, nil
}

// IsAllowedDirective reports whether name is in the allowed set.
func (g *Guardian) IsAllowedDirective(name string) bool {
	return g.profile.Allowed.Has(name)
}

// IsSensitiveDirective reports whether name is in the sensitive set.
func (g *Guardian) IsSensitiveDirective(name string) bool {
	return g.profile.Sensitive.Has(name)
}

// Classification holds both membership bits for a directive name.
type Classification struct {
	Allowed   bool `json:"allowed"`
	Sensitive bool `json:"sensitive"`
}

// Known reports whether the directive appears in either set.
func (c Classification) Known() bool { return c.Allowed || c.Sensitive }

// Classify returns both membership bits for name.
func (g *Guardian) Classify(name string) Classification {
	return Classification{
		Allowed:   g.IsAllowedDirective(name),
		Sensitive: g.IsSensitiveDirective(name),
	}
}

// BackupFileName returns the backup file name for a timestamp, in t's location.
func BackupFileName(t time.Time) string {
	return BackupPrefix + t.Format(TimestampLayout)
}

// IsBackupFileName reports whether name looks like a file written by Backup.
func IsBackupFileName(name string) bool {
	return backupNameRe.MatchString(name)
}

// BackupTime parses the timestamp out of a backup file name, in loc.
func BackupTime(name string, loc *time.Location) (time.Time, bool) {
	if !IsBackupFileName(name) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimestampLayout, name[len(BackupPrefix):], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
