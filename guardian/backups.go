package guardian

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ListBackups returns the backup files present in the backup directory,
// oldest first. A missing directory yields no backups.
func (g *Guardian) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(g.profile.BackupPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsBackupFileName(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(g.profile.BackupPath, e.Name()))
	}
	// The timestamp layout sorts lexically.
	sort.Strings(out)
	return out, nil
}
