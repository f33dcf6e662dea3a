package guardian

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound matches any *PathNotFoundError.
	ErrPathNotFound = errors.New("required path not found")
	// ErrBackupIO matches any *BackupError.
	ErrBackupIO = errors.New("backup i/o failed")
)

// PathNotFoundError reports a required path missing at construction.
// NotDir is set when the path exists but is not the directory required.
type PathNotFoundError struct {
	Role   string // "config", "log" or "backup"
	Path   string
	NotDir bool
}

func (e *PathNotFoundError) Error() string {
	if e.NotDir {
		return fmt.Sprintf("required %s path is not a directory: %s", e.Role, e.Path)
	}
	return fmt.Sprintf("required %s path does not exist: %s", e.Role, e.Path)
}

func (e *PathNotFoundError) Is(target error) bool { return target == ErrPathNotFound }

// BackupError reports a read or write failure while taking a backup.
type BackupError struct {
	Op   string // "read", "mkdir" or "write"
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

func (e *BackupError) Is(target error) bool { return target == ErrBackupIO }

// InvalidPolicyError reports an unknown backup directory policy.
type InvalidPolicyError struct {
	Value string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid backup dir policy %q (want lazy, strict or create)", e.Value)
}
