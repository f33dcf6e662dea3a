// Package ledger keeps a record of configuration backups so they can be
// listed and verified later.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"time"
)

var ErrNotFound = errors.New("ledger entry not found")

// Entry describes one backup file.
type Entry struct {
	ID         string    `json:"id"`
	ConfigPath string    `json:"config_path"`
	BackupPath string    `json:"backup_path"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, e Entry) (string, error)
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// NewEntry hashes the file at backupPath and returns an Entry for it.
func NewEntry(configPath, backupPath string, createdAt time.Time) (Entry, error) {
	sum, size, err := hashFile(backupPath)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ConfigPath: configPath,
		BackupPath: backupPath,
		SizeBytes:  size,
		SHA256:     sum,
		CreatedAt:  createdAt,
	}, nil
}

type VerifyStatus string

const (
	VerifyOK       VerifyStatus = "ok"
	VerifyMismatch VerifyStatus = "mismatch"
	VerifyMissing  VerifyStatus = "missing"
)

type VerifyResult struct {
	Entry  Entry        `json:"entry"`
	Status VerifyStatus `json:"status"`
	Actual string       `json:"actual_sha256,omitempty"`
}

// Verify re-hashes the backup file of e. A missing or changed file is
// reported through the result; only unexpected I/O errors are returned.
func Verify(e Entry) (VerifyResult, error) {
	sum, _, err := hashFile(e.BackupPath)
	if errors.Is(err, os.ErrNotExist) {
		return VerifyResult{Entry: e, Status: VerifyMissing}, nil
	}
	if err != nil {
		return VerifyResult{}, err
	}
	res := VerifyResult{Entry: e, Status: VerifyOK, Actual: sum}
	if sum != e.SHA256 {
		res.Status = VerifyMismatch
	}
	return res, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
