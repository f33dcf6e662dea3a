package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/quailyquaily/apacheguard/internal/pathutil"
)

type SQLiteStore struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

type SQLiteOptions struct {
	BusyTimeoutMs int
}

// ResolveDSN turns a file path (or a file: URI) into a DSN for the sqlite
// driver, expanding "~" and creating the parent directory. ":memory:" is
// passed through.
func ResolveDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("missing sqlite dsn")
	}
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	path := pathutil.ExpandHomePath(dsn)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
	}
	return path, nil
}

func NewSQLiteStore(dsn string, opts SQLiteOptions) (*SQLiteStore, error) {
	resolved, err := ResolveDSN(dsn)
	if err != nil {
		return nil, err
	}
	if opts.BusyTimeoutMs > 0 && resolved != ":memory:" {
		resolved = withPragma(resolved, fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMs))
	}
	s := &SQLiteStore{dsn: resolved}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func withPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + url.QueryEscape(pragma)
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil ledger store")
	}
	if err := s.ensureOpen(); err != nil {
		return "", err
	}
	if strings.TrimSpace(e.BackupPath) == "" {
		return "", fmt.Errorf("missing backup path")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = "bkp_" + uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO config_backups (
  id, config_path, backup_path, size_bytes, sha256, created_at_unix_nano
) VALUES (?, ?, ?, ?, ?, ?)
`, id, strings.TrimSpace(e.ConfigPath), strings.TrimSpace(e.BackupPath), e.SizeBytes,
		strings.TrimSpace(e.SHA256), e.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	if s == nil {
		return Entry{}, fmt.Errorf("nil ledger store")
	}
	if err := s.ensureOpen(); err != nil {
		return Entry{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, config_path, backup_path, size_bytes, sha256, created_at_unix_nano
FROM config_backups
WHERE id = ?
`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// List returns entries newest first. A non-positive limit returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, fmt.Errorf("nil ledger store")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, config_path, backup_path, size_bytes, sha256, created_at_unix_nano
FROM config_backups
ORDER BY created_at_unix_nano DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e        Entry
		createdN int64
	)
	if err := r.Scan(&e.ID, &e.ConfigPath, &e.BackupPath, &e.SizeBytes, &e.SHA256, &createdN); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(0, createdN).UTC()
	return e, nil
}

func (s *SQLiteStore) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	s.db = db
	if err := s.migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureOpen() error {
	s.mu.Lock()
	open := s.db != nil
	s.mu.Unlock()
	if open {
		return nil
	}
	return s.open()
}

func (s *SQLiteStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS config_backups (
  id TEXT PRIMARY KEY,
  config_path TEXT NOT NULL,
  backup_path TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  sha256 TEXT NOT NULL,
  created_at_unix_nano INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_config_backups_created ON config_backups(created_at_unix_nano);
`)
	return err
}
