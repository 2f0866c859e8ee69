// Package db provides SQLite database initialization for the local backend.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// BusyTimeout is how long, in milliseconds, a connection waits on a locked
// database before failing with SQLITE_BUSY.
const BusyTimeout = 5000

// DefaultPath returns the default database path: ~/.smartrent/smartrent.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".smartrent", "smartrent.db"), nil
}

// Open opens the database at path, creating it and its directory when
// missing, and applies pending migrations. An empty path (the unset
// backend.sqlite_path setting) means DefaultPath.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if strings.ContainsRune(path, '?') {
		return nil, fmt.Errorf("database path %q must not contain '?'", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	d, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := d.Ping(); err != nil {
		return nil, closeWith(d, fmt.Errorf("opening database %s: %w", path, err))
	}
	if err := migrate(d); err != nil {
		return nil, closeWith(d, fmt.Errorf("running migrations: %w", err))
	}
	return d, nil
}

// DSN builds the go-sqlite3 data source name for path. Settings ride in the
// DSN so the driver applies them to every pooled connection, not just the
// first one.
func DSN(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", strconv.Itoa(BusyTimeout))
	return path + "?" + q.Encode()
}

func closeWith(d *sql.DB, err error) error {
	return errors.Join(err, d.Close())
}
