// Package store provides the SQLite journal for the rfbviz annotation visualizer.
//
// The journal records which adjudications the tool wrote, which annotation
// replacements were made (and where their backups live), and a few persisted
// settings. Annotation data itself stays in flat files.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// busyTimeoutMillis bounds how long a write waits on another process holding
// the journal lock.
const busyTimeoutMillis = 5000

// Store is an open journal database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the journal at dbPath, creating it and its parent directory if
// needed, and brings the schema up to date.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}
	// The tool is the journal's only writer; one connection keeps writes
	// serialized within the process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal %s: %w", dbPath, err)
	}

	return s, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the journal file path.
func (s *Store) Path() string {
	return s.path
}
