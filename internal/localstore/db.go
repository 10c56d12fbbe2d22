// Package localstore is the per-device durable store, spec.md §4.5: cards,
// card states, the pending-review queue, tracked markdown files, settings,
// and the sync watermark. It is the only thing the file watcher, the study
// commands, and the sync engine's callbacks ever write to directly.
package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the local sqlite database. Per spec.md §5, the local store is
// mutually exclusive per process — callers serialize through a single
// connection, matching the teacher's single-connection sqlite setup.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the local device database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: enable WAL: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: migrate: %w", err)
	}

	return store, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(createTablesSQL)
	return err
}
