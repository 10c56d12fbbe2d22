// Package serverstore is the per-device authoritative store the sync
// engine talks to over the network contract in spec.md §6: it owns ID
// allocation, orphan detection, soft-delete, and the settings/devices
// tables. It is a separate sqlite handle from internal/localstore —
// simulating a separate deployable without requiring a real network
// boundary in-process, per spec.md §1 (no SQL-engine mandate).
package serverstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the server-side sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the server database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("serverstore: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("serverstore: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("serverstore: enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("serverstore: enable WAL: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("serverstore: migrate: %w", err)
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
