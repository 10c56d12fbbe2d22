// Package fsstore is a filesystem-backed objectstore.Store, used by
// cmd/flashsyncd in place of a real S3/MinIO binding.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/justinlyon12/flashsync/internal/objectstore"
)

// Store writes objects as files under Root, one file per key with
// directories created as needed (a key of "{device}/{path}" becomes
// Root/{device}/{path}).
type Store struct {
	Root string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create root: %w", err)
	}
	return &Store{Root: dir}, nil
}

// Put writes content to Root/key, creating parent directories as needed.
// contentType is accepted for interface parity with a real blob store but
// unused by the filesystem backing.
func (s *Store) Put(ctx context.Context, key string, content []byte, contentType string) error {
	dest := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("fsstore: create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("fsstore: write %s: %w", key, err)
	}
	return nil
}

var _ objectstore.Store = (*Store)(nil)
