// Package deckfile scans a directory tree of markdown flashcard files and
// derives each one's deck path, grounded on DavidMiserak-GoCard's
// card_store.go directory-walking pattern.
package deckfile

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is one markdown file discovered under a root directory.
type File struct {
	RelPath string // slash-separated, relative to the scanned root
	Content string
}

// Scan walks root and returns every *.md file beneath it, paths relative
// to root using forward slashes regardless of OS.
func Scan(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("deckfile: relative path for %s: %w", path, err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("deckfile: read %s: %w", path, err)
		}

		files = append(files, File{RelPath: filepath.ToSlash(rel), Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// DeckPathForFile derives a card's deck from its relative file path:
// the parent directory, or the file stem when the file sits at the tree
// root, spec.md §4.7.
func DeckPathForFile(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	dir := path.Dir(relPath)
	if dir != "." && dir != "" {
		return dir
	}
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
