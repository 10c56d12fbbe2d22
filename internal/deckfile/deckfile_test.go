package deckfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanFindsMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "biology"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "biology", "cells.md"), []byte("Q: a\nA: b\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 markdown file, got %d: %+v", len(files), files)
	}
	if files[0].RelPath != "biology/cells.md" {
		t.Fatalf("unexpected rel path: %s", files[0].RelPath)
	}
}

func TestDeckPathForFile(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"biology/cells.md", "biology"},
		{"spanish/verbs/irregular.md", "spanish/verbs"},
		{"root.md", "root"},
	}
	for _, c := range cases {
		if got := DeckPathForFile(c.path); got != c.want {
			t.Errorf("DeckPathForFile(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}
