package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPutWritesFileUnderRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = s.Put(context.Background(), "device-1/biology/cells.md", []byte("Q: a\nA: b\n"), "text/markdown")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "device-1", "biology", "cells.md"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "Q: a\nA: b\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}
