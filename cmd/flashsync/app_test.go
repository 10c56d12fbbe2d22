package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justinlyon12/flashsync/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "device.db")},
		Server: config.ServerConfig{
			DBPath:   filepath.Join(dir, "server.db"),
			BlobRoot: filepath.Join(dir, "blobs"),
		},
		Sync:     config.SyncConfig{Timeout: 5 * time.Second},
		LogLevel: "error",
	}
}

// run executes the command tree with the given args, capturing os.Stdout
// since the subcommands print with fmt.Println/Printf rather than
// cmd.OutOrStdout, matching the teacher's own command style.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(&TestConfigLoader{Config: cfg})
	cmd.SetArgs(args)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	execErr := cmd.Execute()

	os.Stdout = orig
	w.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	return buf.String(), execErr
}

func TestRegisterCachesDeviceIdentity(t *testing.T) {
	cfg := testConfig(t)
	if _, err := run(t, cfg, "register", "--name", "test-laptop"); err != nil {
		t.Fatalf("register: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	device, err := app.LocalStore.GetLocalDevice()
	if err != nil {
		t.Fatalf("GetLocalDevice: %v", err)
	}
	if device == nil || device.DeviceID == "" || device.Token == "" {
		t.Fatalf("expected a cached device identity, got %+v", device)
	}
}

func TestSyncUploadsDeckFilesAndDecksListsThem(t *testing.T) {
	cfg := testConfig(t)
	if _, err := run(t, cfg, "register", "--name", "test-laptop"); err != nil {
		t.Fatalf("register: %v", err)
	}

	deckRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(deckRoot, "biology"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "Q: What is a cell?\nA: The basic unit of life.\n"
	if err := os.WriteFile(filepath.Join(deckRoot, "biology", "cells.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write deck file: %v", err)
	}

	if _, err := run(t, cfg, "sync", "--deck-root", deckRoot); err != nil {
		t.Fatalf("sync: %v", err)
	}

	out, err := run(t, cfg, "decks")
	if err != nil {
		t.Fatalf("decks: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("biology")) {
		t.Fatalf("expected decks output to mention biology, got %q", out)
	}
}

func TestSettingsShowAndSetGlobal(t *testing.T) {
	cfg := testConfig(t)
	if _, err := run(t, cfg, "register", "--name", "test-laptop"); err != nil {
		t.Fatalf("register: %v", err)
	}

	out, err := run(t, cfg, "settings", "show")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("algorithm=fsrs")) {
		t.Fatalf("expected default algorithm fsrs in output, got %q", out)
	}

	if _, err := run(t, cfg, "settings", "set-global", "--algorithm", "sm2", "--new-limit", "5"); err != nil {
		t.Fatalf("set-global: %v", err)
	}

	out, err = run(t, cfg, "settings", "show")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("algorithm=sm2")) {
		t.Fatalf("expected updated algorithm sm2 in output, got %q", out)
	}
}

func TestSettingsSetAndDeleteDeckOverride(t *testing.T) {
	cfg := testConfig(t)
	if _, err := run(t, cfg, "register", "--name", "test-laptop"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := run(t, cfg, "settings", "set-deck", "biology", "--algorithm", "sm2"); err != nil {
		t.Fatalf("set-deck: %v", err)
	}

	out, err := run(t, cfg, "settings", "show")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("deck biology:")) {
		t.Fatalf("expected a deck override line, got %q", out)
	}

	if _, err := run(t, cfg, "settings", "delete-deck", "biology"); err != nil {
		t.Fatalf("delete-deck: %v", err)
	}
}
