package deckfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesParsesDeckYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "biology"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "biology", "cells.md"), []byte("Q: a\nA: b\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	yamlContent := "algorithm: sm2\ndaily_new_limit: 5\nmatch_mode: fuzzy\nfuzzy_threshold: 0.85\n"
	if err := os.WriteFile(filepath.Join(dir, "biology", OverrideFileName), []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	overrides, err := LoadOverrides(dir)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	got, ok := overrides["biology"]
	if !ok {
		t.Fatalf("expected an override for deck %q, got %+v", "biology", overrides)
	}
	if got.Algorithm == nil || *got.Algorithm != "sm2" {
		t.Errorf("unexpected algorithm: %+v", got.Algorithm)
	}
	if got.DailyNewLimit == nil || *got.DailyNewLimit != 5 {
		t.Errorf("unexpected daily new limit: %+v", got.DailyNewLimit)
	}
	if got.FuzzyThreshold == nil || *got.FuzzyThreshold != 0.85 {
		t.Errorf("unexpected fuzzy threshold: %+v", got.FuzzyThreshold)
	}
	if got.MatchMode == nil {
		t.Fatalf("expected a match mode override")
	}
}

func TestLoadOverridesSkipsRootLevelFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OverrideFileName), []byte("algorithm: fsrs\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	overrides, err := LoadOverrides(dir)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("expected no overrides for a root-level deck.yaml, got %+v", overrides)
	}
}

func TestLoadOverridesNoFilesReturnsEmptyMap(t *testing.T) {
	dir := t.TempDir()
	overrides, err := LoadOverrides(dir)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("expected empty map, got %+v", overrides)
	}
}
