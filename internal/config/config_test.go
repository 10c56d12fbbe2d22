package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	config, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading default config, got: %v", err)
	}

	if config == nil {
		t.Fatal("config should not be nil")
	}

	if config.Database.Path == "" {
		t.Error("database path should have default value")
	}

	if config.Server.BindAddr != ":8420" {
		t.Errorf("expected default bind addr ':8420', got: %s", config.Server.BindAddr)
	}

	if config.Server.DBPath == "" {
		t.Error("server db path should have default value")
	}

	if config.Sync.Timeout != 30*time.Second {
		t.Errorf("expected default sync timeout 30s, got: %v", config.Sync.Timeout)
	}

	if config.Sync.ServerURL != "" {
		t.Errorf("expected empty default server url, got: %s", config.Sync.ServerURL)
	}

	if config.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got: %s", config.LogLevel)
	}

	if config.LogJSON {
		t.Error("expected JSON logging disabled by default")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	viper.Reset()

	os.Setenv("FLASHSYNC_DATABASE_PATH", "/tmp/test.db")
	os.Setenv("FLASHSYNC_SYNC_SERVER_URL", "https://sync.example.com")
	os.Setenv("FLASHSYNC_STUDY_DEFAULT_DECK", "go-basics")
	defer func() {
		os.Unsetenv("FLASHSYNC_DATABASE_PATH")
		os.Unsetenv("FLASHSYNC_SYNC_SERVER_URL")
		os.Unsetenv("FLASHSYNC_STUDY_DEFAULT_DECK")
	}()

	config, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config with env vars, got: %v", err)
	}

	if config.Database.Path != "/tmp/test.db" {
		t.Errorf("expected database path from env var, got: %s", config.Database.Path)
	}

	if config.Sync.ServerURL != "https://sync.example.com" {
		t.Errorf("expected server url from env var, got: %s", config.Sync.ServerURL)
	}

	if config.Study.DefaultDeck != "go-basics" {
		t.Errorf("expected default deck from env var, got: %s", config.Study.DefaultDeck)
	}
}

func TestGetDatabasePath(t *testing.T) {
	viper.Reset()

	config, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got: %v", err)
	}

	dbPath, err := config.GetDatabasePath()
	if err != nil {
		t.Errorf("expected no error getting database path, got: %v", err)
	}

	if dbPath == "" {
		t.Error("database path should not be empty")
	}

	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("database directory should be created: %s", dir)
	}
}

func TestGetServerDBPath(t *testing.T) {
	viper.Reset()

	config, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got: %v", err)
	}

	dbPath, err := config.GetServerDBPath()
	if err != nil {
		t.Errorf("expected no error getting server db path, got: %v", err)
	}

	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("server db directory should be created: %s", dir)
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(string) bool
	}{
		{
			name:  "empty path",
			input: "",
			check: func(result string) bool { return result == "" },
		},
		{
			name:  "absolute path",
			input: "/tmp/test",
			check: func(result string) bool { return result == "/tmp/test" },
		},
		{
			name:  "tilde expansion",
			input: "~/test",
			check: func(result string) bool { return result != "~/test" && filepath.IsAbs(result) },
		},
		{
			name:  "environment variable",
			input: "$HOME/test",
			check: func(result string) bool { return result != "$HOME/test" && filepath.IsAbs(result) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if !tt.check(result) {
				t.Errorf("expandPath(%s) = %s, check failed", tt.input, result)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()

	err := setDefaults()
	if err != nil {
		t.Errorf("expected no error setting defaults, got: %v", err)
	}

	if viper.GetString("server.bind_addr") != ":8420" {
		t.Error("default server bind addr not set correctly")
	}

	if viper.GetString("log_level") != "info" {
		t.Error("default log level not set correctly")
	}

	if viper.GetDuration("sync.timeout") != 30*time.Second {
		t.Error("default sync timeout not set correctly")
	}
}
