package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// Database
	Database DatabaseConfig `mapstructure:"database"`

	// Server (flashsyncd)
	Server ServerConfig `mapstructure:"server"`

	// Sync (flashsync's client connection to flashsyncd)
	Sync SyncConfig `mapstructure:"sync"`

	// Study
	Study StudyConfig `mapstructure:"study"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// DatabaseConfig holds local device database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds flashsyncd's own bind address and storage
type ServerConfig struct {
	BindAddr string `mapstructure:"bind_addr"`
	DBPath   string `mapstructure:"db_path"`
	BlobRoot string `mapstructure:"blob_root"`
}

// SyncConfig holds the client's connection to a flashsyncd instance
type SyncConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StudyConfig holds default study session behavior
type StudyConfig struct {
	DefaultDeck string `mapstructure:"default_deck"`
}

// Load reads configuration from files, environment variables, and flags
func Load() (*Config, error) {
	// Set defaults
	if err := setDefaults(); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}

	// Set up config file search paths
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	viper.SetConfigName("flashsync")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(home, ".flashsync"))
	viper.AddConfigPath(".")

	// Enable environment variable support with proper key mapping
	viper.SetEnvPrefix("FLASHSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables for nested keys
	_ = viper.BindEnv("database.path", "FLASHSYNC_DATABASE_PATH")
	_ = viper.BindEnv("server.bind_addr", "FLASHSYNC_SERVER_BIND_ADDR")
	_ = viper.BindEnv("server.db_path", "FLASHSYNC_SERVER_DB_PATH")
	_ = viper.BindEnv("server.blob_root", "FLASHSYNC_SERVER_BLOB_ROOT")
	_ = viper.BindEnv("sync.server_url", "FLASHSYNC_SYNC_SERVER_URL")
	_ = viper.BindEnv("sync.timeout", "FLASHSYNC_SYNC_TIMEOUT")
	_ = viper.BindEnv("study.default_deck", "FLASHSYNC_STUDY_DEFAULT_DECK")

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// Only return error if config file exists but can't be read
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand paths
	config.Database.Path = expandPath(config.Database.Path)
	config.Server.DBPath = expandPath(config.Server.DBPath)
	config.Server.BlobRoot = expandPath(config.Server.BlobRoot)

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory for defaults: %w", err)
	}

	// Database defaults
	viper.SetDefault("database.path", filepath.Join(home, ".flashsync", "flashsync.db"))

	// Server defaults
	viper.SetDefault("server.bind_addr", ":8420")
	viper.SetDefault("server.db_path", filepath.Join(home, ".flashsync", "server.db"))
	viper.SetDefault("server.blob_root", filepath.Join(home, ".flashsync", "blobs"))

	// Sync defaults
	viper.SetDefault("sync.server_url", "")
	viper.SetDefault("sync.timeout", "30s")

	// Study defaults
	viper.SetDefault("study.default_deck", "")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand environment variables
	path = os.ExpandEnv(path)

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// GetDatabasePath returns the local device database file path, creating
// directories if needed
func (c *Config) GetDatabasePath() (string, error) {
	return ensureParentDir(c.Database.Path)
}

// GetServerDBPath returns flashsyncd's own database file path, creating
// directories if needed
func (c *Config) GetServerDBPath() (string, error) {
	return ensureParentDir(c.Server.DBPath)
}

func ensureParentDir(path string) (string, error) {
	dir := filepath.Dir(path)

	// Create directory with secure permissions (0700 for user data)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return path, nil
}
