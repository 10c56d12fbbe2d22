package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/justinlyon12/flashsync/internal/config"
	"github.com/justinlyon12/flashsync/internal/localstore"
	"github.com/justinlyon12/flashsync/internal/objectstore"
	"github.com/justinlyon12/flashsync/internal/objectstore/fsstore"
	"github.com/justinlyon12/flashsync/internal/serverstore"
	"github.com/justinlyon12/flashsync/internal/syncclient"
	"github.com/justinlyon12/flashsync/internal/syncclient/loopback"
	"github.com/justinlyon12/flashsync/internal/syncengine"
)

// App holds every dependency a subcommand needs. A remote Sync.ServerURL
// wires an HTTPClient over the local device cache; an empty one wires a
// loopback.Client straight onto a co-located serverstore, so Engine.Sync
// and the study loop behave identically either way.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	LocalStore *localstore.Store
	Client     syncclient.SyncClient
	Engine     *syncengine.Engine

	serverStore *serverstore.Store
	objects     objectstore.Store
}

// NewApp wires all dependencies for the given configuration.
func NewApp(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)
	app := &App{Config: cfg, Logger: logger}

	dbPath, err := cfg.GetDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	app.LocalStore, err = localstore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if cfg.Sync.ServerURL != "" {
		device, err := app.LocalStore.GetLocalDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to read cached device identity: %w", err)
		}
		token := ""
		if device != nil {
			token = device.Token
		}
		app.Client = syncclient.NewHTTPClient(cfg.Sync.ServerURL, token, cfg.Sync.Timeout)
	} else {
		serverDBPath, err := cfg.GetServerDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get local-only server db path: %w", err)
		}
		app.serverStore, err = serverstore.Open(serverDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local-only server store: %w", err)
		}
		app.objects, err = fsstore.New(cfg.Server.BlobRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to open local-only blob store: %w", err)
		}
		device, err := app.LocalStore.GetLocalDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to read cached device identity: %w", err)
		}
		if device != nil {
			app.Client = loopback.ForDevice(app.serverStore, app.objects, device.DeviceID)
		} else {
			app.Client = loopback.New(app.serverStore, app.objects)
		}
	}

	app.Engine = syncengine.New(app.Client, app.callbacks(), logger)

	return app, nil
}

func (a *App) callbacks() syncengine.LocalStoreCallbacks {
	return syncengine.LocalStoreCallbacks{
		GetPendingReviews:        a.LocalStore.GetPendingReviews,
		MarkReviewsSynced:        a.LocalStore.MarkReviewsSynced,
		UpsertCardsFromSync:      a.LocalStore.UpsertCardsFromSync,
		SaveCardStatesSynced:     a.LocalStore.SaveCardStatesSynced,
		SaveGlobalSettingsSynced: a.LocalStore.SaveGlobalSettingsSynced,
		SaveDeckSettingsSynced:   a.LocalStore.SaveDeckSettingsSynced,
		GetSyncState:             a.LocalStore.GetSyncState,
		UpdateSyncState:          a.LocalStore.UpdateSyncState,
	}
}

// Close releases every open store.
func (a *App) Close() error {
	var errs []string
	if a.LocalStore != nil {
		if err := a.LocalStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if a.serverStore != nil {
		if err := a.serverStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during app cleanup: %s", strings.Join(errs, "; "))
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// ConfigLoader defines how configuration is loaded, so tests can inject a
// pre-built config instead of touching viper/the filesystem.
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// DefaultConfigLoader loads config using the viper-backed config.Load.
type DefaultConfigLoader struct{}

func (l *DefaultConfigLoader) Load() (*config.Config, error) {
	return config.Load()
}

// TestConfigLoader allows injecting a pre-built configuration for tests.
type TestConfigLoader struct {
	Config *config.Config
}

func (l *TestConfigLoader) Load() (*config.Config, error) {
	if l.Config == nil {
		return nil, fmt.Errorf("no config provided to TestConfigLoader")
	}
	return l.Config, nil
}
