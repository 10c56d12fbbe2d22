package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinlyon12/flashsync/internal/config"
	"github.com/justinlyon12/flashsync/internal/objectstore/fsstore"
	"github.com/justinlyon12/flashsync/internal/serverstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newServerLogger(cfg)

	dbPath, err := cfg.GetServerDBPath()
	if err != nil {
		return fmt.Errorf("failed to get server db path: %w", err)
	}
	store, err := serverstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open server store: %w", err)
	}
	defer store.Close()

	objects, err := fsstore.New(cfg.Server.BlobRoot)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.BindAddr,
		Handler:           newServer(store, objects, logger).mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("flashsyncd listening", "addr", cfg.Server.BindAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}
	}
	return nil
}

func newServerLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
