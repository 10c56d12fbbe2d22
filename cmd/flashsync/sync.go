package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justinlyon12/flashsync/internal/deckfile"
	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/syncclient"
	"github.com/justinlyon12/flashsync/internal/syncengine"
)

// NewSyncCmd scans a deck directory, runs it through the sync engine, and
// writes back any files the server rewrote (ID injection), prompting for
// orphan confirmation when the server reports cards that vanished from
// the uploaded files.
func NewSyncCmd(getApp func() (*App, error)) *cobra.Command {
	var deckRoot string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync local deck files and reviews with the configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return runSync(app, deckRoot)
		},
	}

	cmd.Flags().StringVar(&deckRoot, "deck-root", ".", "root directory of markdown deck files")
	return cmd
}

func runSync(app *App, deckRoot string) error {
	ctx := context.Background()

	files, err := deckfile.Scan(deckRoot)
	if err != nil {
		return fmt.Errorf("failed to scan deck files: %w", err)
	}

	uploads := make([]syncclient.UploadFile, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, syncclient.UploadFile{
			Path: f.RelPath, Content: f.Content, Hash: domain.Fingerprint(f.Content),
		})
	}

	snapshot, err := app.Engine.Sync(ctx, uploads)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if err := pushDeckOverrides(ctx, app, deckRoot); err != nil {
		return fmt.Errorf("failed to apply deck.yaml overrides: %w", err)
	}

	if snapshot.Status == syncengine.AwaitingOrphanConfirmation {
		snapshot, err = resolveOrphans(ctx, app, snapshot)
		if err != nil {
			return err
		}
	}

	if snapshot.Status == syncengine.Failed {
		return fmt.Errorf("sync failed: %s", snapshot.LastError)
	}

	if err := writeUpdatedFiles(deckRoot, snapshot.UpdatedFiles); err != nil {
		return err
	}

	fmt.Printf("Sync complete: %d file(s) rewritten with server-assigned IDs.\n", len(snapshot.UpdatedFiles))
	return nil
}

// pushDeckOverrides applies every deck.yaml found under deckRoot, so a
// deck's settings override travels with its files instead of needing a
// separate `flashsync settings set-deck` call per machine.
func pushDeckOverrides(ctx context.Context, app *App, deckRoot string) error {
	overrides, err := deckfile.LoadOverrides(deckRoot)
	if err != nil {
		return err
	}
	for deckPath, override := range overrides {
		if _, err := app.Client.PutDeckSettings(ctx, deckPath, override); err != nil {
			return err
		}
	}
	return nil
}

func resolveOrphans(ctx context.Context, app *App, snapshot syncengine.Snapshot) (syncengine.Snapshot, error) {
	fmt.Printf("%d card(s) no longer appear in any uploaded file:\n", len(snapshot.Orphans))
	for _, o := range snapshot.Orphans {
		fmt.Printf("  - %s\n", o.QuestionPreview)
	}
	fmt.Print("Delete these cards from the server? [y/N]: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return app.Engine.SkipOrphanDeletion(ctx)
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer == "y" || answer == "yes" {
		ids := make([]int64, len(snapshot.Orphans))
		for i, o := range snapshot.Orphans {
			ids[i] = o.ID
		}
		return app.Engine.ConfirmOrphanDeletion(ctx, ids)
	}
	return app.Engine.SkipOrphanDeletion(ctx)
}

func writeUpdatedFiles(deckRoot string, files []syncclient.UploadFile) error {
	for _, f := range files {
		path := filepath.Join(deckRoot, filepath.FromSlash(f.Path))
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write updated file %s: %w", path, err)
		}
	}
	return nil
}
