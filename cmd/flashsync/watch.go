package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/justinlyon12/flashsync/internal/deckfile"
	"github.com/justinlyon12/flashsync/internal/deckwatch"
	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/parser"
)

// NewWatchCmd runs the file watcher actor from spec.md §5: on every
// debounced content change it parses the file and upserts matched cards
// (cards that already carry a server-assigned ID) straight into the
// local store, so edits to existing cards show up in the next study
// session without waiting on a full sync. Cards without an ID yet
// (brand new questions) are left for the next `sync` to assign one.
func NewWatchCmd(getApp func() (*App, error)) *cobra.Command {
	var deckRoot string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch deck files and apply edits to the local store as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return runWatch(app, deckRoot)
		},
	}

	cmd.Flags().StringVar(&deckRoot, "deck-root", ".", "root directory of markdown deck files")
	return cmd
}

func runWatch(app *App, deckRoot string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onChange := func(relPath, content string) { applyLocalEdit(app, relPath, content) }

	watcher, err := deckwatch.New(deckRoot, onChange, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("Watching %s for deck changes. Press Ctrl+C to stop.\n", deckRoot)
	<-ctx.Done()
	fmt.Println("Stopping watcher.")
	return nil
}

// applyLocalEdit parses one changed file and upserts every card that
// already has a server-assigned ID. Cards without one yet are counted
// and left alone; IncrementPendingChanges flags that a sync is due so
// the next `flashsync sync` picks them up and assigns IDs.
func applyLocalEdit(app *App, relPath, content string) {
	parsed, err := parser.Parse(content)
	if err != nil {
		app.Logger.Warn("failed to parse changed file", "path", relPath, "error", err)
		return
	}

	deckPath := deckfile.DeckPathForFile(relPath)
	now := time.Now().UTC()
	var matched []domain.Card
	var skipped int
	for _, c := range parsed {
		if c.ID == nil {
			skipped++
			continue
		}
		createdAt := now
		if existing, err := app.LocalStore.GetCard(*c.ID); err == nil {
			createdAt = existing.CreatedAt
		}
		matched = append(matched, domain.Card{
			ID:           *c.ID,
			DeckPath:     deckPath,
			Question:     c.Question,
			Answer:       c.Answer,
			SourceFile:   relPath,
			QuestionHash: domain.Fingerprint(c.Question),
			AnswerHash:   domain.Fingerprint(c.Answer),
			CreatedAt:    createdAt,
			UpdatedAt:    now,
		})
	}

	if len(matched) > 0 {
		if err := app.LocalStore.UpsertCardsFromSync(matched); err != nil {
			app.Logger.Warn("failed to apply local edit", "path", relPath, "error", err)
			return
		}
		app.Logger.Info("applied local edit", "path", relPath, "cards", len(matched))
	}
	if skipped > 0 {
		if err := app.LocalStore.IncrementPendingChanges(); err != nil {
			app.Logger.Warn("failed to record pending change", "path", relPath, "error", err)
		}
		app.Logger.Info("new card awaiting next sync", "path", relPath, "count", skipped)
	}
}
