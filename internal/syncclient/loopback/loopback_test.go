package loopback

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/objectstore/fsstore"
	"github.com/justinlyon12/flashsync/internal/serverstore"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

func setup(t *testing.T) *Client {
	t.Helper()
	store, err := serverstore.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	objects, err := fsstore.New(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("fsstore.New: %v", err)
	}

	return New(store, objects)
}

func TestRegisterThenUploadAssignsIDs(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	if _, err := c.Register(ctx, "laptop"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	content := "Q: What is Go?\nA: A programming language.\n"
	result, err := c.Upload(ctx, []syncclient.UploadFile{{Path: "basics.md", Content: content}})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(result.NewIDs) != 1 {
		t.Fatalf("expected one new ID assignment, got %+v", result.NewIDs)
	}
	if len(result.UpdatedFiles) != 1 {
		t.Fatalf("expected rewritten file with injected ID, got %+v", result.UpdatedFiles)
	}
	if len(result.OrphanedCards) != 0 {
		t.Fatalf("expected no orphans on first upload, got %+v", result.OrphanedCards)
	}
}

// TestOrphanFlowEndToEnd exercises spec.md §8 scenario 2 through the
// loopback client's Upload/ConfirmDelete/Pull surface.
func TestOrphanFlowEndToEnd(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	if _, err := c.Register(ctx, "laptop"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	first := "Q: one\nA: uno\n\nQ: two\nA: dos\n"
	if _, err := c.Upload(ctx, []syncclient.UploadFile{{Path: "words.md", Content: first}}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	pulled, err := c.Pull(ctx, nil)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(pulled.Cards) != 2 {
		t.Fatalf("expected 2 cards after first upload, got %d", len(pulled.Cards))
	}

	oneID := cardIDByQuestion(pulled.Cards, "one")

	// Re-upload with card "one" pinned by ID, omitting "two" entirely —
	// simulates the user deleting it from the file.
	second := fmt.Sprintf("ID: %d\nQ: one\nA: uno\n", oneID)
	result, err := c.Upload(ctx, []syncclient.UploadFile{{Path: "words.md", Content: second}})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(result.OrphanedCards) != 1 {
		t.Fatalf("expected one orphaned card, got %+v", result.OrphanedCards)
	}

	deleted, err := c.ConfirmDelete(ctx, []int64{result.OrphanedCards[0].ID})
	if err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 card deleted, got %d", deleted)
	}

	pulled, err = c.Pull(ctx, nil)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(pulled.Cards) != 1 {
		t.Fatalf("expected 1 non-deleted card in bootstrap pull, got %d", len(pulled.Cards))
	}
}

func cardIDByQuestion(cards []domain.Card, question string) int64 {
	for _, c := range cards {
		if c.Question == question {
			return c.ID
		}
	}
	return 0
}
