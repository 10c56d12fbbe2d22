package main

import (
	"context"
	"time"

	"github.com/justinlyon12/flashsync/internal/deckfile"
	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/objectstore"
	"github.com/justinlyon12/flashsync/internal/parser"
	"github.com/justinlyon12/flashsync/internal/serverstore"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

// uploadFiles is the server half of spec.md §4.1/§4.6: parse each
// uploaded file, assign IDs to new cards, upsert every parsed card, store
// each file's final content in objects under "<deviceID>/<path>", and
// report which cards on file no longer appear in any upload so the
// caller can offer orphan deletion.
func uploadFiles(store *serverstore.Store, objects objectstore.Store, ctx context.Context, deviceID string, files []syncclient.UploadFile) (syncclient.UploadResult, error) {
	var result syncclient.UploadResult
	var currentIDs []int64
	now := time.Now()

	for _, f := range files {
		cards, err := parser.Parse(f.Content)
		if err != nil {
			return syncclient.UploadResult{}, err
		}

		assignments := make(map[int]int64)
		rewritten := false
		for _, c := range cards {
			id := c.ID
			if id == nil {
				assignedID, err := store.GetNextCardID()
				if err != nil {
					return syncclient.UploadResult{}, err
				}
				id = &assignedID
				assignments[c.StartingLine] = assignedID
				rewritten = true
				result.NewIDs = append(result.NewIDs, syncclient.IDAssignment{Path: f.Path, Line: c.StartingLine, ID: assignedID})
			}
			currentIDs = append(currentIDs, *id)

			card := domain.Card{
				ID: *id, DeckPath: deckfile.DeckPathForFile(f.Path), Question: c.Question, Answer: c.Answer,
				SourceFile: f.Path, QuestionHash: domain.Fingerprint(c.Question),
				AnswerHash: domain.Fingerprint(c.Answer), CreatedAt: now, UpdatedAt: now,
			}
			if err := store.UpsertCard(card, deviceID); err != nil {
				return syncclient.UploadResult{}, err
			}
		}

		if err := store.UpsertMDFile(deviceID, f.Path, f.Hash, now); err != nil {
			return syncclient.UploadResult{}, err
		}

		content := f.Content
		if rewritten {
			content = parser.InjectIDs(f.Content, assignments)
			result.UpdatedFiles = append(result.UpdatedFiles, syncclient.UploadFile{
				Path: f.Path, Content: content, Hash: domain.Fingerprint(content),
			})
		}
		if objects != nil {
			if err := objects.Put(ctx, deviceID+"/"+f.Path, []byte(content), "text/markdown"); err != nil {
				return syncclient.UploadResult{}, err
			}
		}
	}

	orphans, err := store.GetOrphanedCards(deviceID, currentIDs)
	if err != nil {
		return syncclient.UploadResult{}, err
	}
	for _, o := range orphans {
		result.OrphanedCards = append(result.OrphanedCards, syncclient.OrphanedCard{ID: o.ID, QuestionPreview: o.QuestionPreview})
	}

	return result, nil
}
