// Package syncengine implements the device-side sync state machine,
// spec.md §4.7: an async task chain probing the server, uploading files,
// pausing for orphan confirmation, pushing reviews, pulling state, and
// applying it to the local store through caller-supplied callbacks.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

// ErrAlreadyInProgress is returned by Sync when another cycle is already
// running, spec.md §4.7 invariant (iii).
var ErrAlreadyInProgress = errors.New("syncengine: sync already in progress")

// ErrNoPendingOrphans is returned by ConfirmOrphanDeletion/SkipOrphanDeletion
// when no sync is currently paused awaiting a decision.
var ErrNoPendingOrphans = errors.New("syncengine: no sync awaiting orphan confirmation")

// Engine is the sync actor. One Engine should be shared per device process
// so its guard can reject concurrent Sync calls.
type Engine struct {
	client    syncclient.SyncClient
	callbacks LocalStoreCallbacks
	logger    *slog.Logger
	status    *StatusCell

	mu      sync.Mutex
	running bool
	paused  *pausedSync
}

type pausedSync struct {
	uploadResult syncclient.UploadResult
}

// New builds an Engine. logger may be nil, in which case slog.Default() is
// used, matching the teacher's podman driver logging style.
func New(client syncclient.SyncClient, callbacks LocalStoreCallbacks, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:    client,
		callbacks: callbacks,
		logger:    logger,
		status:    &StatusCell{},
	}
}

// Status returns the engine's current snapshot, safe to call concurrently
// with an in-flight Sync.
func (e *Engine) Status() Snapshot {
	return e.status.Snapshot()
}

func (e *Engine) tryStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	return true
}

func (e *Engine) setStatus(status Status, err error) {
	e.status.set(status, err)
	if err != nil {
		e.logger.Error("sync phase failed", "status", status.String(), "error", err)
	} else {
		e.logger.Debug("sync phase", "status", status.String())
	}
}

func (e *Engine) fail(err error) (Snapshot, error) {
	e.setStatus(Failed, err)
	e.mu.Lock()
	e.running = false
	e.paused = nil
	e.mu.Unlock()
	return e.status.Snapshot(), err
}

// Cancel drops the engine's in-flight state. Any partial effects already
// persisted server-side (e.g. a completed upload) are not rolled back —
// the next Sync reconciles, spec.md §5.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.running = false
	e.paused = nil
	e.mu.Unlock()
	e.setStatus(Idle, nil)
}

// Sync drives phases 1 through 8 (or 3, if orphans are reported) for the
// given file set.
func (e *Engine) Sync(ctx context.Context, files []syncclient.UploadFile) (Snapshot, error) {
	if !e.tryStart() {
		return e.status.Snapshot(), ErrAlreadyInProgress
	}

	e.setStatus(Connecting, nil)
	if err := e.client.Health(ctx); err != nil {
		return e.fail(fmt.Errorf("backend not reachable: %w", err))
	}

	e.setStatus(UploadingFiles, nil)
	result, err := e.client.Upload(ctx, files)
	if err != nil {
		return e.fail(err)
	}

	if len(result.OrphanedCards) > 0 {
		e.mu.Lock()
		e.paused = &pausedSync{uploadResult: result}
		e.mu.Unlock()
		e.status.setOrphans(result.OrphanedCards)
		e.setStatus(AwaitingOrphanConfirmation, nil)
		return e.status.Snapshot(), nil
	}

	return e.proceedFromReviews(ctx, result)
}

// ConfirmOrphanDeletion resumes a paused sync, soft-deleting the given
// card IDs server-side before continuing to phase 4.
func (e *Engine) ConfirmOrphanDeletion(ctx context.Context, cardIDs []int64) (Snapshot, error) {
	result, ok := e.takePaused()
	if !ok {
		return e.status.Snapshot(), ErrNoPendingOrphans
	}
	if _, err := e.client.ConfirmDelete(ctx, cardIDs); err != nil {
		return e.fail(err)
	}
	return e.proceedFromReviews(ctx, result)
}

// SkipOrphanDeletion resumes a paused sync without deleting anything.
func (e *Engine) SkipOrphanDeletion(ctx context.Context) (Snapshot, error) {
	result, ok := e.takePaused()
	if !ok {
		return e.status.Snapshot(), ErrNoPendingOrphans
	}
	return e.proceedFromReviews(ctx, result)
}

func (e *Engine) takePaused() (syncclient.UploadResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused == nil {
		return syncclient.UploadResult{}, false
	}
	result := e.paused.uploadResult
	e.paused = nil
	return result, true
}

func (e *Engine) proceedFromReviews(ctx context.Context, uploadResult syncclient.UploadResult) (Snapshot, error) {
	e.setStatus(PushingReviews, nil)
	pending, err := e.callbacks.GetPendingReviews()
	if err != nil {
		return e.fail(err)
	}
	if len(pending) > 0 {
		submissions := make([]syncclient.ReviewSubmission, len(pending))
		ids := make([]int64, len(pending))
		for i, r := range pending {
			submissions[i] = toSubmission(r)
			ids[i] = r.ID
		}
		if _, err := e.client.PushReviews(ctx, submissions); err != nil {
			return e.fail(err)
		}
		if err := e.callbacks.MarkReviewsSynced(ids); err != nil {
			return e.fail(err)
		}
	}

	e.setStatus(PullingState, nil)
	watermark, err := e.callbacks.GetSyncState()
	if err != nil {
		return e.fail(err)
	}
	pull, err := e.client.Pull(ctx, watermark.LastSyncAt)
	if err != nil {
		return e.fail(err)
	}

	e.setStatus(ApplyingChanges, nil)
	if err := e.callbacks.UpsertCardsFromSync(pull.Cards); err != nil {
		return e.fail(err)
	}
	if err := e.callbacks.SaveCardStatesSynced(pull.CardStates); err != nil {
		return e.fail(err)
	}
	if pull.GlobalSetting != nil {
		if err := e.callbacks.SaveGlobalSettingsSynced(*pull.GlobalSetting); err != nil {
			return e.fail(err)
		}
	}
	for _, d := range pull.DeckSettings {
		if err := e.callbacks.SaveDeckSettingsSynced(d); err != nil {
			return e.fail(err)
		}
	}

	e.setStatus(WritingFiles, nil)
	e.status.setUpdatedFiles(uploadResult.UpdatedFiles)

	now := time.Now()
	if err := e.callbacks.UpdateSyncState(now); err != nil {
		return e.fail(err)
	}
	e.status.setLastSyncAt(now)
	e.setStatus(Completed, nil)

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	return e.status.Snapshot(), nil
}

func toSubmission(r domain.ReviewEvent) syncclient.ReviewSubmission {
	return syncclient.ReviewSubmission{
		ID:             r.ID,
		CardID:         r.CardID,
		ReviewedAt:     r.ReviewedAt,
		Rating:         r.Rating,
		RatingScale:    r.RatingScale,
		AnswerMode:     r.AnswerMode,
		TypedAnswer:    r.TypedAnswer,
		WasCorrect:     r.WasCorrect,
		ElapsedMs:      r.ElapsedMs,
		IntervalBefore: r.IntervalBefore,
		IntervalAfter:  r.IntervalAfter,
		EaseBefore:     r.EaseBefore,
		EaseAfter:      r.EaseAfter,
		Algorithm:      r.Algorithm,
	}
}
