package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

type fakeClient struct {
	healthErr     error
	uploadResult  syncclient.UploadResult
	uploadErr     error
	confirmErr    error
	confirmedIDs  []int64
	pushedReviews []syncclient.ReviewSubmission
	pullResult    syncclient.PullResult
	pullErr       error
}

func (f *fakeClient) Health(ctx context.Context) error { return f.healthErr }
func (f *fakeClient) Register(ctx context.Context, name string) (domain.DeviceIdentity, error) {
	return domain.DeviceIdentity{}, nil
}
func (f *fakeClient) Status(ctx context.Context) (*time.Time, error) { return nil, nil }
func (f *fakeClient) Upload(ctx context.Context, files []syncclient.UploadFile) (syncclient.UploadResult, error) {
	return f.uploadResult, f.uploadErr
}
func (f *fakeClient) ConfirmDelete(ctx context.Context, cardIDs []int64) (int, error) {
	f.confirmedIDs = cardIDs
	return len(cardIDs), f.confirmErr
}
func (f *fakeClient) PushReviews(ctx context.Context, reviews []syncclient.ReviewSubmission) (int, error) {
	f.pushedReviews = reviews
	return len(reviews), nil
}
func (f *fakeClient) Pull(ctx context.Context, lastSyncAt *time.Time) (syncclient.PullResult, error) {
	return f.pullResult, f.pullErr
}
func (f *fakeClient) Decks(ctx context.Context) ([]syncclient.DeckInfo, error) { return nil, nil }
func (f *fakeClient) DeckStats(ctx context.Context, deckPath string) (syncclient.DeckStats, error) {
	return syncclient.DeckStats{}, nil
}
func (f *fakeClient) StudyQueue(ctx context.Context, deckPath string) (syncclient.StudyQueue, error) {
	return syncclient.StudyQueue{}, nil
}
func (f *fakeClient) SubmitReview(ctx context.Context, req syncclient.SubmitReviewRequest) (syncclient.SubmitReviewResult, error) {
	return syncclient.SubmitReviewResult{}, nil
}
func (f *fakeClient) GetSettings(ctx context.Context) (syncclient.SettingsResult, error) {
	return syncclient.SettingsResult{}, nil
}
func (f *fakeClient) PutGlobalSettings(ctx context.Context, partial domain.GlobalSettings) (domain.GlobalSettings, error) {
	return domain.GlobalSettings{}, nil
}
func (f *fakeClient) PutDeckSettings(ctx context.Context, deckPath string, partial domain.DeckSettings) (domain.DeckSettings, error) {
	return domain.DeckSettings{}, nil
}
func (f *fakeClient) DeleteDeckSettings(ctx context.Context, deckPath string) (bool, error) {
	return false, nil
}

var _ syncclient.SyncClient = (*fakeClient)(nil)

func fakeCallbacks() (LocalStoreCallbacks, *[]int64, *domain.SyncWatermark) {
	var markedSynced []int64
	watermark := &domain.SyncWatermark{}
	cb := LocalStoreCallbacks{
		GetPendingReviews:        func() ([]domain.ReviewEvent, error) { return nil, nil },
		MarkReviewsSynced:        func(ids []int64) error { markedSynced = ids; return nil },
		UpsertCardsFromSync:      func(cards []domain.Card) error { return nil },
		SaveCardStatesSynced:     func(states []domain.CardState) error { return nil },
		SaveGlobalSettingsSynced: func(settings domain.GlobalSettings) error { return nil },
		SaveDeckSettingsSynced:   func(settings domain.DeckSettings) error { return nil },
		GetSyncState:             func() (domain.SyncWatermark, error) { return *watermark, nil },
		UpdateSyncState: func(at time.Time) error {
			watermark.LastSyncAt = &at
			watermark.PendingChanges = 0
			return nil
		},
	}
	return cb, &markedSynced, watermark
}

func TestSyncCompletesWithNoOrphans(t *testing.T) {
	client := &fakeClient{}
	cb, _, watermark := fakeCallbacks()
	e := New(client, cb, nil)

	snap, err := e.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if snap.Status != Completed {
		t.Fatalf("expected Completed, got %v", snap.Status)
	}
	if watermark.LastSyncAt == nil {
		t.Fatalf("expected last_sync_at to be set")
	}
}

func TestSyncFailsWhenBackendUnreachable(t *testing.T) {
	client := &fakeClient{healthErr: errors.New("connection refused")}
	cb, _, _ := fakeCallbacks()
	e := New(client, cb, nil)

	snap, err := e.Sync(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if snap.Status != Failed {
		t.Fatalf("expected Failed, got %v", snap.Status)
	}
}

func TestSyncPausesOnOrphansAndConfirmResumes(t *testing.T) {
	client := &fakeClient{
		uploadResult: syncclient.UploadResult{
			OrphanedCards: []syncclient.OrphanedCard{{ID: 5, QuestionPreview: "old card"}},
		},
	}
	cb, _, _ := fakeCallbacks()
	e := New(client, cb, nil)

	snap, err := e.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if snap.Status != AwaitingOrphanConfirmation {
		t.Fatalf("expected AwaitingOrphanConfirmation, got %v", snap.Status)
	}
	if len(snap.Orphans) != 1 || snap.Orphans[0].ID != 5 {
		t.Fatalf("expected orphan 5 reported, got %+v", snap.Orphans)
	}

	snap, err = e.ConfirmOrphanDeletion(context.Background(), []int64{5})
	if err != nil {
		t.Fatalf("ConfirmOrphanDeletion: %v", err)
	}
	if snap.Status != Completed {
		t.Fatalf("expected Completed after confirm, got %v", snap.Status)
	}
	if len(client.confirmedIDs) != 1 || client.confirmedIDs[0] != 5 {
		t.Fatalf("expected card 5 confirmed for deletion, got %+v", client.confirmedIDs)
	}
}

func TestSyncRejectsConcurrentCalls(t *testing.T) {
	client := &fakeClient{}
	cb, _, _ := fakeCallbacks()
	e := New(client, cb, nil)

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	_, err := e.Sync(context.Background(), nil)
	if !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("expected ErrAlreadyInProgress, got %v", err)
	}
}

func TestConfirmOrphanDeletionWithoutPendingSyncFails(t *testing.T) {
	client := &fakeClient{}
	cb, _, _ := fakeCallbacks()
	e := New(client, cb, nil)

	_, err := e.ConfirmOrphanDeletion(context.Background(), []int64{1})
	if !errors.Is(err, ErrNoPendingOrphans) {
		t.Fatalf("expected ErrNoPendingOrphans, got %v", err)
	}
}

func TestReviewsMarkedSyncedAfterPush(t *testing.T) {
	reviewed := domain.ReviewEvent{ID: 1, CardID: 2, Rating: domain.Good, Algorithm: "sm2"}
	client := &fakeClient{}
	cb, marked, _ := fakeCallbacks()
	cb.GetPendingReviews = func() ([]domain.ReviewEvent, error) {
		return []domain.ReviewEvent{reviewed}, nil
	}
	e := New(client, cb, nil)

	_, err := e.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(*marked) != 1 || (*marked)[0] != 1 {
		t.Fatalf("expected review 1 marked synced, got %+v", *marked)
	}
	if len(client.pushedReviews) != 1 || client.pushedReviews[0].CardID != 2 {
		t.Fatalf("expected review pushed with card id 2, got %+v", client.pushedReviews)
	}
}
