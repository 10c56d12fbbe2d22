package syncengine

import (
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// LocalStoreCallbacks is every local-store operation the engine needs,
// spec.md §4.5, supplied as closures at construction time rather than a
// direct import of internal/localstore. Per spec.md §9 "Cyclic ownership",
// this keeps the repository-guard acquisition discipline (lock briefly,
// do one unit of work, release) at the caller's call site instead of
// inside the engine.
type LocalStoreCallbacks struct {
	GetPendingReviews        func() ([]domain.ReviewEvent, error)
	MarkReviewsSynced        func(ids []int64) error
	UpsertCardsFromSync      func(cards []domain.Card) error
	SaveCardStatesSynced     func(states []domain.CardState) error
	SaveGlobalSettingsSynced func(settings domain.GlobalSettings) error
	SaveDeckSettingsSynced   func(settings domain.DeckSettings) error
	GetSyncState             func() (domain.SyncWatermark, error)
	UpdateSyncState          func(at time.Time) error
}
