// Package syncclient defines the network contract between a device and the
// flashsync server, spec.md §6. The sync engine depends only on the
// SyncClient interface, never on a concrete transport.
package syncclient

import (
	"context"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// UploadFile is one markdown file the client believes should exist.
type UploadFile struct {
	Path    string
	Content string
	Hash    string
}

// IDAssignment records a newly allocated card ID within an uploaded file.
type IDAssignment struct {
	Path string
	Line int
	ID   int64
}

// UploadResult is the server's response to an upload.
type UploadResult struct {
	UpdatedFiles  []UploadFile
	NewIDs        []IDAssignment
	OrphanedCards []OrphanedCard
}

// OrphanedCard mirrors serverstore.OrphanedCard over the wire.
type OrphanedCard struct {
	ID              int64
	QuestionPreview string
}

// ReviewSubmission is one locally recorded review event ready to push.
type ReviewSubmission struct {
	ID             int64
	CardID         int64
	ReviewedAt     time.Time
	Rating         domain.Rating
	RatingScale    domain.RatingScale
	AnswerMode     domain.AnswerMode
	TypedAnswer    *string
	WasCorrect     *bool
	ElapsedMs      *int64
	IntervalBefore float64
	IntervalAfter  float64
	EaseBefore     float64
	EaseAfter      float64
	Algorithm      string
}

// PullResult is the server's snapshot or delta response.
type PullResult struct {
	Cards         []domain.Card
	CardStates    []domain.CardState
	GlobalSetting *domain.GlobalSettings
	DeckSettings  []domain.DeckSettings
}

// DeckInfo describes one deck known to the server.
type DeckInfo struct {
	Path      string
	CardCount int
}

// DeckStats mirrors serverstore.DeckStats over the wire.
type DeckStats struct {
	DeckPath          string
	TotalCards        int
	NewCount          int
	LearningCount     int
	ReviewCount       int
	RelearningCount   int
	RetentionEstimate float64
}

// StudyQueue is the response to GET /api/study/queue.
type StudyQueue struct {
	NewCards     []domain.Card
	ReviewCards  []domain.Card
	NewLimit     int
	ReviewLimit  int
	NewRemain    int
	ReviewRemain int
}

// SubmitReviewRequest is the body of POST /api/study/review.
type SubmitReviewRequest struct {
	CardID      int64
	Rating      domain.Rating
	AnswerMode  domain.AnswerMode
	TypedAnswer *string
	ElapsedMs   *int64
}

// SubmitReviewResult is the response to POST /api/study/review.
type SubmitReviewResult struct {
	NextState domain.CardState
	NextDue   *time.Time
}

// SettingsResult is the response to GET /api/settings.
type SettingsResult struct {
	Global domain.GlobalSettings
	Decks  []domain.DeckSettings
}

// SyncClient is every network operation the sync engine and the study CLI
// need, spec.md §6's endpoint table made concrete.
type SyncClient interface {
	Health(ctx context.Context) error
	Register(ctx context.Context, name string) (domain.DeviceIdentity, error)
	Status(ctx context.Context) (lastSeenAt *time.Time, err error)

	Upload(ctx context.Context, files []UploadFile) (UploadResult, error)
	ConfirmDelete(ctx context.Context, cardIDs []int64) (deletedCount int, err error)
	PushReviews(ctx context.Context, reviews []ReviewSubmission) (syncedCount int, err error)
	Pull(ctx context.Context, lastSyncAt *time.Time) (PullResult, error)

	Decks(ctx context.Context) ([]DeckInfo, error)
	DeckStats(ctx context.Context, deckPath string) (DeckStats, error)
	StudyQueue(ctx context.Context, deckPath string) (StudyQueue, error)
	SubmitReview(ctx context.Context, req SubmitReviewRequest) (SubmitReviewResult, error)

	GetSettings(ctx context.Context) (SettingsResult, error)
	PutGlobalSettings(ctx context.Context, partial domain.GlobalSettings) (domain.GlobalSettings, error)
	PutDeckSettings(ctx context.Context, deckPath string, partial domain.DeckSettings) (domain.DeckSettings, error)
	DeleteDeckSettings(ctx context.Context, deckPath string) (deleted bool, err error)
}
