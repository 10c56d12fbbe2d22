// Package loopback implements syncclient.SyncClient directly against
// internal/serverstore, with no HTTP round trip — used by tests and by
// the CLI's local-only mode, per SPEC_FULL.md §12.
package loopback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justinlyon12/flashsync/internal/apierr"
	"github.com/justinlyon12/flashsync/internal/deckfile"
	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/matching"
	"github.com/justinlyon12/flashsync/internal/objectstore"
	"github.com/justinlyon12/flashsync/internal/parser"
	"github.com/justinlyon12/flashsync/internal/queue"
	"github.com/justinlyon12/flashsync/internal/scheduler"
	"github.com/justinlyon12/flashsync/internal/serverstore"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

// Client drives a serverstore.Store in-process, behind the same interface
// an HTTP-backed device would use.
type Client struct {
	store   *serverstore.Store
	objects objectstore.Store

	mu       sync.Mutex
	deviceID string
}

// New returns an unregistered client; Register must be called before any
// other method, matching HTTPClient's bearer-token requirement.
func New(store *serverstore.Store, objects objectstore.Store) *Client {
	return &Client{store: store, objects: objects}
}

// ForDevice returns a client already bound to an existing device, for
// callers that already hold a registered device ID.
func ForDevice(store *serverstore.Store, objects objectstore.Store, deviceID string) *Client {
	return &Client{store: store, objects: objects, deviceID: deviceID}
}

func (c *Client) currentDevice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

func (c *Client) Health(ctx context.Context) error { return nil }

func (c *Client) Register(ctx context.Context, name string) (domain.DeviceIdentity, error) {
	deviceID := uuid.New().String()
	token := uuid.New().String()
	dev, err := c.store.RegisterDevice(deviceID, token, name, time.Now())
	if err != nil {
		return domain.DeviceIdentity{}, apierr.Wrap(apierr.Storage, err)
	}
	c.mu.Lock()
	c.deviceID = dev.DeviceID
	c.mu.Unlock()
	return domain.DeviceIdentity{DeviceID: dev.DeviceID, Token: dev.Token}, nil
}

func (c *Client) Status(ctx context.Context) (*time.Time, error) {
	dev, err := c.store.DeviceStatus(c.currentDevice())
	if err != nil {
		return nil, apierr.Wrap(apierr.Storage, err)
	}
	if dev == nil {
		return nil, apierr.New(apierr.NotFound, "device not registered")
	}
	return dev.LastSeenAt, nil
}

// Upload implements phase 2 of the sync FSM, spec.md §4.7: parse each
// file, allocate IDs for new cards, upsert, inject IDs back into the
// text, write the blob, and compute orphans.
func (c *Client) Upload(ctx context.Context, files []syncclient.UploadFile) (syncclient.UploadResult, error) {
	deviceID := c.currentDevice()
	now := time.Now()

	var result syncclient.UploadResult
	var currentIDs []int64

	for _, file := range files {
		cards, err := parser.Parse(file.Content)
		if err != nil {
			return syncclient.UploadResult{}, apierr.Wrap(apierr.Parse, err)
		}

		deckPath := deckfile.DeckPathForFile(file.Path)
		assignments := make(map[int]int64)

		for _, card := range cards {
			var id int64
			if card.ID != nil {
				id = *card.ID
			} else {
				id, err = c.store.GetNextCardID()
				if err != nil {
					return syncclient.UploadResult{}, apierr.Wrap(apierr.Storage, err)
				}
				assignments[card.StartingLine] = id
				result.NewIDs = append(result.NewIDs, syncclient.IDAssignment{Path: file.Path, Line: card.StartingLine, ID: id})
			}
			currentIDs = append(currentIDs, id)

			domainCard := domain.Card{
				ID: id, DeckPath: deckPath, Question: card.Question, Answer: card.Answer,
				SourceFile: file.Path, QuestionHash: domain.Fingerprint(card.Question),
				AnswerHash: domain.Fingerprint(card.Answer), CreatedAt: now, UpdatedAt: now,
			}
			if err := c.store.UpsertCard(domainCard, deviceID); err != nil {
				return syncclient.UploadResult{}, apierr.Wrap(apierr.Storage, err)
			}
		}

		content := file.Content
		if len(assignments) > 0 {
			content = parser.InjectIDs(file.Content, assignments)
			result.UpdatedFiles = append(result.UpdatedFiles, syncclient.UploadFile{
				Path: file.Path, Content: content, Hash: domain.Fingerprint(content),
			})
		}

		if c.objects != nil {
			key := deviceID + "/" + file.Path
			if err := c.objects.Put(ctx, key, []byte(content), "text/markdown"); err != nil {
				return syncclient.UploadResult{}, apierr.Wrap(apierr.Storage, err)
			}
		}
		if err := c.store.UpsertMDFile(deviceID, file.Path, domain.Fingerprint(content), now); err != nil {
			return syncclient.UploadResult{}, apierr.Wrap(apierr.Storage, err)
		}
	}

	orphans, err := c.store.GetOrphanedCards(deviceID, currentIDs)
	if err != nil {
		return syncclient.UploadResult{}, apierr.Wrap(apierr.Storage, err)
	}
	for _, o := range orphans {
		result.OrphanedCards = append(result.OrphanedCards, syncclient.OrphanedCard{ID: o.ID, QuestionPreview: o.QuestionPreview})
	}

	return result, nil
}

func (c *Client) ConfirmDelete(ctx context.Context, cardIDs []int64) (int, error) {
	n, err := c.store.SoftDeleteCards(cardIDs, time.Now())
	if err != nil {
		return 0, apierr.Wrap(apierr.Storage, err)
	}
	return n, nil
}

// PushReviews stores already-scheduled review events verbatim — the
// server never recomputes scheduling for pushed reviews, spec.md §4.7.
func (c *Client) PushReviews(ctx context.Context, reviews []syncclient.ReviewSubmission) (int, error) {
	deviceID := c.currentDevice()
	for _, r := range reviews {
		event := domain.ReviewEvent{
			ID: r.ID, CardID: r.CardID, DeviceID: deviceID, ReviewedAt: r.ReviewedAt,
			Rating: r.Rating, RatingScale: r.RatingScale, AnswerMode: r.AnswerMode,
			TypedAnswer: r.TypedAnswer, WasCorrect: r.WasCorrect, ElapsedMs: r.ElapsedMs,
			IntervalBefore: r.IntervalBefore, IntervalAfter: r.IntervalAfter,
			EaseBefore: r.EaseBefore, EaseAfter: r.EaseAfter, Algorithm: r.Algorithm,
		}
		if _, err := c.store.InsertReview(event); err != nil {
			return 0, apierr.Wrap(apierr.Storage, err)
		}
	}
	return len(reviews), nil
}

func (c *Client) Pull(ctx context.Context, lastSyncAt *time.Time) (syncclient.PullResult, error) {
	deviceID := c.currentDevice()

	cards, err := c.store.GetCardsSince(deviceID, lastSyncAt)
	if err != nil {
		return syncclient.PullResult{}, apierr.Wrap(apierr.Storage, err)
	}
	states, err := c.store.GetCardStatesSince(deviceID, lastSyncAt)
	if err != nil {
		return syncclient.PullResult{}, apierr.Wrap(apierr.Storage, err)
	}
	global, err := c.store.GetGlobalSettings(deviceID)
	if err != nil {
		return syncclient.PullResult{}, apierr.Wrap(apierr.Storage, err)
	}
	decks, err := c.store.ListDeckSettings(deviceID)
	if err != nil {
		return syncclient.PullResult{}, apierr.Wrap(apierr.Storage, err)
	}

	return syncclient.PullResult{Cards: cards, CardStates: states, GlobalSetting: &global, DeckSettings: decks}, nil
}

func (c *Client) Decks(ctx context.Context) ([]syncclient.DeckInfo, error) {
	cards, err := c.store.GetCardsSince(c.currentDevice(), nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.Storage, err)
	}
	counts := make(map[string]int)
	for _, card := range cards {
		counts[card.DeckPath]++
	}
	decks := make([]syncclient.DeckInfo, 0, len(counts))
	for path, n := range counts {
		decks = append(decks, syncclient.DeckInfo{Path: path, CardCount: n})
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].Path < decks[j].Path })
	return decks, nil
}

func (c *Client) DeckStats(ctx context.Context, deckPath string) (syncclient.DeckStats, error) {
	stats, err := c.store.GetDeckStats(c.currentDevice(), deckPath)
	if err != nil {
		return syncclient.DeckStats{}, apierr.Wrap(apierr.Storage, err)
	}
	return syncclient.DeckStats{
		DeckPath: stats.DeckPath, TotalCards: stats.TotalCards, NewCount: stats.NewCount,
		LearningCount: stats.LearningCount, ReviewCount: stats.ReviewCount,
		RelearningCount: stats.RelearningCount, RetentionEstimate: stats.RetentionEstimate,
	}, nil
}

func (c *Client) StudyQueue(ctx context.Context, deckPath string) (syncclient.StudyQueue, error) {
	deviceID := c.currentDevice()

	global, err := c.store.GetGlobalSettings(deviceID)
	if err != nil {
		return syncclient.StudyQueue{}, apierr.Wrap(apierr.Storage, err)
	}
	var deckOverride *domain.DeckSettings
	if deckPath != "" {
		deckOverride, err = c.store.GetDeckSettings(deviceID, deckPath)
		if err != nil {
			return syncclient.StudyQueue{}, apierr.Wrap(apierr.Storage, err)
		}
	}
	eff := domain.Effective(global, deckOverride)

	newCards, err := c.store.GetNewCards(deviceID)
	if err != nil {
		return syncclient.StudyQueue{}, apierr.Wrap(apierr.Storage, err)
	}
	today := queue.Today(time.Now(), eff.DailyResetHour)
	cutoff := today.Add(24 * time.Hour)
	dueCards, err := c.store.GetDueCards(deviceID, cutoff)
	if err != nil {
		return syncclient.StudyQueue{}, apierr.Wrap(apierr.Storage, err)
	}

	if deckPath != "" {
		newCards = filterByDeck(newCards, deckPath)
		dueCards = filterByDeck(dueCards, deckPath)
	}

	built := queue.Build(newCards, dueCards, eff.DailyNewLimit, eff.DailyReviewLimit)
	return syncclient.StudyQueue{
		NewCards: built.NewCards, ReviewCards: built.ReviewCards,
		NewLimit: built.NewLimit, ReviewLimit: built.ReviewLimit,
		NewRemain: built.NewRemain, ReviewRemain: built.ReviewRemain,
	}, nil
}

func filterByDeck(cards []domain.Card, deckPath string) []domain.Card {
	out := cards[:0:0]
	for _, c := range cards {
		if c.DeckPath == deckPath {
			out = append(out, c)
		}
	}
	return out
}

// SubmitReview is the direct scheduling endpoint: the server computes the
// next state using the device's effective algorithm, spec.md §6.
func (c *Client) SubmitReview(ctx context.Context, req syncclient.SubmitReviewRequest) (syncclient.SubmitReviewResult, error) {
	deviceID := c.currentDevice()

	card, err := c.store.GetCard(req.CardID)
	if err != nil {
		return syncclient.SubmitReviewResult{}, apierr.New(apierr.NotFound, "card not found")
	}

	global, err := c.store.GetGlobalSettings(deviceID)
	if err != nil {
		return syncclient.SubmitReviewResult{}, apierr.Wrap(apierr.Storage, err)
	}
	deckOverride, err := c.store.GetDeckSettings(deviceID, card.DeckPath)
	if err != nil {
		return syncclient.SubmitReviewResult{}, apierr.Wrap(apierr.Storage, err)
	}
	eff := domain.Effective(global, deckOverride)

	algo, err := scheduler.ByName(eff.Algorithm)
	if err != nil {
		return syncclient.SubmitReviewResult{}, apierr.New(apierr.BadRequest, err.Error())
	}

	prevState, err := c.store.GetCardState(req.CardID)
	if err != nil {
		prevState = algo.InitialState(req.CardID)
	}

	var wasCorrect *bool
	if req.TypedAnswer != nil {
		res := matching.Compare(*req.TypedAnswer, card.Answer, eff.MatchMode, eff.FuzzyThreshold)
		wasCorrect = &res.IsCorrect
	}

	rating := scheduler.CoerceRating(req.Rating)
	now := time.Now()
	nextState, nextDue := algo.Schedule(prevState, rating, now)

	if err := c.store.SaveCardState(deviceID, nextState, now); err != nil {
		return syncclient.SubmitReviewResult{}, apierr.Wrap(apierr.Storage, err)
	}

	event := domain.ReviewEvent{
		CardID: req.CardID, DeviceID: deviceID, ReviewedAt: now,
		Rating: rating, RatingScale: eff.RatingScale, AnswerMode: req.AnswerMode,
		TypedAnswer: req.TypedAnswer, WasCorrect: wasCorrect, ElapsedMs: req.ElapsedMs,
		IntervalBefore: prevState.IntervalDays, IntervalAfter: nextState.IntervalDays,
		EaseBefore: prevState.EaseFactor, EaseAfter: nextState.EaseFactor, Algorithm: algo.Name(),
	}
	if _, err := c.store.InsertReview(event); err != nil {
		return syncclient.SubmitReviewResult{}, apierr.Wrap(apierr.Storage, err)
	}

	return syncclient.SubmitReviewResult{NextState: nextState, NextDue: &nextDue}, nil
}

func (c *Client) GetSettings(ctx context.Context) (syncclient.SettingsResult, error) {
	deviceID := c.currentDevice()
	global, err := c.store.GetGlobalSettings(deviceID)
	if err != nil {
		return syncclient.SettingsResult{}, apierr.Wrap(apierr.Storage, err)
	}
	decks, err := c.store.ListDeckSettings(deviceID)
	if err != nil {
		return syncclient.SettingsResult{}, apierr.Wrap(apierr.Storage, err)
	}
	return syncclient.SettingsResult{Global: global, Decks: decks}, nil
}

func (c *Client) PutGlobalSettings(ctx context.Context, partial domain.GlobalSettings) (domain.GlobalSettings, error) {
	if err := c.store.PutGlobalSettings(c.currentDevice(), partial); err != nil {
		return domain.GlobalSettings{}, apierr.Wrap(apierr.Storage, err)
	}
	return partial, nil
}

func (c *Client) PutDeckSettings(ctx context.Context, deckPath string, partial domain.DeckSettings) (domain.DeckSettings, error) {
	partial.DeckPath = deckPath
	if err := c.store.PutDeckSettings(c.currentDevice(), partial); err != nil {
		return domain.DeckSettings{}, apierr.Wrap(apierr.Storage, err)
	}
	return partial, nil
}

func (c *Client) DeleteDeckSettings(ctx context.Context, deckPath string) (bool, error) {
	deleted, err := c.store.DeleteDeckSettings(c.currentDevice(), deckPath)
	if err != nil {
		return false, apierr.Wrap(apierr.Storage, err)
	}
	return deleted, nil
}

var _ syncclient.SyncClient = (*Client)(nil)
