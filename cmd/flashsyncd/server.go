package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justinlyon12/flashsync/internal/apierr"
	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/matching"
	"github.com/justinlyon12/flashsync/internal/objectstore"
	"github.com/justinlyon12/flashsync/internal/queue"
	"github.com/justinlyon12/flashsync/internal/scheduler"
	"github.com/justinlyon12/flashsync/internal/serverstore"
	"github.com/justinlyon12/flashsync/internal/syncclient"
)

// newID mints a random identifier for a new device registration, the
// same generator internal/syncclient/loopback uses.
func newID() string { return uuid.New().String() }

// server exposes spec.md §6's endpoint table over a Go 1.22+ pattern-based
// http.ServeMux. No third-party router appears anywhere in the example
// pack, and the endpoint set is small and exact-match enough for stdlib
// patterns to carry the whole table.
type server struct {
	store   *serverstore.Store
	objects objectstore.Store
	logger  *slog.Logger
	mux     *http.ServeMux
}

func newServer(store *serverstore.Store, objects objectstore.Store, logger *slog.Logger) *server {
	s := &server{store: store, objects: objects, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/device/register", s.handleRegister)

	s.mux.HandleFunc("GET /api/device/status", s.auth(s.handleDeviceStatus))
	s.mux.HandleFunc("POST /api/sync/upload", s.auth(s.handleUpload))
	s.mux.HandleFunc("POST /api/sync/confirm-delete", s.auth(s.handleConfirmDelete))
	s.mux.HandleFunc("POST /api/sync/push-reviews", s.auth(s.handlePushReviews))
	s.mux.HandleFunc("POST /api/sync/pull", s.auth(s.handlePull))
	s.mux.HandleFunc("GET /api/decks", s.auth(s.handleDecks))
	// deckPath itself may contain slashes, and a trailing wildcard in
	// http.ServeMux's pattern syntax must be the pattern's last segment, so
	// the /stats suffix is stripped by hand in handleDeckStats.
	s.mux.HandleFunc("GET /api/decks/{deckPath...}", s.auth(s.handleDeckStats))
	s.mux.HandleFunc("GET /api/study/queue", s.auth(s.handleStudyQueue))
	s.mux.HandleFunc("POST /api/study/review", s.auth(s.handleSubmitReview))
	s.mux.HandleFunc("GET /api/settings", s.auth(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings/global", s.auth(s.handlePutGlobalSettings))
	s.mux.HandleFunc("PUT /api/settings/deck/{deckPath...}", s.auth(s.handlePutDeckSettings))
	s.mux.HandleFunc("DELETE /api/settings/deck/{deckPath...}", s.auth(s.handleDeleteDeckSettings))
}

type deviceHandler func(w http.ResponseWriter, r *http.Request, deviceID string)

func (s *server) auth(next deviceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeError(w, apierr.New(apierr.NotAuthenticated, "missing bearer token"))
			return
		}
		device, err := s.store.DeviceByToken(token)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.Storage, err))
			return
		}
		if device == nil {
			writeError(w, apierr.New(apierr.Unauthorized, "invalid token"))
			return
		}
		if err := s.store.TouchDevice(device.DeviceID, time.Now()); err != nil {
			s.logger.Warn("failed to touch device", "device_id", device.DeviceID, "error", err)
		}
		next(w, r, device.DeviceID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		apiErr = apierr.Wrap(apierr.Internal, err)
	}
	writeJSON(w, apiErr.HTTPStatus(), struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: string(apiErr.Code), Message: apiErr.Message})
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Wrap(apierr.Parse, err)
	}
	return nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	deviceID := newID()
	token := newID()
	dev, err := s.store.RegisterDevice(deviceID, token, body.Name, time.Now())
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		DeviceID string `json:"device_id"`
		Token    string `json:"token"`
	}{DeviceID: dev.DeviceID, Token: dev.Token})
}

func (s *server) handleDeviceStatus(w http.ResponseWriter, r *http.Request, deviceID string) {
	dev, err := s.store.DeviceStatus(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	if dev == nil {
		writeError(w, apierr.New(apierr.NotFound, "device not found"))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		DeviceID   string     `json:"device_id"`
		LastSeenAt *time.Time `json:"last_seen_at"`
	}{DeviceID: dev.DeviceID, LastSeenAt: dev.LastSeenAt})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request, deviceID string) {
	var body struct {
		Files []syncclient.UploadFile `json:"files"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	result, err := uploadFiles(s.store, s.objects, r.Context(), deviceID, body.Files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleConfirmDelete(w http.ResponseWriter, r *http.Request, deviceID string) {
	var body struct {
		CardIDs []int64 `json:"card_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.store.SoftDeleteCards(body.CardIDs, time.Now())
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		DeletedCount int `json:"deleted_count"`
	}{DeletedCount: n})
}

func (s *server) handlePushReviews(w http.ResponseWriter, r *http.Request, deviceID string) {
	var body struct {
		Reviews []syncclient.ReviewSubmission `json:"reviews"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	for _, sub := range body.Reviews {
		event := domain.ReviewEvent{
			ID: sub.ID, CardID: sub.CardID, DeviceID: deviceID, ReviewedAt: sub.ReviewedAt,
			Rating: sub.Rating, RatingScale: sub.RatingScale, AnswerMode: sub.AnswerMode,
			TypedAnswer: sub.TypedAnswer, WasCorrect: sub.WasCorrect, ElapsedMs: sub.ElapsedMs,
			IntervalBefore: sub.IntervalBefore, IntervalAfter: sub.IntervalAfter,
			EaseBefore: sub.EaseBefore, EaseAfter: sub.EaseAfter, Algorithm: sub.Algorithm,
		}
		if _, err := s.store.InsertReview(event); err != nil {
			writeError(w, apierr.Wrap(apierr.Storage, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, struct {
		SyncedCount int `json:"synced_count"`
	}{SyncedCount: len(body.Reviews)})
}

func (s *server) handlePull(w http.ResponseWriter, r *http.Request, deviceID string) {
	var body struct {
		LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	cards, err := s.store.GetCardsSince(deviceID, body.LastSyncAt)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	states, err := s.store.GetCardStatesSince(deviceID, body.LastSyncAt)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	global, err := s.store.GetGlobalSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	decks, err := s.store.ListDeckSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}

	writeJSON(w, http.StatusOK, syncclient.PullResult{
		Cards: cards, CardStates: states, GlobalSetting: &global, DeckSettings: decks,
	})
}

func (s *server) handleDecks(w http.ResponseWriter, r *http.Request, deviceID string) {
	cards, err := s.store.GetCardsSince(deviceID, nil)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	counts := make(map[string]int)
	var order []string
	for _, c := range cards {
		if _, seen := counts[c.DeckPath]; !seen {
			order = append(order, c.DeckPath)
		}
		counts[c.DeckPath]++
	}
	decks := make([]syncclient.DeckInfo, 0, len(order))
	for _, path := range order {
		decks = append(decks, syncclient.DeckInfo{Path: path, CardCount: counts[path]})
	}
	writeJSON(w, http.StatusOK, struct {
		Decks []syncclient.DeckInfo `json:"decks"`
	}{Decks: decks})
}

func (s *server) handleDeckStats(w http.ResponseWriter, r *http.Request, deviceID string) {
	deckPath := strings.TrimSuffix(r.PathValue("deckPath"), "/stats")
	stats, err := s.store.GetDeckStats(deviceID, deckPath)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, syncclient.DeckStats{
		DeckPath: stats.DeckPath, TotalCards: stats.TotalCards, NewCount: stats.NewCount,
		LearningCount: stats.LearningCount, ReviewCount: stats.ReviewCount,
		RelearningCount: stats.RelearningCount, RetentionEstimate: stats.RetentionEstimate,
	})
}

func (s *server) handleStudyQueue(w http.ResponseWriter, r *http.Request, deviceID string) {
	deckPath := r.URL.Query().Get("deck_path")

	global, err := s.store.GetGlobalSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	var deckOverride *domain.DeckSettings
	if deckPath != "" {
		deckOverride, err = s.store.GetDeckSettings(deviceID, deckPath)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.Storage, err))
			return
		}
	}
	eff := domain.Effective(global, deckOverride)

	newCards, err := s.store.GetNewCards(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	today := queue.Today(time.Now(), eff.DailyResetHour)
	dueCards, err := s.store.GetDueCards(deviceID, today.Add(24*time.Hour))
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}

	if deckPath != "" {
		newCards = filterDeck(newCards, deckPath)
		dueCards = filterDeck(dueCards, deckPath)
	}

	built := queue.Build(newCards, dueCards, eff.DailyNewLimit, eff.DailyReviewLimit)
	writeJSON(w, http.StatusOK, syncclient.StudyQueue{
		NewCards: built.NewCards, ReviewCards: built.ReviewCards,
		NewLimit: built.NewLimit, ReviewLimit: built.ReviewLimit,
		NewRemain: built.NewRemain, ReviewRemain: built.ReviewRemain,
	})
}

func filterDeck(cards []domain.Card, deckPath string) []domain.Card {
	out := cards[:0:0]
	for _, c := range cards {
		if c.DeckPath == deckPath {
			out = append(out, c)
		}
	}
	return out
}

func (s *server) handleSubmitReview(w http.ResponseWriter, r *http.Request, deviceID string) {
	var req syncclient.SubmitReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	card, err := s.store.GetCard(req.CardID)
	if err != nil {
		writeError(w, apierr.New(apierr.NotFound, "card not found"))
		return
	}

	global, err := s.store.GetGlobalSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	deckOverride, err := s.store.GetDeckSettings(deviceID, card.DeckPath)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	eff := domain.Effective(global, deckOverride)

	algo, err := scheduler.ByName(eff.Algorithm)
	if err != nil {
		writeError(w, apierr.New(apierr.BadRequest, err.Error()))
		return
	}

	prevState, err := s.store.GetCardState(req.CardID)
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
	if err := s.store.SaveCardState(deviceID, nextState, now); err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}

	event := domain.ReviewEvent{
		CardID: req.CardID, DeviceID: deviceID, ReviewedAt: now,
		Rating: rating, RatingScale: eff.RatingScale, AnswerMode: req.AnswerMode,
		TypedAnswer: req.TypedAnswer, WasCorrect: wasCorrect, ElapsedMs: req.ElapsedMs,
		IntervalBefore: prevState.IntervalDays, IntervalAfter: nextState.IntervalDays,
		EaseBefore: prevState.EaseFactor, EaseAfter: nextState.EaseFactor, Algorithm: algo.Name(),
	}
	if _, err := s.store.InsertReview(event); err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}

	writeJSON(w, http.StatusOK, syncclient.SubmitReviewResult{NextState: nextState, NextDue: &nextDue})
}

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request, deviceID string) {
	global, err := s.store.GetGlobalSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	decks, err := s.store.ListDeckSettings(deviceID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, syncclient.SettingsResult{Global: global, Decks: decks})
}

func (s *server) handlePutGlobalSettings(w http.ResponseWriter, r *http.Request, deviceID string) {
	var partial domain.GlobalSettings
	if err := decodeJSON(r, &partial); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.PutGlobalSettings(deviceID, partial); err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, partial)
}

func (s *server) handlePutDeckSettings(w http.ResponseWriter, r *http.Request, deviceID string) {
	deckPath := r.PathValue("deckPath")
	var partial domain.DeckSettings
	if err := decodeJSON(r, &partial); err != nil {
		writeError(w, err)
		return
	}
	partial.DeckPath = deckPath
	if err := s.store.PutDeckSettings(deviceID, partial); err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, partial)
}

func (s *server) handleDeleteDeckSettings(w http.ResponseWriter, r *http.Request, deviceID string) {
	deckPath := r.PathValue("deckPath")
	deleted, err := s.store.DeleteDeckSettings(deviceID, deckPath)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.Storage, err))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted bool `json:"deleted"`
	}{Deleted: deleted})
}
