package localstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// StorageError wraps a failed operation with the collection it touched,
// the way the teacher's storage.go wraps every sqlite error with
// fmt.Errorf("failed to ...: %w", err).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("localstore: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// MDFile is the tracked-file record for one markdown deck file on disk.
type MDFile struct {
	FilePath      string
	ContentHash   string
	LastModified  time.Time
	PendingUpload bool
}

// UpsertCardsFromSync idempotently writes cards pulled from the server.
// Existing card_states rows are preserved; a default state is created only
// for cards that don't have one yet, per spec.md §4.5.
func (s *Store) UpsertCardsFromSync(cards []domain.Card) error {
	tx, err := s.db.Begin()
	if err != nil {
		return wrap("upsert_cards_from_sync", err)
	}
	defer tx.Rollback()

	for _, c := range cards {
		_, err := tx.Exec(`
			INSERT INTO cards (id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				deck_path=excluded.deck_path, question=excluded.question, answer=excluded.answer,
				source_file=excluded.source_file, question_hash=excluded.question_hash,
				answer_hash=excluded.answer_hash, updated_at=excluded.updated_at, deleted_at=excluded.deleted_at
		`,
			c.ID, c.DeckPath, c.Question, c.Answer, c.SourceFile, c.QuestionHash, c.AnswerHash,
			timeToText(c.CreatedAt), timeToText(c.UpdatedAt), nullableTimeToText(c.DeletedAt),
		)
		if err != nil {
			return wrap("upsert_cards_from_sync", err)
		}

		init := domain.NewCardState(c.ID)
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO card_states (card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			init.CardID, int(init.Status), init.IntervalDays, init.EaseFactor,
			nullFloat(init.Stability), nullFloat(init.Difficulty), init.Lapses, init.ReviewsCount,
			nullableTimeToText(init.DueDate),
		)
		if err != nil {
			return wrap("upsert_cards_from_sync", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("upsert_cards_from_sync", err)
	}
	return nil
}

// GetCard returns a single card by ID.
func (s *Store) GetCard(id int64) (domain.Card, error) {
	row := s.db.QueryRow(`
		SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
		FROM cards WHERE id = ?
	`, id)
	return scanCard(row)
}

// GetCardsByDeck returns every non-deleted card in a deck, ID ascending.
func (s *Store) GetCardsByDeck(deckPath string) ([]domain.Card, error) {
	rows, err := s.db.Query(`
		SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
		FROM cards WHERE deck_path = ? AND deleted_at IS NULL ORDER BY id ASC
	`, deckPath)
	if err != nil {
		return nil, wrap("get_cards_by_deck", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

// GetAllCards returns every card in the store, regardless of soft-delete
// status.
func (s *Store) GetAllCards() ([]domain.Card, error) {
	rows, err := s.db.Query(`
		SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
		FROM cards ORDER BY id ASC
	`)
	if err != nil {
		return nil, wrap("get_all_cards", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCard(row scannable) (domain.Card, error) {
	var c domain.Card
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	err := row.Scan(&c.ID, &c.DeckPath, &c.Question, &c.Answer, &c.SourceFile, &c.QuestionHash, &c.AnswerHash,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return domain.Card{}, wrap("scan_card", err)
	}
	if c.CreatedAt, err = textToTime(createdAt); err != nil {
		return domain.Card{}, wrap("scan_card", err)
	}
	if c.UpdatedAt, err = textToTime(updatedAt); err != nil {
		return domain.Card{}, wrap("scan_card", err)
	}
	if c.DeletedAt, err = nullStringToTime(deletedAt); err != nil {
		return domain.Card{}, wrap("scan_card", err)
	}
	return c, nil
}

func scanCards(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCardState returns the per-device scheduling state for a card.
func (s *Store) GetCardState(cardID int64) (domain.CardState, error) {
	row := s.db.QueryRow(`
		SELECT card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date
		FROM card_states WHERE card_id = ?
	`, cardID)
	return scanCardState(row)
}

func scanCardState(row scannable) (domain.CardState, error) {
	var st domain.CardState
	var status int
	var stability, difficulty sql.NullFloat64
	var dueDate sql.NullString
	err := row.Scan(&st.CardID, &status, &st.IntervalDays, &st.EaseFactor, &stability, &difficulty,
		&st.Lapses, &st.ReviewsCount, &dueDate)
	if err != nil {
		return domain.CardState{}, wrap("scan_card_state", err)
	}
	st.Status = domain.Status(status)
	st.Stability = nullFloatToPtr(stability)
	st.Difficulty = nullFloatToPtr(difficulty)
	if st.DueDate, err = nullStringToTime(dueDate); err != nil {
		return domain.CardState{}, wrap("scan_card_state", err)
	}
	return st, nil
}

// SaveCardState writes the scheduling state produced by a local review.
// Synced starts false implicitly: the row itself carries no synced flag
// (spec.md §4.5 tracks sync status on pending_reviews, not card_states);
// the next successful pull's SaveCardStatesSynced overwrites this row.
func (s *Store) SaveCardState(state domain.CardState) error {
	_, err := s.db.Exec(`
		INSERT INTO card_states (card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			status=excluded.status, interval_days=excluded.interval_days, ease_factor=excluded.ease_factor,
			stability=excluded.stability, difficulty=excluded.difficulty, lapses=excluded.lapses,
			reviews_count=excluded.reviews_count, due_date=excluded.due_date
	`,
		state.CardID, int(state.Status), state.IntervalDays, state.EaseFactor,
		nullFloat(state.Stability), nullFloat(state.Difficulty), state.Lapses, state.ReviewsCount,
		nullableTimeToText(state.DueDate),
	)
	return wrap("save_card_state", err)
}

// SaveCardStatesSynced overwrites states pulled from the server.
func (s *Store) SaveCardStatesSynced(states []domain.CardState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return wrap("save_card_states_synced", err)
	}
	defer tx.Rollback()

	for _, st := range states {
		_, err := tx.Exec(`
			INSERT INTO card_states (card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(card_id) DO UPDATE SET
				status=excluded.status, interval_days=excluded.interval_days, ease_factor=excluded.ease_factor,
				stability=excluded.stability, difficulty=excluded.difficulty, lapses=excluded.lapses,
				reviews_count=excluded.reviews_count, due_date=excluded.due_date
		`,
			st.CardID, int(st.Status), st.IntervalDays, st.EaseFactor,
			nullFloat(st.Stability), nullFloat(st.Difficulty), st.Lapses, st.ReviewsCount,
			nullableTimeToText(st.DueDate),
		)
		if err != nil {
			return wrap("save_card_states_synced", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("save_card_states_synced", err)
	}
	return nil
}

// InsertPendingReview appends a review event to the unsynced queue and
// returns its assigned local ID.
func (s *Store) InsertPendingReview(review domain.ReviewEvent) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO pending_reviews (card_id, device_id, reviewed_at, rating, rating_scale, answer_mode,
			typed_answer, was_correct, elapsed_ms, interval_before, interval_after, ease_before, ease_after, algorithm, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		review.CardID, review.DeviceID, timeToText(review.ReviewedAt), int(review.Rating), int(review.RatingScale),
		int(review.AnswerMode), nullStringPtr(review.TypedAnswer), nullBoolPtr(review.WasCorrect),
		nullInt64Ptr(review.ElapsedMs), review.IntervalBefore, review.IntervalAfter, review.EaseBefore,
		review.EaseAfter, review.Algorithm,
	)
	if err != nil {
		return 0, wrap("insert_pending_review", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrap("insert_pending_review", err)
	}
	return id, nil
}

// GetPendingReviews returns every review event not yet acknowledged by the
// server.
func (s *Store) GetPendingReviews() ([]domain.ReviewEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, card_id, device_id, reviewed_at, rating, rating_scale, answer_mode,
			typed_answer, was_correct, elapsed_ms, interval_before, interval_after, ease_before, ease_after, algorithm, synced
		FROM pending_reviews WHERE synced = 0 ORDER BY id ASC
	`)
	if err != nil {
		return nil, wrap("get_pending_reviews", err)
	}
	defer rows.Close()

	var reviews []domain.ReviewEvent
	for rows.Next() {
		var r domain.ReviewEvent
		var reviewedAt string
		var rating, ratingScale, answerMode int
		var typedAnswer sql.NullString
		var wasCorrect sql.NullBool
		var elapsedMs sql.NullInt64
		var synced bool

		err := rows.Scan(&r.ID, &r.CardID, &r.DeviceID, &reviewedAt, &rating, &ratingScale, &answerMode,
			&typedAnswer, &wasCorrect, &elapsedMs, &r.IntervalBefore, &r.IntervalAfter, &r.EaseBefore,
			&r.EaseAfter, &r.Algorithm, &synced)
		if err != nil {
			return nil, wrap("get_pending_reviews", err)
		}
		r.Rating = domain.Rating(rating)
		r.RatingScale = domain.RatingScale(ratingScale)
		r.AnswerMode = domain.AnswerMode(answerMode)
		r.TypedAnswer = nullStringToPtr(typedAnswer)
		r.WasCorrect = nullBoolToPtr(wasCorrect)
		r.ElapsedMs = nullInt64ToPtr(elapsedMs)
		r.Synced = synced
		if r.ReviewedAt, err = textToTime(reviewedAt); err != nil {
			return nil, wrap("get_pending_reviews", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// MarkReviewsSynced atomically flips the synced flag for the given local
// review IDs.
func (s *Store) MarkReviewsSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return wrap("mark_reviews_synced", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE pending_reviews SET synced = 1 WHERE id = ?`)
	if err != nil {
		return wrap("mark_reviews_synced", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return wrap("mark_reviews_synced", err)
		}
	}
	return wrap("mark_reviews_synced", tx.Commit())
}

// UpsertMDFile records the last-seen hash and modification time of a
// tracked deck file.
func (s *Store) UpsertMDFile(f MDFile) error {
	_, err := s.db.Exec(`
		INSERT INTO md_files (file_path, content_hash, last_modified, pending_upload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			content_hash=excluded.content_hash, last_modified=excluded.last_modified, pending_upload=excluded.pending_upload
	`, f.FilePath, f.ContentHash, timeToText(f.LastModified), f.PendingUpload)
	return wrap("upsert_md_file", err)
}

// GetMDFile returns the tracked record for one file path, or nil if it
// isn't tracked yet.
func (s *Store) GetMDFile(path string) (*MDFile, error) {
	row := s.db.QueryRow(`SELECT file_path, content_hash, last_modified, pending_upload FROM md_files WHERE file_path = ?`, path)
	var f MDFile
	var lastModified string
	err := row.Scan(&f.FilePath, &f.ContentHash, &lastModified, &f.PendingUpload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_md_file", err)
	}
	if f.LastModified, err = textToTime(lastModified); err != nil {
		return nil, wrap("get_md_file", err)
	}
	return &f, nil
}

// GetGlobalSettings returns the singleton global settings row, or
// domain's defaults if none has been written yet.
func (s *Store) GetGlobalSettings() (domain.GlobalSettings, error) {
	row := s.db.QueryRow(`
		SELECT algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit, daily_reset_hour
		FROM global_settings WHERE id = 1
	`)
	var g domain.GlobalSettings
	var ratingScale, matchMode int
	err := row.Scan(&g.Algorithm, &ratingScale, &matchMode, &g.FuzzyThreshold, &g.DailyNewLimit, &g.DailyReviewLimit, &g.DailyResetHour)
	if err == sql.ErrNoRows {
		return domain.DefaultGlobalSettings(), nil
	}
	if err != nil {
		return domain.GlobalSettings{}, wrap("get_global_settings", err)
	}
	g.RatingScale = domain.RatingScale(ratingScale)
	g.MatchMode = domain.MatchMode(matchMode)
	return g, nil
}

// SaveGlobalSettingsSynced overwrites the singleton global settings row.
func (s *Store) SaveGlobalSettingsSynced(g domain.GlobalSettings) error {
	_, err := s.db.Exec(`
		INSERT INTO global_settings (id, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit, daily_reset_hour)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			algorithm=excluded.algorithm, rating_scale=excluded.rating_scale, match_mode=excluded.match_mode,
			fuzzy_threshold=excluded.fuzzy_threshold, daily_new_limit=excluded.daily_new_limit,
			daily_review_limit=excluded.daily_review_limit, daily_reset_hour=excluded.daily_reset_hour
	`, g.Algorithm, int(g.RatingScale), int(g.MatchMode), g.FuzzyThreshold, g.DailyNewLimit, g.DailyReviewLimit, g.DailyResetHour)
	return wrap("save_global_settings_synced", err)
}

// GetDeckSettings returns the override row for one deck, or nil if the
// deck has no overrides.
func (s *Store) GetDeckSettings(deckPath string) (*domain.DeckSettings, error) {
	row := s.db.QueryRow(`
		SELECT deck_path, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit
		FROM deck_settings WHERE deck_path = ?
	`, deckPath)

	var d domain.DeckSettings
	var algo sql.NullString
	var rs, mm sql.NullInt64
	var ft sql.NullFloat64
	var nl, rl sql.NullInt64

	err := row.Scan(&d.DeckPath, &algo, &rs, &mm, &ft, &nl, &rl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_deck_settings", err)
	}

	d.Algorithm = nullStringToPtr(algo)
	if rs.Valid {
		v := domain.RatingScale(rs.Int64)
		d.RatingScale = &v
	}
	if mm.Valid {
		v := domain.MatchMode(mm.Int64)
		d.MatchMode = &v
	}
	if ft.Valid {
		v := ft.Float64
		d.FuzzyThreshold = &v
	}
	if nl.Valid {
		v := int(nl.Int64)
		d.DailyNewLimit = &v
	}
	if rl.Valid {
		v := int(rl.Int64)
		d.DailyReviewLimit = &v
	}
	return &d, nil
}

// SaveDeckSettingsSynced overwrites one deck's override row.
func (s *Store) SaveDeckSettingsSynced(d domain.DeckSettings) error {
	var rs, mm sql.NullInt64
	if d.RatingScale != nil {
		rs = sql.NullInt64{Int64: int64(*d.RatingScale), Valid: true}
	}
	if d.MatchMode != nil {
		mm = sql.NullInt64{Int64: int64(*d.MatchMode), Valid: true}
	}
	var nl, rl sql.NullInt64
	if d.DailyNewLimit != nil {
		nl = sql.NullInt64{Int64: int64(*d.DailyNewLimit), Valid: true}
	}
	if d.DailyReviewLimit != nil {
		rl = sql.NullInt64{Int64: int64(*d.DailyReviewLimit), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO deck_settings (deck_path, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(deck_path) DO UPDATE SET
			algorithm=excluded.algorithm, rating_scale=excluded.rating_scale, match_mode=excluded.match_mode,
			fuzzy_threshold=excluded.fuzzy_threshold, daily_new_limit=excluded.daily_new_limit,
			daily_review_limit=excluded.daily_review_limit
	`, d.DeckPath, nullStringPtr(d.Algorithm), rs, mm, nullFloat(d.FuzzyThreshold), nl, rl)
	return wrap("save_deck_settings_synced", err)
}

// GetSyncState returns the singleton sync watermark row.
func (s *Store) GetSyncState() (domain.SyncWatermark, error) {
	row := s.db.QueryRow(`SELECT last_sync_at, pending_changes FROM sync_state WHERE id = 1`)
	var lastSyncAt sql.NullString
	var w domain.SyncWatermark
	err := row.Scan(&lastSyncAt, &w.PendingChanges)
	if err == sql.ErrNoRows {
		return domain.SyncWatermark{}, nil
	}
	if err != nil {
		return domain.SyncWatermark{}, wrap("get_sync_state", err)
	}
	if w.LastSyncAt, err = nullStringToTime(lastSyncAt); err != nil {
		return domain.SyncWatermark{}, wrap("get_sync_state", err)
	}
	return w, nil
}

// UpdateSyncState records a successful sync's completion instant and
// resets the pending-change counter, spec.md §4.7 phase 8.
func (s *Store) UpdateSyncState(at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (id, last_sync_at, pending_changes)
		VALUES (1, ?, 0)
		ON CONFLICT(id) DO UPDATE SET last_sync_at=excluded.last_sync_at, pending_changes=0
	`, timeToText(at))
	return wrap("update_sync_state", err)
}

// IncrementPendingChanges bumps the counter on every local state-changing
// review, per spec.md §4.5.
func (s *Store) IncrementPendingChanges() error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (id, last_sync_at, pending_changes)
		VALUES (1, NULL, 1)
		ON CONFLICT(id) DO UPDATE SET pending_changes = pending_changes + 1
	`)
	return wrap("increment_pending_changes", err)
}

// GetLocalDevice returns the cached device identity, or nil if this
// device hasn't registered yet.
func (s *Store) GetLocalDevice() (*domain.DeviceIdentity, error) {
	row := s.db.QueryRow(`SELECT token, device_id FROM local_device WHERE id = 1`)
	var d domain.DeviceIdentity
	err := row.Scan(&d.Token, &d.DeviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_local_device", err)
	}
	return &d, nil
}

// SaveLocalDevice caches the device identity issued by the server.
func (s *Store) SaveLocalDevice(d domain.DeviceIdentity) error {
	_, err := s.db.Exec(`
		INSERT INTO local_device (id, token, device_id)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token=excluded.token, device_id=excluded.device_id
	`, d.Token, d.DeviceID)
	return wrap("save_local_device", err)
}
