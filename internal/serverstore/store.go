package serverstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// StorageError wraps a failed operation with the collection it touched.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("serverstore: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// RegisterDevice issues a new device row; name is optional. The caller
// (the HTTP layer) supplies already-generated identifiers so this package
// stays free of randomness, matching spec.md §9's emphasis on
// deterministic cores.
func (s *Store) RegisterDevice(deviceID, token, name string, now time.Time) (Device, error) {
	_, err := s.db.Exec(`
		INSERT INTO devices (device_id, token, name, registered_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
	`, deviceID, token, name, timeToText(now), timeToText(now))
	if err != nil {
		return Device{}, wrap("register_device", err)
	}
	return Device{DeviceID: deviceID, Token: token, Name: name, RegisteredAt: now, LastSeenAt: &now}, nil
}

// DeviceByToken resolves a bearer token to its device, for the
// Authorization middleware.
func (s *Store) DeviceByToken(token string) (*Device, error) {
	row := s.db.QueryRow(`SELECT device_id, token, name, registered_at, last_seen_at FROM devices WHERE token = ?`, token)
	return scanDevice(row)
}

// DeviceStatus returns a device's own row, for GET /api/device/status.
func (s *Store) DeviceStatus(deviceID string) (*Device, error) {
	row := s.db.QueryRow(`SELECT device_id, token, name, registered_at, last_seen_at FROM devices WHERE device_id = ?`, deviceID)
	return scanDevice(row)
}

func scanDevice(row *sql.Row) (*Device, error) {
	var d Device
	var registeredAt string
	var lastSeenAt sql.NullString
	err := row.Scan(&d.DeviceID, &d.Token, &d.Name, &registeredAt, &lastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("scan_device", err)
	}
	if d.RegisteredAt, err = textToTime(registeredAt); err != nil {
		return nil, wrap("scan_device", err)
	}
	if d.LastSeenAt, err = nullStringToTime(lastSeenAt); err != nil {
		return nil, wrap("scan_device", err)
	}
	return &d, nil
}

// TouchDevice updates last_seen_at.
func (s *Store) TouchDevice(deviceID string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE devices SET last_seen_at = ? WHERE device_id = ?`, timeToText(now), deviceID)
	return wrap("touch_device", err)
}

// GetNextCardID is the monotonic ID allocator, visible to every device,
// spec.md §4.6/§5.
func (s *Store) GetNextCardID() (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, wrap("get_next_card_id", err)
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRow(`SELECT next_id FROM id_allocator WHERE id = 1`).Scan(&next)
	if err == sql.ErrNoRows {
		next = 1
		if _, err := tx.Exec(`INSERT INTO id_allocator (id, next_id) VALUES (1, ?)`, next+1); err != nil {
			return 0, wrap("get_next_card_id", err)
		}
	} else if err != nil {
		return 0, wrap("get_next_card_id", err)
	} else {
		if _, err := tx.Exec(`UPDATE id_allocator SET next_id = ? WHERE id = 1`, next+1); err != nil {
			return 0, wrap("get_next_card_id", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap("get_next_card_id", err)
	}
	return next, nil
}

// UpsertCard inserts or updates a card owned by deviceID. On update,
// deleted_at is always cleared — re-uploading identical content
// resurrects a soft-deleted card, spec.md §3.
func (s *Store) UpsertCard(card domain.Card, deviceID string) error {
	_, err := s.db.Exec(`
		INSERT INTO cards (id, device_id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			deck_path=excluded.deck_path, question=excluded.question, answer=excluded.answer,
			source_file=excluded.source_file, question_hash=excluded.question_hash,
			answer_hash=excluded.answer_hash, updated_at=excluded.updated_at, deleted_at=NULL
	`,
		card.ID, deviceID, card.DeckPath, card.Question, card.Answer, card.SourceFile,
		card.QuestionHash, card.AnswerHash, timeToText(card.CreatedAt), timeToText(card.UpdatedAt),
	)
	return wrap("upsert_card", err)
}

// SoftDeleteCards marks cards as deleted, stamping updated_at so the
// tombstones reach incremental pulls, and returns how many rows changed.
func (s *Store) SoftDeleteCards(ids []int64, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, wrap("soft_delete_cards", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE cards SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)
	if err != nil {
		return 0, wrap("soft_delete_cards", err)
	}
	defer stmt.Close()

	count := 0
	for _, id := range ids {
		res, err := stmt.Exec(timeToText(now), timeToText(now), id)
		if err != nil {
			return 0, wrap("soft_delete_cards", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, wrap("soft_delete_cards", err)
		}
		count += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap("soft_delete_cards", err)
	}
	return count, nil
}

// GetOrphanedCards returns non-deleted cards owned by deviceID whose ID is
// not among currentIDs, with a 50-byte question preview.
func (s *Store) GetOrphanedCards(deviceID string, currentIDs []int64) ([]OrphanedCard, error) {
	rows, err := s.db.Query(`SELECT id, question FROM cards WHERE device_id = ? AND deleted_at IS NULL ORDER BY id ASC`, deviceID)
	if err != nil {
		return nil, wrap("get_orphaned_cards", err)
	}
	defer rows.Close()

	present := make(map[int64]bool, len(currentIDs))
	for _, id := range currentIDs {
		present[id] = true
	}

	var orphans []OrphanedCard
	for rows.Next() {
		var id int64
		var question string
		if err := rows.Scan(&id, &question); err != nil {
			return nil, wrap("get_orphaned_cards", err)
		}
		if present[id] {
			continue
		}
		orphans = append(orphans, OrphanedCard{ID: id, QuestionPreview: preview(question, 50)})
	}
	return orphans, rows.Err()
}

func preview(s string, n int) string {
	b := []byte(s)
	if len(b) <= n {
		return s
	}
	return string(b[:n])
}

// GetCardsSince returns a device's cards, filtered by updated_at > since
// when since is present (including tombstones); when since is absent, it
// returns all non-deleted cards — the bootstrap behavior from spec.md §9
// Open Question (b).
func (s *Store) GetCardsSince(deviceID string, since *time.Time) ([]domain.Card, error) {
	var rows *sql.Rows
	var err error
	if since == nil {
		rows, err = s.db.Query(`
			SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
			FROM cards WHERE device_id = ? AND deleted_at IS NULL ORDER BY id ASC
		`, deviceID)
	} else {
		rows, err = s.db.Query(`
			SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
			FROM cards WHERE device_id = ? AND updated_at > ? ORDER BY id ASC
		`, deviceID, timeToText(*since))
	}
	if err != nil {
		return nil, wrap("get_cards_since", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		var createdAt, updatedAt string
		var deletedAt sql.NullString
		if err := rows.Scan(&c.ID, &c.DeckPath, &c.Question, &c.Answer, &c.SourceFile, &c.QuestionHash,
			&c.AnswerHash, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, wrap("get_cards_since", err)
		}
		if c.CreatedAt, err = textToTime(createdAt); err != nil {
			return nil, wrap("get_cards_since", err)
		}
		if c.UpdatedAt, err = textToTime(updatedAt); err != nil {
			return nil, wrap("get_cards_since", err)
		}
		if c.DeletedAt, err = nullStringToTime(deletedAt); err != nil {
			return nil, wrap("get_cards_since", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// SaveCardState upserts one device's scheduling state for a card, stamping
// the storage-layer updated_at used by GetCardStatesSince.
func (s *Store) SaveCardState(deviceID string, state domain.CardState, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO card_states (card_id, device_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			status=excluded.status, interval_days=excluded.interval_days, ease_factor=excluded.ease_factor,
			stability=excluded.stability, difficulty=excluded.difficulty, lapses=excluded.lapses,
			reviews_count=excluded.reviews_count, due_date=excluded.due_date, updated_at=excluded.updated_at
	`,
		state.CardID, deviceID, int(state.Status), state.IntervalDays, state.EaseFactor,
		nullFloat(state.Stability), nullFloat(state.Difficulty), state.Lapses, state.ReviewsCount,
		nullableTimeToText(state.DueDate), timeToText(now),
	)
	return wrap("save_card_state", err)
}

// GetCardState returns one card's state for a device.
func (s *Store) GetCardState(cardID int64) (domain.CardState, error) {
	row := s.db.QueryRow(`
		SELECT card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date
		FROM card_states WHERE card_id = ?
	`, cardID)

	var st domain.CardState
	var status int
	var stability, difficulty sql.NullFloat64
	var dueDate sql.NullString
	err := row.Scan(&st.CardID, &status, &st.IntervalDays, &st.EaseFactor, &stability, &difficulty, &st.Lapses, &st.ReviewsCount, &dueDate)
	if err != nil {
		return domain.CardState{}, wrap("get_card_state", err)
	}
	st.Status = domain.Status(status)
	st.Stability = nullFloatToPtr(stability)
	st.Difficulty = nullFloatToPtr(difficulty)
	if st.DueDate, err = nullStringToTime(dueDate); err != nil {
		return domain.CardState{}, wrap("get_card_state", err)
	}
	return st, nil
}

// GetCardStatesSince returns a device's card states; if since is absent,
// all states are returned (spec.md §4.6 bootstrap behavior).
func (s *Store) GetCardStatesSince(deviceID string, since *time.Time) ([]domain.CardState, error) {
	var rows *sql.Rows
	var err error
	if since == nil {
		rows, err = s.db.Query(`
			SELECT card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date
			FROM card_states WHERE device_id = ? ORDER BY card_id ASC
		`, deviceID)
	} else {
		rows, err = s.db.Query(`
			SELECT card_id, status, interval_days, ease_factor, stability, difficulty, lapses, reviews_count, due_date
			FROM card_states WHERE device_id = ? AND updated_at > ? ORDER BY card_id ASC
		`, deviceID, timeToText(*since))
	}
	if err != nil {
		return nil, wrap("get_card_states_since", err)
	}
	defer rows.Close()

	var states []domain.CardState
	for rows.Next() {
		var st domain.CardState
		var status int
		var stability, difficulty sql.NullFloat64
		var dueDate sql.NullString
		if err := rows.Scan(&st.CardID, &status, &st.IntervalDays, &st.EaseFactor, &stability, &difficulty, &st.Lapses, &st.ReviewsCount, &dueDate); err != nil {
			return nil, wrap("get_card_states_since", err)
		}
		st.Status = domain.Status(status)
		st.Stability = nullFloatToPtr(stability)
		st.Difficulty = nullFloatToPtr(difficulty)
		if st.DueDate, err = nullStringToTime(dueDate); err != nil {
			return nil, wrap("get_card_states_since", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// InsertReview permanently stores a pushed review event, assigning it a
// fresh server-side ID (sqlite's rowid autoincrement) rather than trusting
// the device's local ID, which only needs to be unique on-device.
func (s *Store) InsertReview(review domain.ReviewEvent) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO reviews (card_id, device_id, reviewed_at, rating, rating_scale, answer_mode,
			typed_answer, was_correct, elapsed_ms, interval_before, interval_after, ease_before, ease_after, algorithm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.CardID, review.DeviceID, timeToText(review.ReviewedAt), int(review.Rating),
		int(review.RatingScale), int(review.AnswerMode), nullStringPtr(review.TypedAnswer),
		nullBoolPtr(review.WasCorrect), nullInt64Ptr(review.ElapsedMs), review.IntervalBefore,
		review.IntervalAfter, review.EaseBefore, review.EaseAfter, review.Algorithm,
	)
	if err != nil {
		return 0, wrap("insert_review", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("insert_review", err)
	}
	return id, nil
}

// GetNewCards returns a device's new-status cards (or cards with no state
// row at all), ID ascending — a queue feeder for internal/queue.
func (s *Store) GetNewCards(deviceID string) ([]domain.Card, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.deck_path, c.question, c.answer, c.source_file, c.question_hash, c.answer_hash, c.created_at, c.updated_at, c.deleted_at
		FROM cards c
		LEFT JOIN card_states cs ON cs.card_id = c.id
		WHERE c.device_id = ? AND c.deleted_at IS NULL AND (cs.card_id IS NULL OR cs.status = ?)
		ORDER BY c.id ASC
	`, deviceID, int(domain.StatusNew))
	if err != nil {
		return nil, wrap("get_new_cards", err)
	}
	defer rows.Close()
	return scanCardRows(rows)
}

// GetDueCards returns a device's review/learning/relearning cards whose
// due_date is on or before cutoff ("today" in the device's calendar,
// computed by internal/queue).
func (s *Store) GetDueCards(deviceID string, cutoff time.Time) ([]domain.Card, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.deck_path, c.question, c.answer, c.source_file, c.question_hash, c.answer_hash, c.created_at, c.updated_at, c.deleted_at
		FROM cards c
		JOIN card_states cs ON cs.card_id = c.id
		WHERE c.device_id = ? AND c.deleted_at IS NULL
			AND cs.status IN (?, ?, ?)
			AND cs.due_date IS NOT NULL AND cs.due_date <= ?
		ORDER BY cs.due_date ASC
	`, deviceID, int(domain.StatusReview), int(domain.StatusLearning), int(domain.StatusRelearning), timeToText(cutoff))
	if err != nil {
		return nil, wrap("get_due_cards", err)
	}
	defer rows.Close()
	return scanCardRows(rows)
}

func scanCardRows(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		var createdAt, updatedAt string
		var deletedAt sql.NullString
		if err := rows.Scan(&c.ID, &c.DeckPath, &c.Question, &c.Answer, &c.SourceFile, &c.QuestionHash,
			&c.AnswerHash, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, wrap("scan_card_rows", err)
		}
		var err error
		if c.CreatedAt, err = textToTime(createdAt); err != nil {
			return nil, wrap("scan_card_rows", err)
		}
		if c.UpdatedAt, err = textToTime(updatedAt); err != nil {
			return nil, wrap("scan_card_rows", err)
		}
		if c.DeletedAt, err = nullStringToTime(deletedAt); err != nil {
			return nil, wrap("scan_card_rows", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetDeckStats aggregates a device's non-deleted cards in one deck.
func (s *Store) GetDeckStats(deviceID, deckPath string) (DeckStats, error) {
	stats := DeckStats{DeckPath: deckPath}

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN cs.status = ? OR cs.status IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cs.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cs.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cs.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(cs.reviews_count), 0),
			COALESCE(SUM(cs.lapses), 0)
		FROM cards c
		LEFT JOIN card_states cs ON cs.card_id = c.id
		WHERE c.device_id = ? AND c.deck_path = ? AND c.deleted_at IS NULL
	`, int(domain.StatusNew), int(domain.StatusLearning), int(domain.StatusReview), int(domain.StatusRelearning), deviceID, deckPath)

	var totalReviews, totalLapses int
	err := row.Scan(&stats.TotalCards, &stats.NewCount, &stats.LearningCount, &stats.ReviewCount, &stats.RelearningCount, &totalReviews, &totalLapses)
	if err != nil {
		return DeckStats{}, wrap("get_deck_stats", err)
	}

	if totalReviews > 0 {
		stats.RetentionEstimate = 1 - float64(totalLapses)/float64(totalReviews)
	}
	return stats, nil
}

// GetGlobalSettings returns a device's global settings, or domain
// defaults if none has been written yet.
func (s *Store) GetGlobalSettings(deviceID string) (domain.GlobalSettings, error) {
	row := s.db.QueryRow(`
		SELECT algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit, daily_reset_hour
		FROM global_settings WHERE device_id = ?
	`, deviceID)
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

// PutGlobalSettings overwrites a device's global settings row.
func (s *Store) PutGlobalSettings(deviceID string, g domain.GlobalSettings) error {
	_, err := s.db.Exec(`
		INSERT INTO global_settings (device_id, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit, daily_reset_hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			algorithm=excluded.algorithm, rating_scale=excluded.rating_scale, match_mode=excluded.match_mode,
			fuzzy_threshold=excluded.fuzzy_threshold, daily_new_limit=excluded.daily_new_limit,
			daily_review_limit=excluded.daily_review_limit, daily_reset_hour=excluded.daily_reset_hour
	`, deviceID, g.Algorithm, int(g.RatingScale), int(g.MatchMode), g.FuzzyThreshold, g.DailyNewLimit, g.DailyReviewLimit, g.DailyResetHour)
	return wrap("put_global_settings", err)
}

// GetDeckSettings returns a device's override row for one deck, or nil.
func (s *Store) GetDeckSettings(deviceID, deckPath string) (*domain.DeckSettings, error) {
	row := s.db.QueryRow(`
		SELECT deck_path, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit
		FROM deck_settings WHERE device_id = ? AND deck_path = ?
	`, deviceID, deckPath)

	var d domain.DeckSettings
	var algo sql.NullString
	var rs, mm, nl, rl sql.NullInt64
	var ft sql.NullFloat64
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

// PutDeckSettings overwrites a device's override row for one deck.
func (s *Store) PutDeckSettings(deviceID string, d domain.DeckSettings) error {
	var rs, mm, nl, rl sql.NullInt64
	if d.RatingScale != nil {
		rs = sql.NullInt64{Int64: int64(*d.RatingScale), Valid: true}
	}
	if d.MatchMode != nil {
		mm = sql.NullInt64{Int64: int64(*d.MatchMode), Valid: true}
	}
	if d.DailyNewLimit != nil {
		nl = sql.NullInt64{Int64: int64(*d.DailyNewLimit), Valid: true}
	}
	if d.DailyReviewLimit != nil {
		rl = sql.NullInt64{Int64: int64(*d.DailyReviewLimit), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO deck_settings (device_id, deck_path, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, deck_path) DO UPDATE SET
			algorithm=excluded.algorithm, rating_scale=excluded.rating_scale, match_mode=excluded.match_mode,
			fuzzy_threshold=excluded.fuzzy_threshold, daily_new_limit=excluded.daily_new_limit,
			daily_review_limit=excluded.daily_review_limit
	`, deviceID, d.DeckPath, nullStringPtr(d.Algorithm), rs, mm, nullFloat(d.FuzzyThreshold), nl, rl)
	return wrap("put_deck_settings", err)
}

// DeleteDeckSettings removes a device's override row for one deck.
func (s *Store) DeleteDeckSettings(deviceID, deckPath string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM deck_settings WHERE device_id = ? AND deck_path = ?`, deviceID, deckPath)
	if err != nil {
		return false, wrap("delete_deck_settings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete_deck_settings", err)
	}
	return n > 0, nil
}

// GetCard returns a single card, regardless of device, for lookups that
// already know which device owns it (e.g. scheduling a review).
func (s *Store) GetCard(cardID int64) (domain.Card, error) {
	row := s.db.QueryRow(`
		SELECT id, deck_path, question, answer, source_file, question_hash, answer_hash, created_at, updated_at, deleted_at
		FROM cards WHERE id = ?
	`, cardID)

	var c domain.Card
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	err := row.Scan(&c.ID, &c.DeckPath, &c.Question, &c.Answer, &c.SourceFile, &c.QuestionHash,
		&c.AnswerHash, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return domain.Card{}, wrap("get_card", err)
	}
	if c.CreatedAt, err = textToTime(createdAt); err != nil {
		return domain.Card{}, wrap("get_card", err)
	}
	if c.UpdatedAt, err = textToTime(updatedAt); err != nil {
		return domain.Card{}, wrap("get_card", err)
	}
	if c.DeletedAt, err = nullStringToTime(deletedAt); err != nil {
		return domain.Card{}, wrap("get_card", err)
	}
	return c, nil
}

// ListDeckSettings returns every deck override row for a device, used to
// answer GET /api/settings.
func (s *Store) ListDeckSettings(deviceID string) ([]domain.DeckSettings, error) {
	rows, err := s.db.Query(`
		SELECT deck_path, algorithm, rating_scale, match_mode, fuzzy_threshold, daily_new_limit, daily_review_limit
		FROM deck_settings WHERE device_id = ? ORDER BY deck_path ASC
	`, deviceID)
	if err != nil {
		return nil, wrap("list_deck_settings", err)
	}
	defer rows.Close()

	var out []domain.DeckSettings
	for rows.Next() {
		var d domain.DeckSettings
		var algo sql.NullString
		var rs, mm, nl, rl sql.NullInt64
		var ft sql.NullFloat64
		if err := rows.Scan(&d.DeckPath, &algo, &rs, &mm, &ft, &nl, &rl); err != nil {
			return nil, wrap("list_deck_settings", err)
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
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertMDFile records the server's index row for one uploaded file.
func (s *Store) UpsertMDFile(deviceID, filePath, contentHash string, lastModified time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO md_files (device_id, file_path, content_hash, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id, file_path) DO UPDATE SET content_hash=excluded.content_hash, last_modified=excluded.last_modified
	`, deviceID, filePath, contentHash, timeToText(lastModified))
	return wrap("upsert_md_file", err)
}
