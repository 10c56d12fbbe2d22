package localstore

// createTablesSQL mirrors spec.md §4.5's collection list. Safe to run on
// every connection open, matching the teacher's migrations.go discipline
// (CREATE TABLE IF NOT EXISTS throughout).
const createTablesSQL = `
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    deck_path TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    source_file TEXT NOT NULL,
    question_hash TEXT NOT NULL,
    answer_hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT
);

CREATE TABLE IF NOT EXISTS card_states (
    card_id INTEGER PRIMARY KEY,
    status INTEGER NOT NULL,
    interval_days REAL NOT NULL,
    ease_factor REAL NOT NULL,
    stability REAL,
    difficulty REAL,
    lapses INTEGER NOT NULL DEFAULT 0,
    reviews_count INTEGER NOT NULL DEFAULT 0,
    due_date TEXT,
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pending_reviews (
    id INTEGER PRIMARY KEY,
    card_id INTEGER NOT NULL,
    device_id TEXT NOT NULL,
    reviewed_at TEXT NOT NULL,
    rating INTEGER NOT NULL,
    rating_scale INTEGER NOT NULL,
    answer_mode INTEGER NOT NULL,
    typed_answer TEXT,
    was_correct INTEGER,
    elapsed_ms INTEGER,
    interval_before REAL NOT NULL,
    interval_after REAL NOT NULL,
    ease_before REAL NOT NULL,
    ease_after REAL NOT NULL,
    algorithm TEXT NOT NULL,
    synced INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS md_files (
    file_path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    pending_upload INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS deck_settings (
    deck_path TEXT PRIMARY KEY,
    algorithm TEXT,
    rating_scale INTEGER,
    match_mode INTEGER,
    fuzzy_threshold REAL,
    daily_new_limit INTEGER,
    daily_review_limit INTEGER
);

CREATE TABLE IF NOT EXISTS global_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    algorithm TEXT NOT NULL,
    rating_scale INTEGER NOT NULL,
    match_mode INTEGER NOT NULL,
    fuzzy_threshold REAL NOT NULL,
    daily_new_limit INTEGER NOT NULL,
    daily_review_limit INTEGER NOT NULL,
    daily_reset_hour INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    last_sync_at TEXT,
    pending_changes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS local_device (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    token TEXT NOT NULL,
    device_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_deck_path ON cards(deck_path);
CREATE INDEX IF NOT EXISTS idx_card_states_due ON card_states(due_date);
CREATE INDEX IF NOT EXISTS idx_pending_reviews_synced ON pending_reviews(synced);
`
