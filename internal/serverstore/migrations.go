package serverstore

// createTablesSQL mirrors spec.md §4.6's persisted state layout: cards,
// card_states, reviews, global_settings, deck_settings, devices, md_files —
// each scoped by device_id, since card-ID allocation is the only
// cross-device-visible invariant (spec.md §5).
const createTablesSQL = `
CREATE TABLE IF NOT EXISTS id_allocator (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    next_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
    device_id TEXT PRIMARY KEY,
    token TEXT NOT NULL UNIQUE,
    name TEXT,
    registered_at TEXT NOT NULL,
    last_seen_at TEXT
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    device_id TEXT NOT NULL,
    deck_path TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    source_file TEXT NOT NULL,
    question_hash TEXT NOT NULL,
    answer_hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT,
    FOREIGN KEY (device_id) REFERENCES devices(device_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS card_states (
    card_id INTEGER PRIMARY KEY,
    device_id TEXT NOT NULL,
    status INTEGER NOT NULL,
    interval_days REAL NOT NULL,
    ease_factor REAL NOT NULL,
    stability REAL,
    difficulty REAL,
    lapses INTEGER NOT NULL DEFAULT 0,
    reviews_count INTEGER NOT NULL DEFAULT 0,
    due_date TEXT,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reviews (
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
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS global_settings (
    device_id TEXT PRIMARY KEY,
    algorithm TEXT NOT NULL,
    rating_scale INTEGER NOT NULL,
    match_mode INTEGER NOT NULL,
    fuzzy_threshold REAL NOT NULL,
    daily_new_limit INTEGER NOT NULL,
    daily_review_limit INTEGER NOT NULL,
    daily_reset_hour INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deck_settings (
    device_id TEXT NOT NULL,
    deck_path TEXT NOT NULL,
    algorithm TEXT,
    rating_scale INTEGER,
    match_mode INTEGER,
    fuzzy_threshold REAL,
    daily_new_limit INTEGER,
    daily_review_limit INTEGER,
    PRIMARY KEY (device_id, deck_path)
);

CREATE TABLE IF NOT EXISTS md_files (
    device_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    PRIMARY KEY (device_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_cards_device ON cards(device_id);
CREATE INDEX IF NOT EXISTS idx_cards_updated_at ON cards(updated_at);
CREATE INDEX IF NOT EXISTS idx_card_states_device ON card_states(device_id);
CREATE INDEX IF NOT EXISTS idx_card_states_due ON card_states(due_date);
CREATE INDEX IF NOT EXISTS idx_reviews_device ON reviews(device_id);
`
