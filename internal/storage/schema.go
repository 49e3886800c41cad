package storage

const schema = `
-- The 'sources' table tracks where decks are loaded from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);

-- The 'notes' table remembers which notes a deck had at its last sync and
-- the fingerprint of their watched fields.
CREATE TABLE IF NOT EXISTS notes (
    deck_id TEXT NOT NULL,
    note_id TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    source_id INTEGER,

    PRIMARY KEY (deck_id, note_id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'scheduling' table stores each scheduler's state blob for a card.
CREATE TABLE IF NOT EXISTS scheduling (
    deck_id TEXT NOT NULL,
    note_id TEXT NOT NULL,
    template_id TEXT NOT NULL,
    scheduler TEXT NOT NULL,
    state TEXT NOT NULL, -- JSON object
    updated_at DATETIME NOT NULL,

    PRIMARY KEY (deck_id, note_id, template_id, scheduler)
);

-- The 'reviews' table is an append-only log of answers.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id TEXT NOT NULL,
    note_id TEXT NOT NULL,
    template_id TEXT NOT NULL,
    scheduler TEXT NOT NULL,
    quality INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL
);
`
