package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// Claims live in their own table rather than embedded in items; the
// UNIQUE(item_id, user_id) index makes the one-claim-per-user rule a
// storage-level guarantee instead of a read-then-write check.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    campus_id     TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'staff', 'admin')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id              INTEGER PRIMARY KEY,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL CHECK (category IN ('electronics', 'books', 'clothing',
                        'accessories', 'documents', 'keys', 'bags', 'other')),
    type            TEXT NOT NULL CHECK (type IN ('lost', 'found')),
    location        TEXT NOT NULL,
    date            DATETIME NOT NULL,
    unique_marks    TEXT,
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'claimed', 'returned', 'archived')),
    reporter_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    claimer_id      INTEGER REFERENCES users(id) ON DELETE SET NULL,
    match_suggested INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_reporter ON items(reporter_id);
CREATE INDEX IF NOT EXISTS idx_items_browse ON items(type, category, status);

CREATE TABLE IF NOT EXISTS item_images (
    item_id  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    path     TEXT NOT NULL,
    PRIMARY KEY (item_id, position)
);

CREATE TABLE IF NOT EXISTS claims (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    description TEXT,
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (item_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_claims_user ON claims(user_id);

CREATE TABLE IF NOT EXISTS item_matches (
    item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    matched_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    PRIMARY KEY (item_id, matched_id)
);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY,
    recipient  TEXT NOT NULL,
    template   TEXT NOT NULL,
    args       TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent', 'failed')),
    attempts   INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    sent_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(status) WHERE status = 'pending';

CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
    title, description, location,
    content='items', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS items_fts_insert AFTER INSERT ON items BEGIN
    INSERT INTO items_fts(rowid, title, description, location)
    VALUES (new.id, new.title, new.description, new.location);
END;

CREATE TRIGGER IF NOT EXISTS items_fts_delete AFTER DELETE ON items BEGIN
    INSERT INTO items_fts(items_fts, rowid, title, description, location)
    VALUES ('delete', old.id, old.title, old.description, old.location);
END;

CREATE TRIGGER IF NOT EXISTS items_fts_update AFTER UPDATE OF title, description, location ON items BEGIN
    INSERT INTO items_fts(items_fts, rowid, title, description, location)
    VALUES ('delete', old.id, old.title, old.description, old.location);
    INSERT INTO items_fts(rowid, title, description, location)
    VALUES (new.id, new.title, new.description, new.location);
END;
`

// EnsureSchema creates all tables, indexes, and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
