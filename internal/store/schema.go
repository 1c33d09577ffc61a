package store

import "database/sql"

// Per-collection vec0 tables are created lazily once the vector dimension is
// known; see Collection.ensureVecTable.
const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    dim  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    entry_id   TEXT NOT NULL,
    document   TEXT NOT NULL,
    metadata   TEXT NOT NULL DEFAULT '{}',
    UNIQUE (collection, entry_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_collection ON entries(collection);
`

func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
