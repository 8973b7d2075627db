package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kanji_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kanji TEXT NOT NULL,
	grp INTEGER NOT NULL DEFAULT 0,
	kind TEXT NOT NULL CHECK (kind IN ('on', 'kun')),
	reading TEXT NOT NULL,
	UNIQUE (kanji, grp, kind, reading)
);
CREATE INDEX IF NOT EXISTS idx_kanji_readings_kanji ON kanji_readings (kanji);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	label TEXT,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS annotations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs (id),
	document TEXT NOT NULL,
	line INTEGER NOT NULL,
	source TEXT NOT NULL,
	annotated TEXT NOT NULL,
	has_furigana INTEGER NOT NULL DEFAULT 0,
	UNIQUE (run_id, document, line)
);

CREATE TABLE IF NOT EXISTS problems (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs (id),
	document TEXT NOT NULL,
	line INTEGER NOT NULL,
	kanji TEXT,
	description TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_problems_run ON problems (run_id, kanji);
`

// InitDB creates the schema on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(schemaSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
