// Package sqlite stores orders and cached nutrition lookups in a local SQLite
// file. It needs no server and creates its schema on open.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                  TEXT PRIMARY KEY,
    service             TEXT NOT NULL,
    restaurant          TEXT NOT NULL,
    total               REAL,
    sender              TEXT NOT NULL DEFAULT '',
    subject             TEXT NOT NULL DEFAULT '',
    items               TEXT NOT NULL DEFAULT '[]',
    meal_totals         TEXT NOT NULL DEFAULT '{}',
    source_statistics   TEXT NOT NULL DEFAULT '{}',
    nutrition_timestamp TEXT NOT NULL,
    created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS nutrition_cache (
    cache_key  TEXT PRIMARY KEY,
    record     TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// NewDB opens the SQLite database at path and creates missing tables.
// Use ":memory:" for a throwaway database.
func NewDB(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return db, nil
}
