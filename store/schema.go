// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the backing database. dbType selects the driver:
// "sqlite" (default, pure Go) or "postgres". For sqlite, url is a file path
// or ":memory:".
func Open(dbType, url string) (*sql.DB, error) {
	switch dbType {
	case "", "sqlite":
		db, err := sql.Open("sqlite", url)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// The store is single-writer; one connection keeps an in-memory
		// sqlite database from vanishing between pool connections.
		db.SetMaxOpenConns(1)
		return db, nil
	case "postgres":
		db, err := sql.Open("postgres", url)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return db, nil
	default:
		return nil, errors.New("unknown database type: " + dbType)
	}
}

// CreateSchema creates the key-value table backing the store.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Key-value persistence. Values are JSON documents.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
