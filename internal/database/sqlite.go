package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// SQLite driver -- registers "sqlite3".
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens (creating if needed) the SQLite database at path. A single
// connection is used so writes never contend for the file lock.
func NewSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	return db, nil
}
