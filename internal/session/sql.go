package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect selects the upsert syntax of the SQL backend.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectSQLite
)

// SQLBackend stores Session fields as rows of the client_state table created
// by the database migrations.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLBackend creates a backend over an already-migrated database.
func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

func (b *SQLBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT state_value FROM client_state WHERE state_key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying session key: %w", err)
	}
	return value, true, nil
}

func (b *SQLBackend) Save(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO client_state (state_key, state_value, updated_at)
	          VALUES (?, ?, CURRENT_TIMESTAMP)
	          ON DUPLICATE KEY UPDATE state_value = VALUES(state_value), updated_at = CURRENT_TIMESTAMP`
	if b.dialect == DialectSQLite {
		query = `INSERT INTO client_state (state_key, state_value, updated_at)
		         VALUES (?, ?, CURRENT_TIMESTAMP)
		         ON CONFLICT(state_key) DO UPDATE SET state_value = excluded.state_value, updated_at = CURRENT_TIMESTAMP`
	}

	if _, err := b.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upserting session key: %w", err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM client_state WHERE state_key = ?`, key); err != nil {
		return fmt.Errorf("deleting session key: %w", err)
	}
	return nil
}
