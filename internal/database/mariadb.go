// Package database provides connection setup for the optional session
// stores: MariaDB, SQLite and Redis. Connections are created once at
// startup and handed to the session backends. This package owns the
// connection lifecycle (open, configure pool, ping, migrate).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/dealfinder/internal/config"
)

// Ping retry schedule. A database container may still be starting when the
// storefront launches.
const (
	pingAttempts = 10
	pingDelay    = 1 * time.Second
	pingMaxDelay = 30 * time.Second
)

// NewMariaDB creates a MariaDB connection pool configured with the settings
// from cfg. It pings the database to verify connectivity before returning.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = pingWithRetry(ctx, "mariadb", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pingWithRetry calls ping with exponential backoff until it succeeds, the
// attempts run out, or ctx is cancelled.
func pingWithRetry(ctx context.Context, name string, ping func(context.Context) error) error {
	err := retry.Do(
		func() error { return ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(pingAttempts),
		retry.Delay(pingDelay),
		retry.MaxDelay(pingMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn(name+" not ready, retrying...",
				slog.Uint64("attempt", uint64(n+1)),
				slog.Int("max_retries", pingAttempts),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("pinging %s after %d attempts: %w", name, pingAttempts, err)
	}
	return nil
}
