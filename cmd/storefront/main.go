// Package main is the entry point for the Deal Finder storefront. It loads
// configuration, opens the session backend, wires the auth and deals
// plugins, and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
	"github.com/keyxmakerx/dealfinder/internal/app"
	"github.com/keyxmakerx/dealfinder/internal/config"
	"github.com/keyxmakerx/dealfinder/internal/database"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", slog.Any("error", err))
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	closeLog := setupLogging(cfg)
	defer closeLog()

	slog.Info("starting Deal Finder storefront",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("session_backend", cfg.Session.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Open Session Backend ---
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeBackend()

	if cfg.Session.Secret != "" {
		sealer, err := session.NewSealer(cfg.Session.Secret)
		if err != nil {
			slog.Error("failed to create session sealer", slog.Any("error", err))
			os.Exit(1)
		}
		backend = session.Sealed(backend, sealer)
	}

	store, err := session.NewStore(ctx, backend)
	if err != nil {
		slog.Error("failed to load session", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Create Application ---
	api := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
	application := app.New(cfg, store, api)
	application.RegisterRoutes()
	application.Bootstrap(ctx)

	// --- Graceful Shutdown ---
	// Wait for an interrupt/term signal, then drain connections cleanly.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openBackend opens the session backend selected by SESSION_BACKEND. The
// returned func releases its connections.
func openBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	noop := func() {}

	switch cfg.Session.Backend {
	case config.BackendMemory:
		slog.Warn("session is kept in memory and will not survive a restart")
		return session.NewMemoryBackend(), noop, nil

	case config.BackendFile:
		b, err := session.NewFileBackend(afero.NewOsFs(), cfg.Session.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return b, noop, nil

	case config.BackendRedis:
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		slog.Info("connected to Redis")
		return session.NewRedisBackend(rdb, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }, nil

	case config.BackendMySQL:
		db, err := database.NewMariaDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		slog.Info("connected to MariaDB")
		return sqlBackend(db, database.DialectMySQL, session.DialectMySQL)

	case config.BackendSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening SQLite: %w", err)
		}
		return sqlBackend(db, database.DialectSQLite, session.DialectSQLite)
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}

func sqlBackend(db *sql.DB, migrations string, dialect session.Dialect) (session.Backend, func(), error) {
	if err := database.RunMigrations(db, migrations); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return session.NewSQLBackend(db, dialect), func() { _ = db.Close() }, nil
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation. With LOG_FILE set, every line is also written
// to a size-rotated file.
func setupLogging(cfg *config.Config) func() {
	level := parseLevel(cfg.LogLevel)

	var out io.Writer = os.Stdout
	closer := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			slog.Warn("cannot create log directory", slog.Any("error", err))
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = func() { _ = rotator.Close() }
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
