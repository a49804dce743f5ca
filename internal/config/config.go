// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for local use.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Session backend names accepted in SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port of the storefront (default: 8080).
	Port int

	// BaseURL is the public-facing URL of the storefront.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// LogFile, when set, receives a rotated copy of every log line.
	LogFile string

	// API holds the remote Deal Finder API settings.
	API APIConfig

	// Session holds client session persistence settings.
	Session SessionConfig

	// Database holds MariaDB connection settings (mysql session backend).
	Database DatabaseConfig

	// Redis holds Redis connection settings (redis session backend).
	Redis RedisConfig

	// SQLitePath is the database file used by the sqlite session backend.
	SQLitePath string
}

// APIConfig holds the remote API client settings.
type APIConfig struct {
	// BaseURL is prefixed to every API path (default: "http://localhost:8000/api").
	BaseURL string

	// Timeout bounds every API request.
	Timeout time.Duration
}

// SessionConfig selects and configures the session persistence backend.
type SessionConfig struct {
	// Backend is one of memory, file, redis, mysql, sqlite (default: file).
	Backend string

	// FilePath is the JSON file used by the file backend.
	FilePath string

	// Secret seals persisted values at rest when non-empty.
	Secret string
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	Host string

	// User is the MariaDB username (default: "dealfinder").
	User string

	// Password is the MariaDB password (default: "dealfinder").
	Password string

	// Name is the database name (default: "dealfinder").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built with the driver's
// Config.FormatDSN() so special characters in passwords survive.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string

	// KeyPrefix namespaces the session keys (default: "dealfinder:").
	KeyPrefix string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error for an unknown session backend or missing production
// requirements.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		LogFile:  getEnv("LOG_FILE", ""),

		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			Timeout: getEnvDuration("API_TIMEOUT", 15*time.Second),
		},

		Session: SessionConfig{
			Backend:  strings.ToLower(getEnv("SESSION_BACKEND", BackendFile)),
			FilePath: getEnv("SESSION_FILE", "./data/session.json"),
			Secret:   getEnv("SESSION_SECRET", ""),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "dealfinder"),
			Password:        getEnv("DB_PASSWORD", "dealfinder"),
			Name:            getEnv("DB_NAME", "dealfinder"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "dealfinder:"),
		},

		SQLitePath: getEnv("SQLITE_PATH", "./data/session.db"),
	}

	switch cfg.Session.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendMySQL, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL must not be empty")
	}

	// Tokens must not sit in clear text on a production host.
	if cfg.IsProduction() && cfg.Session.Backend != BackendMemory {
		if len(cfg.Session.Secret) < 32 {
			return nil, fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and "prod", case-insensitive.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "15s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
