// Package config loads the cache configuration from environment variables with
// sensible defaults and validates it before any storage is opened.
//
// Environment Variables:
//
// Storage:
//   - CACHE_DIR: root directory for all cache storage (default: ./.editorial_cache)
//   - DATABASE_PATH: SQLite file (default: $CACHE_DIR/journal_cache.db)
//   - BLOB_DIR: blob tier directory (default: $CACHE_DIR/blobs)
//   - TESTING: when true, all storage goes to a fresh temporary directory that is
//     removed on shutdown (default: false)
//
// Cache behaviour:
//   - MEMORY_MAX_ENTRIES: memory tier capacity (default: 1000)
//   - PROMOTION_TTL: TTL for values promoted into memory, capped at 5m (default: 5m)
//   - PURGE_AFTER: manuscript age removed by purge, accepts "90d" (default: 90d)
//   - SWEEP_SCHEDULE: cron spec for the blob sweep (default: @every 1h)
//   - PURGE_SCHEDULE: cron spec for the age purge (default: @daily)
//
// Remote tier (disabled unless REDIS_ADDRESS is set):
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB (0-15), REDIS_POOL_SIZE (default: 10)
//   - REDIS_KEY_PREFIX (default: editorial-cache:)
//
// Application:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FILE: log file path; empty logs to stderr
//   - HTTP_ADDR: listen address for `serve` (default: :8080)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/utils"
	"editorial-cache/internal/common/validation"
)

// Config holds all configuration values. Numeric and duration settings are kept
// as the raw strings from the environment; Validate checks them and the typed
// accessors parse them.
type Config struct {
	// Storage
	CacheDir     string
	DatabasePath string
	BlobDir      string
	Testing      bool

	// Cache behaviour
	MemoryMaxEntries string
	PromotionTTL     string
	PurgeAfter       string
	SweepSchedule    string
	PurgeSchedule    string

	// Remote tier
	RedisAddress   string
	RedisPassword  string
	RedisDB        string
	RedisPoolSize  string
	RedisKeyPrefix string

	// Application
	LogLevel string
	LogFile  string
	HTTPAddr string
}

// Load creates a Config from environment variables, falling back to defaults.
// It does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		CacheDir:     getEnv("CACHE_DIR", "./.editorial_cache"),
		DatabasePath: getEnv("DATABASE_PATH", ""),
		BlobDir:      getEnv("BLOB_DIR", ""),
		Testing:      getBoolEnv("TESTING", false),

		MemoryMaxEntries: getEnv("MEMORY_MAX_ENTRIES", "1000"),
		PromotionTTL:     getEnv("PROMOTION_TTL", "5m"),
		PurgeAfter:       getEnv("PURGE_AFTER", "90d"),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 1h"),
		PurgeSchedule:    getEnv("PURGE_SCHEDULE", "@daily"),

		RedisAddress:   getEnv("REDIS_ADDRESS", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnv("REDIS_DB", "0"),
		RedisPoolSize:  getEnv("REDIS_POOL_SIZE", "10"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "editorial-cache:"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does; invalid values fall back to the default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks that every setting is present and parseable.
func (c *Config) Validate() error {
	if c.CacheDir == "" && (c.DatabasePath == "" || c.BlobDir == "") && !c.Testing {
		return errors.ConfigError("CACHE_DIR is required unless DATABASE_PATH and BLOB_DIR are both set")
	}

	if n, err := strconv.Atoi(c.MemoryMaxEntries); err != nil || n < 1 {
		return errors.ConfigError("MEMORY_MAX_ENTRIES must be a positive number")
	}

	if d, err := utils.ParseDuration(c.PromotionTTL); err != nil || d <= 0 {
		return errors.ConfigError("PROMOTION_TTL must be a positive duration (e.g. '5m')")
	}

	if d, err := utils.ParseDuration(c.PurgeAfter); err != nil || d <= 0 {
		return errors.ConfigError("PURGE_AFTER must be a positive duration (e.g. '90d')")
	}

	if err := validation.Var(c.SweepSchedule, "cron_expression"); err != nil {
		return errors.ConfigError(fmt.Sprintf("SWEEP_SCHEDULE %q is not a valid cron spec", c.SweepSchedule))
	}
	if err := validation.Var(c.PurgeSchedule, "cron_expression"); err != nil {
		return errors.ConfigError(fmt.Sprintf("PURGE_SCHEDULE %q is not a valid cron spec", c.PurgeSchedule))
	}

	if c.RedisAddress != "" {
		if err := validation.Var(c.RedisAddress, "hostname_port"); err != nil {
			return errors.ConfigError("REDIS_ADDRESS must be host:port")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return errors.ConfigError("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return errors.ConfigError("REDIS_POOL_SIZE must be a positive number")
		}
	}

	return nil
}

// MaxEntries returns MEMORY_MAX_ENTRIES, or 1000 when unparseable
func (c *Config) MaxEntries() int {
	if n, err := strconv.Atoi(c.MemoryMaxEntries); err == nil && n > 0 {
		return n
	}
	return 1000
}

// PromotionTTLDuration returns PROMOTION_TTL, or 5 minutes when unparseable
func (c *Config) PromotionTTLDuration() time.Duration {
	if d, err := utils.ParseDuration(c.PromotionTTL); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// PurgeAfterDuration returns PURGE_AFTER, or 90 days when unparseable
func (c *Config) PurgeAfterDuration() time.Duration {
	if d, err := utils.ParseDuration(c.PurgeAfter); err == nil && d > 0 {
		return d
	}
	return 90 * 24 * time.Hour
}

// RedisDBNumber returns REDIS_DB as an int
func (c *Config) RedisDBNumber() int {
	n, _ := strconv.Atoi(c.RedisDB)
	return n
}

// RedisPoolSizeNumber returns REDIS_POOL_SIZE as an int
func (c *Config) RedisPoolSizeNumber() int {
	n, _ := strconv.Atoi(c.RedisPoolSize)
	return n
}

// Paths resolves the database file and blob directory under root. Explicit
// DATABASE_PATH / BLOB_DIR win unless ignoreOverrides is set, which the isolated
// mode uses so nothing escapes the temporary root.
func (c *Config) Paths(root string, ignoreOverrides bool) (dbPath, blobDir string) {
	dbPath = filepath.Join(root, "journal_cache.db")
	blobDir = filepath.Join(root, "blobs")
	if ignoreOverrides {
		return dbPath, blobDir
	}
	if c.DatabasePath != "" {
		dbPath = c.DatabasePath
	}
	if c.BlobDir != "" {
		blobDir = c.BlobDir
	}
	return dbPath, blobDir
}
