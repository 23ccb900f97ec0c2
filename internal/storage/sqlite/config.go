package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config selects the SQLite database file.
type Config struct {
	DatabasePath string
}

// Validate checks that the path is set and its directory can be created.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}

	if c.DatabasePath == ":memory:" {
		return nil
	}

	dir := filepath.Dir(c.DatabasePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	return nil
}

// DefaultConfig returns a database in the working directory.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./journal_cache.db",
	}
}
