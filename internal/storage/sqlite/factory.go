package sqlite

import (
	"fmt"

	"editorial-cache/internal/storage"
)

// Factory creates SQLite stores for a storage.Registry. It reads
// "database_path" from the generic config.
type Factory struct{}

func (f *Factory) Create(config storage.GenericConfig) (storage.Store, error) {
	path := config.String("database_path")
	if path == "" {
		return nil, fmt.Errorf("database_path is required for sqlite storage")
	}
	return NewAdapter(&Config{DatabasePath: path})
}
