package app

import (
	"fmt"

	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"
	"editorial-cache/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	// Initialize storage registry
	storageRegistry := storage.NewRegistry()
	storageRegistry.Register("sqlite", &sqlite.Factory{})

	app.Logger.Info("Database: SQLite", logging.String("path", app.DatabasePath))

	store, err := storageRegistry.Create("sqlite", storage.GenericConfig{
		"database_path": app.DatabasePath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.Store = store
	return nil
}
