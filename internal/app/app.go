package app

import (
	"fmt"
	"os"
	"path/filepath"

	"editorial-cache/internal/cache"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/config"
	"editorial-cache/internal/redis"
	"editorial-cache/internal/storage"
)

// Options control where the application keeps its files.
type Options struct {
	// StorageRoot overrides CACHE_DIR when set.
	StorageRoot string
	// Isolated routes every file into a fresh temporary directory that is
	// removed by Cleanup. TESTING=true implies it.
	Isolated bool
}

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Store       storage.Store
	Cache       *cache.Cache
	RedisClient *redis.Client
	Logger      logging.Logger

	StorageRoot  string
	DatabasePath string
	BlobDir      string
	isolated     bool
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config, opts Options) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logging.Component("app"),
		isolated: opts.Isolated || cfg.Testing,
	}

	if err := app.initializeStorageRoot(opts.StorageRoot); err != nil {
		return nil, err
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without the remote tier",
			logging.Err(err))
	}

	if err := app.initializeCache(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

func (app *App) initializeStorageRoot(root string) error {
	if app.isolated {
		tmp, err := os.MkdirTemp("", "editorial-cache-*")
		if err != nil {
			return fmt.Errorf("failed to create isolated storage root: %w", err)
		}
		root = tmp
	} else if root == "" {
		root = app.Config.CacheDir
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("failed to create storage root %s: %w", abs, err)
	}

	app.StorageRoot = abs
	app.DatabasePath, app.BlobDir = app.Config.Paths(abs, app.isolated)

	app.Logger.Info("Storage root ready",
		logging.String("root", abs),
		logging.Bool("isolated", app.isolated),
	)
	return nil
}

func (app *App) initializeCache() error {
	var remote cache.RemoteClient
	if app.RedisClient != nil {
		remote = app.RedisClient
	}

	c, err := cache.New(cache.Config{
		MaxMemoryEntries: app.Config.MaxEntries(),
		PromotionTTL:     app.Config.PromotionTTLDuration(),
		BlobDir:          app.BlobDir,
	}, app.Store, remote)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	app.Cache = c
	return nil
}

// Isolated reports whether the app runs on a temporary storage root.
func (app *App) Isolated() bool {
	return app.isolated
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Failed to close store", logging.Err(err))
		}
		app.Store = nil
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
		app.RedisClient = nil
	}
	if app.isolated && app.StorageRoot != "" {
		if err := os.RemoveAll(app.StorageRoot); err != nil {
			app.Logger.Warn("Failed to remove isolated storage root", logging.Err(err))
		}
		app.StorageRoot = ""
	}
}
