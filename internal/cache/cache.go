package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/common/utils"
	"editorial-cache/internal/storage"
)

const (
	DefaultMaxMemoryEntries = 1000
	DefaultTTL              = time.Hour

	// MaxMemoryTTL caps every memory entry regardless of the requested TTL
	MaxMemoryTTL = 5 * time.Minute

	memoryMaxBytes  = 50 * 1024
	blobThreshold   = 10 * 1024
	promoteMaxBytes = 10 * 1024
)

// RelationalStore is the subset of storage.Store the cache reads through.
type RelationalStore interface {
	GetReferee(ctx context.Context, email string) (*storage.Referee, error)
	GetManuscript(ctx context.Context, id, journal string) (*storage.Manuscript, error)
	GetInstitution(ctx context.Context, domain string) (*storage.Institution, error)
	SaveInstitution(ctx context.Context, inst storage.Institution) error
}

// Config tunes the tiers. Zero values fall back to the defaults.
type Config struct {
	MaxMemoryEntries int
	PromotionTTL     time.Duration
	BlobDir          string
	RemoteNamespaces []string
}

// Cache is the multi-tier cache: memory, relational store, blob files and an
// optional remote tier, consulted in that order.
type Cache struct {
	config Config
	memory *memoryTier
	store  RelationalStore
	blobs  *blobTier
	remote *remoteTier
	logger logging.Logger
	now    func() time.Time

	counters counters
}

type counters struct {
	memoryHits, memoryMisses atomic.Int64
	storeHits, storeMisses   atomic.Int64
	blobHits, blobMisses     atomic.Int64
	remoteHits, remoteMisses atomic.Int64
}

// New builds a cache. store is required; remote may be nil.
func New(config Config, store RelationalStore, remote RemoteClient) (*Cache, error) {
	if store == nil {
		return nil, apperrors.ConfigError("cache requires a relational store")
	}
	if config.BlobDir == "" {
		return nil, apperrors.ConfigError("cache requires a blob directory")
	}
	if config.MaxMemoryEntries <= 0 {
		config.MaxMemoryEntries = DefaultMaxMemoryEntries
	}
	if config.PromotionTTL <= 0 || config.PromotionTTL > MaxMemoryTTL {
		config.PromotionTTL = MaxMemoryTTL
	}
	if config.RemoteNamespaces == nil {
		config.RemoteNamespaces = []string{NamespaceAPIResponse}
	}

	c := &Cache{
		config: config,
		store:  store,
		logger: logging.Component("cache"),
		now:    time.Now,
	}
	clock := func() time.Time { return c.now() }

	blobs, err := newBlobTier(config.BlobDir, clock, c.logger)
	if err != nil {
		return nil, apperrors.StorageError("failed to initialise blob tier", err)
	}
	c.blobs = blobs
	c.memory = newMemoryTier(config.MaxMemoryEntries, clock)
	c.remote = newRemoteTier(remote, config.RemoteNamespaces, c.logger)

	return c, nil
}

// Get looks the value up tier by tier. A miss everywhere is (nil, false, nil);
// the only error returned is one from the relational store.
func (c *Cache) Get(ctx context.Context, namespace string, components Components) ([]byte, bool, error) {
	key, err := Key(namespace, components)
	if err != nil {
		return nil, false, err
	}

	if data, ok := c.memory.get(key); ok {
		c.counters.memoryHits.Add(1)
		return data, true, nil
	}
	c.counters.memoryMisses.Add(1)

	if isRelational(namespace) {
		data, ok, err := c.fromStore(ctx, namespace, components)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			c.counters.storeMisses.Add(1)
			return nil, false, nil
		}
		c.counters.storeHits.Add(1)
		c.memory.set(key, data, c.config.PromotionTTL)
		return data, true, nil
	}

	if data, expiresAt, ok := c.blobs.get(key); ok {
		c.counters.blobHits.Add(1)
		if len(data) < promoteMaxBytes {
			// the promoted copy never outlives the blob
			c.memory.set(key, data, minDuration(c.config.PromotionTTL, expiresAt.Sub(c.now())))
		}
		return data, true, nil
	}
	c.counters.blobMisses.Add(1)

	if c.remote.handles(namespace) {
		if data, ok := c.remote.get(ctx, key); ok {
			c.counters.remoteHits.Add(1)
			return data, true, nil
		}
		c.counters.remoteMisses.Add(1)
	}

	return nil, false, nil
}

// GetJSON is Get followed by json.Unmarshal into dest.
func (c *Cache) GetJSON(ctx context.Context, namespace string, components Components, dest interface{}) (bool, error) {
	data, ok, err := c.Get(ctx, namespace, components)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, apperrors.InternalError("cached value does not decode", err).WithContext("namespace", namespace)
	}
	return true, nil
}

// Set writes value to every tier that accepts it. A non-positive ttl means DefaultTTL.
func (c *Cache) Set(ctx context.Context, namespace string, components Components, value interface{}, ttl time.Duration) error {
	key, err := Key(namespace, components)
	if err != nil {
		return err
	}
	data, err := encodeValue(value)
	if err != nil {
		return apperrors.ValidationError("cache value must be JSON").
			WithContext("namespace", namespace).
			WithContext("error", err.Error())
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if len(data) < memoryMaxBytes {
		c.memory.set(key, data, minDuration(ttl, MaxMemoryTTL))
	} else {
		c.memory.delete(key)
	}

	switch namespace {
	case NamespaceReferee, NamespaceManuscript:
		// persisted only through the store's upserts
		return nil
	case NamespaceInstitution:
		return c.saveInstitution(ctx, components, data)
	}

	if len(data) > blobThreshold || isLarge(namespace) {
		if err := c.blobs.set(key, data, ttl); err != nil {
			return apperrors.StorageError("failed to write blob", err).WithContext("namespace", namespace)
		}
	} else if err := c.blobs.delete(key); err != nil {
		// an older, larger value must not resurface once memory expires
		return apperrors.StorageError("failed to drop stale blob", err).WithContext("namespace", namespace)
	}

	if c.remote.handles(namespace) {
		c.remote.set(ctx, key, data, ttl)
	}
	return nil
}

// Invalidate removes the key from memory, the blob directory and the remote
// tier. Relational rows are left alone.
func (c *Cache) Invalidate(ctx context.Context, namespace string, components Components) error {
	key, err := Key(namespace, components)
	if err != nil {
		return err
	}

	c.memory.delete(key)
	if err := c.blobs.delete(key); err != nil {
		return apperrors.StorageError("failed to invalidate blob", err).WithContext("namespace", namespace)
	}
	c.remote.delete(ctx, key)
	return nil
}

// CleanupExpired deletes expired or unreadable blob files and returns how many
// were removed. Expired memory entries are dropped as well.
func (c *Cache) CleanupExpired() (int, error) {
	c.memory.removeExpired()

	removed, err := c.blobs.sweep()
	if err != nil {
		return removed, apperrors.StorageError("blob sweep failed", err)
	}
	if removed > 0 {
		c.logger.Info("Expired blobs removed", logging.Int("count", removed))
	}
	return removed, nil
}

// ClearResult counts what Clear removed from each tier.
type ClearResult struct {
	MemoryEntries int `json:"memory_entries"`
	BlobFiles     int `json:"blob_files"`
	RemoteKeys    int `json:"remote_keys"`
}

// Clear empties the memory tier, the blob directory and the remote key prefix.
func (c *Cache) Clear(ctx context.Context) (ClearResult, error) {
	var result ClearResult
	result.MemoryEntries = c.memory.clear()

	files, err := c.blobs.clear()
	result.BlobFiles = files
	if err != nil {
		return result, apperrors.StorageError("failed to clear blob directory", err)
	}

	result.RemoteKeys = c.remote.clear(ctx)
	return result, nil
}

// Stats is a point-in-time view of every tier.
type Stats struct {
	Memory MemoryStats `json:"memory"`
	Store  TierStats   `json:"store"`
	Blob   BlobStats   `json:"blob"`
	Remote RemoteStats `json:"remote"`
}

type TierStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type MemoryStats struct {
	TierStats
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	Evictions  int64 `json:"evictions"`
}

type BlobStats struct {
	TierStats
	Files     int    `json:"files"`
	Bytes     int64  `json:"bytes"`
	Directory string `json:"directory"`
}

type RemoteStats struct {
	TierStats
	Enabled bool `json:"enabled"`
}

func (c *Cache) Stats() Stats {
	entries, evictions := c.memory.stats()
	files, bytes := c.blobs.usage()

	return Stats{
		Memory: MemoryStats{
			TierStats:  TierStats{Hits: c.counters.memoryHits.Load(), Misses: c.counters.memoryMisses.Load()},
			Entries:    entries,
			MaxEntries: c.config.MaxMemoryEntries,
			Evictions:  evictions,
		},
		Store: TierStats{Hits: c.counters.storeHits.Load(), Misses: c.counters.storeMisses.Load()},
		Blob: BlobStats{
			TierStats: TierStats{Hits: c.counters.blobHits.Load(), Misses: c.counters.blobMisses.Load()},
			Files:     files,
			Bytes:     bytes,
			Directory: c.config.BlobDir,
		},
		Remote: RemoteStats{
			TierStats: TierStats{Hits: c.counters.remoteHits.Load(), Misses: c.counters.remoteMisses.Load()},
			Enabled:   c.remote.enabled(),
		},
	}
}

func (c *Cache) fromStore(ctx context.Context, namespace string, components Components) ([]byte, bool, error) {
	var (
		record interface{}
		err    error
	)

	switch namespace {
	case NamespaceReferee:
		email := componentString(components, "email")
		if email == "" {
			return nil, false, nil
		}
		record, err = c.store.GetReferee(ctx, email)
	case NamespaceManuscript:
		id := componentString(components, "manuscript_id", "id")
		journal := componentString(components, "journal")
		if id == "" || journal == "" {
			return nil, false, nil
		}
		record, err = c.store.GetManuscript(ctx, id, journal)
	case NamespaceInstitution:
		domain := institutionDomain(components)
		if domain == "" {
			return nil, false, nil
		}
		record, err = c.store.GetInstitution(ctx, domain)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, false, apperrors.InternalError("failed to encode stored record", err)
	}
	return data, true, nil
}

func (c *Cache) saveInstitution(ctx context.Context, components Components, data []byte) error {
	var inst storage.Institution
	if err := json.Unmarshal(data, &inst); err != nil {
		return apperrors.ValidationError("institution value must decode as an institution").
			WithContext("error", err.Error())
	}
	inst.Domain = utils.FirstNonEmpty(inst.Domain, institutionDomain(components))
	return c.store.SaveInstitution(ctx, inst)
}

func institutionDomain(components Components) string {
	return utils.FirstNonEmpty(
		componentString(components, "domain"),
		utils.EmailDomain(componentString(components, "email")),
	)
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case json.RawMessage:
		return validJSON(v)
	case []byte:
		return validJSON(v)
	default:
		return json.Marshal(v)
	}
}

func validJSON(data []byte) ([]byte, error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON")
	}
	return data, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
