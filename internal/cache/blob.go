package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"editorial-cache/internal/common/logging"
)

// blobFile is the on-disk format of one blob entry
type blobFile struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// blobTier keeps one JSON file per key. Writes go through a temp file and a
// rename so readers never see a partial file.
type blobTier struct {
	dir    string
	now    func() time.Time
	logger logging.Logger
}

func newBlobTier(dir string, now func() time.Time, logger logging.Logger) (*blobTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &blobTier{dir: dir, now: now, logger: logger}, nil
}

func (b *blobTier) path(key string) string {
	return filepath.Join(b.dir, blobFileName(key))
}

// get returns the stored value and the moment it expires
func (b *blobTier) get(key string) ([]byte, time.Time, bool) {
	path := b.path(key)
	entry, err := b.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, false
	}
	if err != nil {
		b.logger.Debug("Removing unreadable blob", logging.String("file", filepath.Base(path)), logging.Err(err))
		os.Remove(path)
		return nil, time.Time{}, false
	}
	if !b.now().Before(entry.ExpiresAt) {
		os.Remove(path)
		return nil, time.Time{}, false
	}
	return entry.Data, entry.ExpiresAt, true
}

func (b *blobTier) set(key string, value []byte, ttl time.Duration) error {
	now := b.now().UTC()
	data, err := json.Marshal(blobFile{
		Data:      value,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to encode blob: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create blob file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store blob file: %w", err)
	}
	return nil
}

func (b *blobTier) delete(key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob file: %w", err)
	}
	return nil
}

func (b *blobTier) read(path string) (*blobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry blobFile
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt blob file: %w", err)
	}
	if len(entry.Data) == 0 || entry.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("incomplete blob file")
	}
	return &entry, nil
}

func (b *blobTier) files() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list blob directory: %w", err)
	}
	files := entries[:0]
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e)
		}
	}
	return files, nil
}

// sweep deletes every expired or unreadable blob file
func (b *blobTier) sweep() (int, error) {
	files, err := b.files()
	if err != nil {
		return 0, err
	}

	now := b.now()
	removed := 0
	for _, f := range files {
		path := filepath.Join(b.dir, f.Name())
		entry, err := b.read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && now.Before(entry.ExpiresAt) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("Failed to remove blob file", logging.String("file", f.Name()), logging.Err(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (b *blobTier) clear() (int, error) {
	files, err := b.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(filepath.Join(b.dir, f.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (b *blobTier) usage() (count int, bytes int64) {
	files, err := b.files()
	if err != nil {
		return 0, 0
	}
	for _, f := range files {
		if info, err := f.Info(); err == nil {
			count++
			bytes += info.Size()
		}
	}
	return count, bytes
}
