// Package cache provides the multi-tier cache used by the editorial scrapers.
//
// Values are addressed by a namespace and a set of components and travel as
// JSON bytes. A read walks the tiers in order and stops at the first hit:
//
//   - Memory: a bounded LRU (default 1000 entries) with an absolute expiry per
//     entry. Entries never live longer than five minutes.
//   - Relational store: the referee, manuscript and institution namespaces are
//     answered by the SQLite tables. Hits are promoted into memory.
//   - Blob files: one JSON file per key with its own absolute expiry. Large
//     namespaces always land here, as does any value over 10 KB. Small hits are
//     promoted into memory.
//   - Remote: an optional Redis tier for api_response values. The first
//     failure that is not a plain miss disables it for the rest of the process.
//
// Referee and manuscript writes carry merge semantics and go through the
// store's upserts, so a generic Set only caches them in memory.
//
// # Usage
//
//	c, err := cache.New(cache.Config{BlobDir: dir}, store, nil)
//	if err != nil {
//		return err
//	}
//	err = c.Set(ctx, cache.NamespaceExtractedText, cache.Components{"url": u}, text, 24*time.Hour)
//	data, ok, err := c.Get(ctx, cache.NamespaceExtractedText, cache.Components{"url": u})
package cache
