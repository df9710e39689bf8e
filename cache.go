package docview

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

type cacheEntry struct {
	value      any
	expiration time.Time
}

// metadataCache is a TTL map. Expired entries are dropped on access.
type metadataCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    atomic.Int64
	misses  atomic.Int64
}

func newMetadataCache() *metadataCache {
	return &metadataCache{entries: make(map[string]cacheEntry)}
}

func (c *metadataCache) get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().After(entry.expiration) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		ok = false
	}

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.value, true
}

func (c *metadataCache) set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiration: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *metadataCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *metadataCache) stats() CacheStatistics {
	c.mu.RLock()
	size := int64(len(c.entries))
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStatistics{Hits: hits, Misses: misses, Size: size, HitRate: rate}
}

// CachingReader wraps a store and caches Stat and ListContents results for
// a TTL. Document content is never cached. Listing a bucket on every
// request is slow and, for S3, billed.
//
//	store := docview.NewCachingReader(s3store, time.Minute)
//	stop := store.InvalidateOnChange(ctx, "**")
//	defer stop()
type CachingReader struct {
	store FileReader
	ttl   time.Duration
	cache *metadataCache
}

// NewCachingReader wraps store. A non-positive ttl defaults to one minute.
func NewCachingReader(store FileReader, ttl time.Duration) *CachingReader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingReader{
		store: store,
		ttl:   ttl,
		cache: newMetadataCache(),
	}
}

func (c *CachingReader) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return c.store.Read(ctx, path)
}

func (c *CachingReader) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return c.store.ReadAll(ctx, path)
}

func (c *CachingReader) Stat(ctx context.Context, path string) (*FileInfo, error) {
	key := "stat:" + path
	if v, ok := c.cache.get(key); ok {
		info := *v.(*FileInfo)
		return &info, nil
	}

	info, err := c.store.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	stored := *info
	c.cache.set(key, &stored, c.ttl)
	return info, nil
}

func (c *CachingReader) ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error) {
	key := "list:" + strconv.FormatBool(recursive) + ":" + path
	if v, ok := c.cache.get(key); ok {
		return append([]FileInfo(nil), v.([]FileInfo)...), nil
	}

	files, err := c.store.ListContents(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	c.cache.set(key, append([]FileInfo(nil), files...), c.ttl)
	return files, nil
}

// Watch forwards to the wrapped store when it supports watching.
func (c *CachingReader) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	watcher, ok := c.store.(CanWatch)
	if !ok {
		return nil, ErrNotSupported
	}
	return watcher.Watch(ctx, pattern)
}

// Invalidate drops every cached entry.
func (c *CachingReader) Invalidate() {
	c.cache.clear()
}

// Stats returns cache statistics.
func (c *CachingReader) Stats() CacheStatistics {
	return c.cache.stats()
}

// InvalidateOnChange clears the cache whenever a file matching pattern
// changes in a watchable store. It returns a function that stops watching;
// for stores that cannot watch it does nothing and entries simply expire.
func (c *CachingReader) InvalidateOnChange(ctx context.Context, pattern string) (stop func()) {
	watcher, ok := c.store.(CanWatch)
	if !ok {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	stop = OnChange(
		func() (ChangeToken, error) { return watcher.Watch(ctx, pattern) },
		c.Invalidate,
	)
	return func() {
		stop()
		cancel()
	}
}
