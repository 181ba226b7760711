package transport

import (
	"fmt"
	"sync/atomic"

	lfu "github.com/dgraph-io/ristretto"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ReplyCache remembers encoded responses by request id so that a request the
// cluster sends again is answered without running the filter a second time.
type ReplyCache interface {
	// Get returns the cached response for a request id.
	Get(id string) ([]byte, bool)

	// Set stores the response for a request id.
	Set(id string, reply []byte)

	// Close releases the cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() ReplyCacheMetrics
}

// ReplyCacheMetrics represents reply cache metrics.
type ReplyCacheMetrics struct {
	Hits   int64
	Misses int64
}

// ReplyCacheConfig configures a reply cache.
type ReplyCacheConfig struct {
	// Type is "lru", "lfu" or "none".
	Type string

	// MaxSize is the maximum number of replies kept (LRU only).
	MaxSize int

	// NumCounters is the number of frequency counters (LFU only).
	// Recommended: 10 * expected entries
	NumCounters int64

	// MaxCost is the maximum total size of cached replies in bytes (LFU only).
	MaxCost int64

	// BufferItems is the number of keys per Get buffer (LFU only).
	BufferItems int64
}

// DefaultReplyCacheConfig returns default reply cache configuration.
func DefaultReplyCacheConfig() ReplyCacheConfig {
	return ReplyCacheConfig{
		Type:        "lru",
		MaxSize:     10000,
		NumCounters: 1e5,
		MaxCost:     16 << 20, // 16MB
		BufferItems: 64,
	}
}

// NewReplyCache creates the reply cache selected by cfg.Type.
func NewReplyCache(cfg ReplyCacheConfig) (ReplyCache, error) {
	switch cfg.Type {
	case "lru":
		return NewLRUReplyCache(cfg.MaxSize)
	case "lfu":
		return NewLFUReplyCache(cfg)
	case "none", "":
		return NewNoOpReplyCache(), nil
	default:
		return nil, fmt.Errorf("transport: unknown reply cache type %q", cfg.Type)
	}
}

// NoOpReplyCache caches nothing.
type NoOpReplyCache struct{}

// NewNoOpReplyCache creates a reply cache that never hits.
func NewNoOpReplyCache() ReplyCache {
	return NoOpReplyCache{}
}

func (NoOpReplyCache) Get(id string) ([]byte, bool) { return nil, false }
func (NoOpReplyCache) Set(id string, reply []byte)  {}
func (NoOpReplyCache) Close()                       {}
func (NoOpReplyCache) Metrics() ReplyCacheMetrics   { return ReplyCacheMetrics{} }

// LRUReplyCache is a reply cache using golang-lru.
type LRUReplyCache struct {
	cache  *lru.Cache[string, []byte]
	hits   int64
	misses int64
}

// NewLRUReplyCache creates an LRU reply cache holding up to maxSize replies.
func NewLRUReplyCache(maxSize int) (*LRUReplyCache, error) {
	cache, err := lru.New[string, []byte](maxSize)
	if err != nil {
		return nil, err
	}
	return &LRUReplyCache{cache: cache}, nil
}

// Get retrieves a cached reply.
func (lc *LRUReplyCache) Get(id string) ([]byte, bool) {
	reply, found := lc.cache.Get(id)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return reply, found
}

// Set stores a reply.
func (lc *LRUReplyCache) Set(id string, reply []byte) {
	lc.cache.Add(id, reply)
}

// Close purges the cache.
func (lc *LRUReplyCache) Close() {
	lc.cache.Purge()
}

// Metrics returns cache metrics.
func (lc *LRUReplyCache) Metrics() ReplyCacheMetrics {
	return ReplyCacheMetrics{
		Hits:   atomic.LoadInt64(&lc.hits),
		Misses: atomic.LoadInt64(&lc.misses),
	}
}

// LFUReplyCache is a reply cache using Ristretto, bounded by total reply size.
type LFUReplyCache struct {
	cache  *lfu.Cache
	hits   int64
	misses int64
}

// NewLFUReplyCache creates a Ristretto-backed reply cache.
func NewLFUReplyCache(cfg ReplyCacheConfig) (*LFUReplyCache, error) {
	cache, err := lfu.NewCache(&lfu.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &LFUReplyCache{cache: cache}, nil
}

// Get retrieves a cached reply.
func (rc *LFUReplyCache) Get(id string) ([]byte, bool) {
	value, found := rc.cache.Get(id)
	if !found {
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&rc.hits, 1)
	return value.([]byte), true
}

// Set stores a reply, costed by its length, and waits for the write to apply.
func (rc *LFUReplyCache) Set(id string, reply []byte) {
	if rc.cache.Set(id, reply, int64(len(reply))) {
		rc.cache.Wait()
	}
}

// Close closes the cache.
func (rc *LFUReplyCache) Close() {
	rc.cache.Close()
}

// Metrics returns cache metrics.
func (rc *LFUReplyCache) Metrics() ReplyCacheMetrics {
	return ReplyCacheMetrics{
		Hits:   atomic.LoadInt64(&rc.hits),
		Misses: atomic.LoadInt64(&rc.misses),
	}
}
