package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/store"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResponseCache stores final client payloads keyed by RequestSignature.
// Entries are disposable: they can always be rebuilt from the source cache.
//
// An optional in-process layer sits in front of the store. It never extends
// an entry past the lifetime granted at Put time.
type ResponseCache struct {
	store  store.Store
	prefix string
	local  *expirable.LRU[string, *Entry]
	now    func() time.Time
}

// ResponseCacheOptions configures the in-process layer.
type ResponseCacheOptions struct {
	// LocalSize is the number of entries kept in memory. 0 disables the layer.
	LocalSize int

	// LocalTTL bounds how long an entry stays in memory.
	LocalTTL time.Duration
}

// NewResponseCache creates a response cache writing under prefix.
func NewResponseCache(s store.Store, prefix string, opts ResponseCacheOptions) *ResponseCache {
	if s == nil {
		panic("store cannot be nil")
	}
	c := &ResponseCache{
		store:  s,
		prefix: prefix,
		now:    time.Now,
	}
	if opts.LocalSize > 0 {
		c.local = expirable.NewLRU[string, *Entry](opts.LocalSize, nil, opts.LocalTTL)
	}
	return c
}

// SetClock replaces the time source.
func (c *ResponseCache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the cached payload for sig. Returns ErrCacheMiss when absent or
// expired.
func (c *ResponseCache) Get(ctx context.Context, sig RequestSignature) ([]byte, error) {
	key := sig.Key(c.prefix)
	now := c.now()

	if c.local != nil {
		if entry, ok := c.local.Get(key); ok {
			if !entry.IsExpired(now) {
				CacheHits.WithLabelValues(cacheResponse, "memory").Inc()
				return entry.Data, nil
			}
			c.local.Remove(key)
		}
	}

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		CacheErrors.WithLabelValues(cacheResponse, "get").Inc()
		return nil, fmt.Errorf("response cache get %s: %w", key, err)
	}
	if !ok {
		CacheMisses.WithLabelValues(cacheResponse).Inc()
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Disposable; a broken envelope is a miss.
		CacheErrors.WithLabelValues(cacheResponse, "get").Inc()
		CacheMisses.WithLabelValues(cacheResponse).Inc()
		return nil, ErrCacheMiss
	}
	if entry.IsExpired(now) {
		CacheMisses.WithLabelValues(cacheResponse).Inc()
		return nil, ErrCacheMiss
	}

	if c.local != nil {
		c.local.Add(key, &entry)
	}
	CacheHits.WithLabelValues(cacheResponse, "store").Inc()
	return entry.Data, nil
}

// Put unconditionally overwrites the payload for sig.
func (c *ResponseCache) Put(ctx context.Context, sig RequestSignature, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("response cache put %s: ttl must be positive (got %v)", sig, ttl)
	}
	key := sig.Key(c.prefix)
	entry := newEntry(payload, ttl, c.now())

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(cacheResponse, "put").Inc()
		return fmt.Errorf("marshal response entry: %w", err)
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		CacheErrors.WithLabelValues(cacheResponse, "put").Inc()
		return fmt.Errorf("response cache put %s: %w", key, err)
	}

	if c.local != nil {
		c.local.Add(key, entry)
	}
	CacheWrites.WithLabelValues(cacheResponse).Inc()
	return nil
}
