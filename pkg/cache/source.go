package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/store"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored envelope could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// SourceCache stores parsed source records keyed by Locator.
type SourceCache struct {
	store  store.Store
	prefix string
	now    func() time.Time
}

// NewSourceCache creates a source cache writing under prefix.
func NewSourceCache(s store.Store, prefix string) *SourceCache {
	if s == nil {
		panic("store cannot be nil")
	}
	return &SourceCache{
		store:  s,
		prefix: prefix,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for stored_at stamps.
func (c *SourceCache) SetClock(now func() time.Time) {
	c.now = now
}

// Prefix returns the key prefix of this cache.
func (c *SourceCache) Prefix() string {
	return c.prefix
}

// Get returns the physically stored entry for loc regardless of its remaining
// TTL; staleness policy belongs to the caller. Returns ErrCacheMiss when the
// key is absent and a store.ErrUnavailable wrapped error when the store
// cannot be reached.
func (c *SourceCache) Get(ctx context.Context, loc Locator) (*Entry, error) {
	data, ok, err := c.store.Get(ctx, loc.Key(c.prefix))
	if err != nil {
		CacheErrors.WithLabelValues(cacheSource, "get").Inc()
		return nil, fmt.Errorf("source cache get %s: %w", loc.Key(c.prefix), err)
	}
	if !ok {
		CacheMisses.WithLabelValues(cacheSource).Inc()
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(cacheSource, "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues(cacheSource, "store").Inc()
	return &entry, nil
}

// Put unconditionally overwrites the record for loc. The store-level TTL is
// set to ttl so the key is eventually evicted and its remaining lifetime can
// be read back.
func (c *SourceCache) Put(ctx context.Context, loc Locator, rec Record, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("source cache put %s: ttl must be positive (got %v)", loc, ttl)
	}

	data, err := json.Marshal(newEntry(rec, ttl, c.now()))
	if err != nil {
		CacheErrors.WithLabelValues(cacheSource, "put").Inc()
		return fmt.Errorf("marshal source entry: %w", err)
	}

	if err := c.store.Set(ctx, loc.Key(c.prefix), data, ttl); err != nil {
		CacheErrors.WithLabelValues(cacheSource, "put").Inc()
		return fmt.Errorf("source cache put %s: %w", loc.Key(c.prefix), err)
	}

	CacheWrites.WithLabelValues(cacheSource).Inc()
	return nil
}

// RemainingTTL returns the remaining lifetime of loc. ok is false when the
// key is absent. Store-native TTL is used when available; otherwise the
// stored_at stamp of the envelope is used.
func (c *SourceCache) RemainingTTL(ctx context.Context, loc Locator) (time.Duration, bool, error) {
	ttl, ok, err := c.store.TTL(ctx, loc.Key(c.prefix))
	if err != nil {
		CacheErrors.WithLabelValues(cacheSource, "ttl").Inc()
		return 0, false, fmt.Errorf("source cache ttl %s: %w", loc.Key(c.prefix), err)
	}
	if !ok {
		return 0, false, nil
	}
	if ttl >= 0 {
		return ttl, true, nil
	}

	entry, err := c.Get(ctx, loc)
	if errors.Is(err, ErrCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return entry.Remaining(c.now()), true, nil
}

// ScanPrefix returns a snapshot of the locators currently stored for source.
// Keys that cannot be parsed back into a locator are skipped.
func (c *SourceCache) ScanPrefix(ctx context.Context, source SourceType, localized bool) ([]Locator, error) {
	keys, err := c.store.Scan(ctx, SourcePrefix(c.prefix, source))
	if err != nil {
		CacheErrors.WithLabelValues(cacheSource, "scan").Inc()
		return nil, fmt.Errorf("source cache scan %s: %w", source, err)
	}

	locators := make([]Locator, 0, len(keys))
	for _, key := range keys {
		loc, err := ParseLocatorKey(c.prefix, source, key, localized)
		if err != nil {
			CacheErrors.WithLabelValues(cacheSource, "scan").Inc()
			continue
		}
		locators = append(locators, loc)
	}
	return locators, nil
}
