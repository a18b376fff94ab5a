package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/store"
)

func newTestSourceCache(t *testing.T) (*SourceCache, *store.Memory, *time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	mem := store.NewMemory()
	mem.SetClock(clock)
	c := NewSourceCache(mem, "parser-cache")
	c.SetClock(clock)
	return c, mem, &now
}

func TestNewSourceCache_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewSourceCache should panic with nil store")
		}
	}()
	NewSourceCache(nil, "p")
}

func TestSourceCache_PutAndGet(t *testing.T) {
	c, _, _ := newTestSourceCache(t)
	ctx := context.Background()
	loc := Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}
	rec := Record(`{"name":"Ana","role":"support"}`)

	if err := c.Put(ctx, loc, rec, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := c.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Data) != string(rec) {
		t.Errorf("Data = %s, want %s", entry.Data, rec)
	}
	if entry.TTLSeconds != 3600 {
		t.Errorf("TTLSeconds = %d, want 3600", entry.TTLSeconds)
	}
}

func TestSourceCache_Get_Miss(t *testing.T) {
	c, _, _ := newTestSourceCache(t)
	_, err := c.Get(context.Background(), Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/x"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}
}

func TestSourceCache_Get_InvalidEnvelope(t *testing.T) {
	c, mem, _ := newTestSourceCache(t)
	ctx := context.Background()
	loc := Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}

	_ = mem.Set(ctx, loc.Key("parser-cache"), []byte("not json"), time.Hour)

	if _, err := c.Get(ctx, loc); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get error = %v, want ErrInvalidEntry", err)
	}
}

func TestSourceCache_Get_StoreUnavailable(t *testing.T) {
	c, mem, _ := newTestSourceCache(t)
	mem.SetUnavailable(true)

	_, err := c.Get(context.Background(), Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Get error = %v, want store.ErrUnavailable", err)
	}
}

func TestSourceCache_Put_Overwrites(t *testing.T) {
	c, _, _ := newTestSourceCache(t)
	ctx := context.Background()
	loc := Locator{Source: "RolesParser", Locale: "en-us"}

	_ = c.Put(ctx, loc, Record(`[{"key":"tank"}]`), time.Hour)
	_ = c.Put(ctx, loc, Record(`[{"key":"damage"}]`), time.Hour)

	entry, err := c.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Data) != `[{"key":"damage"}]` {
		t.Errorf("Data = %s, want last written record", entry.Data)
	}
}

func TestSourceCache_Put_InvalidTTL(t *testing.T) {
	c, _, _ := newTestSourceCache(t)
	if err := c.Put(context.Background(), Locator{Source: "RolesParser", Locale: "en-us"}, Record(`[]`), 0); err == nil {
		t.Error("Put with zero ttl should fail")
	}
}

func TestSourceCache_RemainingTTL(t *testing.T) {
	c, _, now := newTestSourceCache(t)
	ctx := context.Background()
	loc := Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}

	if _, ok, err := c.RemainingTTL(ctx, loc); ok || err != nil {
		t.Fatalf("RemainingTTL before Put = (%v, %v), want absent", ok, err)
	}

	ttl := 10 * time.Minute
	_ = c.Put(ctx, loc, Record(`{}`), ttl)

	remaining, ok, err := c.RemainingTTL(ctx, loc)
	if err != nil || !ok {
		t.Fatalf("RemainingTTL = (%v, %v, %v), want present", remaining, ok, err)
	}
	if remaining <= 0 || remaining > ttl {
		t.Errorf("RemainingTTL = %v, want in (0, %v]", remaining, ttl)
	}

	*now = now.Add(4 * time.Minute)
	remaining, _, _ = c.RemainingTTL(ctx, loc)
	if remaining != 6*time.Minute {
		t.Errorf("RemainingTTL after 4m = %v, want 6m", remaining)
	}
}

func TestSourceCache_RemainingTTL_FromEnvelope(t *testing.T) {
	c, mem, now := newTestSourceCache(t)
	ctx := context.Background()
	loc := Locator{Source: "MapsParser", Path: "/maps"}

	// Written without store-level expiry, as a store lacking native TTLs would.
	envelope := `{"data":[],"stored_at":"` + now.Add(-time.Minute).Format(time.RFC3339Nano) + `","ttl_seconds":300}`
	_ = mem.Set(ctx, loc.Key("parser-cache"), []byte(envelope), 0)

	remaining, ok, err := c.RemainingTTL(ctx, loc)
	if err != nil || !ok {
		t.Fatalf("RemainingTTL = (%v, %v, %v), want present", remaining, ok, err)
	}
	if remaining != 4*time.Minute {
		t.Errorf("RemainingTTL = %v, want 4m", remaining)
	}
}

func TestSourceCache_ScanPrefix(t *testing.T) {
	c, mem, _ := newTestSourceCache(t)
	ctx := context.Background()

	heroes := []Locator{
		{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"},
		{Source: "HeroParser", Locale: "fr-fr", Path: "/heroes/mercy"},
	}
	for _, loc := range heroes {
		_ = c.Put(ctx, loc, Record(`{}`), time.Hour)
	}
	_ = c.Put(ctx, Locator{Source: "HeroesParser", Locale: "en-us", Path: "/heroes"}, Record(`[]`), time.Hour)
	_ = mem.Set(ctx, "parser-cache:HeroParser-", []byte("{}"), time.Hour) // unparsable

	got, err := c.ScanPrefix(ctx, "HeroParser", true)
	if err != nil {
		t.Fatalf("ScanPrefix failed: %v", err)
	}
	if len(got) != len(heroes) {
		t.Fatalf("ScanPrefix returned %d locators, want %d: %v", len(got), len(heroes), got)
	}
	for i := range heroes {
		if !got[i].Equal(heroes[i]) {
			t.Errorf("locator[%d] = %v, want %v", i, got[i], heroes[i])
		}
	}
}

func TestSourceCache_ScanPrefix_StoreUnavailable(t *testing.T) {
	c, mem, _ := newTestSourceCache(t)
	mem.SetUnavailable(true)

	if _, err := c.ScanPrefix(context.Background(), "HeroParser", true); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("ScanPrefix error = %v, want store.ErrUnavailable", err)
	}
}
