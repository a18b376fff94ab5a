package cache

import (
	"encoding/json"
	"time"
)

// Record is a parsed source payload: a JSON object or an array of objects.
// Records are replaced wholesale, never mutated in place.
type Record = json.RawMessage

// Entry is the envelope stored for every cached value.
type Entry struct {
	// Data is the cached payload.
	Data json.RawMessage `json:"data"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTLSeconds is the lifetime granted at write time.
	TTLSeconds int `json:"ttl_seconds"`
}

// Remaining returns ttl_seconds - (now - stored_at).
func (e *Entry) Remaining(now time.Time) time.Duration {
	return time.Duration(e.TTLSeconds)*time.Second - now.Sub(e.StoredAt)
}

// IsExpired reports whether the entry must be treated as absent.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.Remaining(now) <= 0
}

func newEntry(data []byte, ttl time.Duration, now time.Time) *Entry {
	return &Entry{
		Data:       data,
		StoredAt:   now,
		TTLSeconds: int(ttl / time.Second),
	}
}
