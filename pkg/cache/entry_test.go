package cache

import (
	"testing"
	"time"
)

func TestEntry_Remaining(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		storedAt    time.Time
		ttlSeconds  int
		want        time.Duration
		wantExpired bool
	}{
		{
			name:       "fresh entry",
			storedAt:   now,
			ttlSeconds: 60,
			want:       60 * time.Second,
		},
		{
			name:       "half way",
			storedAt:   now.Add(-30 * time.Second),
			ttlSeconds: 60,
			want:       30 * time.Second,
		},
		{
			name:        "exactly expired",
			storedAt:    now.Add(-60 * time.Second),
			ttlSeconds:  60,
			want:        0,
			wantExpired: true,
		},
		{
			name:        "long expired",
			storedAt:    now.Add(-1 * time.Hour),
			ttlSeconds:  60,
			want:        -59 * time.Minute,
			wantExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{StoredAt: tt.storedAt, TTLSeconds: tt.ttlSeconds}
			if got := entry.Remaining(now); got != tt.want {
				t.Errorf("Remaining() = %v, want %v", got, tt.want)
			}
			if got := entry.IsExpired(now); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
		})
	}
}
