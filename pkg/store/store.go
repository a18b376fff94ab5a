// Package store provides the key-value storage adapter used by the caches.
//
// Values are opaque byte slices. Every implementation must be safe for
// concurrent use and must surface transport failures as ErrUnavailable so
// callers can abort instead of serving partial state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrUnavailable indicates the backing store could not be reached.
var ErrUnavailable = errors.New("store unavailable")

// Store is a minimal byte store with TTLs and prefix scans.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites key with value. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns a snapshot of all keys starting with prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// TTL returns the remaining time to live of key. ok is false when the
	// key does not exist. Keys without expiry report a negative duration.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

var storeErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "overfast_store_errors_total",
		Help: "Total number of key-value store operation errors",
	},
	[]string{"operation"}, // "get", "set", "delete", "scan", "ttl", "ping"
)
