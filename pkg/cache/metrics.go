package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by cache and layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overfast_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache", "layer"}, // cache: "source", "response"; layer: "memory", "store"
	)

	// CacheMisses tracks cache misses by cache
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overfast_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// CacheWrites tracks successful cache writes by cache
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overfast_cache_writes_total",
			Help: "Total number of cache writes",
		},
		[]string{"cache"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overfast_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"cache", "operation"}, // operation: "get", "put", "ttl", "scan"
	)
)

const (
	cacheSource   = "source"
	cacheResponse = "response"
)
