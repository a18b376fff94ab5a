// Package resolver turns a client request into a payload using the two cache
// tiers and the upstream parsers.
//
// Every request walks the same states:
//
//	CHECK_RESPONSE_CACHE -> CHECK_SOURCE_CACHE -> VALIDATE -> FETCH_UPSTREAM -> MERGE -> STORE
//
// A response cache hit ends the walk immediately. A source record is reused
// only while its TTL runs and it still satisfies its schema; otherwise it is
// fetched again. Source records are always written before the response that
// was built from them.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/integrity"
	"github.com/Sternrassler/overfast-proxy/pkg/store"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for request resolution.
var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_resolve_total",
		Help: "Resolved requests by kind and outcome",
	}, []string{"kind", "outcome"})

	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overfast_resolve_duration_seconds",
		Help:    "Request resolution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	sourceRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_source_refresh_total",
		Help: "Source fetches by source type and result",
	}, []string{"source", "result"})

	sourceStaleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_source_stale_total",
		Help: "Cached source records rejected before use, by reason",
	}, []string{"source", "reason"})
)

// ErrUnknownKind is returned for a request kind missing from the table.
var ErrUnknownKind = errors.New("unknown request kind")

// ErrUnknownSource is returned for a locator whose source type is not
// registered.
var ErrUnknownSource = errors.New("unknown source type")

// Config holds the resolver dependencies.
type Config struct {
	Sources   *cache.SourceCache
	Responses *cache.ResponseCache
	Registry  *upstream.Registry

	// Kinds is the request kind table. Defaults to Kinds(DefaultResponseTTLs()).
	Kinds map[string]Kind

	// Logger defaults to the global logger with component=resolver.
	Logger *zerolog.Logger
}

// Resolver coordinates the caches and the parsers. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	sources   *cache.SourceCache
	responses *cache.ResponseCache
	registry  *upstream.Registry
	kinds     map[string]Kind
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Sources == nil {
		return nil, fmt.Errorf("source cache is required")
	}
	if cfg.Responses == nil {
		return nil, fmt.Errorf("response cache is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("source registry is required")
	}
	if cfg.Kinds == nil {
		cfg.Kinds = Kinds(DefaultResponseTTLs())
	}
	for name, k := range cfg.Kinds {
		if k.TTL <= 0 || k.Requires == nil || k.Merge == nil {
			return nil, fmt.Errorf("kind %s: ttl, requires and merge are required", name)
		}
	}

	logger := log.With().Str("component", "resolver").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Resolver{
		sources:   cfg.Sources,
		responses: cfg.Responses,
		registry:  cfg.Registry,
		kinds:     cfg.Kinds,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source used for staleness decisions.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns the payload for one client request.
//
// Errors:
//   - *upstream.UpstreamError when a source could not be fetched
//   - *upstream.ParsingError when a page or the merged payload is unusable
//   - store.ErrUnavailable (wrapped) when the store cannot be reached
func (r *Resolver) Resolve(ctx context.Context, kindName string, sig cache.RequestSignature, p Params) ([]byte, error) {
	kind, ok := r.kinds[kindName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}

	start := time.Now()
	defer func() {
		resolveDuration.WithLabelValues(kind.Name).Observe(time.Since(start).Seconds())
	}()

	logger := r.logger.With().Str("kind", kind.Name).Str("signature", sig.String()).Logger()

	// CHECK_RESPONSE_CACHE
	payload, err := r.responses.Get(ctx, sig)
	if err == nil {
		logger.Debug().Msg("Response cache hit")
		resolveTotal.WithLabelValues(kind.Name, "response_hit").Inc()
		return payload, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		resolveTotal.WithLabelValues(kind.Name, "store_error").Inc()
		logger.Error().Err(err).Msg("Response cache unavailable")
		return nil, err
	}

	// CHECK_SOURCE_CACHE, VALIDATE, FETCH_UPSTREAM
	locators := kind.Requires(p)
	records := make([]cache.Record, 0, len(locators))
	for _, loc := range locators {
		rec, err := r.loadSource(ctx, loc)
		if err != nil {
			resolveTotal.WithLabelValues(kind.Name, outcome(err)).Inc()
			return nil, err
		}
		records = append(records, rec)
	}

	// MERGE
	merged, err := kind.Merge(p, records)
	if err != nil {
		return nil, r.mergeFailed(logger, kind, sig, err)
	}
	payload, err = json.Marshal(merged)
	if err != nil {
		return nil, r.mergeFailed(logger, kind, sig, fmt.Errorf("encode payload: %w", err))
	}

	// STORE
	if err := integrity.Validate(payload, kind.Schema); err != nil {
		return nil, r.mergeFailed(logger, kind, sig, err)
	}
	if err := r.responses.Put(ctx, sig, payload, kind.TTL); err != nil {
		resolveTotal.WithLabelValues(kind.Name, "store_error").Inc()
		logger.Error().Err(err).Msg("Failed to store response")
		return nil, err
	}

	resolveTotal.WithLabelValues(kind.Name, "built").Inc()
	logger.Debug().Int("sources", len(locators)).Msg("Response built")
	return payload, nil
}

func (r *Resolver) mergeFailed(logger zerolog.Logger, kind Kind, sig cache.RequestSignature, err error) error {
	resolveTotal.WithLabelValues(kind.Name, "parsing_error").Inc()
	pe := upstream.NewParsingError(sig.String(), fmt.Errorf("merged payload: %w", err))
	logger.Error().Err(pe).Msg("Merged payload rejected")
	return pe
}

// loadSource returns a usable record for loc, from the source cache when
// the stored one is unexpired and valid, from upstream otherwise.
func (r *Resolver) loadSource(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	src, ok := r.registry.Get(loc.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, loc.Source)
	}
	logger := r.logger.With().Str("source", string(loc.Source)).Str("locator", loc.String()).Logger()

	entry, err := r.sources.Get(ctx, loc)
	switch {
	case err == nil:
		if entry.IsExpired(r.now()) {
			sourceStaleTotal.WithLabelValues(string(loc.Source), "expired").Inc()
			logger.Debug().Msg("Source record expired")
			break
		}
		if verr := integrity.Validate(entry.Data, src.Schema); verr != nil {
			sourceStaleTotal.WithLabelValues(string(loc.Source), "integrity").Inc()
			logger.Info().Err(verr).Msg("Cached source record failed validation, refetching")
			break
		}
		return cache.Record(entry.Data), nil
	case errors.Is(err, cache.ErrCacheMiss):
	case errors.Is(err, cache.ErrInvalidEntry):
		sourceStaleTotal.WithLabelValues(string(loc.Source), "invalid_entry").Inc()
		logger.Warn().Err(err).Msg("Unreadable source entry, refetching")
	default:
		return nil, err
	}

	return r.fetch(ctx, src, loc)
}

// Refresh fetches loc from upstream and overwrites its source cache entry.
// Nothing is written when the fetch, the parse or the validation fails.
func (r *Resolver) Refresh(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	src, ok := r.registry.Get(loc.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, loc.Source)
	}
	return r.fetch(ctx, src, loc)
}

func (r *Resolver) fetch(ctx context.Context, src upstream.Source, loc cache.Locator) (cache.Record, error) {
	logger := r.logger.With().Str("source", string(src.Type)).Str("locator", loc.String()).Logger()

	rec, err := src.Parser.Parse(ctx, loc)
	if err != nil {
		sourceRefreshTotal.WithLabelValues(string(src.Type), string(upstream.Classify(err))).Inc()
		if ue, ok := upstream.IsUpstream(err); ok {
			logger.Warn().Int("status", ue.Status).Str("error_class", string(upstream.Classify(err))).
				Msg("Upstream fetch failed")
		} else {
			logger.Error().Err(err).Msg("Source parsing failed")
		}
		return nil, err
	}

	if err := integrity.Validate(rec, src.Schema); err != nil {
		sourceRefreshTotal.WithLabelValues(string(src.Type), string(upstream.ErrorClassParsing)).Inc()
		pe := upstream.NewParsingError(loc.String(), err)
		logger.Error().Err(pe).Msg("Fresh source record failed validation")
		return nil, pe
	}

	if err := r.sources.Put(ctx, loc, rec, src.TTL); err != nil {
		sourceRefreshTotal.WithLabelValues(string(src.Type), "store_error").Inc()
		logger.Error().Err(err).Msg("Failed to store source record")
		return nil, err
	}

	sourceRefreshTotal.WithLabelValues(string(src.Type), "ok").Inc()
	logger.Debug().Dur("ttl", src.TTL).Msg("Source record refreshed")
	return rec, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return "store_error"
	case upstream.Classify(err) == upstream.ErrorClassParsing:
		return "parsing_error"
	case upstream.Classify(err) != "":
		return "upstream_error"
	default:
		return "internal_error"
	}
}
