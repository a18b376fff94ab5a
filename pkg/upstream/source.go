package upstream

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/integrity"
)

// Parser turns one upstream target into a record. Implementations return
// *UpstreamError when the upstream did not answer successfully and
// *ParsingError when the answer could not be understood.
type Parser interface {
	Parse(ctx context.Context, loc cache.Locator) (cache.Record, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, loc cache.Locator) (cache.Record, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	return f(ctx, loc)
}

// Source describes one source type: how to fetch it, how long to keep it and
// what a valid record looks like.
type Source struct {
	Type cache.SourceType

	// Localized sources carry a locale as the first locator segment.
	Localized bool

	// TTL granted to freshly parsed records.
	TTL time.Duration

	// Schema every record of this source must satisfy.
	Schema integrity.Schema

	Parser Parser
}

// Registry holds the known source types.
type Registry struct {
	sources map[cache.SourceType]Source
}

// NewRegistry builds a registry. Duplicate types, a missing parser or a
// non-positive TTL are configuration errors.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[cache.SourceType]Source, len(sources))}
	for _, s := range sources {
		if s.Type == "" {
			return nil, fmt.Errorf("source type is required")
		}
		if s.Parser == nil {
			return nil, fmt.Errorf("source %s: parser is required", s.Type)
		}
		if s.TTL <= 0 {
			return nil, fmt.Errorf("source %s: ttl must be positive (got %v)", s.Type, s.TTL)
		}
		if _, dup := r.sources[s.Type]; dup {
			return nil, fmt.Errorf("source %s registered twice", s.Type)
		}
		r.sources[s.Type] = s
	}
	return r, nil
}

// Get returns the source registered under t.
func (r *Registry) Get(t cache.SourceType) (Source, bool) {
	s, ok := r.sources[t]
	return s, ok
}

// All returns every registered source ordered by type.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
