// Package app assembles the proxy components from a configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/config"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/logging"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
	"github.com/Sternrassler/overfast-proxy/pkg/reconcile"
	"github.com/Sternrassler/overfast-proxy/pkg/resolver"
	"github.com/Sternrassler/overfast-proxy/pkg/store"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
	"github.com/rs/zerolog"
)

// App holds the wired components.
type App struct {
	Config    config.Config
	Store     store.Store
	Sources   *cache.SourceCache
	Responses *cache.ResponseCache
	Registry  *upstream.Registry
	Resolver  *resolver.Resolver
	Refresh   *reconcile.Job

	closer io.Closer
}

// New validates cfg, connects to the store and builds every component.
// The store is pinged once so that a misconfigured deployment fails at start.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{Config: cfg}

	switch cfg.Store {
	case config.StoreRedis:
		r, err := store.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.Store, a.closer = r, r
	case config.StoreMemory:
		a.Store = store.NewMemory()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Store.Ping(pingCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to %s store: %w", cfg.Store, err)
	}

	client, err := upstream.NewClient(upstream.Config{
		BaseURL:   cfg.UpstreamURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.UpstreamTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry, err = upstream.NewRegistry(parsers.Sources(client, cfg.AssetsURL, cfg.SourceTTLs)...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Sources = cache.NewSourceCache(a.Store, cfg.SourcePrefix)
	a.Responses = cache.NewResponseCache(a.Store, cfg.ResponsePrefix, cache.ResponseCacheOptions{
		LocalSize: cfg.LocalCacheSize,
		LocalTTL:  cfg.LocalCacheTTL,
	})

	resolverLogger := logging.NewLogger("resolver")
	a.Resolver, err = resolver.New(resolver.Config{
		Sources:   a.Sources,
		Responses: a.Responses,
		Registry:  a.Registry,
		Kinds:     resolver.Kinds(cfg.ResponseTTLs),
		Logger:    &resolverLogger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	refreshLogger := logging.NewLogger("reconcile")
	a.Refresh, err = reconcile.New(reconcile.Config{
		Cache:       a.Sources,
		Registry:    a.Registry,
		Refresher:   a.Resolver,
		Window:      cfg.RefreshWindow,
		Concurrency: cfg.RefreshConcurrency,
		Timeout:     cfg.RefreshTimeout,
		Logger:      &refreshLogger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases the store connection.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// SetupLogging configures the global logger from cfg.
func SetupLogging(cfg config.Config, out io.Writer) zerolog.Logger {
	return logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: out,
	})
}
