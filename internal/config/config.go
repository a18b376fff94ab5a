// Package config holds the process configuration shared by the commands.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/logging"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
	"github.com/Sternrassler/overfast-proxy/pkg/resolver"
	"github.com/urfave/cli/v2"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds every tunable of the proxy.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// Store selects the key-value backend ("redis" or "memory").
	Store string

	// RedisURL is a redis:// URL.
	RedisURL string

	// SourcePrefix and ResponsePrefix namespace the two cache tiers.
	SourcePrefix   string
	ResponsePrefix string

	UpstreamURL     string
	AssetsURL       string
	UserAgent       string
	UpstreamTimeout time.Duration
	DefaultLocale   string

	SourceTTLs   parsers.TTLs
	ResponseTTLs resolver.ResponseTTLs

	// LocalCacheSize enables an in-process response layer when positive.
	LocalCacheSize int
	LocalCacheTTL  time.Duration

	// RefreshWindow selects source entries expiring within this duration.
	RefreshWindow      time.Duration
	RefreshConcurrency int
	RefreshTimeout     time.Duration

	// RefreshInterval runs the sweep inside the server when positive.
	RefreshInterval time.Duration

	LogLevel  string
	LogPretty bool
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		Store:              StoreRedis,
		RedisURL:           "redis://localhost:6379/0",
		SourcePrefix:       "parser-cache",
		ResponsePrefix:     "api-cache",
		UpstreamURL:        "https://overwatch.blizzard.com",
		AssetsURL:          "https://overfast-api.tekrop.fr/static",
		UserAgent:          "overfast-proxy/0.1.0",
		UpstreamTimeout:    10 * time.Second,
		DefaultLocale:      "en-us",
		SourceTTLs:         parsers.DefaultTTLs(),
		ResponseTTLs:       resolver.DefaultResponseTTLs(),
		LocalCacheSize:     0,
		LocalCacheTTL:      time.Minute,
		RefreshWindow:      2 * time.Minute,
		RefreshConcurrency: 5,
		RefreshTimeout:     30 * time.Second,
		RefreshInterval:    0,
		LogLevel:           string(logging.LevelInfo),
		LogPretty:          false,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.Store {
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreRedis, StoreMemory)
	}
	if c.SourcePrefix == "" || c.ResponsePrefix == "" {
		return fmt.Errorf("cache prefixes are required")
	}
	if c.SourcePrefix == c.ResponsePrefix {
		return fmt.Errorf("source and response prefixes must differ (both %q)", c.SourcePrefix)
	}
	if u, err := url.Parse(c.UpstreamURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream url %q", c.UpstreamURL)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive (got %v)", c.UpstreamTimeout)
	}
	if c.DefaultLocale == "" {
		return fmt.Errorf("default locale is required")
	}

	for name, ttl := range map[string]time.Duration{
		"heroes source ttl":      c.SourceTTLs.Heroes,
		"hero source ttl":        c.SourceTTLs.Hero,
		"roles source ttl":       c.SourceTTLs.Roles,
		"gamemodes source ttl":   c.SourceTTLs.Gamemodes,
		"career source ttl":      c.SourceTTLs.Career,
		"csv source ttl":         c.SourceTTLs.CSV,
		"heroes response ttl":    c.ResponseTTLs.Heroes,
		"hero response ttl":      c.ResponseTTLs.Hero,
		"roles response ttl":     c.ResponseTTLs.Roles,
		"maps response ttl":      c.ResponseTTLs.Maps,
		"gamemodes response ttl": c.ResponseTTLs.Gamemodes,
		"career response ttl":    c.ResponseTTLs.Career,
	} {
		if ttl < time.Second {
			return fmt.Errorf("%s must be at least 1s (got %v)", name, ttl)
		}
	}

	if c.LocalCacheSize < 0 {
		return fmt.Errorf("local cache size must not be negative (got %d)", c.LocalCacheSize)
	}
	if c.LocalCacheSize > 0 && c.LocalCacheTTL <= 0 {
		return fmt.Errorf("local cache ttl must be positive when the local cache is enabled")
	}
	if c.RefreshWindow < 0 {
		return fmt.Errorf("refresh window must not be negative (got %v)", c.RefreshWindow)
	}
	if c.RefreshConcurrency <= 0 {
		return fmt.Errorf("refresh concurrency must be positive (got %d)", c.RefreshConcurrency)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative (got %v)", c.RefreshInterval)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Flags returns CLI flags bound to the fields of c. Defaults are taken from
// the current values of c, and every flag can be set from the environment.
func (c *Config) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "listen", Usage: "HTTP bind address", Value: c.ListenAddr, Destination: &c.ListenAddr, EnvVars: []string{"LISTEN_ADDR"}},
		&cli.StringFlag{Name: "store", Usage: "key-value backend (redis or memory)", Value: c.Store, Destination: &c.Store, EnvVars: []string{"STORE"}},
		&cli.StringFlag{Name: "redis-url", Usage: "redis connection URL", Value: c.RedisURL, Destination: &c.RedisURL, EnvVars: []string{"REDIS_URL"}},
		&cli.StringFlag{Name: "source-prefix", Usage: "key prefix of the source cache", Value: c.SourcePrefix, Destination: &c.SourcePrefix, EnvVars: []string{"SOURCE_CACHE_PREFIX"}},
		&cli.StringFlag{Name: "response-prefix", Usage: "key prefix of the response cache", Value: c.ResponsePrefix, Destination: &c.ResponsePrefix, EnvVars: []string{"RESPONSE_CACHE_PREFIX"}},
		&cli.StringFlag{Name: "upstream-url", Usage: "upstream site root", Value: c.UpstreamURL, Destination: &c.UpstreamURL, EnvVars: []string{"UPSTREAM_URL"}},
		&cli.StringFlag{Name: "assets-url", Usage: "base URL of static assets", Value: c.AssetsURL, Destination: &c.AssetsURL, EnvVars: []string{"ASSETS_URL"}},
		&cli.StringFlag{Name: "user-agent", Usage: "User-Agent sent upstream", Value: c.UserAgent, Destination: &c.UserAgent, EnvVars: []string{"USER_AGENT"}},
		&cli.DurationFlag{Name: "upstream-timeout", Usage: "timeout of one upstream fetch", Value: c.UpstreamTimeout, Destination: &c.UpstreamTimeout, EnvVars: []string{"UPSTREAM_TIMEOUT"}},
		&cli.StringFlag{Name: "default-locale", Usage: "locale used when none is requested", Value: c.DefaultLocale, Destination: &c.DefaultLocale, EnvVars: []string{"DEFAULT_LOCALE"}},
		&cli.DurationFlag{Name: "heroes-source-ttl", Value: c.SourceTTLs.Heroes, Destination: &c.SourceTTLs.Heroes, EnvVars: []string{"HEROES_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "hero-source-ttl", Value: c.SourceTTLs.Hero, Destination: &c.SourceTTLs.Hero, EnvVars: []string{"HERO_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "roles-source-ttl", Value: c.SourceTTLs.Roles, Destination: &c.SourceTTLs.Roles, EnvVars: []string{"ROLES_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "gamemodes-source-ttl", Value: c.SourceTTLs.Gamemodes, Destination: &c.SourceTTLs.Gamemodes, EnvVars: []string{"GAMEMODES_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "career-source-ttl", Value: c.SourceTTLs.Career, Destination: &c.SourceTTLs.Career, EnvVars: []string{"CAREER_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "csv-source-ttl", Value: c.SourceTTLs.CSV, Destination: &c.SourceTTLs.CSV, EnvVars: []string{"CSV_SOURCE_TTL"}},
		&cli.DurationFlag{Name: "heroes-response-ttl", Value: c.ResponseTTLs.Heroes, Destination: &c.ResponseTTLs.Heroes, EnvVars: []string{"HEROES_RESPONSE_TTL"}},
		&cli.DurationFlag{Name: "hero-response-ttl", Value: c.ResponseTTLs.Hero, Destination: &c.ResponseTTLs.Hero, EnvVars: []string{"HERO_RESPONSE_TTL"}},
		&cli.DurationFlag{Name: "roles-response-ttl", Value: c.ResponseTTLs.Roles, Destination: &c.ResponseTTLs.Roles, EnvVars: []string{"ROLES_RESPONSE_TTL"}},
		&cli.DurationFlag{Name: "maps-response-ttl", Value: c.ResponseTTLs.Maps, Destination: &c.ResponseTTLs.Maps, EnvVars: []string{"MAPS_RESPONSE_TTL"}},
		&cli.DurationFlag{Name: "gamemodes-response-ttl", Value: c.ResponseTTLs.Gamemodes, Destination: &c.ResponseTTLs.Gamemodes, EnvVars: []string{"GAMEMODES_RESPONSE_TTL"}},
		&cli.DurationFlag{Name: "career-response-ttl", Value: c.ResponseTTLs.Career, Destination: &c.ResponseTTLs.Career, EnvVars: []string{"CAREER_RESPONSE_TTL"}},
		&cli.IntFlag{Name: "local-cache-size", Usage: "entries of the in-process response layer, 0 disables it", Value: c.LocalCacheSize, Destination: &c.LocalCacheSize, EnvVars: []string{"LOCAL_CACHE_SIZE"}},
		&cli.DurationFlag{Name: "local-cache-ttl", Value: c.LocalCacheTTL, Destination: &c.LocalCacheTTL, EnvVars: []string{"LOCAL_CACHE_TTL"}},
		&cli.DurationFlag{Name: "refresh-window", Usage: "refresh source entries expiring within this duration", Value: c.RefreshWindow, Destination: &c.RefreshWindow, EnvVars: []string{"REFRESH_WINDOW"}},
		&cli.IntFlag{Name: "refresh-concurrency", Usage: "parallel refetches during a sweep", Value: c.RefreshConcurrency, Destination: &c.RefreshConcurrency, EnvVars: []string{"REFRESH_CONCURRENCY"}},
		&cli.DurationFlag{Name: "refresh-timeout", Usage: "timeout of one refresh", Value: c.RefreshTimeout, Destination: &c.RefreshTimeout, EnvVars: []string{"REFRESH_TIMEOUT"}},
		&cli.DurationFlag{Name: "refresh-interval", Usage: "run the sweep in-process at this interval, 0 disables it", Value: c.RefreshInterval, Destination: &c.RefreshInterval, EnvVars: []string{"REFRESH_INTERVAL"}},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: c.LogLevel, Destination: &c.LogLevel, EnvVars: []string{"LOG_LEVEL"}},
		&cli.BoolFlag{Name: "log-pretty", Usage: "human-readable console logs", Value: c.LogPretty, Destination: &c.LogPretty, EnvVars: []string{"LOG_PRETTY"}},
	}
}
