package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/config"
	"github.com/Sternrassler/overfast-proxy/internal/testutil"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
	"github.com/Sternrassler/overfast-proxy/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(upstreamURL string) config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.UpstreamURL = upstreamURL
	cfg.UpstreamTimeout = 2 * time.Second
	cfg.LocalCacheSize = 16
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store = "etcd"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis store")
}

func TestNew_WiresComponents(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	a, err := New(context.Background(), memoryConfig(mock.URL()))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	sig := cache.RequestSignature{Method: "GET", Path: "/heroes/ana", Query: map[string][]string{"locale": {"en-us"}}}
	payload, err := a.Resolver.Resolve(ctx, resolver.KindGetHero, sig, resolver.Params{Locale: "en-us", HeroKey: "ana"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"name":"Ana"`)

	// Every source the request needed is now in the source cache.
	for _, loc := range []cache.Locator{
		parsers.HeroLocator("en-us", "ana"),
		parsers.HeroesLocator("en-us"),
		parsers.HeroesStatsLocator(),
	} {
		remaining, ok, err := a.Sources.RemainingTTL(ctx, loc)
		require.NoError(t, err)
		require.True(t, ok, loc.String())
		assert.Greater(t, remaining, time.Hour)
	}

	// Nothing expires within the default window.
	summary, err := a.Refresh.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Found)
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogLevel = "warn"

	logger := SetupLogging(cfg, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
