//go:build integration

package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/config"
	"github.com/Sternrassler/overfast-proxy/internal/server"
	"github.com/Sternrassler/overfast-proxy/internal/testutil"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns its redis:// URL.
func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err, "Redis endpoint")

	return "redis://" + endpoint + "/0", func() { container.Terminate(ctx) }
}

// TestFullRequestFlow runs API requests and a refresh sweep against a real
// Redis: upstream page -> source cache -> merged response -> response cache.
func TestFullRequestFlow(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUpstream()
	defer mock.Close()

	cfg := config.Default()
	cfg.RedisURL = redisURL
	cfg.UpstreamURL = mock.URL()
	cfg.UpstreamTimeout = 5 * time.Second
	cfg.SourceTTLs.Hero = 30 * time.Second

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	srv, err := server.New(server.Config{Resolver: a.Resolver, Store: a.Store})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string) []byte {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "GET %s: %s", path, body)
		return body
	}

	first := get("/heroes/ana")
	var hero parsers.Hero
	require.NoError(t, json.Unmarshal(first, &hero))
	assert.Equal(t, "Ana", hero.Name)
	assert.NotNil(t, hero.Hitpoints)

	requests := mock.RequestCount()
	second := get("/heroes/ana")
	assert.Equal(t, first, second, "warm response differs from cold response")
	assert.Equal(t, requests, mock.RequestCount(), "warm request hit upstream")

	// The hero page expires within the default window, the heroes list
	// and the stats do not.
	summary, err := a.Refresh.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Updated)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 2, mock.PathCount("/en-us/heroes/ana/"), "hero page fetches")
}
