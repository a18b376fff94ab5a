package upstream

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/testutil"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		UserAgent: "overfast-proxy-test/1.0",
		Timeout:   timeout,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{name: "default config", config: DefaultConfig()},
		{
			name:     "empty base url",
			config:   Config{UserAgent: "x", Timeout: time.Second},
			errorMsg: "base url is required",
		},
		{
			name:     "empty user agent",
			config:   Config{BaseURL: "http://localhost", Timeout: time.Second},
			errorMsg: "user-agent is required",
		},
		{
			name:     "zero timeout",
			config:   Config{BaseURL: "http://localhost", UserAgent: "x"},
			errorMsg: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error = %v, want %q", err, tt.errorMsg)
			}
		})
	}
}

func TestClient_URL(t *testing.T) {
	c := newTestClient(t, "https://overwatch.blizzard.com/", time.Second)

	tests := []struct {
		loc  cache.Locator
		want string
	}{
		{cache.Locator{Locale: "en-us", Path: "/heroes"}, "https://overwatch.blizzard.com/en-us/heroes/"},
		{cache.Locator{Locale: "EN-US", Path: "/heroes/ana/"}, "https://overwatch.blizzard.com/en-us/heroes/ana/"},
		{cache.Locator{Locale: "fr-fr"}, "https://overwatch.blizzard.com/fr-fr/"},
		{cache.Locator{Path: "/search", Query: url.Values{"b": {"2"}, "a": {"1"}}}, "https://overwatch.blizzard.com/search/?a=1&b=2"},
	}

	for _, tt := range tests {
		if got := c.URL(tt.loc); got != tt.want {
			t.Errorf("URL(%v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestClient_Fetch(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.SetResponse("/en-us/heroes/broken/", testutil.NewServerErrorResponse())
	mock.SetResponse("/en-us/heroes/slow/", testutil.MockResponse{StatusCode: 200, Delay: 500 * time.Millisecond})
	mock.SetResponse("/en-us/heroes/gone/", testutil.MockResponse{
		StatusCode: 404,
		Body:       "<!DOCTYPE html>\n<html><body>Not here</body></html>",
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
	})

	c := newTestClient(t, mock.URL(), 100*time.Millisecond)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		body, err := c.Fetch(ctx, cache.Locator{Locale: "en-us", Path: "/heroes"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !strings.Contains(string(body), "blz-hero-card") {
			t.Error("expected heroes page body")
		}
		if ua := mock.LastUserAgent(); ua != "overfast-proxy-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.Fetch(ctx, cache.Locator{Locale: "en-us", Path: "/heroes/nobody"})
		ue, ok := IsUpstream(err)
		if !ok {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if ue.Status != 404 || Classify(err) != ErrorClassClient {
			t.Errorf("status = %d, class = %s", ue.Status, Classify(err))
		}
	})

	t.Run("server error", func(t *testing.T) {
		_, err := c.Fetch(ctx, cache.Locator{Locale: "en-us", Path: "/heroes/broken"})
		ue, ok := IsUpstream(err)
		if !ok || ue.Status != 500 {
			t.Fatalf("expected UpstreamError{500}, got %v", err)
		}
		if ue.Message != "Internal Server Error" {
			t.Errorf("message = %q", ue.Message)
		}
	})

	t.Run("markup error body", func(t *testing.T) {
		_, err := c.Fetch(ctx, cache.Locator{Locale: "en-us", Path: "/heroes/gone"})
		ue, ok := IsUpstream(err)
		if !ok || ue.Status != 404 {
			t.Fatalf("expected UpstreamError{404}, got %v", err)
		}
		if ue.Message != "404 Not Found" {
			t.Errorf("message = %q, want the status line", ue.Message)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := c.Fetch(ctx, cache.Locator{Locale: "en-us", Path: "/heroes/slow"})
		ue, ok := IsUpstream(err)
		if !ok || ue.Status != StatusTimeout {
			t.Fatalf("expected timeout UpstreamError, got %v", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Error("timeout should wrap context.DeadlineExceeded")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		dead := newTestClient(t, "http://127.0.0.1:1", time.Second)
		_, err := dead.Fetch(ctx, cache.Locator{Locale: "en-us"})
		ue, ok := IsUpstream(err)
		if !ok || ue.Status != StatusUnreachable {
			t.Fatalf("expected unreachable UpstreamError, got %v", err)
		}
		if Classify(err) != ErrorClassNetwork {
			t.Errorf("class = %s", Classify(err))
		}
	})
}

func TestClient_FetchOversizedPage(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	cards := strings.Repeat(`<blz-hero-card data-hero-id="ana"></blz-hero-card>`, 40)
	mock.SetResponse("/en-us/heroes/", testutil.NewPageResponse("<html><body>"+cards+"</body></html>"))

	c, err := NewClient(Config{
		BaseURL:     mock.URL(),
		UserAgent:   "overfast-proxy-test/1.0",
		Timeout:     time.Second,
		MaxBodySize: 1024,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	loc := cache.Locator{Locale: "en-us", Path: "/heroes"}
	body, err := c.Fetch(context.Background(), loc)
	if body != nil {
		t.Errorf("expected no body, got %d bytes", len(body))
	}
	pe, ok := IsParsing(err)
	if !ok {
		t.Fatalf("expected ParsingError, got %v", err)
	}
	if pe.URL != c.URL(loc) {
		t.Errorf("URL = %q", pe.URL)
	}

	// A page of exactly the limit is accepted.
	mock.SetResponse("/en-us/heroes/", testutil.NewPageResponse(strings.Repeat("a", 1024)))
	body, err = c.Fetch(context.Background(), loc)
	if err != nil {
		t.Fatalf("Fetch at limit: %v", err)
	}
	if len(body) != 1024 {
		t.Errorf("len(body) = %d, want 1024", len(body))
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain text", "Page Not Found", "Page Not Found"},
		{"first line only", "Service down\nretry later", "Service down"},
		{"empty", "  ", "503 Service Unavailable"},
		{"html", "<!DOCTYPE html>\n<html></html>", "503 Service Unavailable"},
		{"too long", strings.Repeat("x", 201), "503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage([]byte(tt.body), "503 Service Unavailable"); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
