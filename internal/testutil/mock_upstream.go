// Package testutil provides testing utilities for the overfast proxy.
package testutil

import (
	"embed"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

//go:embed fixtures/*.html
var fixtures embed.FS

// Fixture returns the content of an embedded upstream page fixture.
func Fixture(name string) string {
	data, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MockResponse defines the behavior for a mock upstream page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock of the upstream website. By default it
// serves the embedded fixtures for the en-us locale and 404 for everything
// else.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount  int
	pathCounts    map[string]int
	lastUserAgent string
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastUserAgent = r.Header.Get("User-Agent")
		handler, exists := mock.handlers[routeKey(r.URL.Path)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastUserAgent = ""
}

// SetHandler sets a custom handler for a specific path. A trailing slash is
// optional: the client always requests pages with one.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[routeKey(path)] = handler
}

func routeKey(path string) string {
	return strings.TrimSuffix(path, "/")
}

// SetResponse configures a simple response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockUpstream) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made for path.
func (m *MockUpstream) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockUpstream) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// defaultHandler serves the fixture pages.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	var fixture string
	switch path := strings.TrimSuffix(r.URL.Path, "/"); path {
	case "/en-us":
		fixture = "home.html"
	case "/en-us/heroes":
		fixture = "heroes.html"
	case "/en-us/heroes/ana":
		fixture = "hero_ana.html"
	case "/en-us/heroes/reinhardt":
		fixture = "hero_reinhardt.html"
	case "/en-us/career/TeKrop-2217":
		fixture = "player_tekrop.html"
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Fixture(fixture)))
}

// NewPageResponse creates a 200 OK HTML response.
func NewPageResponse(html string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       html,
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal Server Error",
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "Page Not Found",
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}
