package testutil

import (
	"io"
	"net/http"
	"testing"
)

func TestMockUpstream_SetResponseMatchesTrailingSlash(t *testing.T) {
	mock := NewMockUpstream()
	defer mock.Close()

	mock.SetResponse("/en-us/heroes", NewServerErrorResponse())
	mock.SetResponse("/en-us/heroes/mercy/", NewNotFoundResponse())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/en-us/heroes/", http.StatusInternalServerError, "Internal Server Error"},
		{"/en-us/heroes", http.StatusInternalServerError, "Internal Server Error"},
		{"/en-us/heroes/mercy/", http.StatusNotFound, "Page Not Found"},
		{"/en-us/heroes/mercy", http.StatusNotFound, "Page Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(mock.URL() + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if string(body) != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
	if got := mock.PathCount("/en-us/heroes/"); got != 1 {
		t.Errorf("PathCount = %d, want 1", got)
	}
}

func TestMockUpstream_DefaultFixtures(t *testing.T) {
	mock := NewMockUpstream()
	defer mock.Close()

	for _, path := range []string{"/en-us/", "/en-us/heroes/", "/en-us/heroes/ana/", "/en-us/career/TeKrop-2217/"} {
		resp, err := http.Get(mock.URL() + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}
