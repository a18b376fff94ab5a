package cache

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestLocator_String(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{
			name: "localized path",
			loc:  Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"},
			want: "en-us/heroes/ana",
		},
		{
			name: "locale is lowercased",
			loc:  Locator{Source: "HeroParser", Locale: "EN-US", Path: "/heroes/ana/"},
			want: "en-us/heroes/ana",
		},
		{
			name: "not localized",
			loc:  Locator{Source: "MapsParser", Path: "maps"},
			want: "maps",
		},
		{
			name: "query sorted",
			loc: Locator{
				Source: "HeroesParser",
				Locale: "en-us",
				Path:   "/heroes/",
				Query:  url.Values{"role": {"tank"}, "a": {"1"}},
			},
			want: "en-us/heroes?a=1&role=tank",
		},
		{
			name: "locale only",
			loc:  Locator{Source: "RolesParser", Locale: "fr-fr"},
			want: "fr-fr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("Locator.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocator_Key(t *testing.T) {
	loc := Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}
	want := "parser-cache:HeroParser-en-us/heroes/ana"
	if got := loc.Key("parser-cache"); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
}

func TestLocator_Equal(t *testing.T) {
	a := Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}
	b := Locator{Source: "HeroParser", Locale: "EN-US", Path: "heroes/ana/"}
	c := Locator{Source: "HeroesParser", Locale: "en-us", Path: "/heroes/ana"}

	if !a.Equal(b) {
		t.Error("locators with same normalized form should be equal")
	}
	if a.Equal(c) {
		t.Error("locators of different sources should not be equal")
	}
}

func TestParseLocatorKey_Roundtrip(t *testing.T) {
	tests := []struct {
		name      string
		loc       Locator
		localized bool
	}{
		{"hero page", Locator{Source: "HeroParser", Locale: "en-us", Path: "/heroes/ana"}, true},
		{"heroes home", Locator{Source: "HeroesParser", Locale: "ko-kr", Path: "/heroes"}, true},
		{"roles locale only", Locator{Source: "RolesParser", Locale: "de-de"}, true},
		{"csv file", Locator{Source: "MapsParser", Path: "/maps"}, false},
		{"with query", Locator{Source: "HeroesParser", Locale: "en-us", Path: "/heroes", Query: url.Values{"x": {"1"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tt.loc.Key("p")
			got, err := ParseLocatorKey("p", tt.loc.Source, key, tt.localized)
			if err != nil {
				t.Fatalf("ParseLocatorKey(%q) error = %v", key, err)
			}
			if !got.Equal(tt.loc) {
				t.Errorf("ParseLocatorKey(%q) = %v, want %v", key, got, tt.loc)
			}
			if got.Key("p") != key {
				t.Errorf("re-encoded key = %v, want %v", got.Key("p"), key)
			}
		})
	}
}

func TestParseLocatorKey_Errors(t *testing.T) {
	if _, err := ParseLocatorKey("p", "HeroParser", "q:HeroParser-en-us/heroes/ana", true); err == nil {
		t.Error("expected error for foreign prefix")
	}
	if _, err := ParseLocatorKey("p", "HeroParser", "p:HeroParser-", true); err == nil {
		t.Error("expected error for missing locale")
	}
}

func TestRequestSignature_String(t *testing.T) {
	tests := []struct {
		name string
		sig  RequestSignature
		want string
	}{
		{
			name: "no query",
			sig:  RequestSignature{Method: "GET", Path: "/roles/"},
			want: "GET /roles",
		},
		{
			name: "default method",
			sig:  RequestSignature{Path: "/maps"},
			want: "GET /maps",
		},
		{
			name: "sorted query, empty values dropped",
			sig: RequestSignature{
				Method: "get",
				Path:   "/heroes",
				Query:  url.Values{"role": {"support"}, "locale": {"en-us"}, "empty": {""}},
			},
			want: "GET /heroes?locale=en-us&role=support",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.String(); got != tt.want {
				t.Errorf("RequestSignature.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRequestSignature(t *testing.T) {
	a := NewRequestSignature(httptest.NewRequest("GET", "/heroes?role=tank&locale=en-us", nil))
	b := NewRequestSignature(httptest.NewRequest("GET", "/heroes?locale=en-us&role=tank", nil))

	if a.String() != b.String() {
		t.Errorf("signatures differ by query order: %v vs %v", a, b)
	}
	if got, want := a.Key("api-cache"), "api-cache:GET /heroes?locale=en-us&role=tank"; got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
}
