package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SourceType tags which parser produced a source record (e.g. "HeroParser").
type SourceType string

// Locator identifies one upstream fetch target. Two locators are equal iff
// their String forms are equal.
type Locator struct {
	// Source is the parser kind responsible for this target.
	Source SourceType

	// Locale is the upstream page locale (e.g. "en-us"). Empty for
	// sources that are not localized.
	Locale string

	// Path is the upstream path (e.g. "/heroes/ana").
	Path string

	// Query holds upstream query parameters.
	Query url.Values
}

// String returns the normalized locator form: [locale/]path[?sorted-query].
//
// Example:
//
//	en-us/heroes/ana
func (l Locator) String() string {
	var b strings.Builder
	if l.Locale != "" {
		b.WriteString(strings.ToLower(l.Locale))
	}
	if path := strings.Trim(l.Path, "/"); path != "" {
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(path)
	}
	if len(l.Query) > 0 {
		// Encode sorts by key.
		b.WriteByte('?')
		b.WriteString(l.Query.Encode())
	}
	return b.String()
}

// Equal reports whether two locators normalize to the same string.
func (l Locator) Equal(o Locator) bool {
	return l.Source == o.Source && l.String() == o.String()
}

// Key returns the store key for this locator. The format is stable across
// versions: "{prefix}:{SourceType}-{normalized locator}".
func (l Locator) Key(prefix string) string {
	return SourcePrefix(prefix, l.Source) + l.String()
}

// SourcePrefix returns the key prefix shared by all locators of a source type.
func SourcePrefix(prefix string, source SourceType) string {
	return fmt.Sprintf("%s:%s-", prefix, source)
}

// ParseLocatorKey is the inverse of Locator.Key. localized tells whether the
// first path segment is a locale.
func ParseLocatorKey(prefix string, source SourceType, key string, localized bool) (Locator, error) {
	head := SourcePrefix(prefix, source)
	if !strings.HasPrefix(key, head) {
		return Locator{}, fmt.Errorf("key %q does not start with %q", key, head)
	}
	rest := strings.TrimPrefix(key, head)

	loc := Locator{Source: source}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q, err := url.ParseQuery(rest[i+1:])
		if err != nil {
			return Locator{}, fmt.Errorf("parse query of key %q: %w", key, err)
		}
		loc.Query = q
		rest = rest[:i]
	}

	if localized {
		locale, path, _ := strings.Cut(rest, "/")
		if locale == "" {
			return Locator{}, fmt.Errorf("key %q has no locale", key)
		}
		loc.Locale = locale
		rest = path
	}
	if rest != "" {
		loc.Path = "/" + rest
	}
	return loc, nil
}

// RequestSignature identifies one client-facing API call.
type RequestSignature struct {
	Method string
	Path   string
	Query  url.Values
}

// NewRequestSignature builds the signature of an incoming HTTP request.
func NewRequestSignature(r *http.Request) RequestSignature {
	return RequestSignature{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
	}
}

// String generates a deterministic signature string.
// Format: METHOD /path?sorted-query
//
// Example:
//
//	GET /heroes?locale=en-us&role=support
func (s RequestSignature) String() string {
	method := strings.ToUpper(s.Method)
	if method == "" {
		method = http.MethodGet
	}
	path := "/" + strings.Trim(s.Path, "/")

	query := url.Values{}
	for k, vs := range s.Query {
		for _, v := range vs {
			if v != "" {
				query.Add(k, v)
			}
		}
	}
	if len(query) == 0 {
		return method + " " + path
	}
	return method + " " + path + "?" + query.Encode()
}

// Key returns the store key for this signature.
func (s RequestSignature) Key(prefix string) string {
	return prefix + ":" + s.String()
}
