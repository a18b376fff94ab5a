// Package parsers turns upstream pages and bundled CSV data into records.
//
// HTML parsers download a page through a Fetcher and walk it with goquery.
// A missing element is a ParsingError: it means the page layout changed and
// the parser needs an update. Upstream failures are passed through untouched
// so their status reaches the client.
package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// Fetcher downloads upstream pages. *upstream.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, loc cache.Locator) ([]byte, error)
	URL(loc cache.Locator) string
}

// fetchDocument downloads and parses the page for loc.
func fetchDocument(ctx context.Context, f Fetcher, loc cache.Locator) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, upstream.NewParsingError(f.URL(loc), fmt.Errorf("read html: %w", err))
	}
	return doc, nil
}

// requiredText returns the trimmed text of the first match of selector.
func requiredText(s *goquery.Selection, selector string) (string, error) {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("element %q not found", selector)
	}
	return strings.TrimSpace(sel.Text()), nil
}

// requiredAttr returns attr of s, failing when it is missing or empty.
func requiredAttr(s *goquery.Selection, attr string) (string, error) {
	v, ok := s.Attr(attr)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", fmt.Errorf("attribute %q missing on <%s>", attr, goquery.NodeName(s))
	}
	return v, nil
}

// optionalText returns the trimmed text of the first match of selector or
// nil when absent.
func optionalText(s *goquery.Selection, selector string) *string {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	v := strings.TrimSpace(sel.Text())
	if v == "" {
		return nil
	}
	return &v
}

func marshalRecord(url string, v any) (cache.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, upstream.NewParsingError(url, fmt.Errorf("encode record: %w", err))
	}
	return cache.Record(data), nil
}
