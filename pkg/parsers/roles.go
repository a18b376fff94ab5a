package parsers

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// RolesParser parses the role blocks of the home page into a []Role.
type RolesParser struct {
	Fetcher Fetcher
}

// Parse implements upstream.Parser.
func (p *RolesParser) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, loc)
	if err != nil {
		return nil, err
	}
	url := p.Fetcher.URL(loc)

	blocks := doc.Find("blz-role")
	if blocks.Length() == 0 {
		return nil, upstream.Parsingf(url, "no role found")
	}

	roles := make([]Role, 0, blocks.Length())
	var parseErr error
	blocks.EachWithBreak(func(i int, s *goquery.Selection) bool {
		role, err := parseRole(s)
		if err != nil {
			parseErr = upstream.Parsingf(url, "role %d: %v", i, err)
			return false
		}
		roles = append(roles, role)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return marshalRecord(url, roles)
}

func parseRole(s *goquery.Selection) (Role, error) {
	key, err := requiredAttr(s, "data-role")
	if err != nil {
		return Role{}, err
	}
	icon, err := requiredAttr(s.Find("blz-image").First(), "src")
	if err != nil {
		return Role{}, err
	}
	name, err := requiredText(s, ".role-name")
	if err != nil {
		return Role{}, err
	}
	description, err := requiredText(s, ".role-description")
	if err != nil {
		return Role{}, err
	}
	return Role{
		Key:         strings.ToLower(key),
		Name:        name,
		Icon:        icon,
		Description: description,
	}, nil
}
