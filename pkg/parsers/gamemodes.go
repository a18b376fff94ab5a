package parsers

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// GamemodesParser parses the gamemode blocks of the home page into a
// []Gamemode, in page order.
type GamemodesParser struct {
	Fetcher Fetcher
}

// Parse implements upstream.Parser.
func (p *GamemodesParser) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, loc)
	if err != nil {
		return nil, err
	}
	url := p.Fetcher.URL(loc)

	blocks := doc.Find("blz-gamemode")
	if blocks.Length() == 0 {
		return nil, upstream.Parsingf(url, "no gamemode found")
	}

	gamemodes := make([]Gamemode, 0, blocks.Length())
	var parseErr error
	blocks.EachWithBreak(func(i int, s *goquery.Selection) bool {
		gm, err := parseGamemode(s)
		if err != nil {
			parseErr = upstream.Parsingf(url, "gamemode %d: %v", i, err)
			return false
		}
		gamemodes = append(gamemodes, gm)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return marshalRecord(url, gamemodes)
}

func parseGamemode(s *goquery.Selection) (Gamemode, error) {
	key, err := requiredAttr(s, "data-gamemode")
	if err != nil {
		return Gamemode{}, err
	}
	icon, err := requiredAttr(s.Find("blz-image.gamemode-icon").First(), "src")
	if err != nil {
		return Gamemode{}, err
	}
	screenshot, err := requiredAttr(s.Find("blz-image.gamemode-screenshot").First(), "src")
	if err != nil {
		return Gamemode{}, err
	}
	name, err := requiredText(s, ".gamemode-name")
	if err != nil {
		return Gamemode{}, err
	}
	description, err := requiredText(s, ".gamemode-description")
	if err != nil {
		return Gamemode{}, err
	}
	return Gamemode{
		Key:         strings.ToLower(key),
		Name:        name,
		Icon:        icon,
		Description: description,
		Screenshot:  screenshot,
	}, nil
}
