package parsers

import (
	"context"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// HeroesParser parses the heroes list page into a []HeroShort sorted by key.
type HeroesParser struct {
	Fetcher Fetcher
}

// Parse implements upstream.Parser.
func (p *HeroesParser) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, loc)
	if err != nil {
		return nil, err
	}
	url := p.Fetcher.URL(loc)

	cards := doc.Find("blz-hero-card")
	if cards.Length() == 0 {
		return nil, upstream.Parsingf(url, "no hero card found")
	}

	heroes := make([]HeroShort, 0, cards.Length())
	var parseErr error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		hero, err := parseHeroCard(card)
		if err != nil {
			parseErr = upstream.Parsingf(url, "hero card %d: %v", i, err)
			return false
		}
		heroes = append(heroes, hero)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(heroes, func(i, j int) bool { return heroes[i].Key < heroes[j].Key })
	return marshalRecord(url, heroes)
}

func parseHeroCard(card *goquery.Selection) (HeroShort, error) {
	key, err := requiredAttr(card, "data-hero-id")
	if err != nil {
		return HeroShort{}, err
	}
	name, err := requiredAttr(card, "hero-name")
	if err != nil {
		return HeroShort{}, err
	}
	role, err := requiredAttr(card, "data-role")
	if err != nil {
		return HeroShort{}, err
	}
	portrait, err := requiredAttr(card.Find("blz-image").First(), "src")
	if err != nil {
		return HeroShort{}, err
	}
	return HeroShort{
		Key:      key,
		Name:     name,
		Portrait: portrait,
		Role:     strings.ToLower(role),
	}, nil
}
