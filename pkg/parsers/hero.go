package parsers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// HeroParser parses a single hero page into a HeroPage. Portrait and hitpoints are
// not on that page; they are merged in from the heroes list and the stats.
type HeroParser struct {
	Fetcher Fetcher
}

// Parse implements upstream.Parser. An unknown hero surfaces as the
// upstream's 404.
func (p *HeroParser) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, loc)
	if err != nil {
		return nil, err
	}
	url := p.Fetcher.URL(loc)

	page, err := parseHeroPage(doc.Selection)
	if err != nil {
		return nil, upstream.NewParsingError(url, err)
	}
	return marshalRecord(url, page)
}

func parseHeroPage(doc *goquery.Selection) (*HeroPage, error) {
	header := doc.Find(".hero-detail").First()
	if header.Length() == 0 {
		return nil, fmt.Errorf("element %q not found", ".hero-detail")
	}

	name, err := requiredText(header, ".hero-detail-name")
	if err != nil {
		return nil, err
	}
	description, err := requiredText(header, ".hero-detail-description")
	if err != nil {
		return nil, err
	}
	role, err := requiredAttr(header.Find(".hero-detail-role").First(), "data-role")
	if err != nil {
		return nil, err
	}
	location, err := requiredText(header, ".hero-detail-location")
	if err != nil {
		return nil, err
	}

	page := &HeroPage{
		Name:        name,
		Description: description,
		Role:        strings.ToLower(role),
		Location:    location,
		Birthday:    optionalText(header, ".hero-detail-birthday"),
		Abilities:   []Ability{},
	}
	if raw := optionalText(header, ".hero-detail-age"); raw != nil {
		age, err := strconv.Atoi(*raw)
		if err != nil {
			return nil, fmt.Errorf("age %q: %w", *raw, err)
		}
		page.Age = &age
	}

	abilities := doc.Find("blz-ability")
	if abilities.Length() == 0 {
		return nil, fmt.Errorf("no ability found")
	}
	var abilityErr error
	abilities.EachWithBreak(func(i int, s *goquery.Selection) bool {
		ability, err := parseAbility(s)
		if err != nil {
			abilityErr = fmt.Errorf("ability %d: %w", i, err)
			return false
		}
		page.Abilities = append(page.Abilities, ability)
		return true
	})
	if abilityErr != nil {
		return nil, abilityErr
	}

	summary, err := requiredText(doc, ".hero-story-summary")
	if err != nil {
		return nil, err
	}
	page.Story = Story{Summary: summary}

	return page, nil
}

func parseAbility(s *goquery.Selection) (Ability, error) {
	name, err := requiredAttr(s, "data-name")
	if err != nil {
		return Ability{}, err
	}
	icon, err := requiredAttr(s, "data-icon")
	if err != nil {
		return Ability{}, err
	}
	description, err := requiredText(s, ".ability-description")
	if err != nil {
		return Ability{}, err
	}
	return Ability{Name: name, Description: description, Icon: icon}, nil
}
