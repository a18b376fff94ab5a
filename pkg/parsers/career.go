package parsers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// PlayerStatsSummaryParser parses the per-hero counters of a career page into
// a CareerStats record.
//
// The upstream site answers 200 for unknown players and only leaves out the
// profile summary, so a page without it is reported as a 404.
type PlayerStatsSummaryParser struct {
	Fetcher Fetcher
}

// Parse implements upstream.Parser.
func (p *PlayerStatsSummaryParser) Parse(ctx context.Context, loc cache.Locator) (cache.Record, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, loc)
	if err != nil {
		return nil, err
	}
	url := p.Fetcher.URL(loc)

	profile := doc.Find(".Profile-player--summaryWrapper").First()
	if profile.Length() == 0 {
		return nil, &upstream.UpstreamError{Status: http.StatusNotFound, Message: "Player not found"}
	}
	name, err := requiredText(profile, ".Profile-player--name")
	if err != nil {
		return nil, upstream.Parsingf(url, "profile: %v", err)
	}

	// Private profiles have no stats views and yield an empty record.
	stats := CareerStats{Username: name, Gamemodes: map[string]map[string]HeroCareerStats{}}
	var parseErr error
	doc.Find("blz-stats-view").EachWithBreak(func(_ int, view *goquery.Selection) bool {
		mode, heroes, err := parseStatsView(view)
		if err != nil {
			parseErr = upstream.Parsingf(url, "%v", err)
			return false
		}
		stats.Gamemodes[mode] = heroes
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return marshalRecord(url, stats)
}

func parseStatsView(view *goquery.Selection) (string, map[string]HeroCareerStats, error) {
	mode, err := requiredAttr(view, "data-gamemode")
	if err != nil {
		return "", nil, err
	}
	if !slices.Contains(CareerGamemodes, mode) {
		return "", nil, fmt.Errorf("unknown career gamemode %q", mode)
	}

	heroes := make(map[string]HeroCareerStats)
	var parseErr error
	view.Find("blz-hero-stats").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		key, err := requiredAttr(s, "data-hero")
		if err != nil {
			parseErr = fmt.Errorf("%s: %w", mode, err)
			return false
		}
		counters, err := parseHeroCounters(s)
		if err != nil {
			parseErr = fmt.Errorf("%s %s: %w", mode, key, err)
			return false
		}
		heroes[strings.ToLower(key)] = counters
		return true
	})
	return mode, heroes, parseErr
}

// parseHeroCounters reads the stat items of one hero. The page omits stats
// a hero never recorded (healing for most tanks), those stay at zero.
func parseHeroCounters(s *goquery.Selection) (HeroCareerStats, error) {
	var c HeroCareerStats
	counters := map[string]*int{
		"games_played": &c.GamesPlayed,
		"games_won":    &c.GamesWon,
		"games_lost":   &c.GamesLost,
		"eliminations": &c.Eliminations,
		"assists":      &c.Assists,
		"deaths":       &c.Deaths,
		"damage_done":  &c.Damage,
		"healing_done": &c.Healing,
	}

	var parseErr error
	s.Find(".stat").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		name, err := requiredAttr(item, "data-stat")
		if err != nil {
			parseErr = err
			return false
		}
		value, err := requiredText(item, ".stat-value")
		if err != nil {
			parseErr = err
			return false
		}

		if name == "time_played" {
			c.TimePlayed, err = parseTimePlayed(value)
		} else if dst, ok := counters[name]; ok {
			*dst, err = parseCount(value)
		}
		if err != nil {
			parseErr = fmt.Errorf("stat %s: %w", name, err)
			return false
		}
		return true
	})
	return c, parseErr
}

// parseCount reads an integer with optional thousands separators.
func parseCount(v string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(v, ",", ""))
}

// parseTimePlayed converts "HH:MM:SS", "MM:SS" or "SS" into seconds.
func parseTimePlayed(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	seconds := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		seconds = seconds*60 + n
	}
	return seconds, nil
}
