package resolver

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/integrity"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
)

// Request kind names.
const (
	KindListHeroes = "list_heroes"
	KindGetHero    = "get_hero"
	KindListRoles  = "list_roles"
	KindListMaps   = "list_maps"

	KindListGamemodes    = "list_gamemodes"
	KindGetPlayerSummary = "get_player_summary"
)

// Params carries the client-supplied parameters of one request.
type Params struct {
	Locale   string
	HeroKey  string
	Role     string
	PlayerID string

	// Gamemode filters maps by map gamemode and career summaries by career
	// gamemode. Empty means no filter.
	Gamemode string
}

// Kind describes one request type: which sources it needs, how their
// records are combined and how long the result is cached.
type Kind struct {
	Name string

	// TTL of the response cache entry.
	TTL time.Duration

	// Schema the merged payload must satisfy.
	Schema integrity.Schema

	// Requires lists the source locators needed, in the order Merge
	// receives their records.
	Requires func(p Params) []cache.Locator

	// Merge combines the records into the client payload.
	Merge func(p Params, records []cache.Record) (any, error)
}

// ResponseTTLs holds the response cache lifetime of each request kind.
type ResponseTTLs struct {
	Heroes    time.Duration
	Hero      time.Duration
	Roles     time.Duration
	Maps      time.Duration
	Gamemodes time.Duration
	Career    time.Duration
}

// DefaultResponseTTLs returns the default response cache lifetimes.
func DefaultResponseTTLs() ResponseTTLs {
	return ResponseTTLs{
		Heroes:    24 * time.Hour,
		Hero:      24 * time.Hour,
		Roles:     24 * time.Hour,
		Maps:      24 * time.Hour,
		Gamemodes: 24 * time.Hour,
		Career:    10 * time.Minute,
	}
}

// Kinds returns the table of supported request kinds.
func Kinds(ttls ResponseTTLs) map[string]Kind {
	return map[string]Kind{
		KindListHeroes: {
			Name:   KindListHeroes,
			TTL:    ttls.Heroes,
			Schema: parsers.HeroesSchema,
			Requires: func(p Params) []cache.Locator {
				return []cache.Locator{parsers.HeroesLocator(p.Locale)}
			},
			Merge: mergeHeroes,
		},
		KindGetHero: {
			Name:   KindGetHero,
			TTL:    ttls.Hero,
			Schema: parsers.HeroSchema,
			Requires: func(p Params) []cache.Locator {
				return []cache.Locator{
					parsers.HeroLocator(p.Locale, p.HeroKey),
					parsers.HeroesLocator(p.Locale),
					parsers.HeroesStatsLocator(),
				}
			},
			Merge: mergeHero,
		},
		KindListRoles: {
			Name:   KindListRoles,
			TTL:    ttls.Roles,
			Schema: parsers.RolesSchema,
			Requires: func(p Params) []cache.Locator {
				return []cache.Locator{parsers.RolesLocator(p.Locale)}
			},
			Merge: mergeRoles,
		},
		KindListMaps: {
			Name:   KindListMaps,
			TTL:    ttls.Maps,
			Schema: parsers.MapsSchema,
			Requires: func(Params) []cache.Locator {
				return []cache.Locator{parsers.MapsLocator()}
			},
			Merge: mergeMaps,
		},
		KindListGamemodes: {
			Name:   KindListGamemodes,
			TTL:    ttls.Gamemodes,
			Schema: parsers.GamemodesSchema,
			Requires: func(p Params) []cache.Locator {
				return []cache.Locator{parsers.GamemodesLocator(p.Locale)}
			},
			Merge: mergeGamemodes,
		},
		KindGetPlayerSummary: {
			Name:   KindGetPlayerSummary,
			TTL:    ttls.Career,
			Schema: parsers.PlayerStatsSummarySchema,
			Requires: func(p Params) []cache.Locator {
				return []cache.Locator{
					parsers.CareerLocator(p.Locale, p.PlayerID),
					parsers.HeroesLocator(p.Locale),
				}
			},
			Merge: mergePlayerSummary,
		},
	}
}

func mergeHeroes(p Params, records []cache.Record) (any, error) {
	var heroes []parsers.HeroShort
	if err := json.Unmarshal(records[0], &heroes); err != nil {
		return nil, fmt.Errorf("decode heroes: %w", err)
	}
	out := make([]parsers.HeroShort, 0, len(heroes))
	for _, h := range heroes {
		if p.Role == "" || h.Role == p.Role {
			out = append(out, h)
		}
	}
	return out, nil
}

// mergeHero enriches the hero page with the portrait from the heroes list
// and the hitpoints from the stats. A hero unknown to either secondary
// source gets null for that field.
func mergeHero(p Params, records []cache.Record) (any, error) {
	var page parsers.HeroPage
	if err := json.Unmarshal(records[0], &page); err != nil {
		return nil, fmt.Errorf("decode hero: %w", err)
	}
	var heroes []parsers.HeroShort
	if err := json.Unmarshal(records[1], &heroes); err != nil {
		return nil, fmt.Errorf("decode heroes: %w", err)
	}
	var stats map[string]parsers.HeroStats
	if err := json.Unmarshal(records[2], &stats); err != nil {
		return nil, fmt.Errorf("decode heroes stats: %w", err)
	}

	hero := parsers.Hero{
		Name:        page.Name,
		Description: page.Description,
		Role:        page.Role,
		Location:    page.Location,
		Birthday:    page.Birthday,
		Age:         page.Age,
		Abilities:   page.Abilities,
		Story:       page.Story,
	}
	for _, h := range heroes {
		if h.Key == p.HeroKey {
			portrait := h.Portrait
			hero.Portrait = &portrait
			break
		}
	}
	if s, ok := stats[p.HeroKey]; ok {
		hp := s.Hitpoints
		hero.Hitpoints = &hp
	}
	return hero, nil
}

func mergeRoles(_ Params, records []cache.Record) (any, error) {
	var roles []parsers.Role
	if err := json.Unmarshal(records[0], &roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	return roles, nil
}

func mergeMaps(p Params, records []cache.Record) (any, error) {
	var maps []parsers.Map
	if err := json.Unmarshal(records[0], &maps); err != nil {
		return nil, fmt.Errorf("decode maps: %w", err)
	}
	if p.Gamemode == "" {
		return maps, nil
	}
	out := make([]parsers.Map, 0, len(maps))
	for _, m := range maps {
		for _, mode := range m.Gamemodes {
			if mode == p.Gamemode {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func mergeGamemodes(_ Params, records []cache.Record) (any, error) {
	var gamemodes []parsers.Gamemode
	if err := json.Unmarshal(records[0], &gamemodes); err != nil {
		return nil, fmt.Errorf("decode gamemodes: %w", err)
	}
	return gamemodes, nil
}

// mergePlayerSummary sums the career counters of the selected gamemodes per
// hero, then per role using the heroes list. Heroes missing from the list
// count in general but in no role.
func mergePlayerSummary(p Params, records []cache.Record) (any, error) {
	var career parsers.CareerStats
	if err := json.Unmarshal(records[0], &career); err != nil {
		return nil, fmt.Errorf("decode career: %w", err)
	}
	var heroes []parsers.HeroShort
	if err := json.Unmarshal(records[1], &heroes); err != nil {
		return nil, fmt.Errorf("decode heroes: %w", err)
	}
	roles := make(map[string]string, len(heroes))
	for _, h := range heroes {
		roles[h.Key] = h.Role
	}

	modes := parsers.CareerGamemodes
	if p.Gamemode != "" {
		modes = []string{p.Gamemode}
	}
	perHero := make(map[string]parsers.HeroCareerStats)
	for _, mode := range modes {
		for key, c := range career.Gamemodes[mode] {
			perHero[key] = perHero[key].Add(c)
		}
	}

	out := parsers.PlayerStatsSummary{
		Roles:  map[string]parsers.StatsSummary{},
		Heroes: map[string]parsers.StatsSummary{},
	}
	var general parsers.HeroCareerStats
	perRole := make(map[string]parsers.HeroCareerStats)
	for key, c := range perHero {
		if c.GamesPlayed == 0 && c.TimePlayed == 0 {
			continue
		}
		out.Heroes[key] = summarize(c)
		general = general.Add(c)
		if role, ok := roles[key]; ok {
			perRole[role] = perRole[role].Add(c)
		}
	}
	for role, c := range perRole {
		out.Roles[role] = summarize(c)
	}
	if len(out.Heroes) > 0 {
		g := summarize(general)
		out.General = &g
	}
	return out, nil
}

func summarize(c parsers.HeroCareerStats) parsers.StatsSummary {
	s := parsers.StatsSummary{
		GamesPlayed: c.GamesPlayed,
		GamesWon:    c.GamesWon,
		GamesLost:   c.GamesLost,
		TimePlayed:  c.TimePlayed,
		Total: parsers.StatTotals{
			Eliminations: c.Eliminations,
			Assists:      c.Assists,
			Deaths:       c.Deaths,
			Damage:       c.Damage,
			Healing:      c.Healing,
		},
	}
	if c.GamesPlayed > 0 {
		s.Winrate = round2(float64(c.GamesWon) / float64(c.GamesPlayed) * 100)
	}
	kills := float64(c.Eliminations + c.Assists)
	if c.Deaths > 0 {
		s.KDA = round2(kills / float64(c.Deaths))
	} else {
		s.KDA = kills
	}
	if c.TimePlayed > 0 {
		per10 := func(v int) float64 { return round2(float64(v) * 600 / float64(c.TimePlayed)) }
		s.Average = parsers.StatAverages{
			Eliminations: per10(c.Eliminations),
			Assists:      per10(c.Assists),
			Deaths:       per10(c.Deaths),
			Damage:       per10(c.Damage),
			Healing:      per10(c.Healing),
		}
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
