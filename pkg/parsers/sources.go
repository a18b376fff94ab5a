package parsers

import (
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

// Source type tags. They are part of the stored keys and must not change.
const (
	SourceHeroes      cache.SourceType = "HeroesParser"
	SourceHero        cache.SourceType = "HeroParser"
	SourceHeroesStats cache.SourceType = "HeroesStatsParser"
	SourceRoles       cache.SourceType = "RolesParser"
	SourceMaps        cache.SourceType = "MapsParser"
	SourceGamemodes   cache.SourceType = "GamemodesParser"
	SourceCareer      cache.SourceType = "PlayerStatsSummaryParser"
)

// TTLs holds the source cache lifetime of each source type.
type TTLs struct {
	Heroes    time.Duration
	Hero      time.Duration
	Roles     time.Duration
	Gamemodes time.Duration
	CSV       time.Duration

	// Career pages change after every match, so they live much shorter.
	Career time.Duration
}

// DefaultTTLs returns the default source cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Heroes:    24 * time.Hour,
		Hero:      24 * time.Hour,
		Roles:     24 * time.Hour,
		Gamemodes: 24 * time.Hour,
		CSV:       24 * time.Hour,
		Career:    time.Hour,
	}
}

// Sources returns the registry entries for every parser.
func Sources(f Fetcher, assetsURL string, ttls TTLs) []upstream.Source {
	return []upstream.Source{
		{Type: SourceHeroes, Localized: true, TTL: ttls.Heroes, Schema: HeroesSchema, Parser: &HeroesParser{Fetcher: f}},
		{Type: SourceHero, Localized: true, TTL: ttls.Hero, Schema: HeroPageSchema, Parser: &HeroParser{Fetcher: f}},
		{Type: SourceRoles, Localized: true, TTL: ttls.Roles, Schema: RolesSchema, Parser: &RolesParser{Fetcher: f}},
		{Type: SourceGamemodes, Localized: true, TTL: ttls.Gamemodes, Schema: GamemodesSchema, Parser: &GamemodesParser{Fetcher: f}},
		{Type: SourceCareer, Localized: true, TTL: ttls.Career, Schema: CareerStatsSchema, Parser: &PlayerStatsSummaryParser{Fetcher: f}},
		{Type: SourceHeroesStats, TTL: ttls.CSV, Schema: HeroesStatsSchema, Parser: &HeroesStatsParser{}},
		{Type: SourceMaps, TTL: ttls.CSV, Schema: MapsSchema, Parser: &MapsParser{AssetsURL: assetsURL}},
	}
}

// HeroesLocator targets the heroes list page.
func HeroesLocator(locale string) cache.Locator {
	return cache.Locator{Source: SourceHeroes, Locale: locale, Path: "/heroes"}
}

// HeroLocator targets a single hero page.
func HeroLocator(locale, key string) cache.Locator {
	return cache.Locator{Source: SourceHero, Locale: locale, Path: "/heroes/" + key}
}

// RolesLocator targets the home page carrying the roles.
func RolesLocator(locale string) cache.Locator {
	return cache.Locator{Source: SourceRoles, Locale: locale}
}

// GamemodesLocator targets the home page carrying the gamemodes.
func GamemodesLocator(locale string) cache.Locator {
	return cache.Locator{Source: SourceGamemodes, Locale: locale}
}

// CareerLocator targets the career page of a player.
func CareerLocator(locale, playerID string) cache.Locator {
	return cache.Locator{Source: SourceCareer, Locale: locale, Path: "/career/" + playerID}
}

// HeroesStatsLocator targets the bundled heroes stats.
func HeroesStatsLocator() cache.Locator {
	return cache.Locator{Source: SourceHeroesStats}
}

// MapsLocator targets the bundled maps.
func MapsLocator() cache.Locator {
	return cache.Locator{Source: SourceMaps}
}
