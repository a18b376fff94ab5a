package parsers

// Career gamemodes. A career page keeps separate counters for each.
const (
	CareerQuickplay   = "quickplay"
	CareerCompetitive = "competitive"
)

// CareerGamemodes lists the career gamemodes in page order.
var CareerGamemodes = []string{CareerQuickplay, CareerCompetitive}

// Roles known to the upstream site.
const (
	RoleTank    = "tank"
	RoleDamage  = "damage"
	RoleSupport = "support"
)

// HeroShort is one entry of the heroes list.
type HeroShort struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Portrait string `json:"portrait"`
	Role     string `json:"role"`
}

// HeroPage is the record parsed from a single hero page.
type HeroPage struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Role        string    `json:"role"`
	Location    string    `json:"location"`
	Birthday    *string   `json:"birthday"`
	Age         *int      `json:"age"`
	Abilities   []Ability `json:"abilities"`
	Story       Story     `json:"story"`
}

// Hero is the client-facing hero detail. Portrait and Hitpoints come from
// secondary sources and are null when those sources do not know the hero.
type Hero struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Portrait    *string    `json:"portrait"`
	Role        string     `json:"role"`
	Location    string     `json:"location"`
	Birthday    *string    `json:"birthday"`
	Age         *int       `json:"age"`
	Hitpoints   *Hitpoints `json:"hitpoints"`
	Abilities   []Ability  `json:"abilities"`
	Story       Story      `json:"story"`
}

// Ability of a hero.
type Ability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Story holds the hero background text.
type Story struct {
	Summary string `json:"summary"`
}

// Hitpoints of a hero. Total is the sum of the three pools.
type Hitpoints struct {
	Health  int `json:"health"`
	Armor   int `json:"armor"`
	Shields int `json:"shields"`
	Total   int `json:"total"`
}

// HeroStats is one value of the heroes stats record, keyed by hero key.
type HeroStats struct {
	Hitpoints Hitpoints `json:"hitpoints"`
}

// Role describes one hero role.
type Role struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Map describes one playable map.
type Map struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Screenshot  string   `json:"screenshot"`
	Gamemodes   []string `json:"gamemodes"`
	Location    string   `json:"location"`
	CountryCode *string  `json:"country_code"`
}

// Gamemode describes one game mode.
type Gamemode struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Screenshot  string `json:"screenshot"`
}

// CareerStats is the record parsed from a career page: raw counters by
// career gamemode, then by hero key.
type CareerStats struct {
	Username  string                                `json:"username"`
	Gamemodes map[string]map[string]HeroCareerStats `json:"gamemodes"`
}

// HeroCareerStats holds the counters of one hero. TimePlayed is in seconds.
type HeroCareerStats struct {
	GamesPlayed  int `json:"games_played"`
	GamesWon     int `json:"games_won"`
	GamesLost    int `json:"games_lost"`
	TimePlayed   int `json:"time_played"`
	Eliminations int `json:"eliminations"`
	Assists      int `json:"assists"`
	Deaths       int `json:"deaths"`
	Damage       int `json:"damage"`
	Healing      int `json:"healing"`
}

// Add returns the sum of both counters.
func (s HeroCareerStats) Add(o HeroCareerStats) HeroCareerStats {
	return HeroCareerStats{
		GamesPlayed:  s.GamesPlayed + o.GamesPlayed,
		GamesWon:     s.GamesWon + o.GamesWon,
		GamesLost:    s.GamesLost + o.GamesLost,
		TimePlayed:   s.TimePlayed + o.TimePlayed,
		Eliminations: s.Eliminations + o.Eliminations,
		Assists:      s.Assists + o.Assists,
		Deaths:       s.Deaths + o.Deaths,
		Damage:       s.Damage + o.Damage,
		Healing:      s.Healing + o.Healing,
	}
}

// PlayerStatsSummary is the client-facing career summary. General is null
// when the player has no recorded games.
type PlayerStatsSummary struct {
	General *StatsSummary           `json:"general"`
	Roles   map[string]StatsSummary `json:"roles"`
	Heroes  map[string]StatsSummary `json:"heroes"`
}

// StatsSummary condenses career counters. Winrate is a percentage, Average
// is per 10 minutes played.
type StatsSummary struct {
	GamesPlayed int          `json:"games_played"`
	GamesWon    int          `json:"games_won"`
	GamesLost   int          `json:"games_lost"`
	TimePlayed  int          `json:"time_played"`
	Winrate     float64      `json:"winrate"`
	KDA         float64      `json:"kda"`
	Total       StatTotals   `json:"total"`
	Average     StatAverages `json:"average"`
}

// StatTotals are summed counters.
type StatTotals struct {
	Eliminations int `json:"eliminations"`
	Assists      int `json:"assists"`
	Deaths       int `json:"deaths"`
	Damage       int `json:"damage"`
	Healing      int `json:"healing"`
}

// StatAverages are counters per 10 minutes played.
type StatAverages struct {
	Eliminations float64 `json:"eliminations"`
	Assists      float64 `json:"assists"`
	Deaths       float64 `json:"deaths"`
	Damage       float64 `json:"damage"`
	Healing      float64 `json:"healing"`
}
