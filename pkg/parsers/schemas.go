package parsers

import "github.com/Sternrassler/overfast-proxy/pkg/integrity"

var roleSchema = integrity.String(RoleTank, RoleDamage, RoleSupport)

var abilitySchema = integrity.Object(
	integrity.Required("name", integrity.String()),
	integrity.Required("description", integrity.String()),
	integrity.Required("icon", integrity.String()),
)

var hitpointsSchema = integrity.Object(
	integrity.Required("health", integrity.Int()),
	integrity.Required("armor", integrity.Int()),
	integrity.Required("shields", integrity.Int()),
	integrity.Required("total", integrity.Int()),
)

// HeroesSchema validates the heroes list record.
var HeroesSchema = integrity.ArrayOf(integrity.Object(
	integrity.Required("key", integrity.String()),
	integrity.Required("name", integrity.String()),
	integrity.Required("portrait", integrity.String()),
	integrity.Required("role", roleSchema),
))

// HeroPageSchema validates a single hero page record.
var HeroPageSchema = integrity.Object(
	integrity.Required("name", integrity.String()),
	integrity.Required("description", integrity.String()),
	integrity.Required("role", roleSchema),
	integrity.Required("location", integrity.String()),
	integrity.Nullable("birthday", integrity.String()),
	integrity.Nullable("age", integrity.Int()),
	integrity.Required("abilities", integrity.ArrayOf(abilitySchema)),
	integrity.Required("story", integrity.Object(
		integrity.Required("summary", integrity.String()),
	)),
)

// HeroSchema validates the merged hero detail payload.
var HeroSchema = integrity.Object(
	integrity.Required("name", integrity.String()),
	integrity.Required("description", integrity.String()),
	integrity.Nullable("portrait", integrity.String()),
	integrity.Required("role", roleSchema),
	integrity.Required("location", integrity.String()),
	integrity.Nullable("birthday", integrity.String()),
	integrity.Nullable("age", integrity.Int()),
	integrity.Nullable("hitpoints", hitpointsSchema),
	integrity.Required("abilities", integrity.ArrayOf(abilitySchema)),
	integrity.Required("story", integrity.Object(
		integrity.Required("summary", integrity.String()),
	)),
)

// HeroesStatsSchema validates the heroes stats record.
var HeroesStatsSchema = integrity.MapOf(integrity.Object(
	integrity.Required("hitpoints", hitpointsSchema),
))

// RolesSchema validates the roles record.
var RolesSchema = integrity.ArrayOf(integrity.Object(
	integrity.Required("key", roleSchema),
	integrity.Required("name", integrity.String()),
	integrity.Required("icon", integrity.String()),
	integrity.Required("description", integrity.String()),
))

// MapsSchema validates the maps record.
var MapsSchema = integrity.ArrayOf(integrity.Object(
	integrity.Required("key", integrity.String()),
	integrity.Required("name", integrity.String()),
	integrity.Required("screenshot", integrity.String()),
	integrity.Required("gamemodes", integrity.ArrayOf(integrity.String())),
	integrity.Required("location", integrity.String()),
	integrity.Nullable("country_code", integrity.String()),
))

// GamemodesSchema validates the gamemodes record.
var GamemodesSchema = integrity.ArrayOf(integrity.Object(
	integrity.Required("key", integrity.String()),
	integrity.Required("name", integrity.String()),
	integrity.Required("icon", integrity.String()),
	integrity.Required("description", integrity.String()),
	integrity.Required("screenshot", integrity.String()),
))

var careerCounterSchema = integrity.Object(
	integrity.Required("games_played", integrity.Int()),
	integrity.Required("games_won", integrity.Int()),
	integrity.Required("games_lost", integrity.Int()),
	integrity.Required("time_played", integrity.Int()),
	integrity.Required("eliminations", integrity.Int()),
	integrity.Required("assists", integrity.Int()),
	integrity.Required("deaths", integrity.Int()),
	integrity.Required("damage", integrity.Int()),
	integrity.Required("healing", integrity.Int()),
)

// CareerStatsSchema validates the career page record.
var CareerStatsSchema = integrity.Object(
	integrity.Required("username", integrity.String()),
	integrity.Required("gamemodes", integrity.MapOf(integrity.MapOf(careerCounterSchema))),
)

var statsSummarySchema = integrity.Object(
	integrity.Required("games_played", integrity.Int()),
	integrity.Required("games_won", integrity.Int()),
	integrity.Required("games_lost", integrity.Int()),
	integrity.Required("time_played", integrity.Int()),
	integrity.Required("winrate", integrity.Number()),
	integrity.Required("kda", integrity.Number()),
	integrity.Required("total", integrity.Object(
		integrity.Required("eliminations", integrity.Int()),
		integrity.Required("assists", integrity.Int()),
		integrity.Required("deaths", integrity.Int()),
		integrity.Required("damage", integrity.Int()),
		integrity.Required("healing", integrity.Int()),
	)),
	integrity.Required("average", integrity.Object(
		integrity.Required("eliminations", integrity.Number()),
		integrity.Required("assists", integrity.Number()),
		integrity.Required("deaths", integrity.Number()),
		integrity.Required("damage", integrity.Number()),
		integrity.Required("healing", integrity.Number()),
	)),
)

// PlayerStatsSummarySchema validates the merged career summary payload.
var PlayerStatsSummarySchema = integrity.Object(
	integrity.Nullable("general", statsSummarySchema),
	integrity.Required("roles", integrity.MapOf(statsSummarySchema)),
	integrity.Required("heroes", integrity.MapOf(statsSummarySchema)),
)
