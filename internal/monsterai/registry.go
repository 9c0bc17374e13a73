package monsterai

import (
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

// TypeConfig is one monster species' static configuration: its stat block,
// base behavior, and the AI profile (intelligence gates perception,
// personality biases action selection) every spawned instance shares.
type TypeConfig struct {
	MonsterType  string
	Name         string
	Symbol       string
	Color        string
	Stats        entity.MonsterStats
	Behavior     entity.Behavior
	Description  string
	Intelligence int
	Personality  qlearn.Personality
}

// SpawnConfig controls room-based spawning: how likely a room type is to
// spawn anything, and which monster types are favored once it does.
type SpawnConfig struct {
	RoomSpawnChances   map[string]float64
	RoomMonsterWeights map[string]map[string]int
	MaxMonstersPerRoom int
	MinRoomArea        int
}

// DefaultSpawnConfig matches the reference spawn tuning: moderate spawn
// odds everywhere, dangerous rooms weighted toward tougher monster types.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		MaxMonstersPerRoom: 2,
		MinRoomArea:        36,
		RoomSpawnChances: map[string]float64{
			"armory": 0.7, "guard_post": 0.7, "throne_room": 0.8,
			"chamber": 0.4, "bedroom": 0.3, "library": 0.3, "storage": 0.35, "dining_hall": 0.4,
			"crypt": 0.75, "dungeon_cell": 0.6, "treasury": 0.65, "alchemy_lab": 0.6,
		},
		RoomMonsterWeights: map[string]map[string]int{
			"armory":      {"goblin": 6, "kobold": 5, "skeleton": 4},
			"guard_post":  {"goblin": 7, "kobold": 6, "skeleton": 3},
			"throne_room": {"skeleton": 5, "dark_cultist": 6, "goblin": 2},
			"chamber":     {"giant_rat": 6, "kobold": 4},
			"bedroom":     {"giant_rat": 7, "cave_spider": 3},
			"library":     {"ghost": 5, "dark_cultist": 4},
			"storage":     {"giant_rat": 8, "cave_spider": 4},
			"dining_hall": {"goblin": 5, "giant_rat": 5},
			"crypt":       {"skeleton": 7, "zombie": 6, "ghost": 4},
			"dungeon_cell": {"zombie": 6, "skeleton": 5},
			"treasury":    {"dark_cultist": 5, "ghost": 5, "skeleton": 3},
			"alchemy_lab": {"cave_spider": 6, "dark_cultist": 4},
		},
	}
}

// Registry holds every monster species' static configuration.
type Registry struct {
	types map[string]TypeConfig
}

// NewRegistry builds a registry from the given type configs, keyed by
// MonsterType.
func NewRegistry(types []TypeConfig) *Registry {
	r := &Registry{types: make(map[string]TypeConfig, len(types))}
	for _, t := range types {
		r.types[t.MonsterType] = t
	}
	return r
}

// DefaultRegistry is the reference bestiary: eight monster species spanning
// the full range of intelligence (oblivious vermin through calculating
// cultists) and behavior.
func DefaultRegistry() *Registry {
	return NewRegistry([]TypeConfig{
		{
			MonsterType: "giant_rat", Name: "Giant Rat", Symbol: "r", Color: "#8b6f47",
			Stats:        entity.MonsterStats{HP: 7, MaxHP: 7, AC: 11, Str: 7, Dex: 15, Con: 11, Int: 2, Wis: 10, Cha: 4, Speed: 6, ChallengeRating: 0.125},
			Behavior:     entity.BehaviorWander,
			Description:  "A mangy, oversized rat, more a pest than a threat alone.",
			Intelligence: 2,
			Personality:  qlearn.Personality{Aggression: 0.3, Caution: 0.6, Cunning: 0.1, PackMentality: 0.7, Exploration: 0.8},
		},
		{
			MonsterType: "cave_spider", Name: "Cave Spider", Symbol: "s", Color: "#4a3c5a",
			Stats:        entity.MonsterStats{HP: 11, MaxHP: 11, AC: 14, Str: 8, Dex: 16, Con: 10, Int: 2, Wis: 11, Cha: 3, Speed: 6, ChallengeRating: 0.25},
			Behavior:     entity.BehaviorAmbush,
			Description:  "A venomous spider the size of a dog, fond of dark corners.",
			Intelligence: 3,
			Personality:  qlearn.Personality{Aggression: 0.6, Caution: 0.4, Cunning: 0.7, PackMentality: 0.2, Exploration: 0.4},
		},
		{
			MonsterType: "kobold", Name: "Kobold", Symbol: "k", Color: "#7a8b4f",
			Stats:        entity.MonsterStats{HP: 5, MaxHP: 5, AC: 12, Str: 7, Dex: 15, Con: 9, Int: 8, Wis: 7, Cha: 8, Speed: 6, ChallengeRating: 0.125},
			Behavior:     entity.BehaviorPatrol,
			Description:  "A scrawny, scheming reptilian humanoid that favors traps over swordplay.",
			Intelligence: 7,
			Personality:  qlearn.Personality{Aggression: 0.4, Caution: 0.7, Cunning: 0.6, PackMentality: 0.6, Exploration: 0.5},
		},
		{
			MonsterType: "goblin", Name: "Goblin", Symbol: "g", Color: "#5a7a3a",
			Stats:        entity.MonsterStats{HP: 9, MaxHP: 9, AC: 13, Str: 8, Dex: 14, Con: 10, Int: 10, Wis: 8, Cha: 8, Speed: 6, ChallengeRating: 0.25},
			Behavior:     entity.BehaviorAggressive,
			Description:  "A wiry raider with a rusty blade and a pack to back it up.",
			Intelligence: 8,
			Personality:  qlearn.Personality{Aggression: 0.65, Caution: 0.4, Cunning: 0.5, PackMentality: 0.75, Exploration: 0.5},
		},
		{
			MonsterType: "skeleton", Name: "Skeleton", Symbol: "k", Color: "#d8d0c0",
			Stats:        entity.MonsterStats{HP: 13, MaxHP: 13, AC: 13, Str: 10, Dex: 14, Con: 15, Int: 6, Wis: 8, Cha: 5, Speed: 6, ChallengeRating: 0.5},
			Behavior:     entity.BehaviorStatic,
			Description:  "Animated bones bound to a single post, mindlessly loyal to it.",
			Intelligence: 4,
			Personality:  qlearn.Personality{Aggression: 0.7, Caution: 0.2, Cunning: 0.2, PackMentality: 0.3, Exploration: 0.1},
		},
		{
			MonsterType: "zombie", Name: "Zombie", Symbol: "z", Color: "#6a7a4a",
			Stats:        entity.MonsterStats{HP: 22, MaxHP: 22, AC: 8, Str: 13, Dex: 6, Con: 16, Int: 3, Wis: 6, Cha: 5, Speed: 3, ChallengeRating: 0.5},
			Behavior:     entity.BehaviorWander,
			Description:  "A shambling corpse, slow but relentless once it has a scent.",
			Intelligence: 1,
			Personality:  qlearn.Personality{Aggression: 0.8, Caution: 0.05, Cunning: 0.05, PackMentality: 0.3, Exploration: 0.3},
		},
		{
			MonsterType: "ghost", Name: "Restless Spirit", Symbol: "G", Color: "#b0d0e0",
			Stats:        entity.MonsterStats{HP: 18, MaxHP: 18, AC: 12, Str: 6, Dex: 16, Con: 10, Int: 10, Wis: 12, Cha: 14, Speed: 6, ChallengeRating: 1},
			Behavior:     entity.BehaviorHaunt,
			Description:  "A translucent figure bound to the room it died in, mourning endlessly.",
			Intelligence: 10,
			Personality:  qlearn.Personality{Aggression: 0.45, Caution: 0.55, Cunning: 0.55, PackMentality: 0.1, Exploration: 0.6},
		},
		{
			MonsterType: "dark_cultist", Name: "Dark Cultist", Symbol: "c", Color: "#3a1a4a",
			Stats:        entity.MonsterStats{HP: 16, MaxHP: 16, AC: 12, Str: 9, Dex: 12, Con: 12, Int: 14, Wis: 11, Cha: 13, Speed: 6, ChallengeRating: 1},
			Behavior:     entity.BehaviorRitual,
			Description:  "A robed fanatic muttering to something that isn't there yet.",
			Intelligence: 14,
			Personality:  qlearn.Personality{Aggression: 0.5, Caution: 0.6, Cunning: 0.85, PackMentality: 0.4, Exploration: 0.3},
		},
	})
}

// Get returns a species' type config and whether it is known.
func (r *Registry) Get(monsterType string) (TypeConfig, bool) {
	t, ok := r.types[monsterType]
	return t, ok
}

// Types returns every registered monster type name.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	return out
}
