// Package config loads the dungeon server's tunable knobs from a TOML file,
// falling back to sane defaults so the server runs with zero config present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every knob named in the server's operating contract. Core
// packages never read this file or a flag directly; only cmd/server and
// this package touch it, and the values are threaded through constructors.
// GenerationInheritanceRatio, the AI learning hyperparameters and the
// [spawn] section are parsed but not passed to any component.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Game    GameConfig    `toml:"game"`
	Dungeon DungeonConfig `toml:"dungeon"`
	AI      AIConfig      `toml:"ai"`
	Spawn   SpawnConfig   `toml:"spawn"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	BindAddress string `toml:"bind_address"`
}

type GameConfig struct {
	TickInterval              time.Duration `toml:"tick_interval"`
	AutosaveInterval           time.Duration `toml:"autosave_interval"`
	ViewportWidth              int           `toml:"viewport_width"`
	ViewportHeight             int           `toml:"viewport_height"`
	MaxPlayersPerGame          int           `toml:"max_players_per_game"`
	GameInactiveTimeout        time.Duration `toml:"game_inactive_timeout"`
	CompletedGameGracePeriod   time.Duration `toml:"completed_game_grace_period"`
	RegistryCleanupInterval    time.Duration `toml:"registry_cleanup_interval"`
	FightTurnDuration          time.Duration `toml:"fight_turn_duration"`
	FightImmunityDuration      time.Duration `toml:"fight_immunity_duration"`
	HandshakeDeadline          time.Duration `toml:"handshake_deadline"`
}

type DungeonConfig struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	RoomCount        int     `toml:"room_count"`
	MinRoomSize      int     `toml:"min_room_size"`
	MaxRoomSize      int     `toml:"max_room_size"`
	ChestRoomDivisor int     `toml:"chest_room_divisor"`
}

type AIConfig struct {
	MaxGenerationCap          int     `toml:"max_generation_cap"`
	GenerationInheritanceRatio float64 `toml:"generation_inheritance_ratio"`
	LearningRate               float64 `toml:"learning_rate"`
	DiscountFactor             float64 `toml:"discount_factor"`
	ExplorationRate            float64 `toml:"exploration_rate"`
	MinExplorationRate         float64 `toml:"min_exploration_rate"`
	ExplorationDecay           float64 `toml:"exploration_decay"`
}

type SpawnConfig struct {
	MinRoomArea     int `toml:"min_room_area"`
	MaxMonstersHard int `toml:"max_monsters_hard"` // absolute cap regardless of room area
}

type StorageConfig struct {
	Backend  string `toml:"backend"` // "file" or "redis"
	FileDir  string `toml:"file_dir"`
	RedisURL string `toml:"redis_url"`
}

type AuthConfig struct {
	JWTSigningKey string `toml:"jwt_signing_key"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads and parses a TOML config file at path, overlaying it onto
// Defaults(). A missing file is not an error: Load returns the defaults
// unchanged so the server can run with zero config present.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Defaults returns the reference hyperparameters and operating knobs named
// throughout the spec (§6, §4.4).
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress: "0.0.0.0:8080",
		},
		Game: GameConfig{
			TickInterval:            500 * time.Millisecond,
			AutosaveInterval:        300 * time.Second,
			ViewportWidth:           60,
			ViewportHeight:          30,
			MaxPlayersPerGame:       8,
			GameInactiveTimeout:     30 * time.Minute,
			CompletedGameGracePeriod: 5 * time.Minute,
			RegistryCleanupInterval: 1 * time.Minute,
			FightTurnDuration:       120 * time.Second,
			FightImmunityDuration:  2 * time.Second,
			HandshakeDeadline:      10 * time.Second,
		},
		Dungeon: DungeonConfig{
			Width: 80, Height: 80, RoomCount: 12,
			MinRoomSize: 5, MaxRoomSize: 12,
			ChestRoomDivisor: 4,
		},
		AI: AIConfig{
			MaxGenerationCap:           100,
			GenerationInheritanceRatio: 0.3,
			LearningRate:               0.1,
			DiscountFactor:             0.95,
			ExplorationRate:            0.3,
			MinExplorationRate:         0.05,
			ExplorationDecay:           0.995,
		},
		Spawn: SpawnConfig{
			MinRoomArea:     30,
			MaxMonstersHard: 4,
		},
		Storage: StorageConfig{
			Backend: "file",
			FileDir: "data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
