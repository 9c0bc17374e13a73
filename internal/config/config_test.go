package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-file.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg.Server.BindAddress != want.Server.BindAddress {
		t.Errorf("BindAddress = %q, want %q", cfg.Server.BindAddress, want.Server.BindAddress)
	}
	if cfg.Game.MaxPlayersPerGame != want.Game.MaxPlayersPerGame {
		t.Errorf("MaxPlayersPerGame = %d, want %d", cfg.Game.MaxPlayersPerGame, want.Game.MaxPlayersPerGame)
	}
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[server]
bind_address = "127.0.0.1:9000"

[game]
max_players_per_game = 4
tick_interval = "1s"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BindAddress != "127.0.0.1:9000" {
		t.Errorf("BindAddress = %q, want 127.0.0.1:9000", cfg.Server.BindAddress)
	}
	if cfg.Game.MaxPlayersPerGame != 4 {
		t.Errorf("MaxPlayersPerGame = %d, want 4", cfg.Game.MaxPlayersPerGame)
	}
	if cfg.Game.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want 1s", cfg.Game.TickInterval)
	}
	// Fields absent from the file should keep their default value.
	if cfg.Dungeon.Width != Defaults().Dungeon.Width {
		t.Errorf("Dungeon.Width = %d, want the default %d", cfg.Dungeon.Width, Defaults().Dungeon.Width)
	}
}

func TestLoadInvalidTOMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for invalid TOML")
	}
}
