package game

import (
	"context"
	"errors"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/combat"
	"github.com/Ko-stant/dungeon-ai-server/internal/dungeon"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// snapshot is the on-disk representation of a game instance: everything
// needed to resume play exactly where it left off, except live network
// connections (those are re-established on reconnect).
type snapshot struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Width         int                     `json:"width"`
	Height        int                     `json:"height"`
	Tiles         [][]tile.Kind           `json:"tiles"`
	Rooms         []*tile.Room            `json:"rooms"`
	SpawnX        int                     `json:"spawnX"`
	SpawnY        int                     `json:"spawnY"`
	Seed          int64                   `json:"seed"`
	Players       map[string]*entity.Player  `json:"players"`
	Monsters      map[string]*entity.Monster `json:"monsters"`
	Fights        map[string]*combat.Fight  `json:"fights"`
	TokenToPlayer map[string]string      `json:"tokenToPlayer"`
	Tick          int                     `json:"tick"`
	Completed     bool                    `json:"completed"`
	CompletedAt   time.Time               `json:"completedAt,omitempty"`
}

func (g *Game) saveKey() string { return "game:" + g.ID }

// save serializes the current state and persists it. Caller must not hold
// g.mu (save takes it itself for the snapshot build, then releases before
// the I/O call, matching the rule that locks never wrap network/disk I/O
// for longer than necessary).
func (g *Game) save(ctx context.Context) {
	g.mu.Lock()
	snap := g.buildSnapshotLocked()
	g.mu.Unlock()

	if err := g.store.Save(ctx, g.saveKey(), snap); err != nil {
		g.logDebug("save failed for game %s: %v", g.ID, err)
		return
	}

	g.mu.Lock()
	g.dirty = false
	g.mu.Unlock()
}

func (g *Game) buildSnapshotLocked() snapshot {
	return snapshot{
		ID:            g.ID,
		Name:          g.Name,
		Width:         g.dmap.Width,
		Height:        g.dmap.Height,
		Tiles:         g.dmap.Tiles,
		Rooms:         g.dmap.Rooms,
		SpawnX:        g.dmap.SpawnX,
		SpawnY:        g.dmap.SpawnY,
		Seed:          g.dmap.Seed,
		Players:       g.players,
		Monsters:      g.monsters,
		Fights:        g.fights,
		TokenToPlayer: g.tokenToPlayer,
		Tick:          g.tick,
		Completed:     g.completed,
		CompletedAt:   g.completedAt,
	}
}

// restoreLocked loads a save into this (already-locked) game. Returns false
// on any storage error, including "not found", leaving the game unmodified.
func (g *Game) restoreLocked(ctx context.Context, saveID string) bool {
	var snap snapshot
	if err := g.store.Load(ctx, "game:"+saveID, &snap); err != nil {
		var notFound *storage.ErrNotFound
		if !errors.As(err, &notFound) {
			g.logDebug("restore failed for game %s: %v", saveID, err)
		}
		return false
	}

	if snap.Name != "" {
		g.Name = snap.Name
	}
	g.dmap = &dungeon.Map{
		Width: snap.Width, Height: snap.Height,
		Tiles: snap.Tiles, Rooms: snap.Rooms,
		SpawnX: snap.SpawnX, SpawnY: snap.SpawnY, Seed: snap.Seed,
	}
	g.players = snap.Players
	if g.players == nil {
		g.players = make(map[string]*entity.Player)
	}
	g.monsters = snap.Monsters
	if g.monsters == nil {
		g.monsters = make(map[string]*entity.Monster)
	}
	g.fights = snap.Fights
	if g.fights == nil {
		g.fights = make(map[string]*combat.Fight)
	}
	g.tokenToPlayer = snap.TokenToPlayer
	if g.tokenToPlayer == nil {
		g.tokenToPlayer = make(map[string]string)
	}
	g.tick = snap.Tick
	g.completed = snap.Completed
	g.completedAt = snap.CompletedAt

	g.occupied = make(map[[2]int]bool, len(g.players)+len(g.monsters))
	for _, p := range g.players {
		g.occupied[[2]int{p.X, p.Y}] = true
	}
	for _, m := range g.monsters {
		g.occupied[[2]int{m.X, m.Y}] = true
	}
	return true
}
