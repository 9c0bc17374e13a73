package game

import (
	"github.com/Ko-stant/dungeon-ai-server/internal/combat"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// Player returns a copy of playerID's current state, for building outgoing
// messages. The bool is false if no such player is on the roster.
func (g *Game) Player(playerID string) (entity.Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[playerID]
	if !ok {
		return entity.Player{}, false
	}
	return *p, true
}

// Monster returns a copy of monsterID's current state.
func (g *Game) Monster(monsterID string) (entity.Monster, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.monsters[monsterID]
	if !ok {
		return entity.Monster{}, false
	}
	return *m, true
}

// Fight returns a copy of fightID's current state.
func (g *Game) Fight(fightID string) (combat.Fight, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.fights[fightID]
	if !ok {
		return combat.Fight{}, false
	}
	return *f, true
}

// Room returns a copy of roomID's current state.
func (g *Game) Room(roomID string) (tile.Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.roomByID(roomID)
	if r == nil {
		return tile.Room{}, false
	}
	return *r, true
}

// Players returns a snapshot of every player currently on the roster.
func (g *Game) Players() map[string]entity.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]entity.Player, len(g.players))
	for id, p := range g.players {
		out[id] = *p
	}
	return out
}

// Monsters returns a snapshot of every live monster.
func (g *Game) Monsters() map[string]entity.Monster {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]entity.Monster, len(g.monsters))
	for id, m := range g.monsters {
		out[id] = *m
	}
	return out
}
