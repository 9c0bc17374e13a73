package game

import (
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// MoveResult is the outcome of a single move_player call.
type MoveResult struct {
	Success     bool
	RoomEntered *tile.Room
}

// MovePlayer steps playerID by exactly one tile in a cardinal direction
// (dx, dy each in {-1, 0, 1}, never both nonzero — diagonal movement is
// disallowed even though diagonal interaction is not). The destination must
// be walkable and unoccupied by any other player or monster.
func (g *Game) MovePlayer(playerID string, dx, dy int) MoveResult {
	if dx != 0 && dy != 0 {
		return MoveResult{}
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return MoveResult{}
	}

	g.mu.Lock()
	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return MoveResult{}
	}
	if g.activeFightForPlayerLocked(playerID) != "" {
		g.mu.Unlock()
		return MoveResult{}
	}

	nx, ny := p.X+dx, p.Y+dy
	if !g.tileFreeExcluding(nx, ny, playerID) {
		g.mu.Unlock()
		return MoveResult{}
	}

	delete(g.occupied, [2]int{p.X, p.Y})
	p.X, p.Y = nx, ny
	g.occupied[[2]int{nx, ny}] = true

	room := g.roomAt(nx, ny)
	var newRoomID string
	var enteredRoom *tile.Room
	if room != nil {
		newRoomID = room.ID
		if room.ID != p.CurrentRoomID && !room.Visited {
			enteredRoom = room
		}
	}
	p.CurrentRoomID = newRoomID
	g.markDirty()
	g.mu.Unlock()

	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.PlayerMoved, GameID: g.ID, SourceID: playerID})
	}

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgStateUpdate, Payload: protocol.StateUpdatePayload{
		Kind: "player_moved", PlayerID: playerID, X: nx, Y: ny,
	}})

	if enteredRoom != nil {
		g.enterRoom(playerID, enteredRoom)
		return MoveResult{Success: true, RoomEntered: enteredRoom}
	}
	return MoveResult{Success: true}
}

// tileFreeExcluding is tileFree but ignoring the occupant at the excluded
// player's own current tile (so a player's own position never blocks a
// move onto an adjacent tile it is about to vacate).
func (g *Game) tileFreeExcluding(x, y, excludePlayerID string) bool {
	if y < 0 || y >= g.dmap.Height || x < 0 || x >= g.dmap.Width {
		return false
	}
	if !g.dmap.Tiles[y][x].Walkable() {
		return false
	}
	if !g.occupied[[2]int{x, y}] {
		return true
	}
	if p, ok := g.players[excludePlayerID]; ok && p.X == x && p.Y == y {
		return true
	}
	return false
}

// InteractOutcome describes what interact() resolved to.
type InteractOutcome struct {
	Result    string // "already_in_fight", "can_join_fight", "fight_request", "door_toggled", "nothing"
	MonsterID string
	FightID   string
	DoorX     int
	DoorY     int
}

// Interact resolves the single context-sensitive interact button: it
// prefers an already-in-progress fight, then an adjacent monster already
// fighting someone else, then a fresh fight request against an adjacent
// monster, and only toggles a door if none of those apply. 8-adjacency
// (including diagonals) is used for monsters and doors, even though
// movement itself is 4-directional only.
func (g *Game) Interact(playerID string) InteractOutcome {
	g.mu.Lock()

	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return InteractOutcome{Result: "nothing"}
	}

	if fightID := g.activeFightForPlayerLocked(playerID); fightID != "" {
		g.mu.Unlock()
		return InteractOutcome{Result: "already_in_fight", FightID: fightID}
	}

	if monsterID, ok := g.adjacentMonsterLocked(p.X, p.Y); ok {
		fightID := g.activeFightForMonsterLocked(monsterID)
		g.mu.Unlock()
		if fightID != "" {
			return InteractOutcome{Result: "can_join_fight", MonsterID: monsterID, FightID: fightID}
		}
		return InteractOutcome{Result: "fight_request", MonsterID: monsterID}
	}

	dx, dy, hasDoor := g.adjacentDoorLocked(p.X, p.Y)
	if !hasDoor {
		g.mu.Unlock()
		return InteractOutcome{Result: "nothing"}
	}
	newKind := g.toggleDoorLocked(dx, dy)
	g.mu.Unlock()

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgStateUpdate, Payload: protocol.StateUpdatePayload{
		Kind: "door_toggled", X: dx, Y: dy, DoorKind: newKind.String(),
	}})
	return InteractOutcome{Result: "door_toggled", DoorX: dx, DoorY: dy}
}

func (g *Game) adjacentMonsterLocked(x, y int) (string, bool) {
	for _, m := range g.monsters {
		if !m.IsAlive() {
			continue
		}
		if adjacent8(x, y, m.X, m.Y) {
			return m.ID, true
		}
	}
	return "", false
}

func (g *Game) adjacentDoorLocked(x, y int) (int, int, bool) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if ny < 0 || ny >= g.dmap.Height || nx < 0 || nx >= g.dmap.Width {
				continue
			}
			if g.dmap.Tiles[ny][nx].IsDoor() {
				return nx, ny, true
			}
		}
	}
	return 0, 0, false
}

func (g *Game) toggleDoorLocked(x, y int) tile.Kind {
	switch g.dmap.Tiles[y][x] {
	case tile.DoorClosed:
		g.dmap.Tiles[y][x] = tile.DoorOpen
	case tile.DoorOpen:
		g.dmap.Tiles[y][x] = tile.DoorClosed
	}
	g.markDirty()
	return g.dmap.Tiles[y][x]
}

func adjacent8(ax, ay, bx, by int) bool {
	dx, dy := ax-bx, ay-by
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= 1 && dy <= 1 && (dx != 0 || dy != 0)
}
