package game

import (
	"context"

	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
	"github.com/google/uuid"
)

func (g *Game) roomByID(id string) *tile.Room {
	for _, r := range g.dmap.Rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (g *Game) roomAt(x, y int) *tile.Room {
	for _, r := range g.dmap.Rooms {
		if r.Contains(x, y) {
			return r
		}
	}
	return nil
}

// findSpawnPosition resolves a walkable, unoccupied tile to place a new or
// reconnecting player at: the map's designated spawn tile; else a floor
// tile within a 7x7 box around it; else the first floor tile in any room.
func (g *Game) findSpawnPosition() (int, int) {
	sx, sy := g.dmap.SpawnX, g.dmap.SpawnY
	if g.tileFree(sx, sy) {
		return sx, sy
	}

	for radius := 1; radius <= 3; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x, y := sx+dx, sy+dy
				if g.tileFree(x, y) {
					return x, y
				}
			}
		}
	}

	for _, r := range g.dmap.Rooms {
		for y := r.Y; y < r.Y+r.Height; y++ {
			for x := r.X; x < r.X+r.Width; x++ {
				if g.tileFree(x, y) {
					return x, y
				}
			}
		}
	}
	return sx, sy
}

func (g *Game) tileFree(x, y int) bool {
	if y < 0 || y >= g.dmap.Height || x < 0 || x >= g.dmap.Width {
		return false
	}
	if !g.dmap.Tiles[y][x].Walkable() {
		return false
	}
	return !g.occupied[[2]int{x, y}]
}

func (g *Game) nextSpawnColor() string {
	c := spawnColors[g.nextColor%spawnColorCount]
	g.nextColor++
	return c
}

// AddPlayer attaches conn under token, resolving the reconnection rule:
// a token already bound to a player reuses it; else a caller-supplied
// existingPlayerID still present in the roster reuses it; else a new
// player is created. Returns the player's ID and whether it was a
// reconnection.
func (g *Game) AddPlayer(conn Connection, token, existingPlayerID string) (string, bool) {
	g.mu.Lock()

	if pid, ok := g.tokenToPlayer[token]; ok {
		if _, exists := g.players[pid]; exists {
			g.connections[pid] = conn
			g.markDirty()
			g.mu.Unlock()
			g.broadcastPlayerJoined(pid)
			return pid, true
		}
	}

	if existingPlayerID != "" {
		if _, exists := g.players[existingPlayerID]; exists {
			g.tokenToPlayer[token] = existingPlayerID
			g.connections[existingPlayerID] = conn
			g.markDirty()
			g.mu.Unlock()
			g.broadcastPlayerJoined(existingPlayerID)
			return existingPlayerID, true
		}
	}

	x, y := g.findSpawnPosition()
	p := entity.NewPlayer("p_"+uuid.NewString()[:8], x, y)
	p.Color = g.nextSpawnColor()
	g.players[p.ID] = p
	g.tokenToPlayer[token] = p.ID
	g.connections[p.ID] = conn
	g.occupied[[2]int{x, y}] = true
	g.markDirty()

	room := g.roomAt(x, y)
	var enteredRoom *tile.Room
	if room != nil {
		p.CurrentRoomID = room.ID
		if !room.Visited {
			enteredRoom = room
		}
	}
	g.mu.Unlock()

	if enteredRoom != nil {
		g.enterRoom(p.ID, enteredRoom)
	}
	g.broadcastPlayerJoined(p.ID)

	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.PlayerJoined, GameID: g.ID, SourceID: p.ID})
	}
	return p.ID, false
}

func (g *Game) broadcastPlayerJoined(playerID string) {
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgPlayerJoined, Payload: protocol.PlayerJoinedPayload{PlayerID: playerID}})
}

// RemovePlayer drops a player's live connection; if permanent, also drops
// the player and its token binding and force-saves. Does not touch any
// fight the player is in — combat code reaps dead/disconnected players on
// its own schedule.
func (g *Game) RemovePlayer(playerID string, permanent bool) {
	g.mu.Lock()
	delete(g.connections, playerID)

	if !permanent {
		g.mu.Unlock()
		return
	}

	if p, ok := g.players[playerID]; ok {
		delete(g.occupied, [2]int{p.X, p.Y})
		delete(g.players, playerID)
	}
	for token, pid := range g.tokenToPlayer {
		if pid == playerID {
			delete(g.tokenToPlayer, token)
		}
	}
	g.markDirty()
	g.mu.Unlock()

	g.save(context.Background())
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgPlayerLeft, Payload: protocol.PlayerLeftPayload{PlayerID: playerID}})

	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.PlayerLeft, GameID: g.ID, SourceID: playerID})
	}
}

// Disconnect handles a dropped WebSocket: any fight the player is actively
// in is fled on their behalf, the live connection is released (the player
// and its token binding survive, so a later reconnect resumes them), and
// the rest of the game is told the seat emptied.
func (g *Game) Disconnect(playerID string) {
	if fightID, ok := g.ActiveFightIDForPlayer(playerID); ok {
		g.FleeFight(playerID, fightID)
	}
	g.RemovePlayer(playerID, false)
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgPlayerLeft, Payload: protocol.PlayerLeftPayload{PlayerID: playerID}})
}

// enterRoom marks room visited, spawns its monsters, and announces the
// discovery. Must be called without g.mu held.
func (g *Game) enterRoom(playerID string, room *tile.Room) {
	g.mu.Lock()
	room.Visited = true

	var spawned []*entity.Monster
	if g.ai != nil {
		spawned = g.ai.SpawnMonstersInRoom(room, g.dmap.Tiles, g.occupied, g.dmap.Width, g.dmap.Height)
		for _, m := range spawned {
			g.monsters[m.ID] = m
		}
	}
	g.markDirty()
	g.mu.Unlock()

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgRoomEntered, Payload: protocol.RoomEnteredPayload{Room: room}})

	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.PlayerEnteredRoom, GameID: g.ID, SourceID: playerID, TargetID: room.ID})
	}
}
