package game

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

func TestGetViewportStateCentersOnPlayer(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")

	vs, ok := g.GetViewportState(id, 4, 4)
	if !ok {
		t.Fatal("expected a viewport for a connected player")
	}
	if vs.OriginX != 0 || vs.OriginY != 0 {
		t.Errorf("origin = (%d,%d), want (0,0) for a player at (2,2) with a 4x4 window", vs.OriginX, vs.OriginY)
	}
	if len(vs.Tiles) != 4 || len(vs.Tiles[0]) != 4 {
		t.Fatalf("viewport dims = %dx%d, want 4x4", len(vs.Tiles[0]), len(vs.Tiles))
	}
}

func TestGetViewportStateSubstitutesWallOutOfBounds(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	// Push the player to a corner so the window spills off the map.
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[id].X, g.players[id].Y})
	g.players[id].X, g.players[id].Y = 0, 0
	g.occupied[[2]int{0, 0}] = true
	g.mu.Unlock()

	vs, ok := g.GetViewportState(id, 6, 6)
	if !ok {
		t.Fatal("expected a viewport for a connected player")
	}
	if vs.OriginX != -3 || vs.OriginY != -3 {
		t.Errorf("origin = (%d,%d), want (-3,-3)", vs.OriginX, vs.OriginY)
	}
	// (0,0) world maps to local (3,3); everything above/left of it is
	// off-map and must read back as wall.
	if vs.Tiles[0][0] != tile.Wall {
		t.Error("the out-of-bounds corner of the window should read as wall")
	}
	if vs.Tiles[3][3] != tile.Floor {
		t.Error("the player's own tile should read through as floor")
	}
}

func TestGetViewportStateListsPlayersAndMonstersInWindow(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	monster := newTestMonster("m1", 2, 3)
	g.monsters[monster.ID] = monster
	farMonster := newTestMonster("m2", 500, 500)
	g.monsters[farMonster.ID] = farMonster

	vs, ok := g.GetViewportState(id, 6, 6)
	if !ok {
		t.Fatal("expected a viewport for a connected player")
	}
	if len(vs.Players) != 1 || vs.Players[0].ID != id {
		t.Errorf("viewport players = %+v, want just %s", vs.Players, id)
	}
	if len(vs.Monsters) != 1 || vs.Monsters[0].ID != "m1" {
		t.Errorf("viewport monsters = %+v, want just m1 (m2 is out of window)", vs.Monsters)
	}
}

func TestGetViewportStateUnknownPlayerFails(t *testing.T) {
	g := newTestGame(t)
	if _, ok := g.GetViewportState("no-such-player", 4, 4); ok {
		t.Error("expected GetViewportState to fail for an unknown player")
	}
}
