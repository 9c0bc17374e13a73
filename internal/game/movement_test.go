package game

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

func TestMovePlayerStepsOntoFreeFloorTile(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")

	res := g.MovePlayer(id, 1, 0)
	if !res.Success {
		t.Fatal("expected the move onto an empty floor tile to succeed")
	}
	p, _ := g.Player(id)
	if p.X != 3 || p.Y != 2 {
		t.Errorf("position after move = (%d,%d), want (3,2)", p.X, p.Y)
	}
	if g.occupied[[2]int{2, 2}] {
		t.Error("the vacated tile should no longer be occupied")
	}
	if !g.occupied[[2]int{3, 2}] {
		t.Error("the destination tile should now be occupied")
	}
}

func TestMovePlayerRejectsDiagonalStep(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")

	if res := g.MovePlayer(id, 1, 1); res.Success {
		t.Error("diagonal movement should be rejected")
	}
}

func TestMovePlayerRejectsOutOfBounds(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[id].X, g.players[id].Y})
	g.players[id].X, g.players[id].Y = 0, 0
	g.occupied[[2]int{0, 0}] = true
	g.mu.Unlock()

	if res := g.MovePlayer(id, -1, 0); res.Success {
		t.Error("moving off the map should be rejected")
	}
}

func TestMovePlayerRejectsOntoOccupiedTile(t *testing.T) {
	g := newTestGame(t)
	connA := &fakeConn{}
	connB := &fakeConn{}
	idA, _ := g.AddPlayer(connA, "tok-a", "")

	// Force a second player onto the tile adjacent to the first, then
	// verify the first player can't step onto it.
	idB, _ := g.AddPlayer(connB, "tok-b", "")
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[idB].X, g.players[idB].Y})
	g.players[idB].X, g.players[idB].Y = 3, 2
	g.occupied[[2]int{3, 2}] = true
	g.mu.Unlock()

	if res := g.MovePlayer(idA, 1, 0); res.Success {
		t.Error("moving onto another player's tile should be rejected")
	}
}

func TestMovePlayerBlockedWhileInFight(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	monster := newTestMonster("m1", 2, 3)
	g.monsters[monster.ID] = monster

	if res := g.StartFight(id, monster.ID); !res.Success {
		t.Fatalf("StartFight failed: %s", res.Error)
	}

	if res := g.MovePlayer(id, 1, 0); res.Success {
		t.Error("movement should be blocked while a player is in an active fight")
	}
}

func TestMovePlayerIntoUnvisitedRoomBroadcastsEntry(t *testing.T) {
	g := newTestGame(t)
	// Shrink the room so the spawn tile sits just outside it, to exercise
	// entry-on-move rather than entry-on-spawn.
	g.dmap.Rooms[0] = &tile.Room{ID: "r1", X: 3, Y: 1, Width: 2, Height: 2}
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")

	res := g.MovePlayer(id, 1, 0)
	if !res.Success || res.RoomEntered == nil {
		t.Fatalf("expected the move to enter the room, got %+v", res)
	}
	if res.RoomEntered.ID != "r1" {
		t.Errorf("entered room id = %s, want r1", res.RoomEntered.ID)
	}
	sawEntry := false
	for _, typ := range conn.types() {
		if typ == protocol.MsgRoomEntered {
			sawEntry = true
		}
	}
	if !sawEntry {
		t.Errorf("sent envelopes = %v, want a room_entered broadcast", conn.types())
	}
}

func TestInteractTogglesAdjacentDoor(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	// Move the player next to the door at (0,2).
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[id].X, g.players[id].Y})
	g.players[id].X, g.players[id].Y = 1, 2
	g.occupied[[2]int{1, 2}] = true
	g.mu.Unlock()

	outcome := g.Interact(id)
	if outcome.Result != "door_toggled" {
		t.Fatalf("Interact result = %s, want door_toggled", outcome.Result)
	}
	if g.dmap.Tiles[2][0] != tile.DoorOpen {
		t.Error("the door should now be open")
	}

	outcome = g.Interact(id)
	if outcome.Result != "door_toggled" || g.dmap.Tiles[2][0] != tile.DoorClosed {
		t.Error("interacting again should close the door")
	}
}

func TestInteractRequestsFightWithAdjacentMonster(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	monster := newTestMonster("m1", 2, 3)
	g.monsters[monster.ID] = monster

	outcome := g.Interact(id)
	if outcome.Result != "fight_request" || outcome.MonsterID != "m1" {
		t.Errorf("Interact outcome = %+v, want fight_request against m1", outcome)
	}
}

func TestInteractReportsAlreadyInFight(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	monster := newTestMonster("m1", 2, 3)
	g.monsters[monster.ID] = monster
	res := g.StartFight(id, monster.ID)
	if !res.Success {
		t.Fatalf("StartFight failed: %s", res.Error)
	}

	outcome := g.Interact(id)
	if outcome.Result != "already_in_fight" || outcome.FightID != res.FightID {
		t.Errorf("Interact outcome = %+v, want already_in_fight for %s", outcome, res.FightID)
	}
}

func TestInteractReportsCanJoinFight(t *testing.T) {
	g := newTestGame(t)
	connA := &fakeConn{}
	idA, _ := g.AddPlayer(connA, "tok-a", "")
	monster := newTestMonster("m1", 2, 3)
	g.monsters[monster.ID] = monster
	res := g.StartFight(idA, monster.ID)
	if !res.Success {
		t.Fatalf("StartFight failed: %s", res.Error)
	}

	connB := &fakeConn{}
	idB, _ := g.AddPlayer(connB, "tok-b", "")
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[idB].X, g.players[idB].Y})
	g.players[idB].X, g.players[idB].Y = 3, 3
	g.occupied[[2]int{3, 3}] = true
	g.mu.Unlock()

	outcome := g.Interact(idB)
	if outcome.Result != "can_join_fight" || outcome.FightID != res.FightID {
		t.Errorf("Interact outcome = %+v, want can_join_fight for %s", outcome, res.FightID)
	}
}

func TestInteractWithNothingAdjacentReturnsNothing(t *testing.T) {
	g := newTestGame(t)
	conn := &fakeConn{}
	id, _ := g.AddPlayer(conn, "tok-1", "")
	g.mu.Lock()
	delete(g.occupied, [2]int{g.players[id].X, g.players[id].Y})
	g.players[id].X, g.players[id].Y = 2, 1
	g.occupied[[2]int{2, 1}] = true
	g.mu.Unlock()

	if outcome := g.Interact(id); outcome.Result != "nothing" {
		t.Errorf("Interact result = %s, want nothing", outcome.Result)
	}
}
