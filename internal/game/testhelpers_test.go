package game

import (
	"sync"
	"testing"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/dungeon"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// fakeConn is a Connection that records every envelope it receives instead
// of writing to a socket, and can be told to fail the next Send calls.
type fakeConn struct {
	mu       sync.Mutex
	sent     []protocol.ServerEnvelope
	failSend bool
	closed   bool
	reason   string
}

func (f *fakeConn) Send(e protocol.ServerEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return errSend
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeConn) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reason = reason
}

func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, e := range f.sent {
		out[i] = e.Type
	}
	return out
}

type sendError struct{ msg string }

func (e *sendError) Error() string { return e.msg }

var errSend = &sendError{"send failed"}

// newTestMap builds a small, hand-authored 6x6 map: all floor, one 4x4 room
// at (1,1) covering the default spawn point, and a closed door at (0,2)
// just outside the room.
func newTestMap() *dungeon.Map {
	const w, h = 6, 6
	tiles := make([][]tile.Kind, h)
	for y := range tiles {
		tiles[y] = make([]tile.Kind, w)
		for x := range tiles[y] {
			tiles[y][x] = tile.Floor
		}
	}
	tiles[2][0] = tile.DoorClosed

	room := &tile.Room{ID: "r1", X: 1, Y: 1, Width: 4, Height: 4}
	return &dungeon.Map{
		Width: w, Height: h,
		Tiles:  tiles,
		Rooms:  []*tile.Room{room},
		SpawnX: 2, SpawnY: 2,
	}
}

// newTestGame builds a Game with a hand-authored map already in place
// (skipping Initialize/dungeon.Generate and the tick/autosave loops), backed
// by a real file store so save-triggering operations don't panic on a nil
// store.
func newTestGame(t *testing.T) *Game {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		FightTurnDuration:     time.Minute,
		FightImmunityDuration: time.Second,
	}
	g := New("g1", "Test Dungeon", cfg, nil, nil, nil, store, nil)
	g.dmap = newTestMap()
	return g
}

// newTestMonster builds a minimal, alive monster at (x, y) for tests that
// don't care about its full ability block.
func newTestMonster(id string, x, y int) *entity.Monster {
	return &entity.Monster{
		ID: id, MonsterType: "goblin", X: x, Y: y,
		Stats: entity.MonsterStats{HP: 7, MaxHP: 7, AC: 12, ChallengeRating: 0.25},
	}
}
