package game

import "github.com/Ko-stant/dungeon-ai-server/internal/tile"

// ViewportActor is a player or monster as seen from within a viewport: its
// coordinates rewritten to be viewport-local, with the original world
// position preserved alongside for any client-side overlay that needs it.
type ViewportActor struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	WorldX int    `json:"worldX"`
	WorldY int    `json:"worldY"`
}

// ViewportState is a vw*vh window into the dungeon centered on a player:
// out-of-bounds cells read as WALL, and only entities that fall inside the
// window are listed.
type ViewportState struct {
	OriginX          int             `json:"originX"`
	OriginY          int             `json:"originY"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	Tiles            [][]tile.Kind   `json:"tiles"`
	Players          []ViewportActor `json:"players"`
	Monsters         []ViewportActor `json:"monsters"`
}

// GetViewportState builds a vw x vh window centered on playerID's
// position, with its origin at (x - vw/2, y - vh/2); the origin is not
// clamped to the map edges. Cells outside the map substitute WALL rather
// than being omitted, so the window is always exactly vw x vh.
func (g *Game) GetViewportState(playerID string, vw, vh int) (ViewportState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok {
		return ViewportState{}, false
	}

	originX := p.X - vw/2
	originY := p.Y - vh/2

	tiles := make([][]tile.Kind, vh)
	for ty := 0; ty < vh; ty++ {
		row := make([]tile.Kind, vw)
		wy := originY + ty
		for tx := 0; tx < vw; tx++ {
			wx := originX + tx
			if wx < 0 || wx >= g.dmap.Width || wy < 0 || wy >= g.dmap.Height {
				row[tx] = tile.Wall
				continue
			}
			row[tx] = g.dmap.Tiles[wy][wx]
		}
		tiles[ty] = row
	}

	vs := ViewportState{OriginX: originX, OriginY: originY, Width: vw, Height: vh, Tiles: tiles}
	for _, other := range g.players {
		if a, ok := localize(other.ID, other.X, other.Y, originX, originY, vw, vh); ok {
			vs.Players = append(vs.Players, a)
		}
	}
	for _, m := range g.monsters {
		if !m.IsAlive() {
			continue
		}
		if a, ok := localize(m.ID, m.X, m.Y, originX, originY, vw, vh); ok {
			vs.Monsters = append(vs.Monsters, a)
		}
	}
	return vs, true
}

func localize(id string, worldX, worldY, originX, originY, vw, vh int) (ViewportActor, bool) {
	lx, ly := worldX-originX, worldY-originY
	if lx < 0 || lx >= vw || ly < 0 || ly >= vh {
		return ViewportActor{}, false
	}
	return ViewportActor{ID: id, X: lx, Y: ly, WorldX: worldX, WorldY: worldY}, true
}
