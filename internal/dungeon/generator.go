// Package dungeon procedurally generates a rectangular tile grid of
// non-adjacent rooms connected by 1-wide corridors, with doors, chests, and
// torches. Generation is deterministic for a given seed.
package dungeon

import (
	"math"
	"math/rand"

	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

const (
	maxSize     = 5000
	minRoomGap  = 10 // tiles kept clear between rooms, for corridor + walls
	corridorW   = 1
)

// Config controls a single generation run. Zero values are clamped to sane
// minimums by Generate, matching the original generator's defensive clamps.
type Config struct {
	Width, Height       int
	MinRoomSize         int
	MaxRoomSize         int
	RoomCount           int
	Seed                int64
	HasSeed             bool
	ChestRoomDivisor    int // rooms/divisor chests placed; defaults to 4
}

// Map is the generator's output: a tile grid, its rooms, and the spawn point.
type Map struct {
	Width, Height int
	Tiles         [][]tile.Kind // Tiles[y][x]
	Rooms         []*tile.Room
	SpawnX        int
	SpawnY        int
	Seed          int64
}

func clampConfig(cfg Config) Config {
	if cfg.Width < 40 {
		cfg.Width = 40
	}
	if cfg.Width > maxSize {
		cfg.Width = maxSize
	}
	if cfg.Height < 30 {
		cfg.Height = 30
	}
	if cfg.Height > maxSize {
		cfg.Height = maxSize
	}
	if cfg.MinRoomSize < 6 {
		cfg.MinRoomSize = 6
	}
	if cfg.MaxRoomSize < cfg.MinRoomSize {
		cfg.MaxRoomSize = cfg.MinRoomSize
	}
	if cfg.MaxRoomSize > 20 {
		cfg.MaxRoomSize = 20
	}
	if cfg.RoomCount < 10 {
		cfg.RoomCount = 10
	}
	if cfg.ChestRoomDivisor <= 0 {
		cfg.ChestRoomDivisor = 4
	}
	return cfg
}

// generator holds the mutable state of a single Generate call.
type generator struct {
	cfg           Config
	rng           *rand.Rand
	tiles         [][]tile.Kind
	rooms         []*tile.Room
	roomIDCounter int
	corridorTiles map[[2]int]bool
}

// Generate builds a complete dungeon map. It never fails hard: pathological
// configs (too little space for the requested room count) simply yield
// fewer rooms than requested.
func Generate(cfg Config) *Map {
	cfg = clampConfig(cfg)
	seed := cfg.Seed
	if !cfg.HasSeed {
		seed = rand.Int63()
	}

	g := &generator{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed)),
		corridorTiles: make(map[[2]int]bool),
	}
	g.tiles = make([][]tile.Kind, cfg.Height)
	for y := range g.tiles {
		g.tiles[y] = make([]tile.Kind, cfg.Width)
		for x := range g.tiles[y] {
			g.tiles[y][x] = tile.Void
		}
	}

	g.placeRooms()
	g.connectRooms()
	g.addWalls()
	g.placeDoors()
	g.ensureAllRoomsConnected()
	g.placeChests()
	g.placeTorches()

	spawnX, spawnY := cfg.Width/2, cfg.Height/2
	if len(g.rooms) > 0 {
		spawnX, spawnY = g.rooms[0].CenterTile()
	}

	return &Map{
		Width:  cfg.Width,
		Height: cfg.Height,
		Tiles:  g.tiles,
		Rooms:  g.rooms,
		SpawnX: spawnX,
		SpawnY: spawnY,
		Seed:   seed,
	}
}

func (g *generator) placeRooms() {
	attempts := 0
	maxAttempts := g.cfg.RoomCount * 100

	for len(g.rooms) < g.cfg.RoomCount && attempts < maxAttempts {
		attempts++

		w := g.cfg.MinRoomSize + g.rng.Intn(g.cfg.MaxRoomSize-g.cfg.MinRoomSize+1)
		h := g.cfg.MinRoomSize + g.rng.Intn(g.cfg.MaxRoomSize-g.cfg.MinRoomSize+1)

		margin := minRoomGap + 2
		maxX := g.cfg.Width - w - margin
		maxY := g.cfg.Height - h - margin
		if maxX <= margin || maxY <= margin {
			continue
		}

		x := margin + g.rng.Intn(maxX-margin+1)
		y := margin + g.rng.Intn(maxY-margin+1)

		if !g.roomFits(x, y, w, h) {
			continue
		}

		g.roomIDCounter++
		roomType := tile.RoomTypes[g.rng.Intn(len(tile.RoomTypes))]
		room := &tile.Room{
			ID:       roomIDFor(g.roomIDCounter),
			X:        x,
			Y:        y,
			Width:    w,
			Height:   h,
			RoomType: roomType,
			Name:     roomType,
		}

		for ry := y; ry < y+h; ry++ {
			for rx := x; rx < x+w; rx++ {
				g.tiles[ry][rx] = tile.Floor
			}
		}
		g.rooms = append(g.rooms, room)
	}
}

func roomIDFor(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "room_0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "room_" + string(buf)
}

func (g *generator) roomFits(x, y, w, h int) bool {
	checkX1 := x - minRoomGap
	checkY1 := y - minRoomGap
	checkX2 := x + w + minRoomGap
	checkY2 := y + h + minRoomGap

	for _, r := range g.rooms {
		rx2 := r.X + r.Width
		ry2 := r.Y + r.Height
		if !(checkX2 <= r.X || checkX1 >= rx2 || checkY2 <= r.Y || checkY1 >= ry2) {
			return false
		}
	}
	return true
}

func (g *generator) connectRooms() {
	if len(g.rooms) < 2 {
		return
	}

	connected := map[int]bool{0: true}
	unconnected := make(map[int]bool, len(g.rooms)-1)
	for i := 1; i < len(g.rooms); i++ {
		unconnected[i] = true
	}

	for len(unconnected) > 0 {
		bestDist := math.Inf(1)
		bestCI, bestUI := -1, -1

		for ci := range connected {
			for ui := range unconnected {
				d := roomDistance(g.rooms[ci], g.rooms[ui])
				if d < bestDist {
					bestDist = d
					bestCI, bestUI = ci, ui
				}
			}
		}

		if bestCI < 0 {
			break
		}
		g.carveCorridor(g.rooms[bestCI], g.rooms[bestUI])
		g.rooms[bestCI].ConnectedRooms = append(g.rooms[bestCI].ConnectedRooms, g.rooms[bestUI].ID)
		g.rooms[bestUI].ConnectedRooms = append(g.rooms[bestUI].ConnectedRooms, g.rooms[bestCI].ID)
		connected[bestUI] = true
		delete(unconnected, bestUI)
	}
}

func roomDistance(a, b *tile.Room) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}

func (g *generator) carveCorridor(a, b *tile.Room) {
	x1, y1 := a.CenterTile()
	x2, y2 := b.CenterTile()

	if g.rng.Float64() < 0.5 {
		g.carveH(x1, x2, y1)
		g.carveV(y1, y2, x2)
	} else {
		g.carveV(y1, y2, x1)
		g.carveH(x1, x2, y2)
	}
}

func (g *generator) isInsideRoom(x, y int) bool {
	for _, r := range g.rooms {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

func (g *generator) isAdjacentToRoomFloor(x, y int) bool {
	for _, r := range g.rooms {
		if x == r.X-1 && y >= r.Y && y < r.Y+r.Height {
			return true
		}
		if x == r.X+r.Width && y >= r.Y && y < r.Y+r.Height {
			return true
		}
		if y == r.Y-1 && x >= r.X && x < r.X+r.Width {
			return true
		}
		if y == r.Y+r.Height && x >= r.X && x < r.X+r.Width {
			return true
		}
	}
	return false
}

func (g *generator) isAtRoomCorner(x, y int) bool {
	for _, r := range g.rooms {
		corners := [4][2]int{
			{r.X - 1, r.Y - 1},
			{r.X + r.Width, r.Y - 1},
			{r.X - 1, r.Y + r.Height},
			{r.X + r.Width, r.Y + r.Height},
		}
		for _, c := range corners {
			if abs(x-c[0]) <= 1 && abs(y-c[1]) <= 1 {
				return true
			}
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (g *generator) carveHugsAllowed(x, y int) bool {
	return !g.isInsideRoom(x, y) && !g.isAdjacentToRoomFloor(x, y) && !g.isAtRoomCorner(x, y)
}

func (g *generator) carveH(x1, x2, y int) {
	lo, hi := minInt(x1, x2), maxInt(x1, x2)
	for x := lo; x <= hi; x++ {
		if x < 0 || x >= g.cfg.Width || y < 0 || y >= g.cfg.Height {
			continue
		}
		if g.carveHugsAllowed(x, y) && g.tiles[y][x] == tile.Void {
			g.tiles[y][x] = tile.Floor
			g.corridorTiles[[2]int{x, y}] = true
		}
	}
}

func (g *generator) carveV(y1, y2, x int) {
	lo, hi := minInt(y1, y2), maxInt(y1, y2)
	for y := lo; y <= hi; y++ {
		if x < 0 || x >= g.cfg.Width || y < 0 || y >= g.cfg.Height {
			continue
		}
		if g.carveHugsAllowed(x, y) && g.tiles[y][x] == tile.Void {
			g.tiles[y][x] = tile.Floor
			g.corridorTiles[[2]int{x, y}] = true
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// addWalls turns every VOID tile 8-adjacent to a FLOOR tile into a WALL.
func (g *generator) addWalls() {
	type pos struct{ x, y int }
	walls := make(map[pos]bool)

	for y := 0; y < g.cfg.Height; y++ {
		for x := 0; x < g.cfg.Width; x++ {
			if g.tiles[y][x] != tile.Floor {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= g.cfg.Width || ny < 0 || ny >= g.cfg.Height {
						continue
					}
					if g.tiles[ny][nx] == tile.Void {
						walls[pos{nx, ny}] = true
					}
				}
			}
		}
	}

	for p := range walls {
		g.tiles[p.y][p.x] = tile.Wall
	}
}

func (g *generator) isCorridorFloor(x, y int) bool {
	return g.corridorTiles[[2]int{x, y}]
}

// placeDoors scans each room's four wall rings for a wall tile with room
// floor on one side and corridor floor just beyond the other.
func (g *generator) placeDoors() {
	for _, r := range g.rooms {
		g.placeRoomDoors(r)
	}
}

func (g *generator) placeRoomDoors(r *tile.Room) {
	if wallY := r.Y - 1; wallY >= 0 {
		for x := r.X; x < r.X+r.Width; x++ {
			if g.tiles[wallY][x] == tile.Wall &&
				g.tiles[wallY+1][x] == tile.Floor &&
				wallY > 0 && g.isCorridorFloor(x, wallY-1) {
				g.tiles[wallY][x] = tile.DoorClosed
			}
		}
	}
	if wallY := r.Y + r.Height; wallY < g.cfg.Height {
		for x := r.X; x < r.X+r.Width; x++ {
			if g.tiles[wallY][x] == tile.Wall &&
				g.tiles[wallY-1][x] == tile.Floor &&
				wallY < g.cfg.Height-1 && g.isCorridorFloor(x, wallY+1) {
				g.tiles[wallY][x] = tile.DoorClosed
			}
		}
	}
	if wallX := r.X - 1; wallX >= 0 {
		for y := r.Y; y < r.Y+r.Height; y++ {
			if g.tiles[y][wallX] == tile.Wall &&
				g.tiles[y][wallX+1] == tile.Floor &&
				wallX > 0 && g.isCorridorFloor(wallX-1, y) {
				g.tiles[y][wallX] = tile.DoorClosed
			}
		}
	}
	if wallX := r.X + r.Width; wallX < g.cfg.Width {
		for y := r.Y; y < r.Y+r.Height; y++ {
			if g.tiles[y][wallX] == tile.Wall &&
				g.tiles[y][wallX-1] == tile.Floor &&
				wallX < g.cfg.Width-1 && g.isCorridorFloor(wallX+1, y) {
				g.tiles[y][wallX] = tile.DoorClosed
			}
		}
	}
}

var walkableForFlood = map[tile.Kind]bool{
	tile.Floor:      true,
	tile.DoorClosed: true,
	tile.DoorOpen:   true,
	tile.Chest:      true,
	tile.Torch:      true,
}

func (g *generator) floodFill(startX, startY int) map[[2]int]bool {
	reachable := make(map[[2]int]bool)
	stack := [][2]int{{startX, startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reachable[p] {
			continue
		}
		x, y := p[0], p[1]
		if x < 0 || x >= g.cfg.Width || y < 0 || y >= g.cfg.Height {
			continue
		}
		if !walkableForFlood[g.tiles[y][x]] {
			continue
		}
		reachable[p] = true
		stack = append(stack, [2]int{x + 1, y}, [2]int{x - 1, y}, [2]int{x, y + 1}, [2]int{x, y - 1})
	}
	return reachable
}

// ensureAllRoomsConnected flood-fills from room[0]'s center and force-carves
// a direct corridor to the nearest reachable room for any room left out.
func (g *generator) ensureAllRoomsConnected() {
	if len(g.rooms) < 2 {
		return
	}

	startX, startY := g.rooms[0].CenterTile()
	reachable := g.floodFill(startX, startY)

	for _, r := range g.rooms {
		cx, cy := r.CenterTile()
		if reachable[[2]int{cx, cy}] {
			continue
		}

		bestDist := math.Inf(1)
		var best *tile.Room
		for _, other := range g.rooms {
			if other.ID == r.ID {
				continue
			}
			ox, oy := other.CenterTile()
			if !reachable[[2]int{ox, oy}] {
				continue
			}
			d := roomDistance(other, r)
			if d < bestDist {
				bestDist = d
				best = other
			}
		}

		if best == nil {
			continue
		}

		g.forceCorridor(best, r)
		g.addWalls()
		g.placeRoomDoors(r)
		reachable = g.floodFill(startX, startY)
	}
}

// forceCorridor carves a straight L-corridor ignoring the hug-prevention
// rules used during normal MST connection, guaranteeing a path exists.
func (g *generator) forceCorridor(a, b *tile.Room) {
	x1, y1 := a.CenterTile()
	x2, y2 := b.CenterTile()

	for x := minInt(x1, x2); x <= maxInt(x1, x2); x++ {
		if g.tiles[y1][x] == tile.Void {
			g.tiles[y1][x] = tile.Floor
			g.corridorTiles[[2]int{x, y1}] = true
		}
	}
	for y := minInt(y1, y2); y <= maxInt(y1, y2); y++ {
		if g.tiles[y][x2] == tile.Void {
			g.tiles[y][x2] = tile.Floor
			g.corridorTiles[[2]int{x2, y}] = true
		}
	}
}

func (g *generator) placeChests() {
	n := len(g.rooms) / g.cfg.ChestRoomDivisor
	if n < 1 {
		n = 1
	}
	if n > len(g.rooms) {
		n = len(g.rooms)
	}

	perm := g.rng.Perm(len(g.rooms))
	for i := 0; i < n; i++ {
		r := g.rooms[perm[i]]
		interior := g.interiorFloorTiles(r)
		if len(interior) == 0 {
			continue
		}
		p := interior[g.rng.Intn(len(interior))]
		g.tiles[p[1]][p[0]] = tile.Chest
	}
}

func (g *generator) interiorFloorTiles(r *tile.Room) [][2]int {
	var out [][2]int
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			if g.tiles[y][x] == tile.Floor {
				out = append(out, [2]int{x, y})
			}
		}
	}
	return out
}

func (g *generator) placeTorches() {
	for _, r := range g.rooms {
		walls := g.roomWallTiles(r)
		if len(walls) == 0 {
			continue
		}
		p := walls[g.rng.Intn(len(walls))]
		g.tiles[p[1]][p[0]] = tile.Torch
	}
}

func (g *generator) roomWallTiles(r *tile.Room) [][2]int {
	var out [][2]int
	add := func(x, y int) {
		if x < 0 || x >= g.cfg.Width || y < 0 || y >= g.cfg.Height {
			return
		}
		if g.tiles[y][x] == tile.Wall {
			out = append(out, [2]int{x, y})
		}
	}
	for x := r.X - 1; x <= r.X+r.Width; x++ {
		add(x, r.Y-1)
		add(x, r.Y+r.Height)
	}
	for y := r.Y - 1; y <= r.Y+r.Height; y++ {
		add(r.X-1, y)
		add(r.X+r.Width, y)
	}
	return out
}
