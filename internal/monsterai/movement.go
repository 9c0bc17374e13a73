package monsterai

import (
	"hash/fnv"

	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/pathfind"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// RoomBounds is a room's rectangle, used to keep simple patrol/flee
// movement inside the room the monster currently occupies.
type RoomBounds struct {
	X, Y, Width, Height int
}

// Environment is the terrain/occupancy context a movement routine needs:
// the map tiles, who else is standing where, and (for patrol waypoints and
// corridor detection) the full room list.
type Environment struct {
	RoomBounds RoomBounds
	Tiles      [][]tile.Kind
	Occupied   map[[2]int]bool
	Rooms      []*tile.Room
	Width      int
	Height     int
}

func (e *Environment) grid() *pathfind.Grid {
	occ := make(map[pathfind.Point]bool, len(e.Occupied))
	for p, v := range e.Occupied {
		if v {
			occ[pathfind.Point{X: p[0], Y: p[1]}] = true
		}
	}
	return &pathfind.Grid{Tiles: e.Tiles, Occupied: occ}
}

func (e *Environment) canMoveTo(x, y int) bool {
	if x < 0 || x >= e.Width || y < 0 || y >= e.Height {
		return false
	}
	if e.Tiles[y][x] != tile.Floor {
		return false
	}
	return !e.Occupied[[2]int{x, y}]
}

// moveHash reduces a monster ID to a small non-negative offset, mirroring
// the reference implementation's use of a string hash to stagger monster
// movement ticks without needing any extra per-monster state.
func moveHash(monsterID string) int {
	h := fnv.New32a()
	h.Write([]byte(monsterID))
	return int(h.Sum32())
}

func (s *Service) moveMonsterTo(m *entity.Monster, env *Environment, x, y, tick int) {
	delete(env.Occupied, [2]int{m.X, m.Y})
	m.X, m.Y = x, y
	env.Occupied[[2]int{x, y}] = true
	m.LastMoveTick = tick
}

// updatePatrol moves the monster one step in a random cardinal direction
// within its room bounds, rate-limited to every 2-4 ticks.
func (s *Service) updatePatrol(m *entity.Monster, env *Environment, currentTick int) bool {
	interval := 2 + moveHash(m.ID)%3
	if currentTick-m.LastMoveTick < interval {
		return false
	}

	rb := env.RoomBounds
	dirs := [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	s.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

	for _, d := range dirs {
		nx, ny := m.X+d[0], m.Y+d[1]
		if !(rb.X <= nx && nx < rb.X+rb.Width && rb.Y <= ny && ny < rb.Y+rb.Height) {
			continue
		}
		if !env.canMoveTo(nx, ny) {
			continue
		}
		s.moveMonsterTo(m, env, nx, ny, currentTick)
		return true
	}
	return false
}

// attemptFlee is a panicked retreat: a single random step within room
// bounds, not biased away from anything in particular.
func (s *Service) attemptFlee(m *entity.Monster, env *Environment, currentTick int) bool {
	rb := env.RoomBounds
	dirs := [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	s.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

	for _, d := range dirs {
		nx, ny := m.X+d[0], m.Y+d[1]
		if !(rb.X <= nx && nx < rb.X+rb.Width && rb.Y <= ny && ny < rb.Y+rb.Height) {
			continue
		}
		if !env.canMoveTo(nx, ny) {
			continue
		}
		s.moveMonsterTo(m, env, nx, ny, currentTick)
		return true
	}
	return false
}

// moveTowardThreat chases world.ThreatX/Y one A* step at a time, rate
// limited to every 2-3 ticks, and does nothing once already adjacent.
func (s *Service) moveTowardThreat(m *entity.Monster, env *Environment, currentTick int, world WorldState) bool {
	interval := 2 + moveHash(m.ID)%2
	if currentTick-m.LastMoveTick < interval {
		return false
	}
	if !world.HasThreatPosition {
		return false
	}

	dist := abs(m.X-world.ThreatX) + abs(m.Y-world.ThreatY)
	if dist <= 1 {
		return false
	}

	g := env.grid()
	// The threat stands on its own tile; free it in this grid copy so A*
	// can reach it as the goal.
	delete(g.Occupied, pathfind.Point{X: world.ThreatX, Y: world.ThreatY})
	path := g.FindPath(pathfind.Point{X: m.X, Y: m.Y}, pathfind.Point{X: world.ThreatX, Y: world.ThreatY}, 200)
	if len(path) == 0 {
		return false
	}

	next := path[0]
	if env.Occupied[[2]int{next.X, next.Y}] {
		return false
	}
	s.moveMonsterTo(m, env, next.X, next.Y, currentTick)
	return true
}

// moveAwayFromThreat is a calculated retreat: find the best position within
// a small radius maximizing distance from the threat, then path toward it
// one step at a time. Falls back to a single directional step opposite the
// threat if no path exists.
func (s *Service) moveAwayFromThreat(m *entity.Monster, env *Environment, currentTick int, world WorldState) bool {
	interval := 2 + moveHash(m.ID)%2
	if currentTick-m.LastMoveTick < interval {
		return false
	}
	if !world.HasThreatPosition {
		return false
	}

	g := env.grid()
	start := pathfind.Point{X: m.X, Y: m.Y}
	threat := pathfind.Point{X: world.ThreatX, Y: world.ThreatY}
	fleeTo := g.FindFleePosition(start, threat, 4)

	if fleeTo == start {
		dir := pathfind.DirectionFromDelta(world.ThreatX-m.X, world.ThreatY-m.Y).Opposite()
		dx, dy := dir.Delta()
		nx, ny := m.X+dx, m.Y+dy
		if env.canMoveTo(nx, ny) {
			s.moveMonsterTo(m, env, nx, ny, currentTick)
			return true
		}
		return false
	}

	path := g.FindPath(start, fleeTo, 100)
	if len(path) == 0 {
		return false
	}
	next := path[0]
	if env.Occupied[[2]int{next.X, next.Y}] {
		return false
	}
	s.moveMonsterTo(m, env, next.X, next.Y, currentTick)
	return true
}

// patrolWaypoint walks the monster toward a cached patrol destination,
// generating a fresh one when reached or unreachable. Rate limited to
// every 3-5 ticks, the slowest of the movement actions.
func (s *Service) patrolWaypoint(m *entity.Monster, env *Environment, currentTick int) bool {
	interval := 3 + moveHash(m.ID)%3
	if currentTick-m.LastMoveTick < interval {
		return false
	}

	if !m.HasPatrolTarget || (m.X == m.PatrolTargetX && m.Y == m.PatrolTargetY) {
		wx, wy, ok := s.generatePatrolWaypoint(m, env)
		if !ok {
			m.ClearPatrolTarget()
			return false
		}
		m.SetPatrolTarget(wx, wy)
	}

	g := env.grid()
	path := g.FindPath(pathfind.Point{X: m.X, Y: m.Y}, pathfind.Point{X: m.PatrolTargetX, Y: m.PatrolTargetY}, 150)
	if len(path) == 0 {
		m.ClearPatrolTarget()
		return false
	}

	next := path[0]
	if env.Occupied[[2]int{next.X, next.Y}] {
		return false
	}
	s.moveMonsterTo(m, env, next.X, next.Y, currentTick)
	return true
}

func (s *Service) generatePatrolWaypoint(m *entity.Monster, env *Environment) (int, int, bool) {
	var currentRoom *tile.Room
	for _, r := range env.Rooms {
		if r.Contains(m.X, m.Y) {
			currentRoom = r
			break
		}
	}

	if currentRoom != nil && s.rng.Float64() < 0.4 {
		if cx, cy, ok := findNearestCorridor(m.X, m.Y, env.Tiles, env.Rooms, env.Width, env.Height, 8); ok {
			return cx, cy, true
		}
	}

	if isInCorridor(m.X, m.Y, env.Tiles, env.Rooms) {
		for _, r := range env.Rooms {
			cx, cy := r.CenterTile()
			dist := abs(cx-m.X) + abs(cy-m.Y)
			if dist < 15 && s.rng.Float64() < 0.6 {
				return cx, cy, true
			}
		}
	}

	const searchRange = 6
	var candidates [][2]int
	for dy := -searchRange; dy <= searchRange; dy++ {
		for dx := -searchRange; dx <= searchRange; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := m.X+dx, m.Y+dy
			if nx < 0 || nx >= env.Width || ny < 0 || ny >= env.Height {
				continue
			}
			if env.Tiles[ny][nx] == tile.Floor {
				candidates = append(candidates, [2]int{nx, ny})
			}
		}
	}
	if len(candidates) == 0 {
		return 0, 0, false
	}
	p := candidates[s.rng.Intn(len(candidates))]
	return p[0], p[1], true
}

// isInCorridor reports whether (x, y) is a floor tile that does not belong
// to any room: a corridor tile by elimination.
func isInCorridor(x, y int, tiles [][]tile.Kind, rooms []*tile.Room) bool {
	if y < 0 || y >= len(tiles) || x < 0 || x >= len(tiles[0]) {
		return false
	}
	if tiles[y][x] != tile.Floor {
		return false
	}
	for _, r := range rooms {
		if r.Contains(x, y) {
			return false
		}
	}
	return true
}

// findNearestCorridor searches outward in expanding rings for the closest
// corridor tile within maxSearch, returning false if none is found.
func findNearestCorridor(x, y int, tiles [][]tile.Kind, rooms []*tile.Room, width, height, maxSearch int) (int, int, bool) {
	for radius := 1; radius <= maxSearch; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				if isInCorridor(nx, ny, tiles, rooms) {
					return nx, ny, true
				}
			}
		}
	}
	return 0, 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
