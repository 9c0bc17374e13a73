// Package pathfind implements grid A* pathfinding for monster movement,
// along with a flee-position search used by the "move away from threat"
// AI action.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// Direction is one of the 8 compass directions, plus None for "no threat".
// Values match the state encoder's threat-direction bins.
type Direction int

const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
	None
)

var deltaToDirection = map[[2]int]Direction{
	{0, -1}: North, {1, -1}: Northeast, {1, 0}: East, {1, 1}: Southeast,
	{0, 1}: South, {-1, 1}: Southwest, {-1, 0}: West, {-1, -1}: Northwest,
}

var directionToDelta = [9][2]int{
	North: {0, -1}, Northeast: {1, -1}, East: {1, 0}, Southeast: {1, 1},
	South: {0, 1}, Southwest: {-1, 1}, West: {-1, 0}, Northwest: {-1, -1},
	None: {0, 0},
}

// DirectionFromDelta normalizes an arbitrary delta to one of the 8 compass
// directions (or None if both components are zero).
func DirectionFromDelta(dx, dy int) Direction {
	if dx == 0 && dy == 0 {
		return None
	}
	nx, ny := sign(dx), sign(dy)
	if d, ok := deltaToDirection[[2]int{nx, ny}]; ok {
		return d
	}
	return None
}

// Delta returns the unit (dx, dy) step for a direction.
func (d Direction) Delta() (int, int) {
	if d < 0 || int(d) >= len(directionToDelta) {
		return 0, 0
	}
	p := directionToDelta[d]
	return p[0], p[1]
}

// Opposite returns the reciprocal compass direction, used when a monster
// needs to flee away from a threat.
func (d Direction) Opposite() Direction {
	if d == None {
		return None
	}
	return Direction((int(d) + 4) % 8)
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

const defaultMaxIterations = 1000

// Point is a tile grid coordinate.
type Point struct{ X, Y int }

// Grid is the read-only surface the pathfinder needs: tile lookup plus the
// set of positions currently occupied by other entities.
type Grid struct {
	Tiles    [][]tile.Kind
	Occupied map[Point]bool
}

func (g *Grid) width() int {
	if len(g.Tiles) == 0 {
		return 0
	}
	return len(g.Tiles[0])
}

func (g *Grid) height() int { return len(g.Tiles) }

func (g *Grid) walkable(p Point, ignoreOccupied bool) bool {
	if p.X < 0 || p.X >= g.width() || p.Y < 0 || p.Y >= g.height() {
		return false
	}
	if !g.Tiles[p.Y][p.X].Walkable() {
		return false
	}
	if !ignoreOccupied && g.Occupied[p] {
		return false
	}
	return true
}

type node struct {
	p        Point
	g, h     float64
	parent   *node
	index    int
}

func (n *node) f() float64 { return n.g + n.h }

type openSet []*node

func (s openSet) Len() int            { return len(s) }
func (s openSet) Less(i, j int) bool  { return s[i].f() < s[j].f() }
func (s openSet) Swap(i, j int)       { s[i], s[j] = s[j], s[i]; s[i].index = i; s[j].index = j }
func (s *openSet) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() interface{} {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return item
}

func heuristic(a, b Point) float64 {
	return math.Abs(float64(a.X-b.X)) + math.Abs(float64(a.Y-b.Y))
}

var cardinals = [4]Point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
var diagonals = [4]Point{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

func (g *Grid) neighbors(p Point) []struct {
	p    Point
	cost float64
} {
	var out []struct {
		p    Point
		cost float64
	}
	for _, d := range cardinals {
		np := Point{p.X + d.X, p.Y + d.Y}
		if g.walkable(np, false) {
			out = append(out, struct {
				p    Point
				cost float64
			}{np, 1.0})
		}
	}
	for _, d := range diagonals {
		np := Point{p.X + d.X, p.Y + d.Y}
		if !g.walkable(np, false) {
			continue
		}
		// Both cardinal neighbors must be walkable: no cutting corners
		// through a pair of walls.
		if g.walkable(Point{p.X + d.X, p.Y}, false) && g.walkable(Point{p.X, p.Y + d.Y}, false) {
			out = append(out, struct {
				p    Point
				cost float64
			}{np, math.Sqrt2})
		}
	}
	return out
}

// FindPath runs A* from start to goal, returning the path excluding start,
// or nil if no path exists within maxIterations. maxIterations <= 0 uses
// the default of 1000.
func (g *Grid) FindPath(start, goal Point, maxIterations int) []Point {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if !g.walkable(start, true) || !g.walkable(goal, true) {
		return nil
	}

	startNode := &node{p: start, g: 0, h: heuristic(start, goal)}
	open := &openSet{startNode}
	heap.Init(open)

	bestG := map[Point]float64{start: 0}
	closed := map[Point]bool{}

	iterations := 0
	for open.Len() > 0 && iterations < maxIterations {
		iterations++
		current := heap.Pop(open).(*node)
		if closed[current.p] {
			continue
		}
		if current.p == goal {
			return reconstruct(current)
		}
		closed[current.p] = true

		for _, nb := range g.neighbors(current.p) {
			if closed[nb.p] {
				continue
			}
			tentativeG := current.g + nb.cost
			if best, ok := bestG[nb.p]; ok && tentativeG >= best {
				continue
			}
			bestG[nb.p] = tentativeG
			heap.Push(open, &node{p: nb.p, g: tentativeG, h: heuristic(nb.p, goal), parent: current})
		}
	}
	return nil
}

func reconstruct(n *node) []Point {
	var rev []Point
	for cur := n; cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.p)
	}
	out := make([]Point, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}

// FindFleePosition enumerates every walkable tile within radius of start
// and returns the one farthest (Manhattan distance) from threat. Returns
// start itself if nothing better is reachable.
func (g *Grid) FindFleePosition(start, threat Point, radius int) Point {
	best := start
	bestDist := manhattan(start, threat)

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := Point{start.X + dx, start.Y + dy}
			if abs(dx)+abs(dy) > radius {
				continue
			}
			if !g.walkable(p, false) {
				continue
			}
			d := manhattan(p, threat)
			if d > bestDist {
				bestDist = d
				best = p
			}
		}
	}
	return best
}

func manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
