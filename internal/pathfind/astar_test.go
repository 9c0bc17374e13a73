package pathfind

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

func gridFromStrings(rows []string) *Grid {
	tiles := make([][]tile.Kind, len(rows))
	for y, row := range rows {
		tiles[y] = make([]tile.Kind, len(row))
		for x, c := range row {
			switch c {
			case '#':
				tiles[y][x] = tile.Wall
			default:
				tiles[y][x] = tile.Floor
			}
		}
	}
	return &Grid{Tiles: tiles, Occupied: map[Point]bool{}}
}

func TestFindPathStraightLine(t *testing.T) {
	g := gridFromStrings([]string{
		".....",
		".....",
		".....",
	})
	path := g.FindPath(Point{0, 0}, Point{4, 0}, 0)
	if path == nil {
		t.Fatal("expected a path")
	}
	if path[len(path)-1] != (Point{4, 0}) {
		t.Fatalf("path does not end at goal: %v", path)
	}
}

func TestFindPathNoCornerCutting(t *testing.T) {
	// A diagonal move from (0,0) to (1,1) is blocked because both
	// cardinal neighbors are walls.
	g := gridFromStrings([]string{
		".#",
		"#.",
	})
	path := g.FindPath(Point{0, 0}, Point{1, 1}, 0)
	if path != nil {
		t.Fatalf("expected no path (corner cut through two walls), got %v", path)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	g := gridFromStrings([]string{
		".#.",
		".#.",
		".#.",
	})
	path := g.FindPath(Point{0, 0}, Point{2, 0}, 0)
	if path != nil {
		t.Fatalf("expected no path across a solid wall, got %v", path)
	}
}

func TestDirectionFromDeltaAndOpposite(t *testing.T) {
	cases := []struct {
		dx, dy int
		want   Direction
	}{
		{0, -1, North}, {1, -1, Northeast}, {1, 0, East}, {1, 1, Southeast},
		{0, 1, South}, {-1, 1, Southwest}, {-1, 0, West}, {-1, -1, Northwest},
		{0, 0, None},
	}
	for _, c := range cases {
		got := DirectionFromDelta(c.dx, c.dy)
		if got != c.want {
			t.Errorf("DirectionFromDelta(%d,%d) = %v, want %v", c.dx, c.dy, got, c.want)
		}
	}

	if North.Opposite() != South {
		t.Errorf("North.Opposite() = %v, want South", North.Opposite())
	}
	if None.Opposite() != None {
		t.Errorf("None.Opposite() should stay None")
	}
}

func TestFindFleePositionMaximizesDistance(t *testing.T) {
	rows := make([]string, 11)
	for i := range rows {
		row := make([]byte, 11)
		for j := range row {
			row[j] = '.'
		}
		rows[i] = string(row)
	}
	g := gridFromStrings(rows)

	start := Point{5, 5}
	threat := Point{5, 4} // threat is just north of start
	flee := g.FindFleePosition(start, threat, 4)

	if manhattan(flee, threat) <= manhattan(start, threat) {
		t.Errorf("flee position %v is not farther from threat %v than start %v", flee, threat, start)
	}
}
