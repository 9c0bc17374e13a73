package tile

import "testing"

func TestWalkable(t *testing.T) {
	cases := []struct {
		k    Kind
		want bool
	}{
		{Floor, true}, {DoorOpen, true},
		{Wall, false}, {DoorClosed, false}, {Void, false}, {Chest, false},
	}
	for _, c := range cases {
		if got := c.k.Walkable(); got != c.want {
			t.Errorf("%s.Walkable() = %v, want %v", c.k, got, c.want)
		}
	}
}

func TestIsDoor(t *testing.T) {
	if !DoorClosed.IsDoor() || !DoorOpen.IsDoor() {
		t.Error("both door states should report IsDoor")
	}
	if Floor.IsDoor() || Wall.IsDoor() {
		t.Error("non-door kinds should not report IsDoor")
	}
}

func TestBlocking(t *testing.T) {
	cases := []struct {
		k    Kind
		want bool
	}{
		{Wall, true}, {DoorClosed, true}, {Void, true},
		{Floor, false}, {DoorOpen, false},
	}
	for _, c := range cases {
		if got := c.k.Blocking(); got != c.want {
			t.Errorf("%s.Blocking() = %v, want %v", c.k, got, c.want)
		}
	}
}

func TestRoomContainsHalfOpenRectangle(t *testing.T) {
	r := &Room{X: 2, Y: 3, Width: 4, Height: 2}
	cases := []struct {
		x, y int
		want bool
	}{
		{2, 3, true}, {5, 4, true}, {6, 4, false}, {2, 5, false}, {1, 3, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.x, c.y); got != c.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestCategoryOfKnownAndUnknownTypes(t *testing.T) {
	if CategoryOf("armory") != CategoryCombat {
		t.Error("armory should be a combat room")
	}
	if CategoryOf("crypt") != CategoryDangerous {
		t.Error("crypt should be a dangerous room")
	}
	if CategoryOf("unknown_room_type") != CategorySafe {
		t.Error("an unrecognized room type should default to safe")
	}
}
