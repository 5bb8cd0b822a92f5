package geom

import "testing"

func TestNormalizeRotation_AcceptsDegreesAndQuarterTurns(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 0},
		{in: -1, want: 3},
		{in: 90, want: 1},
		{in: 180, want: 2},
		{in: 270, want: 3},
		{in: -90, want: 3},
	}
	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.want {
			t.Fatalf("NormalizeRotation(%d)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestCoordToPos_RoundTrip(t *testing.T) {
	center := Pos{X: 25, Y: 25}
	for rot := 0; rot < 4; rot++ {
		c := Coord{X: 2, Y: -3}
		p := CoordToPos(c, center, rot)
		if back := PosToCoord(p, center, rot); back != c {
			t.Fatalf("rot=%d: round trip %v -> %v -> %v", rot, c, p, back)
		}
	}
	if got := CoordToPos(Coord{X: 1, Y: 0}, center, 1); got != (Pos{X: 25, Y: 26}) {
		t.Fatalf("quarter turn of (1,0) = %v", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, p := range []Pos{{0, 0}, {49, 0}, {0, 49}, {17, 33}} {
		if got := Deserialize(Serialize(p)); got != p {
			t.Fatalf("round trip %v -> %v", p, got)
		}
	}
	if Serialize(Pos{X: 1, Y: 1}) == Serialize(Pos{X: 0, Y: 2}) {
		t.Fatalf("serialize collision")
	}
}

func TestRing(t *testing.T) {
	c := Pos{X: 10, Y: 10}
	if got := Ring(c, 0); len(got) != 1 || got[0] != c {
		t.Fatalf("ring 0 = %v", got)
	}
	for r := 1; r <= 3; r++ {
		ring := Ring(c, r)
		if len(ring) != 8*r {
			t.Fatalf("ring %d has %d positions", r, len(ring))
		}
		for _, p := range ring {
			if Range(c, p) != r {
				t.Fatalf("ring %d contains %v at range %d", r, p, Range(c, p))
			}
		}
	}
	if got := Ring(Pos{X: 0, Y: 0}, 1); len(got) != 3 {
		t.Fatalf("corner ring should be clipped, got %v", got)
	}
}

func TestNearBoundary(t *testing.T) {
	if !NearBoundary(Pos{X: 1, Y: 20}, 1) {
		t.Fatalf("x=1 should be near the boundary")
	}
	if NearBoundary(Pos{X: 2, Y: 20}, 1) {
		t.Fatalf("x=2 should not be near the boundary with margin 1")
	}
	if !NearBoundary(Pos{X: 20, Y: 48}, 1) {
		t.Fatalf("y=48 should be near the boundary")
	}
}
