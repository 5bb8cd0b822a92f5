package geom

import "fmt"

// GridSize is the edge length of a site. Positions are valid in [0, GridSize).
const GridSize = 50

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Coord is an offset relative to a layout center, before rotation.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Range is the Chebyshev distance between two positions.
func Range(a, b Pos) int {
	dx := AbsInt(a.X - b.X)
	dy := AbsInt(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func InRange(a, b Pos, r int) bool { return Range(a, b) <= r }

func IsNear(a, b Pos) bool { return Range(a, b) <= 1 }

func InBounds(p Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < GridSize && p.Y < GridSize
}

// NearBoundary reports whether p lies within margin tiles of the site edge.
func NearBoundary(p Pos, margin int) bool {
	return p.X <= margin || p.Y <= margin || p.X >= GridSize-1-margin || p.Y >= GridSize-1-margin
}

// Serialize packs a position into a single int (y*GridSize+x).
func Serialize(p Pos) int { return p.Y*GridSize + p.X }

func Deserialize(n int) Pos { return Pos{X: n % GridSize, Y: n / GridSize} }

// Ring returns the positions at exactly Chebyshev range r from c, ordered by dx then dy.
// Out-of-bounds positions are omitted.
func Ring(c Pos, r int) []Pos {
	if r < 0 {
		return nil
	}
	if r == 0 {
		if InBounds(c) {
			return []Pos{c}
		}
		return nil
	}
	out := make([]Pos, 0, 8*r)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if AbsInt(dx) != r && AbsInt(dy) != r {
				continue
			}
			p := Pos{X: c.X + dx, Y: c.Y + dy}
			if !InBounds(p) {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// Closest returns the index of the position closest to from, or -1 for an empty list.
// Ties keep the earliest entry.
func Closest(from Pos, ps []Pos) int {
	best := -1
	bestRange := 0
	for i, p := range ps {
		r := Range(from, p)
		if best < 0 || r < bestRange {
			best = i
			bestRange = r
		}
	}
	return best
}
