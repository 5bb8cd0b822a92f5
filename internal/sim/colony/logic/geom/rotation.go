package geom

// NormalizeRotation converts an operator-provided rotation value into a stable
// quarter-turn count in [0,3].
//
// It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) int {
	// Treat large multiples of 90 as degrees.
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXY rotates an (x,y) offset by rot*90 degrees clockwise (y grows downward).
// rot must be a normalized quarter-turn count in [0,3].
func RotateXY(x, y, rot int) (rx, ry int) {
	switch rot & 3 {
	case 0:
		return x, y
	case 1:
		return -y, x
	case 2:
		return -x, -y
	default: // 3
		return y, -x
	}
}

// CoordToPos places a layout coordinate around center with the given rotation.
func CoordToPos(c Coord, center Pos, rotation int) Pos {
	rx, ry := RotateXY(c.X, c.Y, NormalizeRotation(rotation))
	return Pos{X: center.X + rx, Y: center.Y + ry}
}

// PosToCoord is the inverse of CoordToPos.
func PosToCoord(p Pos, center Pos, rotation int) Coord {
	inv := (4 - NormalizeRotation(rotation)) & 3
	rx, ry := RotateXY(p.X-center.X, p.Y-center.Y, inv)
	return Coord{X: rx, Y: ry}
}
