package simsite

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// Seed picks the wall-free anchor closest to the middle of the grid that fits the
// static template at some rotation.
type Seed struct {
	// Clearance is the Chebyshev radius that must be free of terrain walls.
	Clearance int
}

func (s Seed) Analyze(site model.Site, static map[model.Kind][]geom.Coord) (geom.Pos, int, bool) {
	margin := s.Clearance
	if margin <= 0 {
		margin = 3
	}
	mid := geom.Pos{X: geom.GridSize / 2, Y: geom.GridSize / 2}
	for r := 0; r < geom.GridSize/2; r++ {
		for _, c := range geom.Ring(mid, r) {
			if !s.fits(site, c, margin) {
				continue
			}
			for rot := 0; rot < 4; rot++ {
				if fitsTemplate(site, c, rot, static) {
					return c, rot, true
				}
			}
		}
	}
	return geom.Pos{}, 0, false
}

func (s Seed) fits(site model.Site, c geom.Pos, margin int) bool {
	if geom.NearBoundary(c, margin+1) {
		return false
	}
	for dx := -margin; dx <= margin; dx++ {
		for dy := -margin; dy <= margin; dy++ {
			if site.Position(geom.Pos{X: c.X + dx, Y: c.Y + dy}).Wall {
				return false
			}
		}
	}
	return true
}

func fitsTemplate(site model.Site, center geom.Pos, rot int, static map[model.Kind][]geom.Coord) bool {
	for _, coords := range static {
		for _, c := range coords {
			p := geom.CoordToPos(c, center, rot)
			if !geom.InBounds(p) || site.Position(p).Wall {
				return false
			}
		}
	}
	return true
}
