// Package layout holds the rotation relative coordinate grid of a site: which kind
// of structure goes where around the chosen center, and how many of each the
// current level allows.
package layout

import (
	"io"
	"log"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

type Config struct {
	// Radius bounds the flex area (extensions and roads) around the center.
	Radius int
	// RampartOffset places the rampart ring at Radius+RampartOffset.
	RampartOffset int
	// MinDefenseLevel is the level below which ramparts, walls and roads are not placed.
	MinDefenseLevel int
	// EmergencySites never get extensions, roads or observers.
	EmergencySites []string
	// BoundaryMargin keeps flex positions off the site edge.
	BoundaryMargin int
}

func DefaultConfig() Config {
	return Config{Radius: 7, RampartOffset: 2, MinDefenseLevel: 5, BoundaryMargin: 1}
}

// Planner is uninitialized until a center and rotation exist in memory, and fixed
// afterwards. All downstream placement waits for Ready.
type Planner struct {
	cfg     Config
	site    model.Site
	threats model.ThreatAssessor
	seed    model.SeedAnalyzer
	mem     *model.LayoutMemory
	logger  *log.Logger
}

func New(site model.Site, threats model.ThreatAssessor, seed model.SeedAnalyzer, mem *model.LayoutMemory, cfg Config, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultConfig().Radius
	}
	return &Planner{cfg: cfg, site: site, threats: threats, seed: seed, mem: mem, logger: logger}
}

func (p *Planner) Ready() bool { return p.mem.HasLayout && p.mem.LayoutMap != nil }

func (p *Planner) Center() (geom.Pos, int) { return p.mem.Center, p.mem.Rotation }

func (p *Planner) Radius() int {
	if p.mem.Radius > 0 {
		return p.mem.Radius
	}
	return p.cfg.Radius
}

// Ensure moves the planner to the fixed state if it can. The seed analyzer is
// consulted only while no center is stored; the layout map is generated only when
// missing.
func (p *Planner) Ensure() bool {
	if !p.mem.HasLayout {
		if p.seed == nil {
			return false
		}
		center, rot, ok := p.seed.Analyze(p.site, Static)
		if !ok {
			p.logger.Printf("LAYOUT: no viable center in %s", p.site.Name())
			return false
		}
		p.mem.HasLayout = true
		p.mem.Center = center
		p.mem.Rotation = geom.NormalizeRotation(rot)
		p.mem.LayoutMap = nil
		p.logger.Printf("LAYOUT: center %s rotation %d chosen for %s", center, p.mem.Rotation, p.site.Name())
	}
	if p.mem.Radius <= 0 {
		p.mem.Radius = p.cfg.Radius
	}
	if p.mem.LayoutMap == nil {
		p.mem.LayoutMap = p.generate()
	}
	return true
}

// generate walks the flex area ring by ring from the center: tiles with an even
// coordinate sum become roads, odd ones extensions. Ramparts ring the area.
func (p *Planner) generate() map[model.Kind][]geom.Coord {
	taken := staticOffsets()
	out := map[model.Kind][]geom.Coord{}
	origin := geom.Pos{}
	usable := func(c geom.Coord) bool {
		pos := geom.CoordToPos(c, p.mem.Center, p.mem.Rotation)
		if !geom.InBounds(pos) || geom.NearBoundary(pos, p.cfg.BoundaryMargin) {
			return false
		}
		return !p.site.Position(pos).Wall
	}
	radius := p.Radius()
	for r := 0; r <= radius; r++ {
		for _, rp := range ringAround(origin, r) {
			c := geom.Coord{X: rp.X, Y: rp.Y}
			if taken[c] || !usable(c) {
				continue
			}
			if (c.X+c.Y)%2 == 0 {
				out[model.KindRoad] = append(out[model.KindRoad], c)
			} else {
				out[model.KindExtension] = append(out[model.KindExtension], c)
			}
		}
	}
	for _, rp := range ringAround(origin, radius+p.cfg.RampartOffset) {
		c := geom.Coord{X: rp.X, Y: rp.Y}
		if usable(c) {
			out[model.KindRampart] = append(out[model.KindRampart], c)
		}
	}
	return out
}

// ringAround is geom.Ring without the grid bounds clip, for layout frame offsets.
func ringAround(c geom.Pos, r int) []geom.Pos {
	if r == 0 {
		return []geom.Pos{c}
	}
	out := make([]geom.Pos, 0, 8*r)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if geom.AbsInt(dx) != r && geom.AbsInt(dy) != r {
				continue
			}
			out = append(out, geom.Pos{X: c.X + dx, Y: c.Y + dy})
		}
	}
	return out
}

// CoordinatesFor returns the ordered world positions for kind. It is empty until
// the planner is ready.
func (p *Planner) CoordinatesFor(kind model.Kind) []geom.Pos {
	if !p.Ready() {
		return nil
	}
	coords, ok := Static[kind]
	if !ok {
		coords = p.mem.LayoutMap[kind]
	}
	out := make([]geom.Pos, 0, len(coords))
	for _, c := range coords {
		pos := geom.CoordToPos(c, p.mem.Center, p.mem.Rotation)
		if geom.InBounds(pos) {
			out = append(out, pos)
		}
	}
	return out
}

func (p *Planner) emergency() bool {
	for _, name := range p.cfg.EmergencySites {
		if name == p.site.Name() {
			return true
		}
	}
	return false
}

// AllowedCount is the number of leading positions of CoordinatesFor(kind) that may
// hold a structure at the current level and threat state.
func (p *Planner) AllowedCount(kind model.Kind) int {
	hostiles := 0
	if p.threats != nil {
		hostiles = p.threats.HostileCount()
	}
	threatened := len(p.site.Threats()) > 0
	return p.allowed(kind, p.site.Level(), hostiles > 0 || threatened)
}

func (p *Planner) allowed(kind model.Kind, level int, danger bool) int {
	switch kind {
	case model.KindExtension:
		if danger {
			return 0
		}
	case model.KindRampart, model.KindWall, model.KindRoad:
		if level < p.cfg.MinDefenseLevel {
			return 0
		}
	}
	if p.emergency() {
		switch kind {
		case model.KindExtension, model.KindRoad, model.KindObserver:
			return 0
		}
	}
	n := TableCount(kind, level)
	if coords := len(p.CoordinatesFor(kind)); coords < n {
		n = coords
	}
	return n
}

// Move relocates the layout. The map is rebuilt on the next Ensure.
func (p *Planner) Move(center geom.Pos, rotation int) {
	p.mem.HasLayout = true
	p.mem.Center = center
	p.mem.Rotation = geom.NormalizeRotation(rotation)
	p.mem.LayoutMap = nil
	p.mem.CheckLayoutIndex = 0
	p.mem.RepairIndices = nil
	p.mem.NextCheck = nil
	p.logger.Printf("LAYOUT: moved %s to %s rotation %d", p.site.Name(), center, p.mem.Rotation)
}

type Marker struct {
	Kind model.Kind `json:"kind"`
	Pos  geom.Pos   `json:"pos"`
}

// Markers lists the planned positions for the overlay: one kind, or every kind when
// kind is empty.
func (p *Planner) Markers(kind model.Kind) []Marker {
	var out []Marker
	for _, k := range model.ConstructionOrder {
		if kind != "" && k != kind {
			continue
		}
		for _, pos := range p.CoordinatesFor(k) {
			out = append(out, Marker{Kind: k, Pos: pos})
		}
	}
	return out
}
