package layout

import (
	"reflect"
	"testing"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/colony/simsite"
)

type countingSeed struct {
	inner model.SeedAnalyzer
	calls int
}

func (s *countingSeed) Analyze(site model.Site, static map[model.Kind][]geom.Coord) (geom.Pos, int, bool) {
	s.calls++
	return s.inner.Analyze(site, static)
}

func newPlanner(w *simsite.World, mem *model.LayoutMemory, cfg Config, seed model.SeedAnalyzer) *Planner {
	return New(w, w, seed, mem, cfg, nil)
}

func TestPlanner_BlocksUntilSeeded(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), nil)
	if p.Ensure() || p.Ready() {
		t.Fatalf("planner without seed analyzer must stay uninitialized")
	}
	if got := p.CoordinatesFor(model.KindStorage); len(got) != 0 {
		t.Fatalf("coordinates before ready: %v", got)
	}
	if got := p.AllowedCount(model.KindSpawn); got != 0 {
		t.Fatalf("allowed before ready = %d", got)
	}
}

func TestPlanner_SeedConsultedOnce(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	seed := &countingSeed{inner: simsite.Seed{}}
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), seed)
	for i := 0; i < 3; i++ {
		if !p.Ensure() {
			t.Fatalf("ensure failed")
		}
	}
	if seed.calls != 1 {
		t.Fatalf("seed calls=%d want 1", seed.calls)
	}
	if !mem.HasLayout || mem.Center != (geom.Pos{X: 25, Y: 25}) {
		t.Fatalf("center=%v has=%v", mem.Center, mem.HasLayout)
	}
	if len(mem.LayoutMap[model.KindExtension]) < 60 {
		t.Fatalf("extensions=%d want >= 60", len(mem.LayoutMap[model.KindExtension]))
	}
	if len(mem.LayoutMap[model.KindRampart]) != 72 {
		t.Fatalf("ramparts=%d want 72", len(mem.LayoutMap[model.KindRampart]))
	}
}

func TestPlanner_GenerationIdempotent(t *testing.T) {
	build := func() model.LayoutMemory {
		w := simsite.New(simsite.Config{Name: "w1", Level: 8})
		for y := 10; y < 40; y++ {
			w.AddWall(geom.Pos{X: 30, Y: y})
		}
		mem := model.LayoutMemory{}
		p := newPlanner(w, &mem, DefaultConfig(), simsite.Seed{})
		if !p.Ensure() {
			t.Fatalf("ensure failed")
		}
		return mem
	}
	a, b := build(), build()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("layouts differ:\n%+v\n%+v", a.Center, b.Center)
	}
	for _, c := range a.LayoutMap[model.KindRoad] {
		if p := geom.CoordToPos(c, a.Center, a.Rotation); p.X == 30 {
			t.Fatalf("road planned on wall at %s", p)
		}
	}
}

func TestPlanner_StaticAndFlexDisjoint(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), simsite.Seed{})
	p.Ensure()
	seen := map[geom.Pos]model.Kind{}
	for _, k := range model.ConstructionOrder {
		if k == model.KindRampart {
			continue
		}
		for _, pos := range p.CoordinatesFor(k) {
			if prev, ok := seen[pos]; ok {
				t.Fatalf("%s and %s share %s", prev, k, pos)
			}
			seen[pos] = k
		}
	}
}

func TestPlanner_RotationMovesStatic(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), nil)
	p.Move(geom.Pos{X: 20, Y: 20}, 90)
	if !p.Ensure() {
		t.Fatalf("ensure after move failed")
	}
	if mem.Rotation != 1 {
		t.Fatalf("rotation=%d want 1", mem.Rotation)
	}
	got := p.CoordinatesFor(model.KindStorage)
	if len(got) != 1 || got[0] != (geom.Pos{X: 20, Y: 21}) {
		t.Fatalf("storage=%v want (20,21)", got)
	}
}

func TestAllowedCount_MonotonicInLevel(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 1})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), simsite.Seed{})
	p.Ensure()
	for _, k := range model.ConstructionOrder {
		prev := -1
		for level := 0; level <= MaxLevel; level++ {
			got := p.allowed(k, level, false)
			if got < prev {
				t.Fatalf("%s: allowed(%d)=%d < allowed(%d)=%d", k, level, got, level-1, prev)
			}
			if coords := len(p.CoordinatesFor(k)); got > coords {
				t.Fatalf("%s: allowed %d exceeds %d coordinates", k, got, coords)
			}
			prev = got
		}
	}
}

func TestAllowedCount_Overrides(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), simsite.Seed{})
	p.Ensure()

	if got := p.AllowedCount(model.KindExtension); got != 60 {
		t.Fatalf("extensions at 8 = %d want 60", got)
	}
	if got := p.AllowedCount(model.KindTower); got != 6 {
		t.Fatalf("towers at 8 = %d want 6", got)
	}

	w.AddHostile(geom.Pos{X: 2, Y: 2}, 1, 0, 100)
	if got := p.AllowedCount(model.KindExtension); got != 0 {
		t.Fatalf("extensions under hostiles = %d want 0", got)
	}
	w.ClearHostiles()
	w.AddThreat(geom.Pos{X: 25, Y: 25}, 1000)
	if got := p.AllowedCount(model.KindExtension); got != 0 {
		t.Fatalf("extensions under threat = %d want 0", got)
	}

	w.SetLevel(4)
	for _, k := range []model.Kind{model.KindRampart, model.KindWall, model.KindRoad} {
		if got := p.AllowedCount(k); got != 0 {
			t.Fatalf("%s below min level = %d want 0", k, got)
		}
	}

	cfg := DefaultConfig()
	cfg.EmergencySites = []string{"w1"}
	e := New(w, nil, simsite.Seed{}, mem, cfg, nil)
	w.SetLevel(8)
	for _, k := range []model.Kind{model.KindExtension, model.KindRoad, model.KindObserver} {
		if got := e.AllowedCount(k); got != 0 {
			t.Fatalf("%s at emergency site = %d want 0", k, got)
		}
	}
	if got := e.AllowedCount(model.KindSpawn); got != 3 {
		t.Fatalf("spawns at emergency site = %d want 3", got)
	}
}

func TestMarkers(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "w1", Level: 8})
	mem := &model.LayoutMemory{}
	p := newPlanner(w, mem, DefaultConfig(), simsite.Seed{})
	p.Ensure()
	if got := p.Markers(model.KindLab); len(got) != 10 {
		t.Fatalf("lab markers=%d want 10", len(got))
	}
	all := p.Markers("")
	if len(all) <= 10 || all[0].Kind != model.KindSpawn {
		t.Fatalf("all markers=%d first=%v", len(all), all)
	}
}
