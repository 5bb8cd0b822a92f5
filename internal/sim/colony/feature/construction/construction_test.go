package construction

import (
	"testing"

	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/colony/simsite"
)

type fixture struct {
	w       *simsite.World
	mem     *model.LayoutMemory
	planner *layout.Planner
	s       *Scheduler
	fired   *claim.Registry
}

func newFixture(t *testing.T, level int) *fixture {
	t.Helper()
	w := simsite.New(simsite.Config{Name: "w1", Level: level})
	mem := &model.LayoutMemory{}
	p := layout.New(w, w, nil, mem, layout.DefaultConfig(), nil)
	p.Move(geom.Pos{X: 25, Y: 25}, 0)
	if !p.Ensure() {
		t.Fatalf("layout not ready")
	}
	fired := claim.NewRegistry()
	s := New(w, w, p, mem, fired, sched.FixedDice(0.5), DefaultConfig(), nil)
	return &fixture{w: w, mem: mem, planner: p, s: s, fired: fired}
}

func kindIndex(k model.Kind) int {
	for i, o := range model.ConstructionOrder {
		if o == k {
			return i
		}
	}
	return -1
}

func TestConcurrencyCap(t *testing.T) {
	cases := map[int]int{1: 1, 2: 40, 4: 40, 5: 50, 8: 80}
	for level, want := range cases {
		if got := ConcurrencyCap(level); got != want {
			t.Fatalf("cap(%d)=%d want %d", level, got, want)
		}
	}
}

func TestStep_RoundRobinWraps(t *testing.T) {
	f := newFixture(t, 8)
	n := len(model.ConstructionOrder)
	for i := 0; i < 2*n; i++ {
		res := f.s.Step(uint64(i))
		if want := model.ConstructionOrder[i%n]; res.Kind != want {
			t.Fatalf("step %d kind=%s want %s", i, res.Kind, want)
		}
	}
	if f.mem.CheckLayoutIndex != 0 {
		t.Fatalf("index=%d want 0", f.mem.CheckLayoutIndex)
	}
}

func TestStep_OnePlacementThenCooldown(t *testing.T) {
	f := newFixture(t, 8)
	f.mem.CheckLayoutIndex = kindIndex(model.KindTower)

	res := f.s.Step(10)
	if !res.Placed || res.Kind != model.KindTower {
		t.Fatalf("expected a tower placement, got %+v", res)
	}
	if got := len(f.w.WorkOrders()); got != 1 {
		t.Fatalf("work orders=%d want 1", got)
	}
	first := f.planner.CoordinatesFor(model.KindTower)[0]
	if res.Pos != first {
		t.Fatalf("placed at %s want %s", res.Pos, first)
	}

	// Remaining towers get one order per visit.
	for i := 0; i < 5; i++ {
		f.mem.CheckLayoutIndex = kindIndex(model.KindTower)
		if res := f.s.Step(11); !res.Placed {
			t.Fatalf("visit %d: expected placement, got %+v", i, res)
		}
	}
	f.mem.CheckLayoutIndex = kindIndex(model.KindTower)
	res = f.s.Step(12)
	if res.Placed || res.Skipped != "" {
		t.Fatalf("exhausted visit: %+v", res)
	}
	if got := f.mem.NextCheck[model.KindTower]; got != 12+1000 {
		t.Fatalf("next check=%d want 1012", got)
	}
	f.mem.CheckLayoutIndex = kindIndex(model.KindTower)
	if res := f.s.Step(500); res.Skipped != "cooldown" {
		t.Fatalf("expected cooldown skip, got %+v", res)
	}
}

func TestStep_SkipsAboveCap(t *testing.T) {
	f := newFixture(t, 1)
	f.w.CreateWorkOrder(geom.Pos{X: 5, Y: 5}, model.KindRoad)
	f.w.CreateWorkOrder(geom.Pos{X: 5, Y: 6}, model.KindRoad)
	f.mem.CheckLayoutIndex = kindIndex(model.KindSpawn)
	if res := f.s.Step(1); res.Skipped != "cap" {
		t.Fatalf("expected cap skip at level 1 with 2 orders, got %+v", res)
	}
}

func TestStep_RampartsWaitForLevel(t *testing.T) {
	f := newFixture(t, 4)
	f.mem.CheckLayoutIndex = kindIndex(model.KindRampart)
	if res := f.s.Step(1); res.Skipped != "level" {
		t.Fatalf("expected level skip, got %+v", res)
	}
}

func TestNextRepairIndex_Wraparound(t *testing.T) {
	mem := &model.LayoutMemory{}
	const n = 5
	for round := 0; round < 3; round++ {
		seen := map[int]bool{}
		for i := 0; i < n; i++ {
			idx := NextRepairIndex(mem, model.KindRoad, n)
			if idx != i {
				t.Fatalf("round %d call %d idx=%d", round, i, idx)
			}
			seen[idx] = true
		}
		if len(seen) != n {
			t.Fatalf("round %d visited %d indices", round, len(seen))
		}
	}
	if NextRepairIndex(mem, model.KindRampart, 0) != -1 {
		t.Fatalf("empty list should yield -1")
	}
}

func TestRepairKindFor(t *testing.T) {
	if RepairKindFor(10) != model.KindRampart || RepairKindFor(11) != model.KindRoad {
		t.Fatalf("parity mismatch")
	}
}

func TestRepairLayout_InRangeThenForcedNearest(t *testing.T) {
	f := newFixture(t, 8)
	near := f.w.AddStructure(model.KindTower, geom.Pos{X: 27, Y: 26}, 3000, 3000)
	near.Energy = 100
	far := f.w.AddStructure(model.KindTower, geom.Pos{X: 40, Y: 40}, 3000, 3000)
	far.Energy = 100
	r := f.w.AddStructure(model.KindRampart, geom.Pos{X: 27, Y: 28}, 1000, 300000000)

	if shots := f.s.RepairLayout(2, r); shots != 2 {
		t.Fatalf("shots=%d want 2", shots)
	}
	if r.Hits != 2600 {
		t.Fatalf("hits=%d want 2600", r.Hits)
	}
	if shots := f.s.RepairLayout(2, r); shots != 0 {
		t.Fatalf("towers fire once per tick, got %d shots", shots)
	}

	r.Hits = 100000
	if shots := f.s.RepairLayout(4, r); shots != 0 {
		t.Fatalf("rampart above floor should be skipped, got %d", shots)
	}

	road := f.w.AddStructure(model.KindRoad, geom.Pos{X: 28, Y: 26}, 4000, 5000)
	if shots := f.s.RepairLayout(6, road); shots != 1 {
		t.Fatalf("road shots=%d want 1", shots)
	}
	if !f.fired.Reserved(6, near.ID) || f.fired.Reserved(6, far.ID) {
		t.Fatalf("only the near tower should have fired")
	}
}

func TestTowerRepair_SkipsUnderHostiles(t *testing.T) {
	f := newFixture(t, 8)
	tw := f.w.AddStructure(model.KindTower, geom.Pos{X: 27, Y: 26}, 3000, 3000)
	tw.Energy = 100
	first := f.planner.CoordinatesFor(model.KindRampart)[0]
	r := f.w.AddStructure(model.KindRampart, first, 10, 300000000)

	f.w.AddHostile(geom.Pos{X: 2, Y: 2}, 1, 0, 50)
	if shots := f.s.TowerRepair(2); shots != 0 {
		t.Fatalf("repair under hostiles: %d shots", shots)
	}
	f.w.ClearHostiles()
	if shots := f.s.TowerRepair(4); shots != 1 {
		t.Fatalf("shots=%d want 1", shots)
	}
	if r.Hits != 810 {
		t.Fatalf("hits=%d want 810", r.Hits)
	}
	if got := f.mem.RepairIndices[model.KindRampart]; got != 1 {
		t.Fatalf("repair index=%d want 1", got)
	}
}
