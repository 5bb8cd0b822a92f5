package operation

import (
	"testing"

	"colonyctl.ai/internal/sim/colony/feature/mission"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/colony/simsite"
	"colonyctl.ai/internal/sim/tuning"
)

func newOperation(w *simsite.World, seed model.SeedAnalyzer) *Operation {
	return New(DefaultConfig(), Deps{
		Site:    w,
		Threats: w,
		Spawner: w,
		Seed:    seed,
		Dice:    sched.FixedDice(0.99),
	}, w.Mem)
}

func TestTick_SkippedWithoutLayout(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	w.AddStructure(model.KindStorage, geom.Pos{X: 26, Y: 25}, 10000, 10000)
	op := newOperation(w, nil)

	r := op.Tick(1)
	if r.Ready || op.Ready() {
		t.Fatalf("tick without layout must not be ready")
	}
	if r.StepKind != "" || r.Placed != nil {
		t.Fatalf("scheduler ran without layout: %+v", r)
	}
	if len(op.Missions()) != 0 {
		t.Fatalf("missions composed without layout")
	}
	if got := op.DrainAudits(); len(got) != 0 {
		t.Fatalf("audits=%v", got)
	}
	if w.Mem.Layout.CheckLayoutIndex != 0 {
		t.Fatalf("round-robin pointer moved on a skipped tick")
	}
}

func TestTick_PlacesFirstKindAndAudits(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	op := newOperation(w, simsite.Seed{})

	r := op.Tick(1)
	if !r.Ready {
		t.Fatalf("expected ready layout")
	}
	if c, rot := op.Planner().Center(); c != (geom.Pos{X: 25, Y: 25}) || rot != 0 {
		t.Fatalf("center=%s rot=%d", c, rot)
	}
	if r.StepKind != string(model.KindSpawn) || r.Placed == nil || *r.Placed != (geom.Pos{X: 27, Y: 24}) {
		t.Fatalf("step=%s placed=%v", r.StepKind, r.Placed)
	}
	if r.WorkOrders != 1 {
		t.Fatalf("work orders=%d want 1", r.WorkOrders)
	}
	audits := op.DrainAudits()
	if len(audits) != 1 || audits[0].Action != AuditWorkOrderPlaced || audits[0].Kind != "spawn" || audits[0].Site != "op" || audits[0].Tick != 1 {
		t.Fatalf("audits=%+v", audits)
	}
	if len(op.DrainAudits()) != 0 {
		t.Fatalf("drain must clear")
	}
	if len(op.Missions()) != 0 {
		t.Fatalf("mason mission needs storage")
	}

	r = op.Tick(2)
	if r.StepKind != string(model.KindExtension) || !r.Ready {
		t.Fatalf("second step kind=%s", r.StepKind)
	}
}

func TestMissions_ComposedOnceStorageExists(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	op := newOperation(w, simsite.Seed{})
	op.Tick(1)
	if len(op.Missions()) != 0 {
		t.Fatalf("no storage yet")
	}
	w.AddStructure(model.KindStorage, geom.Pos{X: 26, Y: 25}, 10000, 10000)
	for tick := uint64(2); tick < 5; tick++ {
		r := op.Tick(tick)
		ms := op.Missions()
		if len(ms) != 1 || ms[0].Name() != "mason" {
			t.Fatalf("tick %d missions=%d", tick, len(ms))
		}
		if _, ok := r.Populations[mission.RoleMason]; !ok {
			t.Fatalf("tick %d report lacks mason population: %+v", tick, r.Populations)
		}
	}
}

func TestInvalidateCache_ForwardsToMissions(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	w.AddStructure(model.KindStorage, geom.Pos{X: 26, Y: 25}, 10000, 10000)
	op := newOperation(w, simsite.Seed{})
	op.Tick(1)
	mm := w.Mem.Mission("mason")
	if !mm.NeedMasonKnown {
		t.Fatalf("role call should cache needMason")
	}
	op.InvalidateCache()
	if mm.NeedMasonKnown {
		t.Fatalf("cache not dropped")
	}
	audits := op.DrainAudits()
	if len(audits) == 0 || audits[len(audits)-1].Action != AuditCacheInvalidated {
		t.Fatalf("audits=%+v", audits)
	}
}

func TestMoveLayout(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	op := newOperation(w, simsite.Seed{})
	op.Tick(1)
	op.DrainAudits()

	if err := op.MoveLayout(geom.Pos{X: 60, Y: 10}, 0); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
	if err := op.MoveLayout(geom.Pos{X: 20, Y: 20}, 5); err != nil {
		t.Fatalf("move: %v", err)
	}
	l := w.Mem.Layout
	if l.Center != (geom.Pos{X: 20, Y: 20}) || l.Rotation != 1 || l.LayoutMap != nil || l.CheckLayoutIndex != 0 {
		t.Fatalf("layout memory after move: center=%s rot=%d map=%v idx=%d", l.Center, l.Rotation, l.LayoutMap != nil, l.CheckLayoutIndex)
	}
	audits := op.DrainAudits()
	if len(audits) != 1 || audits[0].Action != AuditLayoutMoved || audits[0].Reason != "rotation=1" {
		t.Fatalf("audits=%+v", audits)
	}

	r := op.Tick(2)
	if !r.Ready || w.Mem.Layout.LayoutMap == nil {
		t.Fatalf("layout map not regenerated")
	}
	if c, _ := op.Planner().Center(); c != (geom.Pos{X: 20, Y: 20}) {
		t.Fatalf("center=%s", c)
	}
}

func TestShowLayout(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	op := newOperation(w, simsite.Seed{})
	if got := op.ShowLayout(true, model.KindTower); got != nil {
		t.Fatalf("markers before layout: %v", got)
	}
	op.Tick(1)

	towers := op.ShowLayout(true, model.KindTower)
	if len(towers) != 6 {
		t.Fatalf("tower markers=%d want 6", len(towers))
	}
	for _, m := range towers {
		if m.Kind != model.KindTower {
			t.Fatalf("marker kind %s", m.Kind)
		}
	}
	if got := op.Overlay(); len(got) != 6 {
		t.Fatalf("overlay=%d", len(got))
	}
	all := op.ShowLayout(true, "")
	if len(all) <= len(towers) {
		t.Fatalf("all markers=%d", len(all))
	}
	if got := op.ShowLayout(false, ""); got != nil || w.Mem.Layout.ShowLayout {
		t.Fatalf("hide should clear overlay")
	}
	if got := op.Overlay(); got != nil {
		t.Fatalf("overlay after hide=%d", len(got))
	}
}

func TestExportImportMemory(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	w.AddStructure(model.KindStorage, geom.Pos{X: 26, Y: 25}, 10000, 10000)
	op := newOperation(w, simsite.Seed{})
	op.Tick(1)

	saved := op.ExportMemory()
	if saved.Layout.CheckLayoutIndex != 1 || !saved.Layout.HasLayout {
		t.Fatalf("exported layout=%+v", saved.Layout)
	}
	saved.Layout.LayoutMap[model.KindRoad] = nil
	if len(w.Mem.Layout.LayoutMap[model.KindRoad]) == 0 {
		t.Fatalf("export shares the live layout map")
	}

	op.Tick(2)
	if w.Mem.Layout.CheckLayoutIndex != 2 {
		t.Fatalf("idx=%d", w.Mem.Layout.CheckLayoutIndex)
	}
	restored := op.ExportMemory()
	restored.Layout.CheckLayoutIndex = 1
	op.ImportMemory(restored)
	if op.Memory() != w.Mem {
		t.Fatalf("import must keep the shared record")
	}
	if w.Mem.Layout.CheckLayoutIndex != 1 {
		t.Fatalf("idx after import=%d", w.Mem.Layout.CheckLayoutIndex)
	}
	if len(op.Missions()) != 0 {
		t.Fatalf("missions should be rebuilt over the imported record")
	}
	r := op.Tick(3)
	if r.StepKind != string(model.KindExtension) || len(op.Missions()) != 1 {
		t.Fatalf("after import step=%s missions=%d", r.StepKind, len(op.Missions()))
	}
}

func TestFinalize_DropsMemoryOfGoneUnits(t *testing.T) {
	w := simsite.New(simsite.Config{Name: "op", Level: 8})
	op := newOperation(w, simsite.Seed{})
	u := w.AddUnit("mason", mission.RoleMason, geom.Pos{X: 10, Y: 10}, model.BodySpec{Work: 1, Carry: 1, Move: 1})
	u.ClaimOwn("rampartId", "x")
	w.Mem.Units["ghost"] = &model.UnitMemory{}

	op.Tick(1)
	if _, ok := w.Mem.Units["ghost"]; ok {
		t.Fatalf("memory of a missing unit survived")
	}
	if _, ok := w.Mem.Units[u.ID()]; !ok {
		t.Fatalf("memory of a live unit dropped")
	}
	if ids := op.UnitIDs(); len(ids) != 1 || ids[0] != u.ID() {
		t.Fatalf("unit ids=%v", ids)
	}
}

func TestConfigFromTuning(t *testing.T) {
	tu := tuning.Defaults()
	tu.Site.EmergencySites = []string{"e1"}
	tu.Mason.HazmatRepairRate = 2500
	cfg := ConfigFromTuning(tu)

	if cfg.Layout.Radius != 7 || cfg.Layout.MinDefenseLevel != 5 || cfg.Construction.MinDefenseLevel != 5 {
		t.Fatalf("layout/construction=%+v %+v", cfg.Layout, cfg.Construction)
	}
	if cfg.Mason.HazmatRepairRate != 2500 || cfg.Mason.HazmatMax != 9 {
		t.Fatalf("mason=%+v", cfg.Mason)
	}
	f := cfg.Mason.Threat.Falloff
	if len(f) != 2 || f[0] != (model.DamageBucket{MaxRange: 0, Damage: 10000000}) || f[1] != (model.DamageBucket{MaxRange: 2, Damage: 5000000}) {
		t.Fatalf("falloff=%+v", f)
	}
	if len(cfg.Layout.EmergencySites) != 1 || len(cfg.Mason.EmergencySites) != 1 {
		t.Fatalf("emergency sites not carried")
	}
	tu.Site.EmergencySites[0] = "changed"
	if cfg.Layout.EmergencySites[0] != "e1" {
		t.Fatalf("config aliases the tuning slice")
	}
}
