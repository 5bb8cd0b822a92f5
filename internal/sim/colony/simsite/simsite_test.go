package simsite

import (
	"testing"

	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

func TestAdvance_ThreatLandsWithFalloff(t *testing.T) {
	w := New(Config{Name: "s"})
	core := w.AddStructure(model.KindRampart, geom.Pos{X: 25, Y: 25}, 12000000, 300000000)
	edge := w.AddStructure(model.KindRampart, geom.Pos{X: 27, Y: 25}, 4000000, 300000000)
	far := w.AddStructure(model.KindRampart, geom.Pos{X: 30, Y: 30}, 1000000, 300000000)
	w.AddThreat(geom.Pos{X: 25, Y: 25}, 2)

	if got := w.Advance(); len(got) != 0 {
		t.Fatalf("landed early: %+v", got)
	}
	if th := w.Threats(); len(th) != 1 || th[0].TimeToImpact != 1 {
		t.Fatalf("threats=%+v", th)
	}
	landings := w.Advance()
	if len(landings) != 1 {
		t.Fatalf("landings=%d", len(landings))
	}
	if d := landings[0].Destroyed; len(d) != 1 || d[0] != edge.ID {
		t.Fatalf("destroyed=%v", d)
	}
	if core.Hits != 2000000 || far.Hits != 1000000 {
		t.Fatalf("hits core=%d far=%d", core.Hits, far.Hits)
	}
	if len(w.Threats()) != 0 {
		t.Fatalf("threat should be gone after landing")
	}
}

func TestHeadCount_QueuesAndHatches(t *testing.T) {
	w := New(Config{Name: "s"})
	req := model.SpawnRequest{Mission: "m", Role: "r", Max: 2, Body: model.BodySpec{Work: 1, Carry: 1, Move: 1}}

	if live := w.HeadCount(req); len(live) != 0 || w.Pending("r") != 0 {
		t.Fatalf("queued without a spawn")
	}
	w.AddStructure(model.KindSpawn, geom.Pos{X: 10, Y: 10}, 5000, 5000)
	for i := 0; i < 3; i++ {
		w.HeadCount(req)
	}
	if got := w.Pending("r"); got != 2 {
		t.Fatalf("pending=%d want 2", got)
	}
	for i := 0; i < 3; i++ {
		w.Advance()
	}
	live := w.HeadCount(req)
	if len(live) != 2 || w.Pending("r") != 0 {
		t.Fatalf("live=%d pending=%d", len(live), w.Pending("r"))
	}
	for _, a := range live {
		if !geom.IsNear(a.Pos(), geom.Pos{X: 10, Y: 10}) || a.Pos() == (geom.Pos{X: 10, Y: 10}) {
			t.Fatalf("hatched at %s", a.Pos())
		}
	}
}

func TestSeed_AvoidsWalls(t *testing.T) {
	w := New(Config{Name: "s"})
	center, rot, ok := Seed{}.Analyze(w, layout.Static)
	if !ok || center != (geom.Pos{X: 25, Y: 25}) || rot != 0 {
		t.Fatalf("open site center=%s rot=%d ok=%v", center, rot, ok)
	}
	w.AddWall(geom.Pos{X: 25, Y: 25})
	center, rot, ok = Seed{}.Analyze(w, layout.Static)
	if !ok || center != (geom.Pos{X: 21, Y: 21}) || rot != 0 {
		t.Fatalf("walled center=%s rot=%d ok=%v", center, rot, ok)
	}
}

func TestCreateWorkOrder_Rejections(t *testing.T) {
	w := New(Config{Name: "s"})
	w.AddWall(geom.Pos{X: 5, Y: 5})
	w.AddStructure(model.KindSpawn, geom.Pos{X: 10, Y: 10}, 5000, 5000)

	cases := []struct {
		pos  geom.Pos
		kind model.Kind
		want model.Status
	}{
		{geom.Pos{X: 5, Y: 5}, model.KindRoad, model.ErrInvalidTarget},
		{geom.Pos{X: 10, Y: 10}, model.KindSpawn, model.ErrInvalidTarget},
		{geom.Pos{X: 10, Y: 10}, model.KindTower, model.ErrInvalidTarget},
		{geom.Pos{X: 10, Y: 10}, model.KindRampart, model.OK},
		{geom.Pos{X: 10, Y: 10}, model.KindRoad, model.ErrInvalidTarget},
		{geom.Pos{X: 60, Y: 10}, model.KindRoad, model.ErrInvalidTarget},
	}
	for _, c := range cases {
		if got := w.CreateWorkOrder(c.pos, c.kind); got != c.want {
			t.Fatalf("%s at %s: got %s want %s", c.kind, c.pos, got, c.want)
		}
	}
}

func TestBuildRate_CompletesOldestOrder(t *testing.T) {
	w := New(Config{Name: "s", BuildRate: 300})
	w.CreateWorkOrder(geom.Pos{X: 5, Y: 6}, model.KindRoad)
	w.CreateWorkOrder(geom.Pos{X: 6, Y: 6}, model.KindExtension)
	w.Advance()
	if roads := w.Structures(model.KindRoad); len(roads) != 1 || roads[0].Pos != (geom.Pos{X: 5, Y: 6}) {
		t.Fatalf("roads=%+v", roads)
	}
	orders := w.WorkOrders()
	if len(orders) != 1 || orders[0].Kind != model.KindExtension {
		t.Fatalf("orders=%+v", orders)
	}
	w.Advance()
	if orders[0].Progress != 300 {
		t.Fatalf("progress=%d", orders[0].Progress)
	}
}

func TestExportRestore(t *testing.T) {
	w1 := New(Config{Name: "s"})
	w1.AddStructure(model.KindStorage, geom.Pos{X: 26, Y: 25}, 10000, 10000)
	w1.AddStructure(model.KindSpawn, geom.Pos{X: 27, Y: 24}, 5000, 5000)
	w1.CreateWorkOrder(geom.Pos{X: 20, Y: 20}, model.KindRoad)
	structures, orders := w1.Export()
	if len(structures) != 2 || len(orders) != 1 {
		t.Fatalf("export=%d/%d", len(structures), len(orders))
	}

	w2 := New(Config{Name: "s"})
	w2.Restore(77, structures, orders)
	if w2.Tick() != 77 {
		t.Fatalf("tick=%d", w2.Tick())
	}
	if _, ok := w2.Storage(); !ok {
		t.Fatalf("storage not restored")
	}
	if _, ok := w2.WorkOrderAt(geom.Pos{X: 20, Y: 20}); !ok {
		t.Fatalf("work order not restored")
	}
	s := w2.AddStructure(model.KindRoad, geom.Pos{X: 1, Y: 1}, 1, 1)
	if s.ID != "road-00004" {
		t.Fatalf("new id=%s collides with restored ids", s.ID)
	}

	for i := range structures {
		structures[i].Hits = 1
	}
	if st, _ := w2.Storage(); st.Hits != 10000 {
		t.Fatalf("restore aliases the input slice")
	}
}

func TestRaids_ScheduleThreats(t *testing.T) {
	w := New(Config{Name: "s", Seed: 1})
	r := w.AddStructure(model.KindRampart, geom.Pos{X: 20, Y: 20}, 1000, 1000)
	Raids{ThreatEvery: 5, ThreatFlight: 100}.Install(w)
	for i := 0; i < 4; i++ {
		w.Advance()
	}
	if len(w.Threats()) != 0 {
		t.Fatalf("threat before schedule")
	}
	w.Advance()
	th := w.Threats()
	if len(th) != 1 || th[0].Pos != r.Pos || th[0].TimeToImpact != 99 {
		t.Fatalf("threats=%+v", th)
	}
	for i := 0; i < 5; i++ {
		w.Advance()
	}
	if len(w.Threats()) != 2 {
		t.Fatalf("recurring threat missing: %+v", w.Threats())
	}
}
