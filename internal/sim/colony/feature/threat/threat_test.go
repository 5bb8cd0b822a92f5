package threat

import (
	"testing"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

func rampart(id string, x, y int, hits int64) *model.Structure {
	return &model.Structure{ID: id, Kind: model.KindRampart, Pos: geom.Pos{X: x, Y: y}, Hits: hits, HitsMax: 300000000}
}

func TestIncomingDamage_Falloff(t *testing.T) {
	cfg := DefaultConfig()
	threats := []model.Threat{{ID: "n1", Pos: geom.Pos{X: 20, Y: 20}, TimeToImpact: 100}}
	cases := []struct {
		p    geom.Pos
		want int64
	}{
		{geom.Pos{X: 20, Y: 20}, 10000000},
		{geom.Pos{X: 21, Y: 19}, 5000000},
		{geom.Pos{X: 22, Y: 22}, 5000000},
		{geom.Pos{X: 23, Y: 20}, 0},
	}
	for _, c := range cases {
		if got := cfg.IncomingDamage(c.p, threats); got != c.want {
			t.Fatalf("IncomingDamage(%s)=%d want %d", c.p, got, c.want)
		}
	}

	two := append(threats, model.Threat{ID: "n2", Pos: geom.Pos{X: 21, Y: 20}, TimeToImpact: 300})
	if got := cfg.IncomingDamage(geom.Pos{X: 20, Y: 20}, two); got != 15000000 {
		t.Fatalf("stacked damage=%d want 15000000", got)
	}
}

func TestIncomingDamage_PerThreatTable(t *testing.T) {
	cfg := DefaultConfig()
	threats := []model.Threat{{
		ID: "n1", Pos: geom.Pos{X: 10, Y: 10}, TimeToImpact: 50,
		Falloff: []model.DamageBucket{{MaxRange: 4, Damage: 7}},
	}}
	if got := cfg.IncomingDamage(geom.Pos{X: 14, Y: 10}, threats); got != 7 {
		t.Fatalf("override table damage=%d want 7", got)
	}
	if got := cfg.IncomingDamage(geom.Pos{X: 15, Y: 10}, threats); got != 0 {
		t.Fatalf("outside override table damage=%d want 0", got)
	}
}

func TestEvaluateRisk_RateUsesSoonestImpact(t *testing.T) {
	cfg := Config{
		Falloff:      []model.DamageBucket{{MaxRange: 0, Damage: 1000000}},
		SafetyMargin: 0,
	}
	threats := []model.Threat{
		{ID: "a", Pos: geom.Pos{X: 10, Y: 10}, TimeToImpact: 500},
		{ID: "b", Pos: geom.Pos{X: 30, Y: 30}, TimeToImpact: 1200},
	}
	ss := []*model.Structure{
		rampart("r1", 10, 10, 600000), // deficit 400000
		rampart("r2", 30, 30, 500000), // deficit 500000
		rampart("r3", 40, 40, 100),    // no damage and no margin
	}
	a := cfg.EvaluateRisk(ss, threats)
	if a.TotalDeficit != 900000 {
		t.Fatalf("deficit=%d want 900000", a.TotalDeficit)
	}
	if a.SoonestImpact != 500 {
		t.Fatalf("soonest=%d want 500", a.SoonestImpact)
	}
	if a.RequiredRate != 1800 {
		t.Fatalf("rate=%d want 1800", a.RequiredRate)
	}
	if len(a.AtRisk) != 2 || a.AtRisk[0].Structure.ID != "r1" {
		t.Fatalf("at risk=%+v", a.AtRisk)
	}
	low, ok := a.Lowest()
	if !ok || low.ID != "r2" {
		t.Fatalf("lowest=%v", low)
	}
}

func TestEvaluateRisk_SafetyMargin(t *testing.T) {
	cfg := DefaultConfig()
	threats := []model.Threat{{ID: "n", Pos: geom.Pos{X: 20, Y: 20}, TimeToImpact: 100}}
	// 5M incoming + 10M margin = 15M needed.
	safe := rampart("safe", 21, 21, 15000000)
	weak := rampart("weak", 22, 22, 14999999)
	a := cfg.EvaluateRisk([]*model.Structure{safe, weak}, threats)
	if len(a.AtRisk) != 1 || a.AtRisk[0].Structure.ID != "weak" || a.AtRisk[0].Deficit != 1 {
		t.Fatalf("at risk=%+v", a.AtRisk)
	}
	if a.RequiredRate != 1 {
		t.Fatalf("rate=%d want 1", a.RequiredRate)
	}
}

func TestEvaluateRisk_MarginAppliesOutsideDamageRange(t *testing.T) {
	cfg := DefaultConfig()
	threats := []model.Threat{{ID: "n", Pos: geom.Pos{X: 10, Y: 10}, TimeToImpact: 1000}}
	far := rampart("far", 40, 40, 5000000)
	sturdy := rampart("sturdy", 45, 45, 10000000)
	a := cfg.EvaluateRisk([]*model.Structure{far, sturdy}, threats)
	r, ok := a.Risk("far")
	if !ok {
		t.Fatalf("far rampart below the margin must be at risk: %+v", a.AtRisk)
	}
	if r.Incoming != 0 || r.Deficit != 5000000 {
		t.Fatalf("risk=%+v", r)
	}
	if _, ok := a.Risk("sturdy"); ok {
		t.Fatalf("rampart at exactly the margin is safe")
	}
	if a.TotalDeficit != 5000000 || a.RequiredRate != 5000 {
		t.Fatalf("deficit=%d rate=%d", a.TotalDeficit, a.RequiredRate)
	}
}

func TestEvaluateRisk_RateRoundsUp(t *testing.T) {
	cfg := Config{Falloff: []model.DamageBucket{{MaxRange: 0, Damage: 1001}}}
	threats := []model.Threat{{ID: "n", Pos: geom.Pos{X: 5, Y: 5}, TimeToImpact: 1000}}
	a := cfg.EvaluateRisk([]*model.Structure{rampart("r", 5, 5, 0)}, threats)
	if a.TotalDeficit != 1001 || a.RequiredRate != 2 {
		t.Fatalf("deficit=%d rate=%d want 1001 and 2", a.TotalDeficit, a.RequiredRate)
	}
}

func TestEvaluateRisk_NoThreats(t *testing.T) {
	a := DefaultConfig().EvaluateRisk([]*model.Structure{rampart("r", 1, 1, 1)}, nil)
	if a.Endangered() || a.RequiredRate != 0 {
		t.Fatalf("expected empty assessment, got %+v", a)
	}
}

func TestSortedByHits(t *testing.T) {
	a := Assessment{AtRisk: []Risk{
		{Structure: rampart("b", 0, 0, 5)},
		{Structure: rampart("a", 0, 0, 5)},
		{Structure: rampart("c", 0, 0, 1)},
	}}
	got := a.SortedByHits()
	if got[0].Structure.ID != "c" || got[1].Structure.ID != "a" || got[2].Structure.ID != "b" {
		t.Fatalf("order=%s,%s,%s", got[0].Structure.ID, got[1].Structure.ID, got[2].Structure.ID)
	}
}
