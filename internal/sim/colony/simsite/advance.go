package simsite

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// Landing records a threat that hit this tick.
type Landing struct {
	Threat    model.Threat
	Destroyed []string
}

// Advance moves the world one tick: scripted events, threat countdowns, hostile fire,
// spawning, income and decay. The operation runs after Advance within the same tick.
func (w *World) Advance() []Landing {
	w.tick++
	for _, fn := range w.events[w.tick] {
		fn(w)
	}
	delete(w.events, w.tick)

	landings := w.countdown()
	w.hostileFire()
	w.hatch()
	w.age()
	w.income()
	w.build()
	if w.decay.Due(w.tick) {
		for _, s := range w.Structures(model.KindRampart) {
			s.Hits -= w.cfg.RampartDecay
			if s.Hits <= 0 {
				delete(w.structures, s.ID)
			}
		}
	}
	return landings
}

func (w *World) countdown() []Landing {
	var out []Landing
	kept := w.threats[:0]
	for _, t := range w.threats {
		if t.TimeToImpact > 1 {
			t.TimeToImpact--
			kept = append(kept, t)
			continue
		}
		out = append(out, w.land(t))
	}
	w.threats = kept
	return out
}

func (w *World) land(t model.Threat) Landing {
	table := t.Falloff
	if len(table) == 0 {
		table = w.cfg.Falloff
	}
	damageAt := func(p geom.Pos) int64 {
		r := geom.Range(p, t.Pos)
		for _, b := range table {
			if r <= b.MaxRange {
				return b.Damage
			}
		}
		return 0
	}
	l := Landing{Threat: t}
	for _, s := range w.AllStructures() {
		d := damageAt(s.Pos)
		if d == 0 {
			continue
		}
		s.Hits -= d
		if s.Hits <= 0 {
			delete(w.structures, s.ID)
			l.Destroyed = append(l.Destroyed, s.ID)
		}
	}
	for _, u := range w.Units() {
		if damageAt(u.pos) > 0 {
			delete(w.units, u.id)
		}
	}
	return l
}

const (
	rangedPower = 10
	attackPower = 30
)

func (w *World) hostileFire() {
	kept := w.hostiles[:0]
	for _, h := range w.hostiles {
		for _, s := range w.Structures(model.KindRampart) {
			d := int64(0)
			r := geom.Range(h.Pos, s.Pos)
			if r <= 3 {
				d += int64(h.RangedParts * rangedPower)
			}
			if r <= 1 {
				d += int64(h.AttackParts * attackPower)
			}
			if d > 0 {
				s.Hits -= d
				if s.Hits <= 0 {
					delete(w.structures, s.ID)
				}
				break
			}
		}
		h.ttl--
		if h.ttl > 0 {
			kept = append(kept, h)
		}
	}
	w.hostiles = kept
}

func (w *World) age() {
	for _, u := range w.Units() {
		u.ttl--
		if u.ttl <= 0 || u.hits <= 0 {
			delete(w.units, u.id)
		}
	}
}

func (w *World) income() {
	st, ok := w.Storage()
	if !ok {
		return
	}
	st.Energy += w.cfg.StorageIncome
	for _, t := range w.Structures(model.KindTower) {
		if st.Energy <= 0 {
			return
		}
		need := minInt(t.EnergyCapacity-t.Energy, 20)
		if need <= 0 {
			continue
		}
		need = minInt(need, st.Energy)
		t.Energy += need
		st.Energy -= need
	}
}

func (w *World) build() {
	if w.cfg.BuildRate <= 0 {
		return
	}
	orders := w.WorkOrders()
	if len(orders) == 0 {
		return
	}
	o := orders[0]
	o.Progress += w.cfg.BuildRate
	if o.Progress >= o.Total {
		w.complete(o)
	}
}

func (w *World) complete(o *model.WorkOrder) {
	delete(w.orders, o.ID)
	hits, hitsMax := hitsFor(o.Kind)
	s := w.AddStructure(o.Kind, o.Pos, hits, hitsMax)
	switch o.Kind {
	case model.KindExtension:
		s.EnergyCapacity = 200
	case model.KindTower:
		s.EnergyCapacity = 1000
	}
}
