package mission

import (
	"sort"

	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// hasLoad latches on a full cargo and clears on an empty one.
func hasLoad(a model.Agent) bool {
	mem := a.Memory()
	if a.Capacity() > 0 && a.Energy() >= a.Capacity() {
		mem.HasLoad = true
	} else if a.Energy() == 0 {
		mem.HasLoad = false
	}
	return mem.HasLoad
}

func hungry(a model.Agent) bool { return a.Energy() < a.Capacity()/2 }

// cartActions runs the claim-and-deliver loop: claim the nearest unclaimed hungry
// target, fill up at storage, deliver, and re-claim at once while cargo remains.
func (m *MasonMission) cartActions(cart model.Agent, targets []model.Agent) {
	opts := m.combatCosts(true)
	m.healFromTower(cart)

	storage, hasStorage := m.site.Storage()
	target, ok := m.lowest(cart, targets)
	if !ok || !hasStorage {
		if _, onRampart := model.StructureAt(m.site, cart.Pos(), model.KindRampart); !onRampart {
			cart.Flee(4)
		}
		return
	}

	if !hasLoad(cart) {
		if geom.IsNear(cart.Pos(), storage.Pos) {
			m.check(cart.ID(), "withdraw", cart.Withdraw(storage, model.ResourceEnergy))
			m.check(cart.ID(), "move", cart.MoveTo(target.Pos(), opts))
		} else {
			m.check(cart.ID(), "move", cart.MoveTo(storage.Pos, opts))
		}
		return
	}

	if !geom.IsNear(cart.Pos(), target.Pos()) {
		m.check(cart.ID(), "move", cart.MoveTo(target.Pos(), opts))
		return
	}
	carried := cart.Energy()
	room := target.Capacity() - target.Energy()
	st := cart.Transfer(target, model.ResourceEnergy)
	m.check(cart.ID(), "transfer", st)
	if st != model.OK {
		return
	}
	if carried <= room {
		m.check(cart.ID(), "move", cart.MoveTo(storage.Pos, opts))
		return
	}
	cart.ForgetOwn(keyDeliver)
	delete(m.report.Claims, cart.ID())
	if next, ok := m.lowest(cart, targets); ok {
		m.check(cart.ID(), "move", cart.MoveTo(next.Pos(), opts))
	}
}

// lowest resolves the cart's delivery claim. Every target is handed to at most one
// cart per tick through the deliveries registry.
func (m *MasonMission) lowest(cart model.Agent, targets []model.Agent) (model.Agent, bool) {
	ref := claim.Ref[model.Agent]{
		Lookup: m.site.Unit,
		Valid: func(a model.Agent) bool {
			return hungry(a) && !m.deliveries.Reserved(m.now, a.ID())
		},
		Candidates: func() []model.Agent {
			var out []model.Agent
			for _, a := range targets {
				if a.Memory().InPosition {
					out = append(out, a)
				}
			}
			sort.SliceStable(out, func(i, j int) bool {
				ri, rj := geom.Range(cart.Pos(), out[i].Pos()), geom.Range(cart.Pos(), out[j].Pos())
				if ri != rj {
					return ri < rj
				}
				return out[i].ID() < out[j].ID()
			})
			return out
		},
		ID: func(a model.Agent) string { return a.ID() },
	}
	remembered, _ := cart.Claimed(keyDeliver)
	a, id, ok := ref.Resolve(remembered)
	if !ok || !m.deliveries.Reserve(m.now, id) {
		cart.ForgetOwn(keyDeliver)
		cart.Memory().HasLoad = false
		return nil, false
	}
	cart.ClaimOwn(keyDeliver, id)
	m.report.Claims[cart.ID()] = id
	return a, true
}
