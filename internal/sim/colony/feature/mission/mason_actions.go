package mission

import (
	"sort"
	"strconv"
	"strings"

	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// combatCosts makes hostile ranged footprints expensive, melee reach impassable and
// passable ramparts cheap. With additive set the ranged penalty stacks.
func (m *MasonMission) combatCosts(additive bool) *model.MoveOpts {
	if len(m.hostiles) == 0 {
		return nil
	}
	hostiles := m.hostiles
	ramparts := m.site.Structures(model.KindRampart)
	site := m.site
	return &model.MoveOpts{Costs: func(cm *model.CostMatrix) {
		for _, h := range hostiles {
			if h.RangedParts > 0 {
				cm.BlockOff(h.Pos, 3, 30, additive)
			}
		}
		for _, h := range hostiles {
			if h.AttackParts > 0 {
				cm.BlockOff(h.Pos, 1, model.CostImpassable, false)
			}
		}
		for _, r := range ramparts {
			if site.Position(r.Pos).Passable {
				cm.Set(r.Pos, 1)
			}
		}
	}}
}

// siegeRampart is the weakest rampart not covering a structure other than a road,
// unless an operator flag marks an override.
func (m *MasonMission) siegeRampart() (*model.Structure, bool) {
	if p, ok := m.site.Flag(m.site.Name() + "_rampart"); ok {
		if r, ok := model.StructureAt(m.site, p, model.KindRampart); ok {
			return r, true
		}
	}
	var best *model.Structure
	for _, r := range m.site.Structures(model.KindRampart) {
		covered := false
		for _, s := range m.site.StructuresAt(r.Pos) {
			if s.Kind != model.KindRampart && s.Kind != model.KindRoad {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		if best == nil || r.Hits < best.Hits {
			best = r
		}
	}
	return best, best != nil
}

func (m *MasonMission) warMasonActions(a model.Agent) {
	r, ok := m.siegeRampart()
	if !ok {
		if !m.sandbagActions(a) {
			a.IdleNear(m.idleAnchor(a), 3)
		}
		return
	}
	if a.Pos() == r.Pos {
		a.Memory().InPosition = true
	} else {
		m.check(a.ID(), "move", a.MoveTo(r.Pos, m.combatCosts(false)))
	}
	m.check(a.ID(), "repair", a.Repair(r))
	m.healFromTower(a)
}

func (m *MasonMission) healFromTower(a model.Agent) {
	if a.Hits() >= a.HitsMax() {
		return
	}
	towers := m.site.Structures(model.KindTower)
	for i := len(towers) - 1; i >= 0; i-- {
		if !m.fired.Reserve(m.now, towers[i].ID) {
			continue
		}
		m.check(towers[i].ID, "heal", m.site.TowerHeal(towers[i].ID, a.ID()))
		return
	}
}

func (m *MasonMission) idleAnchor(a model.Agent) geom.Pos {
	if spawns := m.site.Structures(model.KindSpawn); len(spawns) > 0 {
		return spawns[0].Pos
	}
	if st, ok := m.site.Storage(); ok {
		return st.Pos
	}
	return a.Pos()
}

// economyRampart resolves the unit's remembered rampart, re-deriving it when it
// vanished or on the periodic recheck.
func (m *MasonMission) economyRampart(a model.Agent) (*model.Structure, bool) {
	mem := a.Memory()
	if mem.Recheck.Interval == 0 {
		mem.Recheck.Interval = m.cfg.RampartRecheckTicks
		mem.Recheck.NextDue = m.now + m.cfg.RampartRecheckTicks
	}
	if mem.Recheck.Due(m.now) {
		a.ForgetOwn(keyRampart)
	}
	ramparts := m.site.Structures(model.KindRampart)
	ref := claim.Ref[*model.Structure]{
		Lookup: m.lookupKind(model.KindRampart),
		Candidates: func() []*model.Structure {
			low, ok := lowestHits(ramparts)
			if !ok {
				return nil
			}
			var out []*model.Structure
			for _, r := range ramparts {
				if r.Hits < low.Hits+m.cfg.RampartBand {
					out = append(out, r)
				}
			}
			sortByRange(out, a.Pos())
			return out
		},
		ID: structureID,
	}
	remembered, _ := a.Claimed(keyRampart)
	r, id, ok := ref.Resolve(remembered)
	if !ok {
		a.ForgetOwn(keyRampart)
		return nil, false
	}
	a.ClaimOwn(keyRampart, id)
	return r, true
}

func (m *MasonMission) masonActions(a model.Agent) {
	r, ok := m.economyRampart(a)
	if !ok {
		a.IdleNear(m.idleAnchor(a), 3)
		return
	}
	a.Memory().InPosition = true
	m.check(a.ID(), "repair", a.Repair(r))

	stolen := false
	if !a.IsFull(200) {
		stolen = a.StealNearby(string(model.KindExtension)) == model.OK
	}
	if a.IsFull(300) || stolen {
		a.IdleNear(r.Pos, 3)
		return
	}
	src, ok := m.refillSource(a, r)
	if !ok {
		return
	}
	if !geom.IsNear(a.Pos(), src.Pos) {
		m.check(a.ID(), "move", a.MoveTo(src.Pos, nil))
		return
	}
	st := a.Withdraw(src, model.ResourceEnergy)
	m.check(a.ID(), "withdraw", st)
	if st == model.OK && !geom.InRange(a.Pos(), r.Pos, 3) {
		m.check(a.ID(), "move", a.MoveTo(r.Pos, nil))
	}
}

// refillSource is the nearer of storage and the non-empty extension closest to r.
func (m *MasonMission) refillSource(a model.Agent, r *model.Structure) (*model.Structure, bool) {
	var opts []*model.Structure
	if st, ok := m.site.Storage(); ok {
		opts = append(opts, st)
	}
	var full []*model.Structure
	for _, e := range m.site.Structures(model.KindExtension) {
		if e.Energy > 0 {
			full = append(full, e)
		}
	}
	if i := geom.Closest(r.Pos, model.Positions(full)); i >= 0 {
		opts = append(opts, full[i])
	}
	i := geom.Closest(a.Pos(), model.Positions(opts))
	if i < 0 {
		return nil, false
	}
	return opts[i], true
}

// Sandbags are choke points: non-rampart structures within two tiles of a wall
// rampart and inside the ramparts' bounding box. Computed once and cached serialized.
func (m *MasonMission) Sandbags() []geom.Pos {
	if m.sandbags != nil {
		return m.sandbags
	}
	if !m.mem.SandbagsKnown {
		m.mem.Sandbags = serializePositions(m.findSandbags())
		m.mem.SandbagsKnown = true
	}
	m.sandbags = deserializePositions(m.mem.Sandbags)
	return m.sandbags
}

func (m *MasonMission) findSandbags() []geom.Pos {
	left, right, top, bottom := geom.GridSize, 0, geom.GridSize, 0
	var walls []geom.Pos
	for _, r := range m.site.Structures(model.KindRampart) {
		if _, ok := model.StructureAt(m.site, r.Pos, model.KindRoad); ok {
			continue
		}
		if _, ok := model.StructureAt(m.site, r.Pos, model.KindExtension); ok {
			continue
		}
		walls = append(walls, r.Pos)
		left, right = minInt(left, r.Pos.X), maxInt(right, r.Pos.X)
		top, bottom = minInt(top, r.Pos.Y), maxInt(bottom, r.Pos.Y)
	}
	var out []geom.Pos
	seen := map[geom.Pos]bool{}
	for _, kind := range model.ConstructionOrder {
		if kind == model.KindRampart {
			continue
		}
		for _, s := range m.site.Structures(kind) {
			if seen[s.Pos] {
				continue
			}
			if _, ok := model.StructureAt(m.site, s.Pos, model.KindRampart); ok {
				continue
			}
			if s.Pos.X < left || s.Pos.X > right || s.Pos.Y < top || s.Pos.Y > bottom {
				continue
			}
			near := false
			for _, w := range walls {
				if geom.InRange(s.Pos, w, 2) {
					near = true
					break
				}
			}
			if near {
				seen[s.Pos] = true
				out = append(out, s.Pos)
			}
		}
	}
	return out
}

// sandbagActions builds open work orders, then props up failing sandbag ramparts.
// It reports whether the unit got something to do.
func (m *MasonMission) sandbagActions(a model.Agent) bool {
	orders := m.site.WorkOrders()
	if i := geom.Closest(a.Pos(), workOrderPositions(orders)); i >= 0 {
		o := orders[i]
		if geom.InRange(a.Pos(), o.Pos, 3) {
			m.check(a.ID(), "build", a.Build(o))
		} else {
			m.check(a.ID(), "move", a.MoveTo(o.Pos, m.combatCosts(false)))
		}
		return true
	}
	r, ok := m.emergencySandbag(a)
	if !ok {
		return false
	}
	if geom.InRange(a.Pos(), r.Pos, 3) {
		m.check(a.ID(), "repair", a.Repair(r))
	} else {
		m.check(a.ID(), "move", a.MoveTo(r.Pos, m.combatCosts(false)))
	}
	return true
}

// emergencySandbag returns a sandbag rampart under a tenth of the threshold. With
// none and no open work orders, it orders one sandbag next to the nearest hostile.
func (m *MasonMission) emergencySandbag(a model.Agent) (*model.Structure, bool) {
	floor := m.cfg.SandbagThreshold / 10
	var open []geom.Pos
	for _, p := range m.Sandbags() {
		r, ok := model.StructureAt(m.site, p, model.KindRampart)
		if ok && r.Hits < floor {
			return r, true
		}
		if !ok {
			open = append(open, p)
		}
	}
	if len(m.site.WorkOrders()) > 0 || len(m.hostiles) == 0 || len(open) == 0 {
		return nil, false
	}
	hp := make([]geom.Pos, len(m.hostiles))
	for i, h := range m.hostiles {
		hp[i] = h.Pos
	}
	enemy := hp[geom.Closest(a.Pos(), hp)]
	at := open[geom.Closest(enemy, open)]
	m.check(a.ID(), "sandbag", m.site.CreateWorkOrder(at, model.KindRampart))
	return nil, false
}

func (m *MasonMission) lookupKind(kind model.Kind) func(string) (*model.Structure, bool) {
	return func(id string) (*model.Structure, bool) {
		s, ok := m.site.Structure(id)
		if !ok || s.Kind != kind {
			return nil, false
		}
		return s, true
	}
}

func structureID(s *model.Structure) string { return s.ID }

func sortByRange(ss []*model.Structure, from geom.Pos) {
	sort.SliceStable(ss, func(i, j int) bool {
		ri, rj := geom.Range(from, ss[i].Pos), geom.Range(from, ss[j].Pos)
		if ri != rj {
			return ri < rj
		}
		return ss[i].ID < ss[j].ID
	})
}

func workOrderPositions(os []*model.WorkOrder) []geom.Pos {
	out := make([]geom.Pos, len(os))
	for i, o := range os {
		out[i] = o.Pos
	}
	return out
}

func serializePositions(ps []geom.Pos) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strconv.Itoa(geom.Serialize(p))
	}
	return strings.Join(parts, ",")
}

func deserializePositions(s string) []geom.Pos {
	out := []geom.Pos{}
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, geom.Deserialize(n))
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
